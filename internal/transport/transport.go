// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package transport wires the NATS ingress/egress (SPEC_FULL.md §2
// expansion) around a Dispatcher: raw TagUpdate bytes arrive on the
// configured in-subject and are fed to the dispatcher one at a time per
// worker; non-empty Outcome.Output bytes are republished on the
// out-subject. The worker pool and its channel-fan-out shape follow
// ReceiveNats in the teacher's line-protocol ingestion path.
package transport

import (
	"context"
	"sync"

	"github.com/iiot-fusion/host/internal/dispatcher"
	"github.com/iiot-fusion/host/internal/registry"
	log "github.com/iiot-fusion/host/pkg/log"
	"github.com/iiot-fusion/host/pkg/nats"
)

// Dispatch is the subset of dispatcher.Dispatcher transport depends on,
// kept narrow so tests can substitute a fake without pulling in the whole
// dispatch stack.
type Dispatch interface {
	Dispatch(tagName string, raw []byte, defaultMeta registry.TagMeta) (dispatcher.Outcome, error)
}

// Bridge couples one NATS client to one Dispatch, consuming an in-subject
// and producing on an out-subject.
type Bridge struct {
	client      *nats.Client
	inSubject   string
	outSubject  string
	tagName     func(subject string) string
	defaultMeta registry.TagMeta
	workers     int
}

// New builds a Bridge. tagName derives the tag name a message belongs to
// from its NATS subject (e.g. the subject's last token); callers whose tag
// name travels inside the message payload instead can pass a constant
// function. defaultMeta seeds newly-observed tags (spec §4.3).
func New(client *nats.Client, inSubject, outSubject string, workers int, tagName func(subject string) string, defaultMeta registry.TagMeta) *Bridge {
	if workers < 1 {
		workers = 1
	}
	return &Bridge{
		client:      client,
		inSubject:   inSubject,
		outSubject:  outSubject,
		tagName:     tagName,
		defaultMeta: defaultMeta,
		workers:     workers,
	}
}

// Run subscribes to the in-subject and blocks, processing messages through
// d until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context, d Dispatch) error {
	type envelope struct {
		subject string
		data    []byte
	}

	msgs := make(chan envelope, b.workers*2)
	var wg sync.WaitGroup
	wg.Add(b.workers)

	for range b.workers {
		go func() {
			defer wg.Done()
			for m := range msgs {
				b.handle(d, m.subject, m.data)
			}
		}()
	}

	if err := b.client.Subscribe(b.inSubject, func(subject string, data []byte) {
		select {
		case msgs <- envelope{subject: subject, data: data}:
		case <-ctx.Done():
		}
	}); err != nil {
		close(msgs)
		wg.Wait()
		return err
	}

	<-ctx.Done()
	close(msgs)
	wg.Wait()
	return nil
}

func (b *Bridge) handle(d Dispatch, subject string, data []byte) {
	tag := b.tagName(subject)
	outcome, err := d.Dispatch(tag, data, b.defaultMeta)
	if err != nil {
		log.Errorf("transport: dispatch for tag '%s' failed: %v", tag, err)
		return
	}
	if outcome.Dropped || len(outcome.Output) == 0 {
		return
	}
	if err := b.client.Publish(b.outSubject, outcome.Output); err != nil {
		log.Errorf("transport: publish to '%s' failed: %v", b.outSubject, err)
	}
}
