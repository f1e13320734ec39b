// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	hconfig "github.com/iiot-fusion/host/internal/config"
	"github.com/iiot-fusion/host/internal/deployer"
	"github.com/iiot-fusion/host/internal/dispatcher"
	"github.com/iiot-fusion/host/internal/hostsvc"
	"github.com/iiot-fusion/host/internal/metrics"
	"github.com/iiot-fusion/host/internal/msgid"
	"github.com/iiot-fusion/host/internal/plugin"
	"github.com/iiot-fusion/host/internal/plugin/fused"
	"github.com/iiot-fusion/host/internal/plugin/native"
	"github.com/iiot-fusion/host/internal/plugin/wasmrt"
	"github.com/iiot-fusion/host/internal/registry"
	"github.com/iiot-fusion/host/internal/reporter"
	"github.com/iiot-fusion/host/internal/transport"
	log "github.com/iiot-fusion/host/pkg/log"
	natsclient "github.com/iiot-fusion/host/pkg/nats"
)

var (
	flagConfigFile, flagLogLevel, flagMetricsAddr, flagCacheDir string
)

func cliInit() {
	flag.StringVar(&flagConfigFile, "config", "./config.json", "Specify alternative path to `config.json`")
	flag.StringVar(&flagLogLevel, "loglevel", "", "Sets the logging level: `[debug, info, warn, err, crit]` (overrides config)")
	flag.StringVar(&flagMetricsAddr, "metrics-addr", "", "Address the Prometheus /metrics endpoint listens on (overrides config)")
	flag.StringVar(&flagCacheDir, "wasm-cache-dir", "./var/wasm-cache", "Directory for the wazero compilation cache")
	flag.Parse()
}

func main() {
	cliInit()

	if err := hconfig.Init(flagConfigFile); err != nil {
		log.Fatal(err)
	}
	if flagLogLevel != "" {
		hconfig.Keys.LogLevel = flagLogLevel
	}
	if flagMetricsAddr != "" {
		hconfig.Keys.MetricsAddr = flagMetricsAddr
	}
	if flag.NArg() > 0 {
		hconfig.Keys.PluginDir = flag.Arg(0)
	}
	log.SetLogLevel(hconfig.Keys.LogLevel)

	runID := uuid.New()
	log.Infof("pipeline host starting, run id %s", runID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	nc, err := natsclient.NewClient(natsclient.Options{Address: hconfig.Keys.Nats.Address, CredsFilePath: hconfig.Keys.Nats.CredsFile})
	if err != nil {
		log.Fatal(err)
	}
	defer nc.Close()

	reg := registry.New()
	alloc := msgid.New()
	svc := hostsvc.New(reg)

	loader, err := wasmrt.NewLoader(ctx, flagCacheDir)
	if err != nil {
		log.Fatal(err)
	}
	defer loader.Close()

	promReg := prometheus.NewRegistry()

	defaultMeta := registry.TagMeta{
		Unit:    hconfig.Keys.DefaultTagMeta.Unit,
		EngLow:  hconfig.Keys.DefaultTagMeta.EngLow,
		EngHigh: hconfig.Keys.DefaultTagMeta.EngHigh,
	}

	group, gctx := errgroup.WithContext(ctx)

	for _, spec := range hconfig.Keys.Pipelines {
		spec := spec
		d, coll, err := buildPipeline(loader, svc, reg, alloc, promReg, spec)
		if err != nil {
			log.Fatalf("pipeline %s: %v", spec.Name, err)
		}

		rep, err := reporter.New(coll.Snapshot)
		if err != nil {
			log.Fatalf("pipeline %s: reporter: %v", spec.Name, err)
		}
		if err := rep.Start(30 * time.Second); err != nil {
			log.Fatalf("pipeline %s: reporter: %v", spec.Name, err)
		}

		bridge := transport.New(nc, hconfig.Keys.Nats.InSubject, hconfig.Keys.Nats.OutSubject, 1,
			func(subject string) string { return filepath.Base(subject) }, defaultMeta)

		group.Go(func() error {
			defer rep.Stop(context.Background())
			return bridge.Run(gctx, d)
		})

		log.Infof("pipeline '%s' running (source=%s sink=%s fused=%v)", spec.Name, spec.Source, spec.Sink, spec.Fused)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(promReg))
	metricsServer := &http.Server{Addr: hconfig.Keys.MetricsAddr, Handler: mux}
	group.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("shutting down")
		metricsServer.Shutdown(context.Background())
		cancel()
	}()

	if err := group.Wait(); err != nil && gctx.Err() == nil {
		log.Errorf("pipeline host exited with error: %v", err)
	}
	log.Print("graceful shutdown completed")
}

// buildPipeline resolves every node named in spec (native built-in, or a
// WASM artifact under Keys.PluginDir), validates the chain's type algebra
// (spec §4.5) and wraps it as a transport.Dispatch — either the unfused
// Dispatcher or a FusedAdapter over a single fused sandbox (spec §4.7),
// depending on spec.Fused.
func buildPipeline(
	loader *wasmrt.Loader,
	svc *hostsvc.Surface,
	reg *registry.Registry,
	alloc *msgid.Allocator,
	promReg *prometheus.Registry,
	spec hconfig.PipelineSpec,
) (transport.Dispatch, *metrics.Collector, error) {
	source, err := resolveNode(loader, spec.Name, spec.Source)
	if err != nil {
		return nil, nil, fmt.Errorf("source: %w", err)
	}

	intermediate := make([]plugin.Handle, 0, len(spec.Nodes))
	for _, name := range spec.Nodes {
		n, err := resolveNode(loader, spec.Name, name)
		if err != nil {
			return nil, nil, fmt.Errorf("node %s: %w", name, err)
		}
		intermediate = append(intermediate, n)
	}

	sink, err := resolveSink(loader, svc, spec.Name, spec.Sink)
	if err != nil {
		return nil, nil, fmt.Errorf("sink: %w", err)
	}

	all := append([]plugin.Handle{source}, intermediate...)
	all = append(all, sink)
	if err := deployer.Validate(all); err != nil {
		return nil, nil, err
	}

	coll := metrics.New(promReg, spec.Name, func() float64 { return float64(reg.Size()) })

	if spec.Fused {
		pl := &fused.Pipeline{Source: source, Intermediate: intermediate, Sink: sink}
		return &dispatcher.FusedAdapter{Registry: reg, Allocator: alloc, Pipeline: pl, Metrics: coll}, coll, nil
	}

	d := &dispatcher.Dispatcher{
		Registry:     reg,
		Allocator:    alloc,
		Source:       source,
		Intermediate: intermediate,
		Sink:         sink,
		Metrics:      coll,
	}
	return d, coll, nil
}

func resolveNode(loader *wasmrt.Loader, pipelineName, name string) (plugin.Handle, error) {
	switch name {
	case "source":
		return native.NewSource(), nil
	case "node-a":
		return native.NewNodeA(), nil
	case "node-b":
		return native.NewNodeB(), nil
	case "node-c":
		return native.NewNodeC(), nil
	default:
		path := filepath.Join(hconfig.Keys.PluginDir, name)
		return loader.Load(path, pipelineName+"/"+name)
	}
}

func resolveSink(loader *wasmrt.Loader, svc *hostsvc.Surface, pipelineName, name string) (plugin.SinkHandle, error) {
	if name == "sink" {
		return native.NewSink(svc), nil
	}
	path := filepath.Join(hconfig.Keys.PluginDir, name)
	if err := loader.LinkHostService(svc, pipelineName+"/"+name); err != nil {
		return nil, err
	}
	return loader.LoadSink(path, pipelineName+"/"+name)
}
