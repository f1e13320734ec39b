// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package registry implements the Tag Registry: a process-wide, read-mostly
// metadata store keyed by an auto-assigned numeric tag id. It is shared
// (reference-counted) across every plugin handle in a pipeline so host
// service calls originating inside a sandbox can resolve tag metadata.
package registry

import "sync"

// TagMeta carries the descriptive attributes of one tag plus its
// engineering range. EngLow must be <= EngHigh.
type TagMeta struct {
	Name         string
	Unit         string
	MqttTopic    string
	HistorianTag string
	AlarmGroup   string
	EngLow       float64
	EngHigh      float64
}

// attr looks up one of the text attributes exposed by get-tag-attr. Any key
// outside this set returns ("", false).
func (m TagMeta) attr(key string) (string, bool) {
	switch key {
	case "name":
		return m.Name, true
	case "unit":
		return m.Unit, true
	case "mqtt_topic":
		return m.MqttTopic, true
	case "historian_tag":
		return m.HistorianTag, true
	case "alarm_group":
		return m.AlarmGroup, true
	default:
		return "", false
	}
}

// Registry is the bidirectional name<->id mapping plus id->TagMeta store.
// Ids are never reused and are allocated atomically with respect to
// concurrent callers. It permits concurrent readers and mutually exclusive
// writers; every read lock is scoped to a single call.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]uint32
	byID    map[uint32]TagMeta
	nextID  uint32
}

// New returns an empty registry. The first tag installed via GetOrCreate
// receives id 1.
func New() *Registry {
	return &Registry{
		byName: make(map[string]uint32),
		byID:   make(map[uint32]TagMeta),
		nextID: 1,
	}
}

// GetOrCreate returns name's id, allocating one and installing meta if name
// is not yet known. If name already exists, its id is returned unchanged
// and meta is NOT applied — the first registration wins.
func (r *Registry) GetOrCreate(name string, meta TagMeta) uint32 {
	r.mu.RLock()
	if id, ok := r.byName[name]; ok {
		r.mu.RUnlock()
		return id
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another writer may have installed name while we waited for the lock.
	if id, ok := r.byName[name]; ok {
		return id
	}

	id := r.nextID
	r.nextID++
	r.byName[name] = id
	r.byID[id] = meta
	return id
}

// GetAttr returns the text attribute for key on id, or ("", false) if id is
// unknown or key is not one of the recognised attribute names.
func (r *Registry) GetAttr(id uint32, key string) (string, bool) {
	r.mu.RLock()
	meta, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return "", false
	}
	return meta.attr(key)
}

// GetEngRange returns (low, high, true) for a known id, or (0, 0, false)
// otherwise.
func (r *Registry) GetEngRange(id uint32) (low, high float64, ok bool) {
	r.mu.RLock()
	meta, found := r.byID[id]
	r.mu.RUnlock()
	if !found {
		return 0, 0, false
	}
	return meta.EngLow, meta.EngHigh, true
}

// Lookup returns the full TagMeta for id, mainly for host-side diagnostics
// and tests; plugins only ever see it through GetAttr/GetEngRange.
func (r *Registry) Lookup(id uint32) (TagMeta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	meta, ok := r.byID[id]
	return meta, ok
}

// Size returns the number of distinct tags currently registered.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
