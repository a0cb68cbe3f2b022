// Copyright 2023 the verilator-go authors
// Licensed under the MIT license. See license text in the LICENSE file.

/*
Package stats collects compilation statistics. Counters accumulate in memory
and every update is also persisted as an entity in an embedded gits graph
instance, so later passes and external tooling can query the history of a
counter across pipeline stages.
*/
package stats

import (
	"strconv"

	"github.com/voodooEntity/archivist"
	"github.com/voodooEntity/gits"
	"github.com/voodooEntity/gits/src/storage"
	"github.com/voodooEntity/gits/src/transport"
)

// A Recorder accumulates named counters, tagged with the pipeline stage
// active at the time of the update.
//
type Recorder struct {
	g      *gits.Gits
	counts map[string]uint64
	names  []string
	stage  string
	stages []string
}

// New creates a recorder backed by a fresh gits instance of the given name.
//
func New(instance string) *Recorder {
	return &Recorder{
		g:      gits.NewInstance(instance),
		counts: make(map[string]uint64),
	}
}

// Stage marks the start of a pipeline stage; subsequent updates are tagged
// with it.
//
func (r *Recorder) Stage(name string) {
	r.stage = name
	r.stages = append(r.stages, name)
	r.g.MapData(transport.TransportEntity{
		ID:    storage.MAP_FORCE_CREATE,
		Type:  "Stage",
		Value: name,
	})
}

// Add increments a counter and persists the new value.
//
func (r *Recorder) Add(name string, n uint64) {
	if _, ok := r.counts[name]; !ok {
		r.names = append(r.names, name)
	}
	r.counts[name] += n
	r.g.MapData(transport.TransportEntity{
		ID:      storage.MAP_FORCE_CREATE,
		Type:    "Stat",
		Value:   name,
		Context: r.stage,
		Properties: map[string]string{
			"count": strconv.FormatUint(r.counts[name], 10),
		},
	})
}

// Counter returns the current value of a counter.
//
func (r *Recorder) Counter(name string) uint64 {
	return r.counts[name]
}

// Counters returns a copy of all counters.
//
func (r *Recorder) Counters() map[string]uint64 {
	out := make(map[string]uint64, len(r.counts))
	for k, v := range r.counts {
		out[k] = v
	}
	return out
}

// History returns every persisted value of a counter, in update order.
//
func (r *Recorder) History(name string) []uint64 {
	res := r.g.Query().Execute(
		gits.NewQuery().Read("Stat").Match("Value", "==", name))
	var out []uint64
	for i := 0; i < res.Amount; i++ {
		v, err := strconv.ParseUint(res.Entities[i].Properties["count"], 10, 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Dump logs every counter at info level, in first-update order.
//
func (r *Recorder) Dump(log *archivist.Archivist) {
	for _, name := range r.names {
		log.Info("stat "+name, r.counts[name])
	}
}
