// Package registry collects output descriptors from the compositor's
// initial output events.
package registry

import (
	"go.uber.org/zap"

	"github.com/koios/paper/pkg/models"
)

// InitialEvents is how many events (advertisement, geometry, mode, scale)
// complete a descriptor for outputs bound without the "done" event.
const InitialEvents = 4

// Event is one piece of output information
type Event interface {
	apply(d *models.OutputDescriptor)
}

// Geometry carries the output's make and model
type Geometry struct {
	Make  string
	Model string
}

// Mode carries a video mode; only the current one is kept
type Mode struct {
	Width   int
	Height  int
	Current bool
}

// Scale carries the integer scale factor
type Scale struct {
	Factor int
}

// Name carries the connector name (e.g. DP-1)
type Name struct {
	Name string
}

// Description carries the human readable description
type Description struct {
	Description string
}

// Done marks the end of an atomic batch of output events
type Done struct{}

func (e Geometry) apply(d *models.OutputDescriptor) {
	d.Make = e.Make
	d.Model = e.Model
}

func (e Mode) apply(d *models.OutputDescriptor) {
	if e.Current {
		d.Width = e.Width
		d.Height = e.Height
	}
}

func (e Scale) apply(d *models.OutputDescriptor) {
	if e.Factor >= 1 {
		d.Scale = e.Factor
	}
}

func (e Name) apply(d *models.OutputDescriptor)        { d.Name = e.Name }
func (e Description) apply(d *models.OutputDescriptor) { d.Description = e.Description }
func (Done) apply(*models.OutputDescriptor)            {}

type entry struct {
	desc      models.OutputDescriptor
	events    int
	sendsDone bool
}

// Registry accumulates descriptors for advertised outputs.
// It is only touched from the dispatch loop and needs no locking.
type Registry struct {
	entries map[uint32]*entry
	order   []uint32
	logger  *zap.Logger
}

// New creates an empty registry
func New(logger *zap.Logger) *Registry {
	return &Registry{
		entries: make(map[uint32]*entry),
		logger:  logger,
	}
}

// Advertise records a newly announced output. sendsDone tells whether the
// bound protocol version ends each batch with "done"; without it the
// descriptor freezes after InitialEvents. Re-advertising an id is ignored.
func (r *Registry) Advertise(id uint32, sendsDone bool) {
	if _, exists := r.entries[id]; exists {
		return
	}
	r.entries[id] = &entry{
		desc:      models.OutputDescriptor{ID: id, Scale: 1},
		events:    1,
		sendsDone: sendsDone,
	}
	r.order = append(r.order, id)
}

// Observe applies an output event. Events for unknown or frozen outputs are dropped.
func (r *Registry) Observe(id uint32, ev Event) {
	e, ok := r.entries[id]
	if !ok || e.desc.Configured {
		return
	}

	ev.apply(&e.desc)
	e.events++

	_, done := ev.(Done)
	if done || !e.sendsDone && e.events >= InitialEvents {
		e.desc.Configured = true
		r.logger.Debug("Output configured",
			zap.Uint32("id", id),
			zap.String("name", e.desc.Label()),
			zap.Int("width", e.desc.Width),
			zap.Int("height", e.desc.Height),
			zap.Int("scale", e.desc.Scale))
	}
}

// Remove forgets an output withdrawn by the compositor
func (r *Registry) Remove(id uint32) {
	if _, ok := r.entries[id]; !ok {
		return
	}
	delete(r.entries, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get returns the current descriptor for an output
func (r *Registry) Get(id uint32) (models.OutputDescriptor, bool) {
	e, ok := r.entries[id]
	if !ok {
		return models.OutputDescriptor{}, false
	}
	return e.desc, true
}

// Configured returns the frozen descriptors in advertisement order
func (r *Registry) Configured() []models.OutputDescriptor {
	var outputs []models.OutputDescriptor
	for _, id := range r.order {
		if e := r.entries[id]; e.desc.Configured {
			outputs = append(outputs, e.desc)
		}
	}
	return outputs
}

// Pending returns the number of advertised outputs that are not frozen yet
func (r *Registry) Pending() int {
	n := 0
	for _, e := range r.entries {
		if !e.desc.Configured {
			n++
		}
	}
	return n
}
