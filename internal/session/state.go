// Package session drives one output's layer surface from configure events
// to a presented buffer.
package session

import (
	"fmt"
	"time"
)

// Phase is where a session is in its lifecycle
type Phase int

const (
	PhaseUnconfigured Phase = iota
	PhaseAwaitingAck
	PhaseRendered
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseUnconfigured:
		return "unconfigured"
	case PhaseAwaitingAck:
		return "awaiting-ack"
	case PhaseRendered:
		return "rendered"
	case PhaseClosed:
		return "closed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is the complete state of a session.
// Previous is the phase a pending redraw started from.
type State struct {
	Phase      Phase
	Previous   Phase
	LastRedraw time.Time
	Width      int
	Height     int
	Serial     uint32
}

// Signal is an input to Transition
type Signal interface {
	signal()
}

// Configure is the compositor's layer-surface configure event
type Configure struct {
	Serial uint32
	Width  int
	Height int
}

// Presented reports that a redraw submitted its buffer
type Presented struct {
	At time.Time
}

// Skipped reports that a redraw failed without a fatal error
type Skipped struct{}

// PoolFailed reports that the shared memory pool could not back a redraw
type PoolFailed struct{}

// Closed is the compositor's layer-surface closed event
type Closed struct{}

func (Configure) signal()  {}
func (Presented) signal()  {}
func (Skipped) signal()    {}
func (PoolFailed) signal() {}
func (Closed) signal()     {}

// Effect is an action Transition asks the adapter to perform
type Effect interface {
	effect()
}

// Redraw renders a frame of the given logical size and attaches it
type Redraw struct {
	Width  int
	Height int
}

// Ack acknowledges a configure serial
type Ack struct {
	Serial uint32
}

// Commit commits the surface
type Commit struct{}

// Release destroys the surface and frees the pool
type Release struct{}

func (Redraw) effect()  {}
func (Ack) effect()     {}
func (Commit) effect()  {}
func (Release) effect() {}

// Transition computes the next state and the effects to run for sig.
// It has no side effects; now is only compared against LastRedraw.
func Transition(s State, sig Signal, now time.Time, threshold time.Duration) (State, []Effect) {
	if s.Phase == PhaseClosed {
		return s, nil
	}

	switch sig := sig.(type) {
	case Configure:
		s.Serial = sig.Serial
		if !s.LastRedraw.IsZero() && now.Sub(s.LastRedraw) < threshold {
			return s, []Effect{Ack{Serial: sig.Serial}}
		}
		if sig.Width <= 0 || sig.Height <= 0 {
			return s, []Effect{Ack{Serial: sig.Serial}}
		}
		s.Previous = s.Phase
		s.Phase = PhaseAwaitingAck
		s.Width = sig.Width
		s.Height = sig.Height
		return s, []Effect{
			Redraw{Width: sig.Width, Height: sig.Height},
			Ack{Serial: sig.Serial},
			Commit{},
		}

	case Presented:
		s.Phase = PhaseRendered
		s.LastRedraw = sig.At
		return s, nil

	case Skipped:
		if s.Phase == PhaseAwaitingAck {
			s.Phase = s.Previous
		}
		return s, nil

	case PoolFailed, Closed:
		s.Phase = PhaseClosed
		return s, []Effect{Release{}}
	}

	return s, nil
}
