// Package session implements the annotation state machine: which slice is
// active, the polygon being drawn, and the commit/load of slice annotations
// through the codec when the user moves between slices.
//
// Transition is a pure function from (State, Event) to the next State plus
// the side effects to run. Session owns a State and runs those effects
// against the label volume and the persistence adapter.
package session

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"slicelabeler/pkg/codec"
	"slicelabeler/pkg/registry"
)

// Mode is the coarse state of the session
type Mode int

const (
	// Browsing has no polygon in progress
	Browsing Mode = iota

	// Drawing has a polygon with at least one point in progress
	Drawing

	// AwaitingLabel has a finished polygon waiting for its class. Every
	// event except Assign and CancelAssign is rejected.
	AwaitingLabel
)

func (m Mode) String() string {
	switch m {
	case Browsing:
		return "browsing"
	case Drawing:
		return "drawing"
	case AwaitingLabel:
		return "awaiting label"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Notice reports why an event was not applied, or that it was cancelled.
// Notices are not errors; the state is always usable afterwards.
type Notice int

const (
	NoticeNone Notice = iota
	NoticeInsufficientPoints
	NoticeNavigationBlocked
	NoticeInputBlocked
	NoticeAtBoundary
	NoticeNothingToRemove
	NoticeNotAwaitingLabel
	NoticeCancelled
)

func (n Notice) String() string {
	switch n {
	case NoticeNone:
		return ""
	case NoticeInsufficientPoints:
		return fmt.Sprintf("need at least %d points to form a polygon", codec.MinPoints)
	case NoticeNavigationBlocked:
		return "assign or cancel the label before changing slice"
	case NoticeInputBlocked:
		return "waiting for a label"
	case NoticeAtBoundary:
		return "no slice in that direction"
	case NoticeNothingToRemove:
		return "no point to remove"
	case NoticeNotAwaitingLabel:
		return "no finished polygon to label"
	case NoticeCancelled:
		return "polygon discarded"
	default:
		return fmt.Sprintf("notice(%d)", int(n))
	}
}

// State is the complete session state
type State struct {
	// Slice is the active slice index
	Slice int

	// Depth is the number of slices
	Depth int

	Mode Mode

	// Pending is the polygon being drawn
	Pending codec.Polygon

	// Annotations is the editable view of the active slice
	Annotations []codec.Annotation

	// Dirty is set once Annotations diverge from the label volume
	Dirty bool
}

// Event is user input to the state machine
type Event interface {
	event()
}

type (
	// AddPoint appends a vertex to the pending polygon
	AddPoint struct{ Point r2.Vec }

	// RemoveLastPoint drops the most recent pending vertex
	RemoveLastPoint struct{}

	// Clear discards the pending polygon
	Clear struct{}

	// Finish closes the pending polygon and waits for its class
	Finish struct{}

	// Assign labels the finished polygon
	Assign struct{ Code registry.Code }

	// CancelAssign discards the finished polygon
	CancelAssign struct{}

	// Navigate moves the active slice by Delta
	Navigate struct{ Delta int }

	// Save commits the active slice and persists the label volume
	Save struct{}
)

func (AddPoint) event()        {}
func (RemoveLastPoint) event() {}
func (Clear) event()           {}
func (Finish) event()          {}
func (Assign) event()          {}
func (CancelAssign) event()    {}
func (Navigate) event()        {}
func (Save) event()            {}

// Effect is a side effect requested by a transition
type Effect interface {
	effect()
}

type (
	// Commit encodes Annotations into the label volume at Slice
	Commit struct {
		Slice       int
		Annotations []codec.Annotation
	}

	// Load decodes the label volume at Slice into the new state's annotations
	Load struct{ Slice int }

	// Persist hands the label volume and registry to the persistence adapter
	Persist struct{}
)

func (Commit) effect()  {}
func (Load) effect()    {}
func (Persist) effect() {}

// Transition computes the next state for ev. Guard violations leave the
// state unchanged and return a Notice. reg decides which class codes an
// Assign may commit.
func Transition(s State, ev Event, reg *registry.Registry) (State, []Effect, Notice) {
	if s.Mode == AwaitingLabel {
		switch ev.(type) {
		case Assign, CancelAssign:
		case Navigate:
			return s, nil, NoticeNavigationBlocked
		default:
			return s, nil, NoticeInputBlocked
		}
	}

	switch ev := ev.(type) {
	case AddPoint:
		s.Pending = append(s.Pending.Clone(), ev.Point)
		s.Mode = Drawing
		return s, nil, NoticeNone

	case RemoveLastPoint:
		if len(s.Pending) == 0 {
			return s, nil, NoticeNothingToRemove
		}
		s.Pending = s.Pending[:len(s.Pending)-1].Clone()
		if len(s.Pending) == 0 {
			s.Pending = nil
			s.Mode = Browsing
		}
		return s, nil, NoticeNone

	case Clear:
		s.Pending = nil
		s.Mode = Browsing
		return s, nil, NoticeNone

	case Finish:
		if len(s.Pending) < codec.MinPoints {
			return s, nil, NoticeInsufficientPoints
		}
		s.Mode = AwaitingLabel
		return s, nil, NoticeNone

	case Assign:
		if s.Mode != AwaitingLabel {
			return s, nil, NoticeNotAwaitingLabel
		}
		if !reg.Recognized(ev.Code) {
			return cancel(s), nil, NoticeCancelled
		}
		anns := make([]codec.Annotation, len(s.Annotations), len(s.Annotations)+1)
		copy(anns, s.Annotations)
		s.Annotations = append(anns, codec.Annotation{Outline: s.Pending, Class: ev.Code})
		s.Pending = nil
		s.Mode = Browsing
		s.Dirty = true
		return s, nil, NoticeNone

	case CancelAssign:
		if s.Mode != AwaitingLabel {
			return s, nil, NoticeNotAwaitingLabel
		}
		return cancel(s), nil, NoticeCancelled

	case Navigate:
		next := s.Slice + ev.Delta
		next = max(0, min(s.Depth-1, next))
		if next == s.Slice {
			return s, nil, NoticeAtBoundary
		}
		var effects []Effect
		if s.Dirty {
			effects = append(effects, Commit{Slice: s.Slice, Annotations: s.Annotations})
		}
		effects = append(effects, Load{Slice: next})
		s.Slice = next
		s.Annotations = nil
		s.Pending = nil
		s.Mode = Browsing
		s.Dirty = false
		return s, effects, NoticeNone

	case Save:
		effects := []Effect{Commit{Slice: s.Slice, Annotations: s.Annotations}, Persist{}}
		s.Dirty = false
		return s, effects, NoticeNone
	}

	return s, nil, NoticeNone
}

func cancel(s State) State {
	s.Pending = nil
	s.Mode = Browsing
	return s
}
