package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r2"

	"slicelabeler/internal/logging"
	"slicelabeler/internal/models"
	"slicelabeler/pkg/codec"
	"slicelabeler/pkg/registry"
)

// ErrNoPersister is returned by Save when the session has nowhere to write
var ErrNoPersister = errors.New("no persistence adapter configured")

// Persister writes the label volume and class registry to durable storage.
// It must only read its arguments.
type Persister interface {
	Save(labels *models.LabelVolume, reg *registry.Registry) error
}

// Classifier is asked for the class of a finished polygon. ok is false when
// the request was cancelled.
type Classifier interface {
	Classify(ctx context.Context, slice int, polygon codec.Polygon, reg *registry.Registry) (code registry.Code, ok bool)
}

// ClassifierFunc adapts a function to the Classifier interface
type ClassifierFunc func(ctx context.Context, slice int, polygon codec.Polygon, reg *registry.Registry) (registry.Code, bool)

// Classify calls f
func (f ClassifierFunc) Classify(ctx context.Context, slice int, polygon codec.Polygon, reg *registry.Registry) (registry.Code, bool) {
	return f(ctx, slice, polygon, reg)
}

// Params holds what a session is built from
type Params struct {
	// Volume is the loaded intensity volume; required and non-empty
	Volume *models.Volume

	// Labels resumes an existing label volume; nil starts from background.
	// Its shape must match Volume.
	Labels *models.LabelVolume

	// Registry is the fixed set of assignable classes; nil uses the default
	Registry *registry.Registry

	// Codec controls decode simplification
	Codec codec.Options

	// Persister receives the label volume on Save; may be nil
	Persister Persister
}

// Session is a single-user annotation session over one volume. It is not
// safe for concurrent use: every call is one discrete input event.
type Session struct {
	state     State
	volume    *models.Volume
	labels    *models.LabelVolume
	reg       *registry.Registry
	opts      codec.Options
	persister Persister
}

// New starts a session on slice 0, decoding any existing labels there
func New(p Params) (*Session, error) {
	if p.Volume == nil || p.Volume.Depth == 0 || p.Volume.Width == 0 || p.Volume.Height == 0 {
		return nil, fmt.Errorf("session needs a non-empty volume")
	}
	labels := p.Labels
	if labels == nil {
		labels = models.NewLabelVolumeFor(p.Volume)
	} else if !labels.Matches(p.Volume) {
		ld, lh, lw := labels.Shape()
		vd, vh, vw := p.Volume.Shape()
		return nil, fmt.Errorf("labels (%d,%d,%d) do not match volume (%d,%d,%d): %w",
			ld, lh, lw, vd, vh, vw, models.ErrShapeMismatch)
	}
	reg := p.Registry
	if reg == nil {
		reg = registry.Default()
	}

	s := &Session{
		state:     State{Depth: p.Volume.Depth},
		volume:    p.Volume,
		labels:    labels,
		reg:       reg,
		opts:      p.Codec,
		persister: p.Persister,
	}
	if err := s.run(Load{Slice: 0}); err != nil {
		return nil, err
	}
	return s, nil
}

// Apply feeds one event through the state machine and runs its effects.
// Guard violations come back as a Notice; the error is only set when
// persistence fails.
func (s *Session) Apply(ev Event) (Notice, error) {
	next, effects, notice := Transition(s.state, ev, s.reg)
	if notice != NoticeNone {
		logging.L().Debug("event not applied",
			zap.String("event", fmt.Sprintf("%T", ev)),
			zap.String("mode", s.state.Mode.String()),
			zap.String("notice", notice.String()))
	}
	s.state = next
	for _, e := range effects {
		if err := s.run(e); err != nil {
			return notice, err
		}
	}
	return notice, nil
}

func (s *Session) run(e Effect) error {
	switch e := e.(type) {
	case Commit:
		mask := codec.Encode(e.Annotations, s.labels.Width, s.labels.Height)
		if err := s.labels.SetSlice(e.Slice, mask); err != nil {
			return fmt.Errorf("committing slice %d: %w", e.Slice, err)
		}
		logging.L().Debug("slice committed",
			zap.Int("slice", e.Slice),
			zap.Int("annotations", len(e.Annotations)))

	case Load:
		mask, err := s.labels.SliceMask(e.Slice)
		if err != nil {
			return fmt.Errorf("loading slice %d: %w", e.Slice, err)
		}
		s.state.Annotations = codec.Decode(mask, s.opts)
		logging.L().Debug("slice loaded",
			zap.Int("slice", e.Slice),
			zap.Int("annotations", len(s.state.Annotations)))

	case Persist:
		if s.persister == nil {
			return ErrNoPersister
		}
		if err := s.persister.Save(s.labels, s.reg); err != nil {
			logging.L().Error("save failed", zap.Error(err))
			return fmt.Errorf("saving labels: %w", err)
		}
		logging.L().Info("labels saved", zap.Int("slice", s.state.Slice))
	}
	return nil
}

// AddPoint appends (x, y) to the pending polygon
func (s *Session) AddPoint(x, y float64) Notice {
	n, _ := s.Apply(AddPoint{Point: r2.Vec{X: x, Y: y}})
	return n
}

// RemoveLastPoint drops the last pending point
func (s *Session) RemoveLastPoint() Notice {
	n, _ := s.Apply(RemoveLastPoint{})
	return n
}

// Clear discards the pending polygon
func (s *Session) Clear() Notice {
	n, _ := s.Apply(Clear{})
	return n
}

// Finish closes the pending polygon; the session then waits for Assign or
// Cancel
func (s *Session) Finish() Notice {
	n, _ := s.Apply(Finish{})
	return n
}

// Assign labels the finished polygon. Unrecognized codes discard it.
func (s *Session) Assign(code registry.Code) Notice {
	n, _ := s.Apply(Assign{Code: code})
	return n
}

// Cancel discards the finished polygon
func (s *Session) Cancel() Notice {
	n, _ := s.Apply(CancelAssign{})
	return n
}

// FinishWith finishes the pending polygon and blocks on c for its class
func (s *Session) FinishWith(ctx context.Context, c Classifier) Notice {
	if n := s.Finish(); n != NoticeNone {
		return n
	}
	code, ok := c.Classify(ctx, s.state.Slice, s.state.Pending.Clone(), s.reg)
	if !ok {
		return s.Cancel()
	}
	return s.Assign(code)
}

// Next moves to the following slice
func (s *Session) Next() Notice {
	n, _ := s.Apply(Navigate{Delta: 1})
	return n
}

// Prev moves to the previous slice
func (s *Session) Prev() Notice {
	n, _ := s.Apply(Navigate{Delta: -1})
	return n
}

// Save commits the active slice and persists the label volume
func (s *Session) Save() (Notice, error) {
	return s.Apply(Save{})
}

// State returns a copy of the current state
func (s *Session) State() State {
	st := s.state
	st.Pending = s.state.Pending.Clone()
	st.Annotations = cloneAnnotations(s.state.Annotations)
	return st
}

// Mode returns the current mode
func (s *Session) Mode() Mode { return s.state.Mode }

// Slice returns the active slice index
func (s *Session) Slice() int { return s.state.Slice }

// Depth returns the number of slices
func (s *Session) Depth() int { return s.state.Depth }

// Pending returns a copy of the polygon being drawn
func (s *Session) Pending() codec.Polygon { return s.state.Pending.Clone() }

// Annotations returns a copy of the active slice's annotations
func (s *Session) Annotations() []codec.Annotation {
	return cloneAnnotations(s.state.Annotations)
}

// Registry returns the session's class registry
func (s *Session) Registry() *registry.Registry { return s.reg }

// Volume returns the intensity volume
func (s *Session) Volume() *models.Volume { return s.volume }

// Labels returns the label volume. Callers must not modify it.
func (s *Session) Labels() *models.LabelVolume { return s.labels }

// Snapshot returns a copy of the label volume with the active slice's
// annotations encoded, leaving the session untouched
func (s *Session) Snapshot() (*models.LabelVolume, error) {
	snap := s.labels.Clone()
	if !s.state.Dirty {
		return snap, nil
	}
	mask := codec.Encode(s.state.Annotations, snap.Width, snap.Height)
	if err := snap.SetSlice(s.state.Slice, mask); err != nil {
		return nil, err
	}
	return snap, nil
}

func cloneAnnotations(anns []codec.Annotation) []codec.Annotation {
	if anns == nil {
		return nil
	}
	out := make([]codec.Annotation, len(anns))
	for i, a := range anns {
		out[i] = a.Clone()
	}
	return out
}
