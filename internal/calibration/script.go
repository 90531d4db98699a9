package calibration

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EventKind is the kind of a calibration input event.
type EventKind int

const (
	EventAdd EventKind = iota
	EventUndo
	EventAccept
)

func (k EventKind) String() string {
	switch k {
	case EventAdd:
		return "add"
	case EventUndo:
		return "undo"
	case EventAccept:
		return "accept"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is one input from the calibration collaborator. Point is only set
// for EventAdd.
type Event struct {
	Kind  EventKind
	Point Point
}

// Script is a recorded calibration: the rim clicks and the particle drag.
type Script struct {
	Events   []Event
	Particle *ParticleEstimate
}

type scriptDoc struct {
	Events []struct {
		Add    []float64 `yaml:"add,omitempty"`
		Undo   bool      `yaml:"undo,omitempty"`
		Accept bool      `yaml:"accept,omitempty"`
	} `yaml:"events"`
	Particle *struct {
		Start []float64 `yaml:"start"`
		End   []float64 `yaml:"end"`
	} `yaml:"particle,omitempty"`
}

// LoadScript reads a calibration script from a YAML file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration script: %w", err)
	}
	return ParseScript(data)
}

// ParseScript decodes a YAML calibration script.
func ParseScript(data []byte) (*Script, error) {
	var doc scriptDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse calibration script: %w", err)
	}

	s := &Script{}
	for i, ev := range doc.Events {
		switch {
		case ev.Add != nil:
			p, err := pointFrom(ev.Add)
			if err != nil {
				return nil, fmt.Errorf("event %d: %w", i, err)
			}
			s.Events = append(s.Events, Event{Kind: EventAdd, Point: p})
		case ev.Undo:
			s.Events = append(s.Events, Event{Kind: EventUndo})
		case ev.Accept:
			s.Events = append(s.Events, Event{Kind: EventAccept})
		default:
			return nil, fmt.Errorf("event %d: expected add, undo or accept", i)
		}
	}

	if doc.Particle != nil {
		start, err := pointFrom(doc.Particle.Start)
		if err != nil {
			return nil, fmt.Errorf("particle start: %w", err)
		}
		end, err := pointFrom(doc.Particle.End)
		if err != nil {
			return nil, fmt.Errorf("particle end: %w", err)
		}
		s.Particle = &ParticleEstimate{Start: start, End: end}
	}
	return s, nil
}

func pointFrom(v []float64) (Point, error) {
	if len(v) != 2 {
		return Point{}, fmt.Errorf("point needs 2 coordinates, got %d", len(v))
	}
	return Point{X: v[0], Y: v[1]}, nil
}

// Apply feeds one event to the session. accepted is true once an accept
// event has produced a usable fit.
func (s *Session) Apply(ev Event) (accepted bool, err error) {
	switch ev.Kind {
	case EventAdd:
		s.AddPoint(ev.Point)
	case EventUndo:
		s.RemoveLast()
	case EventAccept:
		if _, err := s.Accept(); err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, fmt.Errorf("unknown calibration event %v", ev.Kind)
	}
	return false, nil
}

// Replay applies events in order, stopping at the first accept. A stream
// that ends without an accept is accepted at its end.
func Replay(s *Session, events []Event) (CircleFit, error) {
	for i, ev := range events {
		accepted, err := s.Apply(ev)
		if err != nil {
			return CircleFit{}, fmt.Errorf("calibration event %d (%v): %w", i, ev.Kind, err)
		}
		if accepted {
			fit, _ := s.CurrentFit()
			return fit, nil
		}
	}
	fit, err := s.Accept()
	if err != nil {
		return CircleFit{}, fmt.Errorf("calibration ended: %w", err)
	}
	return fit, nil
}

// IsFitUnavailable reports whether err means no circle could be fit.
func IsFitUnavailable(err error) bool {
	return errors.Is(err, ErrNoFit) || errors.Is(err, ErrTooFewPoints) ||
		errors.Is(err, ErrSingular) || errors.Is(err, ErrNoRealCircle)
}
