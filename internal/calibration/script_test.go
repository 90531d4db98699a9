package calibration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleScript = `
events:
  - add: [150, 100]
  - add: [100, 150]
  - add: [10, 10]
  - undo: true
  - add: [50, 100]
  - accept: true
  - add: [1, 1]
particle:
  start: [140, 90]
  end: [160, 110]
`

func TestParseScript(t *testing.T) {
	s, err := ParseScript([]byte(sampleScript))
	require.NoError(t, err)

	require.Len(t, s.Events, 7)
	assert.Equal(t, Event{Kind: EventAdd, Point: Point{150, 100}}, s.Events[0])
	assert.Equal(t, EventUndo, s.Events[3].Kind)
	assert.Equal(t, EventAccept, s.Events[5].Kind)

	require.NotNil(t, s.Particle)
	assert.Equal(t, Point{150, 100}, s.Particle.Center())
}

func TestParseScriptErrors(t *testing.T) {
	bad := []string{
		"events: [{add: [1]}]",
		"events: [{add: [1, 2, 3]}]",
		"events: [{}]",
		"events: [{add: [1, 2]}]\nparticle: {start: [1], end: [2, 3]}",
		"events: {",
	}
	for _, doc := range bad {
		_, err := ParseScript([]byte(doc))
		assert.Error(t, err, doc)
	}
}

func TestReplayStopsAtAccept(t *testing.T) {
	script, err := ParseScript([]byte(sampleScript))
	require.NoError(t, err)

	s := NewSession()
	fit, err := Replay(s, script.Events)
	require.NoError(t, err)
	assert.InDelta(t, 100, fit.Center.X, 1e-9)
	assert.InDelta(t, 100, fit.Center.Y, 1e-9)
	assert.InDelta(t, 50, fit.Radius, 1e-9)
	assert.Equal(t, 3, s.Len(), "events after accept are ignored")
}

func TestReplayImplicitAccept(t *testing.T) {
	events := []Event{
		{Kind: EventAdd, Point: Point{150, 100}},
		{Kind: EventAdd, Point: Point{100, 150}},
		{Kind: EventAdd, Point: Point{50, 100}},
	}
	fit, err := Replay(NewSession(), events)
	require.NoError(t, err)
	assert.InDelta(t, 50, fit.Radius, 1e-9)
}

func TestReplayAcceptWithoutFit(t *testing.T) {
	events := []Event{
		{Kind: EventAdd, Point: Point{150, 100}},
		{Kind: EventAdd, Point: Point{100, 150}},
		{Kind: EventAccept},
	}
	_, err := Replay(NewSession(), events)
	assert.ErrorIs(t, err, ErrNoFit)
	assert.True(t, IsFitUnavailable(err))

	_, err = Replay(NewSession(), nil)
	assert.ErrorIs(t, err, ErrNoFit)
}

func TestLoadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleScript), 0644))

	s, err := LoadScript(path)
	require.NoError(t, err)
	assert.Len(t, s.Events, 7)

	_, err = LoadScript(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "add", EventAdd.String())
	assert.Equal(t, "undo", EventUndo.String())
	assert.Equal(t, "accept", EventAccept.String())
	assert.Equal(t, "EventKind(9)", EventKind(9).String())
}
