package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lkarlslund/digirot/internal/calibration"
	"github.com/lkarlslund/digirot/internal/monitoring"
	"github.com/lkarlslund/digirot/internal/tracker"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	m.Run()
}

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenTwiceKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.CreateRun(RunRecord{Source: "a.mp4", Destination: "b.mp4"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.ListRuns()
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRunRoundTrip(t *testing.T) {
	s := openTemp(t)

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	in := RunRecord{
		CreatedAt:   created,
		Source:      "in.mp4",
		Destination: "out.mp4",
		PhysicalRPM: 10,
		DigitalRPM:  -10,
		FPS:         30,
		StartTime:   1,
		EndTime:     5,
		Fit:         calibration.CircleFit{Center: calibration.Point{X: 100, Y: 120}, Radius: 50},
	}
	id, err := s.CreateRun(in)
	require.NoError(t, err)
	assert.Len(t, id, 36)
	require.NoError(t, s.FinishRun(id, 120))

	got, err := s.Run(id)
	require.NoError(t, err)
	in.ID = id
	in.Frames = 120
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("run mismatch (-want +got):\n%s", diff)
	}

	_, err = s.Run("nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, s.FinishRun("nope", 1), ErrRunNotFound)
}

func TestListRunsOldestFirst(t *testing.T) {
	s := openTemp(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	second, err := s.CreateRun(RunRecord{CreatedAt: base.Add(time.Hour), Source: "2"})
	require.NoError(t, err)
	first, err := s.CreateRun(RunRecord{CreatedAt: base, Source: "1"})
	require.NoError(t, err)

	runs, err := s.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, first, runs[0].ID)
	assert.Equal(t, second, runs[1].ID)
}

func TestTrajectoryRoundTrip(t *testing.T) {
	s := openTemp(t)
	id, err := s.CreateRun(RunRecord{Source: "in.mp4"})
	require.NoError(t, err)

	entries := []tracker.TrajectoryEntry{
		{FrameIndex: 3, Timestamp: 0.1, X: -1.5, Y: 2},
		{FrameIndex: 0, Timestamp: 0, X: 50, Y: 0},
		{FrameIndex: 7, Timestamp: 7.0 / 30, X: 0.25, Y: -49.75},
	}
	require.NoError(t, s.InsertTrajectory(id, entries))

	got, err := s.Trajectory(id)
	require.NoError(t, err)
	want := []tracker.TrajectoryEntry{entries[1], entries[0], entries[2]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("trajectory mismatch (-want +got):\n%s", diff)
	}

	empty, err := s.Trajectory("other")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestInsertTrajectoryIsAtomic(t *testing.T) {
	s := openTemp(t)
	id, err := s.CreateRun(RunRecord{Source: "in.mp4"})
	require.NoError(t, err)

	dup := []tracker.TrajectoryEntry{{FrameIndex: 1}, {FrameIndex: 2}, {FrameIndex: 1}}
	assert.Error(t, s.InsertTrajectory(id, dup))

	got, err := s.Trajectory(id)
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.ErrorIs(t, s.InsertTrajectory("missing", dup[:1]), ErrRunNotFound)
}
