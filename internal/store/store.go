// Package store persists runs and their trajectories in sqlite.
package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/lkarlslund/digirot/internal/calibration"
	"github.com/lkarlslund/digirot/internal/monitoring"
	"github.com/lkarlslund/digirot/internal/tracker"
)

//go:embed migrations/*.sql
var migrations embed.FS

var ErrRunNotFound = errors.New("run not found")

// RunRecord describes one batch run.
type RunRecord struct {
	ID          string
	CreatedAt   time.Time
	Source      string
	Destination string
	PhysicalRPM float64
	DigitalRPM  float64
	FPS         float64
	StartTime   float64
	EndTime     float64
	Fit         calibration.CircleFit
	Frames      int
}

type Store struct {
	*sql.DB
}

// Open opens the database at path and migrates it to the latest schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// MigrateUp applies all pending migrations.
func (s *Store) MigrateUp() error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.DB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	// m is not closed; closing it would close the underlying connection.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// CreateRun stores r under a new ID, which is returned.
func (s *Store) CreateRun(r RunRecord) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := s.Exec(`
		INSERT INTO runs (
			run_id, created_at, source, destination, physical_rpm, digital_rpm,
			fps, start_time, end_time, center_x, center_y, radius, frames
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CreatedAt.UTC().Format(time.RFC3339Nano), r.Source, r.Destination,
		r.PhysicalRPM, r.DigitalRPM, r.FPS, r.StartTime, r.EndTime,
		r.Fit.Center.X, r.Fit.Center.Y, r.Fit.Radius, r.Frames,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return r.ID, nil
}

// FinishRun records how many frames a run processed.
func (s *Store) FinishRun(runID string, frames int) error {
	res, err := s.Exec(`UPDATE runs SET frames = ? WHERE run_id = ?`, frames, runID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// InsertTrajectory stores entries for runID in one transaction.
func (s *Store) InsertTrajectory(runID string, entries []tracker.TrajectoryEntry) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM runs WHERE run_id = ?`, runID).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	stmt, err := tx.Prepare(`INSERT INTO trajectory (run_id, frame_index, timestamp, x, y) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(runID, e.FrameIndex, e.Timestamp, e.X, e.Y); err != nil {
			return fmt.Errorf("insert frame %d: %w", e.FrameIndex, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	monitoring.Logf("store: saved %d trajectory entries for run %s", len(entries), runID)
	return nil
}

// Trajectory returns the entries of runID ordered by frame index.
func (s *Store) Trajectory(runID string) ([]tracker.TrajectoryEntry, error) {
	rows, err := s.Query(`
		SELECT frame_index, timestamp, x, y FROM trajectory
		WHERE run_id = ? ORDER BY frame_index`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []tracker.TrajectoryEntry
	for rows.Next() {
		var e tracker.TrajectoryEntry
		if err := rows.Scan(&e.FrameIndex, &e.Timestamp, &e.X, &e.Y); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Run returns the run stored under runID.
func (s *Store) Run(runID string) (RunRecord, error) {
	runs, err := s.queryRuns(`WHERE run_id = ?`, runID)
	if err != nil {
		return RunRecord{}, err
	}
	if len(runs) == 0 {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return runs[0], nil
}

// ListRuns returns all runs, oldest first.
func (s *Store) ListRuns() ([]RunRecord, error) {
	return s.queryRuns(`ORDER BY created_at, run_id`)
}

func (s *Store) queryRuns(where string, args ...interface{}) ([]RunRecord, error) {
	rows, err := s.Query(`
		SELECT run_id, created_at, source, destination, physical_rpm, digital_rpm,
			fps, start_time, end_time, center_x, center_y, radius, frames
		FROM runs `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var created string
		if err := rows.Scan(&r.ID, &created, &r.Source, &r.Destination, &r.PhysicalRPM, &r.DigitalRPM,
			&r.FPS, &r.StartTime, &r.EndTime, &r.Fit.Center.X, &r.Fit.Center.Y, &r.Fit.Radius, &r.Frames); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("run %s: bad created_at %q: %w", r.ID, created, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
