package dataset

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/railfield-data/trainset.report/internal/archive"
	"github.com/railfield-data/trainset.report/internal/monitoring"
	"github.com/railfield-data/trainset.report/internal/timeutil"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps the sample index database.
type DB struct {
	*sql.DB
}

// OpenDB opens (or creates) the sqlite sample index at path and applies any
// pending schema migrations.
func OpenDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sample index %s: %w", path, err)
	}

	db := &DB{sqlDB}
	if err := db.migrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// migrateUp runs all pending migrations from the embedded migration files.
func (db *DB) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// migrateLogger implements migrate.Logger interface.
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}

// Store indexes extracted samples so the visualization and debugging tools
// can join predictions back to (archive, image index, marker id) provenance.
type Store struct {
	db    *DB
	clock timeutil.Clock
}

// NewStore creates a Store over the given database. A nil clock defaults to
// the real one.
func NewStore(db *DB, clock timeutil.Clock) *Store {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Store{db: db, clock: clock}
}

// SampleRow is one indexed sample.
type SampleRow struct {
	ID         string
	RunID      string
	Archive    string
	ImageIndex int
	MarkerID   string
	Label      string
	PatchPath  string
	CreatedAt  time.Time
}

// RunRow is one recorded extraction run.
type RunRow struct {
	ID          string
	Labels      []string
	Size        int
	DPT         int
	StartedAt   time.Time
	FinishedAt  *time.Time
	SampleCount int
}

// BeginRun records the start of an extraction run and returns its id.
func (s *Store) BeginRun(labels []string, size, dpt int) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO runs (id, labels, size, dpt, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, strings.Join(labels, ","), size, dpt, s.clock.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// FinishRun stamps a run's completion and its final sample count.
func (s *Store) FinishRun(runID string, sampleCount int) error {
	res, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, sample_count = ? WHERE id = ?`,
		s.clock.Now().UTC(), sampleCount, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("finish run: no run with id %s", runID)
	}
	return nil
}

// RecordSample indexes one extracted sample under a run and returns the
// sample's id.
func (s *Store) RecordSample(runID string, smp archive.Sample, patchPath string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO samples (id, run_id, archive, image_index, marker_id, label, patch_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, runID,
		smp.Provenance.Archive, smp.Provenance.ImageIndex, smp.Provenance.MarkerID,
		smp.Label, patchPath, s.clock.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("record sample %s: %w", smp.Provenance, err)
	}
	return id, nil
}

// SamplesByArchive returns all indexed samples extracted from the named
// archive, ordered by image index then marker id.
func (s *Store) SamplesByArchive(archiveName string) ([]SampleRow, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, archive, image_index, marker_id, label, patch_path, created_at
		 FROM samples WHERE archive = ? ORDER BY image_index, marker_id`,
		archiveName,
	)
	if err != nil {
		return nil, fmt.Errorf("query samples for %s: %w", archiveName, err)
	}
	defer rows.Close()

	var out []SampleRow
	for rows.Next() {
		var r SampleRow
		if err := rows.Scan(&r.ID, &r.RunID, &r.Archive, &r.ImageIndex, &r.MarkerID, &r.Label, &r.PatchPath, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan sample row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Run fetches one run by id.
func (s *Store) Run(runID string) (*RunRow, error) {
	var (
		r        RunRow
		labels   string
		finished sql.NullTime
	)
	err := s.db.QueryRow(
		`SELECT id, labels, size, dpt, started_at, finished_at, sample_count FROM runs WHERE id = ?`,
		runID,
	).Scan(&r.ID, &labels, &r.Size, &r.DPT, &r.StartedAt, &finished, &r.SampleCount)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	if finished.Valid {
		r.FinishedAt = &finished.Time
	}
	if labels != "" {
		r.Labels = strings.Split(labels, ",")
	}
	return &r, nil
}

// RecordResult indexes every sample of a build result under a new run and
// finishes the run. patchPaths must parallel result.Samples; pass nil when
// patches were not written to disk.
func (s *Store) RecordResult(res *Result, patchPaths []string, size, dpt int, labels []string) (string, error) {
	runID, err := s.BeginRun(labels, size, dpt)
	if err != nil {
		return "", err
	}

	for i, smp := range res.Samples {
		path := ""
		if patchPaths != nil {
			if len(patchPaths) != len(res.Samples) {
				return "", fmt.Errorf("patch path count %d does not match sample count %d", len(patchPaths), len(res.Samples))
			}
			path = patchPaths[i]
		}
		if _, err := s.RecordSample(runID, smp, path); err != nil {
			return "", err
		}
	}

	if err := s.FinishRun(runID, len(res.Samples)); err != nil {
		return "", err
	}
	return runID, nil
}
