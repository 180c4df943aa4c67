// Package db persists processing runs and their detection records in
// SQLite, and serves the admin debug surface over the same database.
package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/trafficlens/speedcam/internal/record"
)

// Run statuses, in lifecycle order.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is one processing run of one input video.
type Run struct {
	ID          string     `json:"id"`
	InputPath   string     `json:"input_path"`
	OutputPath  string     `json:"output_path"`
	CSVPath     string     `json:"csv_path"`
	Status      string     `json:"status"`
	Frames      int        `json:"frames"`
	TotalFrames int        `json:"total_frames"`
	FPS         float64    `json:"fps"`
	Width       int        `json:"width"`
	Height      int        `json:"height"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

type DB struct {
	*sql.DB
	path string
}

// Open opens the SQLite database at path and applies pending migrations.
func Open(path string) (*DB, error) {
	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	// modernc sqlite serializes writes itself but a busy timeout keeps
	// concurrent readers from erroring during bulk inserts.
	if _, err := sqldb.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("setting busy_timeout: %w", err)
	}

	db := &DB{DB: sqldb, path: path}
	if err := db.MigrateUp(); err != nil {
		sqldb.Close()
		return nil, err
	}
	return db, nil
}

// CreateRun inserts a new pending run.
func (db *DB) CreateRun(id, inputPath, outputPath, csvPath string) error {
	_, err := db.Exec(
		`INSERT INTO runs (id, input_path, output_path, csv_path, status)
		 VALUES (?, ?, ?, ?, ?)`,
		id, inputPath, outputPath, csvPath, StatusPending)
	if err != nil {
		return fmt.Errorf("creating run %s: %w", id, err)
	}
	return nil
}

// StartRun marks a run running.
func (db *DB) StartRun(id string) error {
	_, err := db.Exec(`UPDATE runs SET status = ? WHERE id = ?`, StatusRunning, id)
	if err != nil {
		return fmt.Errorf("starting run %s: %w", id, err)
	}
	return nil
}

// FinishRun marks a run completed and records the processed frame count
// and the probed video metadata.
func (db *DB) FinishRun(id string, frames, totalFrames int, fps float64, width, height int) error {
	_, err := db.Exec(
		`UPDATE runs SET status = ?, frames = ?, total_frames = ?, fps = ?,
		        width = ?, height = ?, finished_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		StatusCompleted, frames, totalFrames, fps, width, height, id)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", id, err)
	}
	return nil
}

// FailRun marks a run failed with its error message.
func (db *DB) FailRun(id string, runErr error) error {
	_, err := db.Exec(
		`UPDATE runs SET status = ?, error = ?, finished_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		StatusFailed, runErr.Error(), id)
	if err != nil {
		return fmt.Errorf("failing run %s: %w", id, err)
	}
	return nil
}

// GetRun loads one run by id.
func (db *DB) GetRun(id string) (*Run, error) {
	row := db.QueryRow(
		`SELECT id, input_path, output_path, csv_path, status, frames,
		        total_frames, fps, width, height, COALESCE(error, ''),
		        created_at, finished_at
		 FROM runs WHERE id = ?`, id)

	var r Run
	var finished sql.NullTime
	err := row.Scan(&r.ID, &r.InputPath, &r.OutputPath, &r.CSVPath, &r.Status,
		&r.Frames, &r.TotalFrames, &r.FPS, &r.Width, &r.Height, &r.Error,
		&r.CreatedAt, &finished)
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", id, err)
	}
	if finished.Valid {
		r.FinishedAt = &finished.Time
	}
	return &r, nil
}

// Runs lists recent runs, newest first.
func (db *DB) Runs(limit int) ([]Run, error) {
	rows, err := db.Query(
		`SELECT id, input_path, output_path, csv_path, status, frames,
		        total_frames, fps, width, height, COALESCE(error, ''),
		        created_at, finished_at
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.InputPath, &r.OutputPath, &r.CSVPath,
			&r.Status, &r.Frames, &r.TotalFrames, &r.FPS, &r.Width, &r.Height,
			&r.Error, &r.CreatedAt, &finished); err != nil {
			return nil, err
		}
		if finished.Valid {
			r.FinishedAt = &finished.Time
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// InsertDetections bulk-inserts a run's records in one transaction.
func (db *DB) InsertDetections(runID string, records []record.DetectionRecord) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning insert for run %s: %w", runID, err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO detection_records (
			run_id, frame_number, vehicle_id, speed, license_plate,
			license_plate_confidence, is_overspeed, x1, y1, x2, y2,
			confidence, vehicle_class, timestamp
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing detection insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(
			runID, r.FrameNumber, r.VehicleID, r.SpeedKmh, r.LicensePlate,
			r.PlateConfidence, r.IsOverspeed, r.X1, r.Y1, r.X2, r.Y2,
			r.Confidence, r.VehicleClass, r.Timestamp,
		); err != nil {
			return fmt.Errorf("inserting record for frame %d: %w", r.FrameNumber, err)
		}
	}
	return tx.Commit()
}

// Detections loads a run's records in emission order.
func (db *DB) Detections(runID string) ([]record.DetectionRecord, error) {
	rows, err := db.Query(
		`SELECT frame_number, vehicle_id, speed, license_plate,
		        license_plate_confidence, is_overspeed, x1, y1, x2, y2,
		        confidence, vehicle_class, timestamp
		 FROM detection_records WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("loading detections for run %s: %w", runID, err)
	}
	defer rows.Close()

	var records []record.DetectionRecord
	for rows.Next() {
		var r record.DetectionRecord
		if err := rows.Scan(&r.FrameNumber, &r.VehicleID, &r.SpeedKmh,
			&r.LicensePlate, &r.PlateConfidence, &r.IsOverspeed,
			&r.X1, &r.Y1, &r.X2, &r.Y2,
			&r.Confidence, &r.VehicleClass, &r.Timestamp); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// RunStats summarises one run's records.
type RunStats struct {
	RunID          string  `json:"run_id"`
	Records        int     `json:"records"`
	Vehicles       int     `json:"vehicles"`
	OverspeedCount int     `json:"overspeed_count"`
	AverageSpeed   float64 `json:"average_speed"`
	MaxSpeed       float64 `json:"max_speed"`
	PlatesRead     int     `json:"plates_read"`
}

// Stats computes aggregate statistics for one run.
func (db *DB) Stats(runID string) (*RunStats, error) {
	row := db.QueryRow(
		`SELECT COUNT(*),
		        COUNT(DISTINCT vehicle_id),
		        COALESCE(SUM(is_overspeed), 0),
		        COALESCE(AVG(speed), 0),
		        COALESCE(MAX(speed), 0),
		        COUNT(DISTINCT CASE WHEN license_plate != 'N/A' THEN vehicle_id END)
		 FROM detection_records WHERE run_id = ?`, runID)

	s := RunStats{RunID: runID}
	err := row.Scan(&s.Records, &s.Vehicles, &s.OverspeedCount,
		&s.AverageSpeed, &s.MaxSpeed, &s.PlatesRead)
	if err != nil {
		return nil, fmt.Errorf("computing stats for run %s: %w", runID, err)
	}
	return &s, nil
}

// ClassCounts returns per-class record counts for one run.
func (db *DB) ClassCounts(runID string) (map[string]int, error) {
	rows, err := db.Query(
		`SELECT vehicle_class, COUNT(*) FROM detection_records
		 WHERE run_id = ? GROUP BY vehicle_class`, runID)
	if err != nil {
		return nil, fmt.Errorf("counting classes for run %s: %w", runID, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var class string
		var n int
		if err := rows.Scan(&class, &n); err != nil {
			return nil, err
		}
		counts[class] = n
	}
	return counts, rows.Err()
}

// VehicleSpeeds returns each vehicle's peak smoothed speed in one run, for
// distribution charts.
func (db *DB) VehicleSpeeds(runID string) ([]float64, error) {
	rows, err := db.Query(
		`SELECT MAX(speed) FROM detection_records
		 WHERE run_id = ? GROUP BY vehicle_id ORDER BY vehicle_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("loading speeds for run %s: %w", runID, err)
	}
	defer rows.Close()

	var speeds []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		speeds = append(speeds, v)
	}
	return speeds, rows.Err()
}
