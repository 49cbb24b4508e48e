// Package recorder persists telemetry sessions to sqlite for offline
// analysis and replay tooling. Recording is optional and sits outside the
// hot path: the receiver never touches the database.
package recorder

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/meridian-labs/posebridge/internal/monitoring"
	"github.com/meridian-labs/posebridge/internal/tracker/pose"
)

// Store provides persistence for recorded tracking sessions.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the session database at path. The
// schema is created inline; deployments that evolve an existing database
// use MigrateUp instead.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id   TEXT PRIMARY KEY,
		label        TEXT,
		started_at   TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS pose_samples (
		session_id   TEXT NOT NULL,
		device_id    INTEGER NOT NULL,
		sequence     BIGINT,
		quat_w       DOUBLE,
		quat_x       DOUBLE,
		quat_y       DOUBLE,
		quat_z       DOUBLE,
		pos_x        DOUBLE,
		pos_y        DOUBLE,
		pos_z        DOUBLE,
		vel_x        DOUBLE,
		vel_y        DOUBLE,
		vel_z        DOUBLE,
		connected    BOOLEAN,
		recorded_at  TIMESTAMP,
		FOREIGN KEY(session_id) REFERENCES sessions(session_id)
	);
	CREATE INDEX IF NOT EXISTS idx_pose_samples_session
		ON pose_samples(session_id, device_id);
`

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginSession creates a new session row and returns its identifier.
func (s *Store) BeginSession(label string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.Exec(
		`INSERT INTO sessions (session_id, label, started_at) VALUES (?, ?, ?)`,
		id, label, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return id, nil
}

// RecordSample persists one pose snapshot for a device.
func (s *Store) RecordSample(sessionID string, deviceID uint8, snap pose.Snapshot) error {
	_, err := s.db.Exec(`
		INSERT INTO pose_samples (
			session_id, device_id, sequence,
			quat_w, quat_x, quat_y, quat_z,
			pos_x, pos_y, pos_z,
			vel_x, vel_y, vel_z,
			connected, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, deviceID, snap.LastSequence,
		snap.Orientation.Real, snap.Orientation.Imag, snap.Orientation.Jmag, snap.Orientation.Kmag,
		snap.Position.X, snap.Position.Y, snap.Position.Z,
		snap.Velocity.X, snap.Velocity.Y, snap.Velocity.Z,
		snap.Connected, snap.LastUpdate.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record sample: %w", err)
	}
	return nil
}

// Sample is one persisted pose observation.
type Sample struct {
	SessionID  string
	DeviceID   uint8
	Sequence   uint32
	QuatW      float64
	QuatX      float64
	QuatY      float64
	QuatZ      float64
	PosX       float64
	PosY       float64
	PosZ       float64
	VelX       float64
	VelY       float64
	VelZ       float64
	Connected  bool
	RecordedAt time.Time
}

// Samples returns all samples for a device within a session, in insertion
// order.
func (s *Store) Samples(sessionID string, deviceID uint8) ([]Sample, error) {
	rows, err := s.db.Query(`
		SELECT session_id, device_id, sequence,
			quat_w, quat_x, quat_y, quat_z,
			pos_x, pos_y, pos_z,
			vel_x, vel_y, vel_z,
			connected, recorded_at
		FROM pose_samples
		WHERE session_id = ? AND device_id = ?
		ORDER BY rowid`,
		sessionID, deviceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var smp Sample
		if err := rows.Scan(
			&smp.SessionID, &smp.DeviceID, &smp.Sequence,
			&smp.QuatW, &smp.QuatX, &smp.QuatY, &smp.QuatZ,
			&smp.PosX, &smp.PosY, &smp.PosZ,
			&smp.VelX, &smp.VelY, &smp.VelZ,
			&smp.Connected, &smp.RecordedAt,
		); err != nil {
			return nil, err
		}
		samples = append(samples, smp)
	}
	return samples, rows.Err()
}

// SessionRecorder adapts a Store session to the tick publisher interface,
// so a recording run captures exactly what the host was handed.
type SessionRecorder struct {
	store     *Store
	sessionID string
}

// NewSessionRecorder begins a session and returns a publisher writing
// into it.
func NewSessionRecorder(store *Store, label string) (*SessionRecorder, error) {
	id, err := store.BeginSession(label)
	if err != nil {
		return nil, err
	}
	return &SessionRecorder{store: store, sessionID: id}, nil
}

// SessionID returns the identifier of the session being recorded.
func (r *SessionRecorder) SessionID() string {
	return r.sessionID
}

// PublishPose persists the snapshot. Write failures are logged, not
// surfaced: recording must never stall the tick.
func (r *SessionRecorder) PublishPose(deviceID uint8, snap pose.Snapshot) {
	if err := r.store.RecordSample(r.sessionID, deviceID, snap); err != nil {
		monitoring.Logf("recorder: dropping sample for device %d: %v", deviceID, err)
	}
}
