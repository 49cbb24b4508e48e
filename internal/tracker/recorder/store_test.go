package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/meridian-labs/posebridge/internal/tracker/pose"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleSnapshot() pose.Snapshot {
	return pose.Snapshot{
		Orientation:  quat.Number{Real: 1},
		Position:     r3.Vec{X: 0.5, Y: 1.6, Z: -0.25},
		Velocity:     r3.Vec{X: 0.1},
		Connected:    true,
		LastUpdate:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		LastSequence: 42,
	}
}

func TestBeginSessionAndRecordSample(t *testing.T) {
	store := openTestStore(t)

	sessionID, err := store.BeginSession("bench run")
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	snap := sampleSnapshot()
	require.NoError(t, store.RecordSample(sessionID, 2, snap))
	require.NoError(t, store.RecordSample(sessionID, 2, snap))

	samples, err := store.Samples(sessionID, 2)
	require.NoError(t, err)
	require.Len(t, samples, 2)

	got := samples[0]
	assert.Equal(t, sessionID, got.SessionID)
	assert.Equal(t, uint8(2), got.DeviceID)
	assert.Equal(t, uint32(42), got.Sequence)
	assert.Equal(t, 1.0, got.QuatW)
	assert.InDelta(t, 1.6, got.PosY, 1e-9)
	assert.True(t, got.Connected)
}

func TestSamplesFilteredByDevice(t *testing.T) {
	store := openTestStore(t)

	sessionID, err := store.BeginSession("")
	require.NoError(t, err)

	require.NoError(t, store.RecordSample(sessionID, 0, sampleSnapshot()))
	require.NoError(t, store.RecordSample(sessionID, 1, sampleSnapshot()))

	samples, err := store.Samples(sessionID, 0)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, uint8(0), samples[0].DeviceID)
}

func TestSamplesEmptyForUnknownSession(t *testing.T) {
	store := openTestStore(t)

	samples, err := store.Samples("no-such-session", 0)
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestSessionRecorderPublishes(t *testing.T) {
	store := openTestStore(t)

	rec, err := NewSessionRecorder(store, "tick capture")
	require.NoError(t, err)
	require.NotEmpty(t, rec.SessionID())

	rec.PublishPose(0, sampleSnapshot())
	rec.PublishPose(1, sampleSnapshot())

	samples, err := store.Samples(rec.SessionID(), 0)
	require.NoError(t, err)
	assert.Len(t, samples, 1)
}
