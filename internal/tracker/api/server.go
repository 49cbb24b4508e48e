// Package api exposes a small HTTP debug surface over the tracker: stream
// statistics and current pose snapshots. It is a diagnostic aid, not the
// host integration path.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/meridian-labs/posebridge/internal/tracker"
	"github.com/meridian-labs/posebridge/internal/tracker/monitor"
)

type Server struct {
	tracker *tracker.Tracker
	stats   *monitor.FrameStats
}

func NewServer(t *tracker.Tracker, stats *monitor.FrameStats) *Server {
	return &Server{
		tracker: t,
		stats:   stats,
	}
}

// ServeMux returns the route table for the debug server.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tracker/status", s.statusHandler)
	mux.HandleFunc("/api/tracker/poses", s.posesHandler)
	mux.HandleFunc("/", s.homeHandler)
	return mux
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("posebridge tracker\n"))
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, s.stats.Snapshot())
}

// poseView is the JSON projection of one device's snapshot.
type poseView struct {
	DeviceID    uint8      `json:"device_id"`
	Connected   bool       `json:"connected"`
	Orientation [4]float64 `json:"orientation"` // w, x, y, z
	Position    [3]float64 `json:"position"`
	Velocity    [3]float64 `json:"velocity"`
	AngularVel  [3]float64 `json:"angular_velocity"`
	Sequence    uint32     `json:"sequence"`
}

func (s *Server) posesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	views := make([]poseView, 0, len(s.tracker.DeviceIDs()))
	for _, id := range s.tracker.DeviceIDs() {
		snap, ok := s.tracker.GetPose(id)
		if !ok {
			continue
		}
		views = append(views, poseView{
			DeviceID:  id,
			Connected: snap.Connected,
			Orientation: [4]float64{
				snap.Orientation.Real, snap.Orientation.Imag,
				snap.Orientation.Jmag, snap.Orientation.Kmag,
			},
			Position:   [3]float64{snap.Position.X, snap.Position.Y, snap.Position.Z},
			Velocity:   [3]float64{snap.Velocity.X, snap.Velocity.Y, snap.Velocity.Z},
			AngularVel: [3]float64{snap.AngularVelocity.X, snap.AngularVelocity.Y, snap.AngularVelocity.Z},
			Sequence:   snap.LastSequence,
		})
	}

	writeJSON(w, views)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
