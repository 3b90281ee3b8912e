// Package web provides an HTTP status server for the hx711-sensor daemon.
package web

import (
	"context"
	"log"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sweeney/hx711-sensor/internal/status"
)

// tareTimeout bounds how long a /tare request waits for the converter.
var tareTimeout = 5 * time.Second

// Tarer re-zeroes the load cell. *hx711.Shared satisfies it.
type Tarer interface {
	Tare() error
	Offset() int32
}

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	tarer      Tarer
	taring     atomic.Bool
}

// New creates a Server that reads state from the given tracker. If tarer is
// nil the /tare endpoint is not registered.
func New(addr string, tracker *status.Tracker, tarer Tarer) *Server {
	s := &Server{tracker: tracker, tarer: tarer}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	if tarer != nil {
		mux.HandleFunc("/tare", s.handleTare)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap); err != nil {
		log.Printf("web: render index: %v", err)
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// handleTare re-zeroes the scale. Only one tare runs at a time; a tare that
// outlives the request keeps running and still updates the tracker.
func (s *Server) handleTare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.taring.CompareAndSwap(false, true) {
		http.Error(w, "tare already in progress", http.StatusConflict)
		return
	}

	done := make(chan error, 1)
	go func() {
		defer s.taring.Store(false)
		err := s.tarer.Tare()
		if err == nil {
			s.tracker.SetTare(s.tarer.Offset())
			log.Printf("web: re-tared, offset=%d", s.tarer.Offset())
		}
		done <- err
	}()

	timer := time.NewTimer(tareTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			log.Printf("web: tare: %v", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(status.FormatJSON(s.tracker.Snapshot()))
	case <-timer.C:
		http.Error(w, "converter not ready", http.StatusGatewayTimeout)
	case <-r.Context().Done():
	}
}
