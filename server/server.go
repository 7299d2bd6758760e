/*
Copyright © 2024 the Plume authors.
This file is part of Plume.

Plume is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Plume is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Plume.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package server exposes a Run's control interface over HTTP and
// WebSocket, generalizing the request-driven control surface of the
// teacher's eioserve.Server (logrus field logger, one struct holding
// the long-lived model state) to spec.md section 6's
// configure/start/pause/resume/reset/on_frame/prerender operations.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/oceantracer/plume"
	"github.com/oceantracer/plume/grid"
)

// Server wraps one active Run behind an HTTP/WebSocket control
// surface: POST /configure, /start, /pause, /resume, /reset, and a
// GET /frames WebSocket stream pushing a JSON Snapshot after every
// step.
type Server struct {
	current     *grid.CurrentField
	diffusivity *grid.DiffusivityField
	registry    *plume.Registry

	mu  sync.Mutex
	run *plume.Run

	upgrader websocket.Upgrader
	Log      logrus.FieldLogger

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]chan plume.Snapshot
}

// New builds a Server against the given grid fields and tracer
// registry. No run is configured until /configure is called.
func New(current *grid.CurrentField, diffusivity *grid.DiffusivityField, registry *plume.Registry) *Server {
	return &Server{
		current: current, diffusivity: diffusivity, registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize: 1024, WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		Log:     logrus.StandardLogger(),
		clients: make(map[*websocket.Conn]chan plume.Snapshot),
	}
}

// Handler returns the server's http.Handler, wiring every control
// route onto mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/configure", s.handleConfigure)
	mux.HandleFunc("/start", s.handleControl(func(r *plume.Run) error { return r.Start() }))
	mux.HandleFunc("/pause", s.handleControl(func(r *plume.Run) error { return r.Pause() }))
	mux.HandleFunc("/resume", s.handleControl(func(r *plume.Run) error { return r.Resume() }))
	mux.HandleFunc("/reset", s.handleControl(func(r *plume.Run) error { return r.Reset() }))
	mux.HandleFunc("/prerender", s.handlePrerender)
	mux.HandleFunc("/frames", s.handleFrames)
	return mux
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch plume.ExitCode(err) {
	case 2:
		code = http.StatusBadRequest
	case 3, 4:
		code = http.StatusUnprocessableEntity
	}
	http.Error(w, err.Error(), code)
}

// handleConfigure accepts a JSON plume.Config, builds a new Run, and
// subscribes it to every connected WebSocket client's frame channel.
func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var cfg plume.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	run, err := plume.Configure(cfg, s.current, s.diffusivity, s.registry)
	if err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	s.run = run
	s.mu.Unlock()

	run.OnFrame(func(snap plume.Snapshot) {
		s.clientsMu.Lock()
		defer s.clientsMu.Unlock()
		for _, ch := range s.clients {
			select {
			case ch <- snap:
			default:
				s.Log.Warn("dropping frame for slow websocket client")
			}
		}
	})

	s.Log.WithField("run_id", run.ID.String()).Info("run configured")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"run_id": run.ID.String()})
}

func (s *Server) handleControl(action func(*plume.Run) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		run := s.run
		s.mu.Unlock()
		if run == nil {
			http.Error(w, "no run configured", http.StatusConflict)
			return
		}
		if err := action(run); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handlePrerender runs the configured Run to completion synchronously
// and responds with the JSON-encoded recorded frames, per spec.md
// section 6.
func (s *Server) handlePrerender(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	run := s.run
	s.mu.Unlock()
	if run == nil {
		http.Error(w, "no run configured", http.StatusConflict)
		return
	}
	var pc plume.PrerenderConfig
	if err := json.NewDecoder(r.Body).Decode(&pc); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	snaps, err := run.Prerender(r.Context(), pc)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snaps)
}

// handleFrames upgrades the connection to a WebSocket and streams one
// JSON Snapshot per completed step until the client disconnects.
func (s *Server) handleFrames(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ch := make(chan plume.Snapshot, 8)
	s.clientsMu.Lock()
	s.clients[conn] = ch
	s.clientsMu.Unlock()
	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, conn)
		s.clientsMu.Unlock()
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-ch:
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		}
	}
}
