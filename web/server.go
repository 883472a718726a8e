package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"mille-go/binlog"
	"mille-go/monitoring"
)

// Server exposes a running alignment job: flush events over /ws, the
// writer totals on /stats and the alignment config file.
type Server struct {
	Hub *Hub

	mu    sync.RWMutex
	stats binlog.FlushStats
	srv   *http.Server
	ln    net.Listener
}

func NewServer() *Server {
	return &Server{
		Hub: NewHub(),
	}
}

// Attach subscribes the server to every successful flush of w.
func (s *Server) Attach(w *binlog.Writer) {
	w.OnFlush(s.Publish)
}

// Publish records st and pushes it to the websocket clients.
func (s *Server) Publish(st binlog.FlushStats) {
	s.mu.Lock()
	s.stats = st
	s.mu.Unlock()

	msg, err := json.Marshal(st)
	if err != nil {
		monitoring.Logf("web: encode stats: %v", err)
		return
	}
	if !s.Hub.Broadcast(msg) {
		monitoring.Logf("web: broadcast queue full, dropped record %d", st.Records)
	}
}

// Stats returns the last published totals.
func (s *Server) Stats() binlog.FlushStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Handler builds the route table. configPath may be empty.
func (s *Server) Handler(configPath string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(s.Hub, w, r)
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.Stats()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			mux.HandleFunc("/"+filepath.Base(configPath), func(w http.ResponseWriter, r *http.Request) {
				http.ServeFile(w, r, configPath)
			})
		}
	}
	return mux
}

// Listen binds port (0 picks a free one), starts the hub and prepares the
// HTTP server. Shutdown is effective from the moment Listen returns.
func (s *Server) Listen(port int, configPath string) (net.Addr, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("http listen: %w", err)
	}
	go s.Hub.Run()

	s.mu.Lock()
	s.ln = ln
	s.srv = &http.Server{Handler: s.Handler(configPath), ReadHeaderTimeout: 5 * time.Second}
	s.mu.Unlock()

	monitoring.Logf("HTTP Server listening on %s", ln.Addr())
	return ln.Addr(), nil
}

// Serve handles requests on the listener opened by Listen until Shutdown.
// It returns nil after a clean shutdown.
func (s *Server) Serve() error {
	s.mu.RLock()
	srv, ln := s.srv, s.ln
	s.mu.RUnlock()
	if srv == nil {
		return errors.New("http server: Serve before Listen")
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Start is Listen followed by Serve.
func (s *Server) Start(port int, configPath string) error {
	if _, err := s.Listen(port, configPath); err != nil {
		return err
	}
	return s.Serve()
}

// Shutdown stops the listener and the hub.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv, ln := s.srv, s.ln
	s.mu.RUnlock()
	s.Hub.Stop()
	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	// Serve may not have taken over the listener yet
	if cerr := ln.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) && err == nil {
		err = cerr
	}
	return err
}
