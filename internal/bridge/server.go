// Package bridge is the daemon's ingress for browser tab lifecycle
// events. The companion extension either streams events over a
// WebSocket or posts batches to the events endpoint; both feed the
// same tracker.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"tabtime/internal/track"
)

// Server serves the localhost event bridge.
type Server struct {
	tracker *track.Tracker
	addr    string
}

func NewServer(tracker *track.Tracker, addr string) *Server {
	return &Server{tracker: tracker, addr: addr}
}

// Routes builds the bridge's HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Post("/v1/events", s.handleEvents)
	r.Get("/v1/stream", s.handleStream)
	return r
}

// Run serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Println("Event bridge listening on", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// handleEvents applies a posted batch in order.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var batch Batch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		http.Error(w, "malformed event batch", http.StatusBadRequest)
		return
	}

	for _, ev := range batch.Events {
		apply(s.tracker, ev)
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStream accepts the extension's WebSocket and applies each text
// frame as one event. When the socket goes away — browser quit,
// extension reload — no further lifecycle events can arrive for the
// sessions it was feeding, so all open sessions are closed.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Println("websocket accept failed:", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	log.Println("Extension connected from", r.RemoteAddr)
	defer func() {
		log.Println("Extension disconnected, closing open sessions")
		s.tracker.CloseAll()
	}()

	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			return
		}
		ev, err := decodeEvent(data)
		if err != nil {
			log.Println("dropping event:", err)
			continue
		}
		apply(s.tracker, ev)
	}
}
