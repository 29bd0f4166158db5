package panel

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"unifimon/internal/config"
	"unifimon/internal/metrics"
	"unifimon/internal/model"
)

const writeTimeout = 2 * time.Second

// Source is where the panel reads snapshots from.
type Source interface {
	Snapshot() model.Snapshot
	Subscribe(fn func(model.Snapshot))
}

// Message is the JSON payload of /api/metrics and of every /ws frame.
type Message struct {
	Type      string        `json:"type"`
	UpdatedAt *time.Time    `json:"updated_at,omitempty"`
	Metrics   []model.Entry `json:"metrics,omitempty"`
	Message   string        `json:"message,omitempty"`
}

type subscriber struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (sub *subscriber) send(data []byte) error {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	_ = sub.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return sub.conn.WriteMessage(websocket.TextMessage, data)
}

// Server exposes the published snapshot to display clients.
type Server struct {
	cfg      config.PanelConfig
	src      Source
	gatherer prometheus.Gatherer
	upgrader websocket.Upgrader

	mu          sync.Mutex
	subscribers map[*subscriber]bool
}

// NewServer constructs a panel server and subscribes it to src.
func NewServer(cfg config.PanelConfig, src Source, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		cfg:         cfg,
		src:         src,
		gatherer:    gatherer,
		subscribers: make(map[*subscriber]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	src.Subscribe(s.broadcast)
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/metrics", s.requireToken(s.handleMetricsJSON))
	mux.HandleFunc("/ws", s.requireToken(s.handleWebSocket))
	if s.gatherer != nil {
		mux.Handle("/metrics", s.requireToken(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}).ServeHTTP))
	}
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

// ListenAndServe serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return err
	}
	log.Printf("panel listening on %s", ln.Addr())
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		s.closeSubscribers()
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleMetricsJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, snapshotMessage(s.src.Snapshot()))
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade: %v", err)
		return
	}
	defer conn.Close()

	sub := &subscriber{conn: conn}
	s.addSubscriber(sub)
	defer s.removeSubscriber(sub)

	if err := s.sendSnapshot(sub); err != nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError(sub, "invalid message")
			continue
		}
		switch msg.Type {
		case "refresh":
			if err := s.sendSnapshot(sub); err != nil {
				return
			}
		default:
			s.sendError(sub, "unknown message type")
		}
	}
}

func (s *Server) sendSnapshot(sub *subscriber) error {
	data, err := json.Marshal(snapshotMessage(s.src.Snapshot()))
	if err != nil {
		return err
	}
	return sub.send(data)
}

func (s *Server) sendError(sub *subscriber, message string) {
	data, err := json.Marshal(Message{Type: "error", Message: message})
	if err != nil {
		return
	}
	_ = sub.send(data)
}

func (s *Server) addSubscriber(sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers[sub] = true
}

func (s *Server) removeSubscriber(sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscribers, sub)
}

func (s *Server) snapshotSubscribers() []*subscriber {
	s.mu.Lock()
	defer s.mu.Unlock()
	subs := make([]*subscriber, 0, len(s.subscribers))
	for sub := range s.subscribers {
		subs = append(subs, sub)
	}
	return subs
}

func (s *Server) broadcast(snap model.Snapshot) {
	subs := s.snapshotSubscribers()
	if len(subs) == 0 {
		return
	}

	data, err := json.Marshal(snapshotMessage(snap))
	if err != nil {
		return
	}
	for _, sub := range subs {
		if err := sub.send(data); err != nil {
			log.Printf("ws send: %v", err)
			s.removeSubscriber(sub)
			sub.conn.Close()
		}
	}
}

func (s *Server) closeSubscribers() {
	for _, sub := range s.snapshotSubscribers() {
		sub.conn.Close()
	}
}

func snapshotMessage(snap model.Snapshot) Message {
	msg := Message{Type: "snapshot", Metrics: metrics.Entries(snap)}
	if !snap.UpdatedAt.IsZero() {
		ts := snap.UpdatedAt.UTC()
		msg.UpdatedAt = &ts
	}
	return msg
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
