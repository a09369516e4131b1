package livefeed

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
)

// Server is the pushing side of the feed: a minimal Socket.IO endpoint that
// accepts websocket clients, answers the handshake, and hands each
// subscribed client to OnSubscribe. It backs the local bot-runner stand-in
// and the tests.
type Server struct {
	PingInterval time.Duration
	PingTimeout  time.Duration
	OnSubscribe  func(*Session)

	upgrader websocket.Upgrader
	mu       sync.Mutex
	sessions map[*Session]struct{}
}

func NewServer(onSubscribe func(*Session)) *Server {
	return &Server{
		PingInterval: defaultPingInterval,
		PingTimeout:  defaultPingTimeout,
		OnSubscribe:  onSubscribe,
		upgrader:     websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		sessions:     map[*Session]struct{}{},
	}
}

// Session is one connected client.
type Session struct {
	ID         string
	InstanceID string

	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	subOnce   sync.Once
}

// Emit queues an event for the client. It reports false once the session is gone.
func (s *Session) Emit(name string, data any) bool {
	frame, err := EncodeEvent(name, data)
	if err != nil {
		return false
	}
	return s.sendFrame(frame)
}

// Done is closed when the client goes away.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Kick drops the client without a goodbye, as a crashed server would.
func (s *Session) Kick() {
	s.close()
}

func (s *Session) sendFrame(frame []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- frame:
		return true
	case <-s.done:
		return false
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

func (srv *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("transport") != "websocket" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 0, "message": "Transport unknown"})
		return
	}
	conn, err := srv.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	sess := &Session{
		ID:         ulid.Make().String(),
		InstanceID: r.URL.Query().Get("instanceId"),
		conn:       conn,
		send:       make(chan []byte, 32),
		done:       make(chan struct{}),
	}
	srv.register(sess)
	defer srv.unregister(sess)

	open, _ := EncodeOpen(Handshake{
		SID:          sess.ID,
		Upgrades:     []string{},
		PingInterval: int(srv.PingInterval / time.Millisecond),
		PingTimeout:  int(srv.PingTimeout / time.Millisecond),
	})
	sess.sendFrame(open)

	go srv.writeLoop(sess)
	srv.readLoop(sess)
}

// Sessions returns the clients currently connected.
func (srv *Server) Sessions() []*Session {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	out := make([]*Session, 0, len(srv.sessions))
	for s := range srv.sessions {
		out = append(out, s)
	}
	return out
}

func (srv *Server) register(s *Session) {
	srv.mu.Lock()
	srv.sessions[s] = struct{}{}
	srv.mu.Unlock()
}

func (srv *Server) unregister(s *Session) {
	srv.mu.Lock()
	delete(srv.sessions, s)
	srv.mu.Unlock()
	s.close()
}

func (srv *Server) writeLoop(s *Session) {
	ticker := time.NewTicker(srv.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case frame := <-s.send:
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.close()
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteMessage(websocket.TextMessage, pingFrame); err != nil {
				s.close()
				return
			}
		}
	}
}

func (srv *Server) readLoop(s *Session) {
	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		p, err := ParsePacket(frame)
		if err != nil {
			continue
		}
		switch p.Type {
		case PacketConnect:
			s.sendFrame(encodeConnectAck(s.ID))
		case PacketEvent:
			if p.Name != "message" || !isSubscribe(p.Data, s.InstanceID) {
				continue
			}
			s.subOnce.Do(func() {
				log.Debug().Str("instance_id", s.InstanceID).Str("sid", s.ID).Msg("feed client subscribed")
				if srv.OnSubscribe != nil {
					go srv.OnSubscribe(s)
				}
			})
		case PacketDisconnect, PacketClose:
			return
		}
	}
}

// isSubscribe accepts both a JSON-text argument and a plain object.
func isSubscribe(data json.RawMessage, instanceID string) bool {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		data = json.RawMessage(text)
	}
	var req subscribeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return false
	}
	return req.Subscribe != "" && (instanceID == "" || req.Subscribe == instanceID)
}
