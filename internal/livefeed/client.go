// Package livefeed streams bot telemetry pushed by the bot-runner over a
// Socket.IO channel restricted to the websocket transport.
package livefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type EventKind string

const (
	EventConnect    EventKind = "connect"
	EventDisconnect EventKind = "disconnect"
	EventLog        EventKind = "log"
	EventBet        EventKind = "bet"
	EventTip        EventKind = "tip"
)

type Event struct {
	Kind EventKind
	Data json.RawMessage
	At   time.Time
}

var (
	ErrHandshake     = errors.New("handshake_failed")
	ErrConnectDenied = errors.New("connect_denied")
)

const (
	defaultPingInterval = 25 * time.Second
	defaultPingTimeout  = 20 * time.Second
	eventBuffer         = 64
)

type Config struct {
	BaseURL           string
	Path              string
	ReconnectDelay    time.Duration
	ReconnectDelayMax time.Duration
	Dialer            *websocket.Dialer
}

type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	if cfg.Path == "" {
		cfg.Path = "/socket.io/"
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = time.Second
	}
	if cfg.ReconnectDelayMax < cfg.ReconnectDelay {
		cfg.ReconnectDelayMax = cfg.ReconnectDelay
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	return &Client{cfg: cfg}
}

// Subscription owns the one connection opened for an instance. The
// connection is re-established after drops until Close is called or the
// parent context ends; at no point are two connections alive at once.
type Subscription struct {
	instanceID string
	url        string
	cfg        Config
	events     chan Event
	cancel     context.CancelFunc
	done       chan struct{}
}

// Subscribe starts streaming events for instanceID.
func (c *Client) Subscribe(ctx context.Context, instanceID string) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		instanceID: instanceID,
		cfg:        c.cfg,
		events:     make(chan Event, eventBuffer),
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	u, err := FeedURL(c.cfg.BaseURL, c.cfg.Path, instanceID)
	if err != nil {
		log.Error().Err(err).Str("instance_id", instanceID).Msg("build feed url failed")
		cancel()
		close(s.events)
		close(s.done)
		return s
	}
	s.url = u
	go s.run(ctx)
	return s
}

// Events is closed once the subscription has fully stopped.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

func (s *Subscription) InstanceID() string {
	return s.instanceID
}

// Close tears the connection down and waits for it to be gone.
func (s *Subscription) Close() error {
	s.cancel()
	<-s.done
	return nil
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.events)

	delay := s.cfg.ReconnectDelay
	for {
		connected, err := s.session(ctx)
		if ctx.Err() != nil {
			return
		}
		if connected {
			delay = s.cfg.ReconnectDelay
		}
		log.Warn().Err(err).
			Str("instance_id", s.instanceID).
			Dur("retry_in", delay).
			Msg("live feed connection lost")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		delay *= 2
		if delay > s.cfg.ReconnectDelayMax {
			delay = s.cfg.ReconnectDelayMax
		}
	}
}

// session runs one connection until it drops. connected reports whether the
// socket namespace handshake completed, i.e. whether a connect event was sent.
func (s *Subscription) session(ctx context.Context) (connected bool, err error) {
	conn, _, err := s.cfg.Dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return false, fmt.Errorf("dial live feed: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer conn.Close()

	defer func() {
		if connected {
			s.emit(ctx, Event{Kind: EventDisconnect, At: time.Now()})
		}
	}()

	hs, err := readHandshake(conn)
	if err != nil {
		return false, err
	}
	deadline := time.Duration(hs.PingInterval+hs.PingTimeout) * time.Millisecond
	if deadline <= 0 {
		deadline = defaultPingInterval + defaultPingTimeout
	}
	if err := conn.WriteMessage(websocket.TextMessage, connectFrame); err != nil {
		return false, fmt.Errorf("send connect: %w", err)
	}

	for {
		_ = conn.SetReadDeadline(time.Now().Add(deadline))
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return connected, fmt.Errorf("read live feed: %w", err)
		}
		p, err := ParsePacket(frame)
		if err != nil {
			log.Debug().Err(err).Str("instance_id", s.instanceID).Msg("skip live feed frame")
			continue
		}
		switch p.Type {
		case PacketPing:
			if err := conn.WriteMessage(websocket.TextMessage, pongFrame); err != nil {
				return connected, fmt.Errorf("send pong: %w", err)
			}
		case PacketConnect:
			if connected {
				continue
			}
			connected = true
			log.Info().Str("instance_id", s.instanceID).Msg("live feed connected")
			s.emit(ctx, Event{Kind: EventConnect, At: time.Now()})
			frame, err := subscribeFrame(s.instanceID)
			if err != nil {
				return connected, err
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return connected, fmt.Errorf("send subscribe: %w", err)
			}
		case PacketConnectError:
			return connected, fmt.Errorf("%w: %s", ErrConnectDenied, p.Data)
		case PacketDisconnect, PacketClose:
			return connected, errors.New("server closed the session")
		case PacketEvent:
			switch kind := EventKind(p.Name); kind {
			case EventLog, EventBet, EventTip:
				s.emit(ctx, Event{Kind: kind, Data: p.Data, At: time.Now()})
			default:
				log.Debug().Str("instance_id", s.instanceID).Str("event", p.Name).Msg("ignore live feed event")
			}
		}
	}
}

func (s *Subscription) emit(ctx context.Context, ev Event) {
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}

func readHandshake(conn *websocket.Conn) (Handshake, error) {
	_ = conn.SetReadDeadline(time.Now().Add(defaultPingTimeout))
	_, frame, err := conn.ReadMessage()
	if err != nil {
		return Handshake{}, fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	p, err := ParsePacket(frame)
	if err != nil || p.Type != PacketOpen {
		return Handshake{}, fmt.Errorf("%w: unexpected first frame %q", ErrHandshake, frame)
	}
	var hs Handshake
	if err := json.Unmarshal(p.Data, &hs); err != nil {
		return Handshake{}, fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	return hs, nil
}

// FeedURL builds the websocket address for instanceID from an http(s) or
// ws(s) base address.
func FeedURL(base, path, instanceID string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if path == "" {
		path = "/socket.io/"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	q := url.Values{}
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	q.Set("instanceId", instanceID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
