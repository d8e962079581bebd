package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ============================================================================
// Display websocket
// ============================================================================
//
// Browser pages (or ws_listen) connect here and act as display surfaces. Every
// connection is a displayPeer with its own outbound queue and writer goroutine.
//
// A peer receives nothing until it sends {"command":"ready"}. The same frame
// becomes a SurfaceReady event on the daemon loop, which answers with the sound
// setting and a buffer snapshot, so a late joiner catches up without a replay.
//
// A peer whose queue is full is dropped instead of stalling the others.
//
// ============================================================================

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second

	maxInboundBytes = 4096
)

type displayHubConfig struct {
	// PeerQueue is the per-peer outbound frame queue. Default 64.
	PeerQueue int
	// FrameQueue is the hub's inbound frame queue. Default 256.
	FrameQueue int
}

// displayHub fans encoded display frames out to ready peers. The peer set is
// owned by the Run goroutine; other goroutines talk to it through channels.
type displayHub struct {
	logger *slog.Logger

	frames chan []byte
	joins  chan *displayPeer
	leaves chan *displayPeer

	peerQueue int
	peers     atomic.Int32
}

func newDisplayHub(logger *slog.Logger, cfg displayHubConfig) *displayHub {
	if cfg.PeerQueue <= 0 {
		cfg.PeerQueue = 64
	}
	if cfg.FrameQueue <= 0 {
		cfg.FrameQueue = 256
	}
	return &displayHub{
		logger:    logger,
		frames:    make(chan []byte, cfg.FrameQueue),
		joins:     make(chan *displayPeer, 16),
		leaves:    make(chan *displayPeer, 16),
		peerQueue: cfg.PeerQueue,
	}
}

// Run serves joins, leaves and frames until ctx ends, then releases every peer.
func (h *displayHub) Run(ctx context.Context) {
	peers := make(map[*displayPeer]struct{})
	drop := func(p *displayPeer, reason string) {
		if _, ok := peers[p]; !ok {
			return
		}
		delete(peers, p)
		h.peers.Store(int32(len(peers)))
		close(p.out)
		h.logger.Info("display peer dropped", "peer", p.id, "remote_addr", p.addr, "reason", reason, "peers", len(peers))
	}

	h.logger.Info("display hub running")
	for {
		select {
		case <-ctx.Done():
			for p := range peers {
				close(p.out)
			}
			h.peers.Store(0)
			h.logger.Info("display hub stopped", "peers", len(peers))
			return

		case p := <-h.joins:
			peers[p] = struct{}{}
			h.peers.Store(int32(len(peers)))
			h.logger.Info("display peer connected", "peer", p.id, "remote_addr", p.addr, "peers", len(peers))

		case p := <-h.leaves:
			drop(p, "disconnected")

		case frame := <-h.frames:
			for p := range peers {
				if !p.ready.Load() {
					continue
				}
				select {
				case p.out <- frame:
				default:
					drop(p, "slow")
				}
			}
		}
	}
}

// Broadcast queues an encoded frame without blocking. A full queue drops it.
func (h *displayHub) Broadcast(frame []byte) {
	select {
	case h.frames <- frame:
	default:
		h.logger.Warn("display hub queue full, dropping frame", "bytes", len(frame))
	}
}

// Peers is the number of connected peers, ready or not.
func (h *displayHub) Peers() int { return int(h.peers.Load()) }

// displayPeer is one websocket connection. out is closed by the hub only.
type displayPeer struct {
	id     string
	addr   string
	conn   *websocket.Conn
	out    chan []byte
	ready  atomic.Bool
	logger *slog.Logger
}

// writeLoop drains out onto the socket and owns closing it.
func (p *displayPeer) writeLoop(ctx context.Context) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	defer p.conn.Close()

	for {
		var err error
		select {
		case <-ctx.Done():
			_ = p.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
			return

		case frame, ok := <-p.out:
			if !ok {
				_ = p.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			err = p.write(websocket.TextMessage, frame)

		case <-ping.C:
			err = p.write(websocket.PingMessage, nil)
		}
		if err != nil {
			p.logExit("write", err)
			return
		}
	}
}

func (p *displayPeer) write(kind int, data []byte) error {
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteMessage(kind, data)
}

// readLoop handles surface commands until the socket fails, then leaves the hub.
func (p *displayPeer) readLoop(ctx context.Context, leaves chan<- *displayPeer, events chan<- Event) {
	defer func() {
		select {
		case leaves <- p:
		case <-ctx.Done():
		}
	}()

	p.conn.SetReadLimit(maxInboundBytes)
	_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			p.logExit("read", err)
			return
		}
		p.handleCommand(ctx, data, events)
	}
}

// surfaceCommand is an inbound frame from a display surface.
type surfaceCommand struct {
	Command string `json:"command"`
}

func (p *displayPeer) handleCommand(ctx context.Context, data []byte, events chan<- Event) {
	var cmd surfaceCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		p.logger.Debug("display peer sent malformed frame", "peer", p.id, "error", err)
		return
	}

	switch cmd.Command {
	case "ready":
		// Open the peer before the engine replies so the catch-up reaches it.
		if !p.ready.Swap(true) {
			p.logger.Debug("display peer ready", "peer", p.id)
		}
		if events == nil {
			return
		}
		select {
		case events <- SurfaceReady{Client: p.id}:
		case <-ctx.Done():
		}
	default:
		p.logger.Debug("display peer sent unknown command", "peer", p.id, "command", cmd.Command)
	}
}

func (p *displayPeer) logExit(loop string, err error) {
	if errors.Is(err, websocket.ErrCloseSent) {
		return
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		p.logger.Info("display peer closed", "peer", p.id, "loop", loop, "code", ce.Code, "reason", ce.Text)
		return
	}
	p.logger.Info("display peer "+loop+" failed", "peer", p.id, "error", err)
}

// ============================================================================
// HTTP handler
// ============================================================================

// displayServer upgrades requests to display peers. Peers outlive the request;
// ctx (the daemon's) bounds them instead.
type displayServer struct {
	ctx      context.Context
	hub      *displayHub
	events   chan<- Event
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func newDisplayServer(ctx context.Context, hub *displayHub, events chan<- Event, logger *slog.Logger) *displayServer {
	return &displayServer{
		ctx:    ctx,
		hub:    hub,
		events: events,
		logger: logger,
		upgrader: websocket.Upgrader{
			// Display pages are often opened from file:// or another port.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *displayServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("display upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	p := &displayPeer{
		id:     uuid.NewString(),
		addr:   r.RemoteAddr,
		conn:   conn,
		out:    make(chan []byte, s.hub.peerQueue),
		logger: s.logger,
	}
	select {
	case s.hub.joins <- p:
	case <-s.ctx.Done():
		_ = conn.Close()
		return
	}

	go p.writeLoop(s.ctx)
	go p.readLoop(s.ctx, s.hub.leaves, s.events)
}

// hubSurface encodes each display message once and hands it to the hub.
type hubSurface struct {
	hub    *displayHub
	logger *slog.Logger
}

func (s hubSurface) Post(m Message) {
	b, err := EncodeMessage(m)
	if err != nil {
		s.logger.Warn("display message not encoded", "type", m.messageType(), "error", err)
		return
	}
	s.hub.Broadcast(b)
}
