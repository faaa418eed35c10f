package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/nrdvana/slidelink/internal/models"
	"github.com/nrdvana/slidelink/internal/observability"
	"github.com/nrdvana/slidelink/internal/roles"
	"github.com/nrdvana/slidelink/internal/syncchan"
)

const (
	peerSendBuffer = 32
	writeWait      = 10 * time.Second
	maxFrameSize   = 4096
)

// Peer is one connected websocket
type Peer struct {
	ID     string
	Mode   string
	grants roles.Grants

	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

// CanLead reports whether the peer's frames move the shared state
func (p *Peer) CanLead() bool {
	return p.grants.Has(models.RoleLead)
}

func (p *Peer) close() {
	p.once.Do(func() {
		close(p.done)
		p.conn.Close()
	})
}

// queue hands data to the peer's writer. A peer that cannot keep up is
// disconnected rather than allowed to stall the room.
func (p *Peer) queue(data []byte) bool {
	select {
	case p.send <- data:
		return true
	default:
		p.close()
		return false
	}
}

// Hub is the single presentation room: it holds the shared state and fans
// leader updates out to every other peer.
type Hub struct {
	mu    sync.RWMutex
	peers map[string]*Peer
	state models.SharedState
	log   zerolog.Logger
}

// NewHub creates an empty room
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		peers: make(map[string]*Peer),
		log:   logger.With().Str("component", "hub").Logger(),
	}
}

// State returns the current shared state and the number of connected peers
func (h *Hub) State() (models.SharedState, int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state, len(h.peers)
}

func encode(msg syncchan.Inbound) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		// Inbound only holds ints and strings
		panic(fmt.Sprintf("failed to encode message: %v", err))
	}
	return data
}

// Join registers conn and queues its roles followed by the current state
func (h *Hub) Join(conn *websocket.Conn, mode string, roleNames []string) *Peer {
	if roleNames == nil {
		roleNames = []string{}
	}
	p := &Peer{
		ID:     uuid.NewString(),
		Mode:   mode,
		grants: roles.NewGrants(roleNames),
		conn:   conn,
		send:   make(chan []byte, peerSendBuffer),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	h.peers[p.ID] = p
	p.queue(encode(syncchan.Inbound{Roles: roleNames}))
	if h.state.Known() {
		state := h.state
		p.queue(encode(syncchan.Inbound{State: &state}))
	}
	count := len(h.peers)
	h.mu.Unlock()

	observability.RecordPeerJoined(mode)
	h.log.Info().Str("peer", p.ID).Str("mode", mode).Strs("roles", roleNames).Int("peers", count).Msg("peer joined")
	return p
}

// Leave unregisters a peer and closes its socket
func (h *Hub) Leave(p *Peer) {
	h.mu.Lock()
	_, ok := h.peers[p.ID]
	delete(h.peers, p.ID)
	count := len(h.peers)
	h.mu.Unlock()

	p.close()
	if ok {
		observability.RecordPeerLeft(p.Mode)
		h.log.Info().Str("peer", p.ID).Int("peers", count).Msg("peer left")
	}
}

// Serve pumps frames from the peer until its socket fails, then leaves
func (h *Hub) Serve(p *Peer) {
	defer h.Leave(p)
	go h.write(p)

	p.conn.SetReadLimit(maxFrameSize)
	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Warn().Err(err).Str("peer", p.ID).Msg("read failed")
			}
			return
		}
		h.HandleFrame(p, data)
	}
}

func (h *Hub) write(p *Peer) {
	for {
		select {
		case <-p.done:
			return
		case data := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.log.Debug().Err(err).Str("peer", p.ID).Msg("write failed")
				p.close()
				return
			}
		}
	}
}

// HandleFrame applies one cursor update. Updates from peers without the
// lead grant are dropped; accepted ones replace the shared state and go to
// every other peer in arrival order.
func (h *Hub) HandleFrame(p *Peer, data []byte) {
	var msg syncchan.Outbound
	if err := json.Unmarshal(data, &msg); err != nil {
		observability.RecordFrame(observability.FrameInvalid)
		h.log.Warn().Err(err).Str("peer", p.ID).Msg("invalid frame")
		return
	}
	if !p.CanLead() {
		observability.RecordFrame(observability.FrameDropped)
		h.log.Debug().Str("peer", p.ID).Msg("dropping update from non-leader")
		return
	}
	if msg.SlideNum < 1 || msg.StepNum < 0 {
		observability.RecordFrame(observability.FrameInvalid)
		h.log.Warn().Str("peer", p.ID).Int("slide", msg.SlideNum).Int("step", msg.StepNum).Msg("update out of range")
		return
	}

	h.mu.Lock()
	h.state = models.SharedState{SlideNum: msg.SlideNum, StepNum: msg.StepNum}
	state := h.state
	data = encode(syncchan.Inbound{State: &state})
	sent := 0
	for id, other := range h.peers {
		if id == p.ID {
			continue
		}
		if other.queue(data) {
			sent++
		}
	}
	h.mu.Unlock()

	observability.RecordFrame(observability.FrameAccepted)
	observability.RecordBroadcast(sent)
	h.log.Debug().Str("peer", p.ID).Int("slide", state.SlideNum).Int("step", state.StepNum).Int("sent", sent).Msg("state updated")
}
