package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nhle/sim-admin/internal/model"
	"github.com/nhle/sim-admin/internal/realtime"
)

const (
	// peerBuffer is how many frames may queue for a slow peer before it
	// is disconnected.
	peerBuffer = 64

	hubWriteTimeout = 5 * time.Second
)

// TokenVerifier decides whether an access token may join a channel.
type TokenVerifier func(token string) error

// Hub serves the realtime websocket endpoint and fans inserted
// notification rows out to every peer joined to a matching channel.
type Hub struct {
	upgrader websocket.Upgrader
	verify   TokenVerifier
	apiKey   string

	mu    sync.Mutex
	peers map[*peer]struct{}
}

// peer is one websocket connection.
type peer struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once

	mu     sync.Mutex
	topics map[string]string // topic -> join ref
}

// NewHub creates a hub. When apiKey is non-empty, connections must pass it
// as the apikey query parameter.
func NewHub(apiKey string, verify TokenVerifier) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		verify: verify,
		apiKey: apiKey,
		peers:  make(map[*peer]struct{}),
	}
}

// ServeHTTP upgrades the connection and runs the peer until it leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.apiKey != "" && r.URL.Query().Get("apikey") != h.apiKey {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("realtime: upgrade failed: %v", err)
		return
	}

	p := &peer{
		conn:   conn,
		send:   make(chan []byte, peerBuffer),
		done:   make(chan struct{}),
		topics: make(map[string]string),
	}

	h.mu.Lock()
	h.peers[p] = struct{}{}
	h.mu.Unlock()

	go p.writeLoop()
	h.readLoop(p)

	h.mu.Lock()
	delete(h.peers, p)
	h.mu.Unlock()
	p.close()
}

// PeerCount returns the number of connected peers.
func (h *Hub) PeerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

// Subscribers returns the number of peers joined to topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for p := range h.peers {
		p.mu.Lock()
		if _, ok := p.topics[topic]; ok {
			n++
		}
		p.mu.Unlock()
	}
	return n
}

// PublishInsert sends an INSERT change for the notifications table to
// every peer joined to it.
func (h *Hub) PublishInsert(n model.Notification) {
	const topic = "realtime:public:notifications"

	payload := realtime.ChangePayload{
		Data: realtime.ChangeData{
			Type:            realtime.ChangeInsert,
			Schema:          "public",
			Table:           "notifications",
			Record:          realtime.RowFromNotification(n),
			CommitTimestamp: time.Now().UTC().Format(time.RFC3339Nano),
		},
	}

	h.mu.Lock()
	peers := make([]*peer, 0, len(h.peers))
	for p := range h.peers {
		peers = append(peers, p)
	}
	h.mu.Unlock()

	// Frames differ only by join ref.
	frames := make(map[string][]byte)
	for _, p := range peers {
		p.mu.Lock()
		joinRef, joined := p.topics[topic]
		p.mu.Unlock()
		if !joined {
			continue
		}

		frame, ok := frames[joinRef]
		if !ok {
			var err error
			frame, err = realtime.Encode(topic, realtime.EventChanges, "", joinRef, payload)
			if err != nil {
				log.Printf("realtime: encoding change for join %s: %v", joinRef, err)
				continue
			}
			frames[joinRef] = frame
		}
		p.enqueue(frame)
	}
}

// readLoop handles join, leave and heartbeat frames from one peer.
func (h *Hub) readLoop(p *peer) {
	for {
		var msg realtime.Message
		if err := p.conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("realtime: peer read: %v", err)
			}
			return
		}

		switch msg.Event {
		case realtime.EventHeartbeat:
			h.reply(p, msg, "ok", struct{}{})

		case realtime.EventJoin:
			var join realtime.JoinPayload
			if err := json.Unmarshal(msg.Payload, &join); err != nil {
				h.reply(p, msg, "error", map[string]string{"reason": "malformed join"})
				continue
			}
			if h.verify != nil {
				if err := h.verify(join.AccessToken); err != nil {
					h.reply(p, msg, "error", map[string]string{"reason": "unauthorized"})
					continue
				}
			}
			p.mu.Lock()
			p.topics[msg.Topic] = msg.JoinRef
			p.mu.Unlock()
			h.reply(p, msg, "ok", map[string]interface{}{
				"postgres_changes": join.Config.PostgresChanges,
			})

		case realtime.EventLeave:
			p.mu.Lock()
			delete(p.topics, msg.Topic)
			p.mu.Unlock()
			h.reply(p, msg, "ok", struct{}{})
		}
	}
}

// reply answers msg with a phx_reply carrying status and response.
func (h *Hub) reply(p *peer, msg realtime.Message, status string, response interface{}) {
	raw, err := json.Marshal(response)
	if err != nil {
		log.Printf("realtime: encoding reply: %v", err)
		return
	}
	frame, err := realtime.Encode(msg.Topic, realtime.EventReply, msg.Ref, msg.JoinRef,
		realtime.ReplyPayload{Status: status, Response: raw})
	if err != nil {
		log.Printf("realtime: encoding reply: %v", err)
		return
	}
	p.enqueue(frame)
}

// enqueue queues a frame, dropping the peer if it cannot keep up.
func (p *peer) enqueue(frame []byte) {
	select {
	case <-p.done:
	case p.send <- frame:
	default:
		log.Printf("realtime: peer too slow, disconnecting")
		p.close()
	}
}

// writeLoop is the only writer on the connection.
func (p *peer) writeLoop() {
	for {
		select {
		case <-p.done:
			return
		case frame := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(hubWriteTimeout))
			if err := p.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				p.close()
				return
			}
		}
	}
}

func (p *peer) close() {
	p.once.Do(func() {
		close(p.done)
		p.conn.Close()
	})
}
