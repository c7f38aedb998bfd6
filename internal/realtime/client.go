package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nhle/sim-admin/internal/model"
)

const (
	// defaultHeartbeat keeps the socket alive below the usual 30s server
	// timeout.
	defaultHeartbeat = 25 * time.Second

	// joinTimeout bounds the wait for the join reply.
	joinTimeout = 10 * time.Second

	// writeTimeout bounds a single frame write.
	writeTimeout = 5 * time.Second

	// eventBuffer is how many events may queue before the reader blocks.
	eventBuffer = 64
)

// ErrJoinRejected is returned when the server refuses the channel join.
var ErrJoinRejected = errors.New("channel join rejected")

// Config describes which socket and table to listen on.
type Config struct {
	// URL is the websocket endpoint, e.g. wss://host/realtime/v1/websocket.
	URL string

	// APIKey is the project key passed as the apikey query parameter.
	APIKey string

	// AccessToken authorises the channel join.
	AccessToken string

	// Schema and Table select the watched table.
	Schema string
	Table  string

	// Heartbeat is the heartbeat interval; zero uses 25s.
	Heartbeat time.Duration

	// Dialer overrides websocket.DefaultDialer.
	Dialer *websocket.Dialer
}

// Client opens insert subscriptions.
type Client struct {
	cfg Config
}

// NewClient creates a realtime client. Schema defaults to "public" and
// Table to "notifications".
func NewClient(cfg Config) *Client {
	if cfg.Schema == "" {
		cfg.Schema = "public"
	}
	if cfg.Table == "" {
		cfg.Table = "notifications"
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = defaultHeartbeat
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	return &Client{cfg: cfg}
}

// Topic returns the channel topic used for the configured table.
func (c *Client) Topic() string {
	return "realtime:" + c.cfg.Schema + ":" + c.cfg.Table
}

// Subscription is one joined channel delivering inserted rows. It ends
// when Unsubscribe is called, when ctx passed to Subscribe is cancelled,
// or when the connection fails; Events is closed in every case.
type Subscription struct {
	conn    *websocket.Conn
	topic   string
	joinRef string
	events  chan model.Notification
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
	writeMu sync.Mutex
	ref     atomic.Uint64

	mu  sync.Mutex
	err error
}

// Subscribe dials the socket, joins the insert channel and waits for the
// server to accept the join.
func (c *Client) Subscribe(ctx context.Context) (*Subscription, error) {
	endpoint, err := c.endpoint()
	if err != nil {
		return nil, err
	}

	conn, _, err := c.cfg.Dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing realtime socket: %w", err)
	}

	s := &Subscription{
		conn:   conn,
		topic:  c.Topic(),
		events: make(chan model.Notification, eventBuffer),
		done:   make(chan struct{}),
	}
	s.joinRef = s.nextRef()

	join := JoinPayload{
		Config: JoinConfig{
			PostgresChanges: []ChangeFilter{{
				Event:  ChangeInsert,
				Schema: c.cfg.Schema,
				Table:  c.cfg.Table,
			}},
		},
		AccessToken: c.cfg.AccessToken,
	}
	if err := s.send(s.topic, EventJoin, s.joinRef, s.joinRef, join); err != nil {
		conn.Close()
		return nil, err
	}

	if err := s.awaitJoin(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	s.wg.Add(2)
	go s.readLoop()
	go s.heartbeatLoop(c.cfg.Heartbeat)

	go func() {
		select {
		case <-ctx.Done():
			s.Unsubscribe()
		case <-s.done:
		}
	}()

	return s, nil
}

// endpoint appends the apikey and protocol version to the socket URL.
func (c *Client) endpoint() (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parsing realtime url: %w", err)
	}
	q := u.Query()
	if c.cfg.APIKey != "" {
		q.Set("apikey", c.cfg.APIKey)
	}
	q.Set("vsn", "1.0.0")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// awaitJoin reads frames until the reply to the join arrives.
func (s *Subscription) awaitJoin(ctx context.Context) error {
	deadline := time.Now().Add(joinTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return fmt.Errorf("setting read deadline: %w", err)
	}
	defer s.conn.SetReadDeadline(time.Time{})

	// Closing the socket unblocks the read when ctx ends first.
	stop := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			s.conn.Close()
		case <-stop:
		}
	}()
	defer func() {
		close(stop)
		<-exited
	}()

	for {
		var msg Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("waiting for join reply: %w", ctxErr)
			}
			return fmt.Errorf("waiting for join reply: %w", err)
		}
		if msg.Event != EventReply || msg.Ref != s.joinRef {
			continue
		}

		var reply ReplyPayload
		if err := json.Unmarshal(msg.Payload, &reply); err != nil {
			return fmt.Errorf("decoding join reply: %w", err)
		}
		if reply.Status != "ok" {
			return fmt.Errorf("%w: %s", ErrJoinRejected, string(reply.Response))
		}
		return nil
	}
}

// Events delivers inserted rows in the order the server sent them.
func (s *Subscription) Events() <-chan model.Notification {
	return s.events
}

// Err returns why the subscription ended, or nil if it was closed by
// Unsubscribe or is still open.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Unsubscribe leaves the channel and closes the socket. It is safe to
// call more than once and from any goroutine.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)

		if err := s.send(s.topic, EventLeave, s.nextRef(), s.joinRef, struct{}{}); err != nil {
			log.Printf("realtime: leaving %s: %v", s.topic, err)
		}

		s.writeMu.Lock()
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeTimeout),
		)
		s.writeMu.Unlock()

		s.conn.Close()
		s.wg.Wait()
	})
}

// readLoop forwards insert events until the socket closes.
func (s *Subscription) readLoop() {
	defer s.wg.Done()
	defer close(s.events)

	for {
		var msg Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			s.fail(fmt.Errorf("reading realtime socket: %w", err))
			s.closeAsync()
			return
		}

		switch msg.Event {
		case EventChanges:
			if msg.Topic != s.topic {
				continue
			}
			var change ChangePayload
			if err := json.Unmarshal(msg.Payload, &change); err != nil {
				log.Printf("realtime: dropping malformed change: %v", err)
				continue
			}
			if change.Data.Type != ChangeInsert {
				continue
			}
			select {
			case s.events <- change.Data.Record.Notification():
			case <-s.done:
				return
			}

		case EventSystem:
			var sys SystemPayload
			if json.Unmarshal(msg.Payload, &sys) == nil && sys.Status == "error" {
				s.fail(fmt.Errorf("realtime system error: %s", sys.Message))
				s.closeAsync()
				return
			}

		case EventError, EventClose:
			if msg.Topic == s.topic {
				s.fail(fmt.Errorf("channel %s ended with %s", s.topic, msg.Event))
				s.closeAsync()
				return
			}
		}
	}
}

// heartbeatLoop pings the server until the subscription ends.
func (s *Subscription) heartbeatLoop(every time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.send(PhoenixTopic, EventHeartbeat, s.nextRef(), "", struct{}{}); err != nil {
				s.fail(err)
				s.closeAsync()
				return
			}
		}
	}
}

// closeAsync tears the subscription down from one of its own goroutines,
// which cannot wait for themselves.
func (s *Subscription) closeAsync() {
	go s.Unsubscribe()
}

// fail records the first error that ended the subscription. Errors
// caused by Unsubscribe closing the socket are not recorded.
func (s *Subscription) fail(err error) {
	select {
	case <-s.done:
		return
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// send writes one frame.
func (s *Subscription) send(topic, event, ref, joinRef string, payload interface{}) error {
	frame, err := Encode(topic, event, ref, joinRef, payload)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("setting write deadline: %w", err)
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("sending %s: %w", event, err)
	}
	return nil
}

func (s *Subscription) nextRef() string {
	return strconv.FormatUint(s.ref.Add(1), 10)
}
