// Package realtime subscribes to row-insert events on a table through a
// Phoenix-channel websocket, the protocol spoken by hosted Postgres
// realtime services.
package realtime

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/sim-admin/internal/model"
)

// Channel events.
const (
	EventJoin      = "phx_join"
	EventLeave     = "phx_leave"
	EventReply     = "phx_reply"
	EventError     = "phx_error"
	EventClose     = "phx_close"
	EventHeartbeat = "heartbeat"
	EventChanges   = "postgres_changes"
	EventSystem    = "system"

	// PhoenixTopic carries connection-level heartbeats.
	PhoenixTopic = "phoenix"

	// ChangeInsert is the postgres_changes type for inserted rows.
	ChangeInsert = "INSERT"
)

// Message is one frame on the socket.
type Message struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref,omitempty"`
	JoinRef string          `json:"join_ref,omitempty"`
}

// ChangeFilter selects which table changes a channel receives.
type ChangeFilter struct {
	Event  string `json:"event"`
	Schema string `json:"schema"`
	Table  string `json:"table"`
	Filter string `json:"filter,omitempty"`
}

// JoinConfig is the channel configuration sent with phx_join.
type JoinConfig struct {
	PostgresChanges []ChangeFilter `json:"postgres_changes"`
}

// JoinPayload is the payload of phx_join.
type JoinPayload struct {
	Config      JoinConfig `json:"config"`
	AccessToken string     `json:"access_token,omitempty"`
}

// ReplyPayload is the payload of phx_reply.
type ReplyPayload struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response,omitempty"`
}

// SystemPayload is the payload of server-side system notices.
type SystemPayload struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ChangePayload is the payload of postgres_changes.
type ChangePayload struct {
	Data ChangeData `json:"data"`
}

// ChangeData describes one row change.
type ChangeData struct {
	Type            string `json:"type"`
	Schema          string `json:"schema"`
	Table           string `json:"table"`
	Record          Row    `json:"record"`
	CommitTimestamp string `json:"commit_timestamp,omitempty"`
}

// Row is a notifications row as the database serialises it.
type Row struct {
	ID        string    `json:"id"`
	UserID    *string   `json:"user_id"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt Timestamp `json:"created_at"`
}

// Notification converts the row to the record shape the REST API uses.
func (r Row) Notification() model.Notification {
	return model.Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		Message:   r.Message,
		IsRead:    r.IsRead,
		CreatedAt: time.Time(r.CreatedAt),
	}
}

// RowFromNotification is the inverse of Row.Notification.
func RowFromNotification(n model.Notification) Row {
	return Row{
		ID:        n.ID,
		UserID:    n.UserID,
		Message:   n.Message,
		IsRead:    n.IsRead,
		CreatedAt: Timestamp(n.CreatedAt),
	}
}

// timestampLayouts are the encodings seen for timestamp columns, with and
// without a zone offset.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
}

// Timestamp accepts timestamptz and zone-less timestamp encodings.
// Values without an offset are taken as UTC.
type Timestamp time.Time

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*t = Timestamp(time.Time{})
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = Timestamp(parsed)
			return nil
		}
	}
	return fmt.Errorf("parsing timestamp %q", s)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UTC().Format(time.RFC3339Nano))
}

// Encode builds a frame with a JSON payload.
func Encode(topic, event, ref, joinRef string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s payload: %w", event, err)
	}
	return json.Marshal(Message{
		Topic:   topic,
		Event:   event,
		Payload: raw,
		Ref:     ref,
		JoinRef: joinRef,
	})
}
