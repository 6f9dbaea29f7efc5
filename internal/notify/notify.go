// Package notify is the boundary to outbound email. The api only enqueues;
// rendering and delivery happen in the worker and beyond.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"expressconnect/internal/ids"
)

type Kind string

const (
	KindOTP       Kind = "otp"
	KindMagicLink Kind = "magic-link"
	KindResetLink Kind = "reset-link"
)

func (k Kind) Valid() bool {
	switch k {
	case KindOTP, KindMagicLink, KindResetLink:
		return true
	}
	return false
}

var (
	ErrUnknownKind    = errors.New("unknown notification kind")
	ErrMissingAddress = errors.New("missing recipient address")
)

// Notifier sends one templated message. Callers treat any error as a failed
// request and do not retry inline.
type Notifier interface {
	Send(ctx context.Context, kind Kind, to string, data map[string]string) error
}

// Message is the unit carried on the stream.
type Message struct {
	ID   string
	Kind Kind
	To   string
	Data map[string]string
}

func (m Message) Values() (map[string]any, error) {
	data, err := json.Marshal(m.Data)
	if err != nil {
		return nil, fmt.Errorf("encode data: %w", err)
	}
	return map[string]any{
		"id":   m.ID,
		"kind": string(m.Kind),
		"to":   m.To,
		"data": string(data),
	}, nil
}

// Decode rebuilds a Message from stream values.
func Decode(values map[string]any) (Message, error) {
	var msg Message

	msg.ID, _ = values["id"].(string)
	kind, _ := values["kind"].(string)
	msg.Kind = Kind(kind)
	msg.To, _ = values["to"].(string)

	if raw, ok := values["data"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &msg.Data); err != nil {
			return Message{}, fmt.Errorf("decode data: %w", err)
		}
	}

	if !msg.Kind.Valid() {
		return msg, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if msg.To == "" {
		return msg, ErrMissingAddress
	}
	return msg, nil
}

// StreamNotifier appends messages to a redis stream consumed by the worker.
type StreamNotifier struct {
	client redis.UniversalClient
	stream string
}

func NewStreamNotifier(client redis.UniversalClient, stream string) *StreamNotifier {
	return &StreamNotifier{client: client, stream: stream}
}

func (n *StreamNotifier) Send(ctx context.Context, kind Kind, to string, data map[string]string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if to == "" {
		return ErrMissingAddress
	}

	values, err := Message{ID: ids.New(), Kind: kind, To: to, Data: data}.Values()
	if err != nil {
		return err
	}

	if err := n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: n.stream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue %s notification: %w", kind, err)
	}
	return nil
}
