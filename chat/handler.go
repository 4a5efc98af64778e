package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/va6996/tokenagent/agents"
	reqctx "github.com/va6996/tokenagent/context"
	"github.com/va6996/tokenagent/log"
)

// ErrUnknownSchema is returned by Dispatch for payloads it cannot route
var ErrUnknownSchema = errors.New("unknown schema digest")

// Sender delivers a message to another agent
type Sender interface {
	Send(ctx context.Context, target string, msg Model) error
}

// Exchange is one handled text item and the reply sent for it
type Exchange struct {
	MsgID      string
	Sender     string
	Query      string
	Reply      string
	ReceivedAt time.Time
	RepliedAt  time.Time
}

// Recorder stores exchanges. Failures are logged and otherwise ignored.
type Recorder interface {
	Record(ctx context.Context, ex Exchange) error
}

// Handler acknowledges inbound chat messages and answers their text items
type Handler struct {
	responder agents.Responder
	sender    Sender
	recorder  Recorder
}

// NewHandler creates a Handler. recorder may be nil.
func NewHandler(responder agents.Responder, sender Sender, recorder Recorder) *Handler {
	return &Handler{
		responder: responder,
		sender:    sender,
		recorder:  recorder,
	}
}

// Dispatch decodes payload according to schema and routes it
func (h *Handler) Dispatch(ctx context.Context, sender, schema string, payload []byte) error {
	switch schema {
	case ChatMessageDigest:
		var msg ChatMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return fmt.Errorf("failed to decode chat message: %w", err)
		}
		return h.HandleMessage(ctx, sender, msg)
	case ChatAcknowledgementDigest:
		var ack ChatAcknowledgement
		if err := json.Unmarshal(payload, &ack); err != nil {
			return fmt.Errorf("failed to decode acknowledgement: %w", err)
		}
		h.HandleAcknowledgement(ctx, sender, ack)
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSchema, schema)
	}
}

// HandleMessage acknowledges msg, then answers each text item with a new
// message. Items are handled in order; non-text items are skipped.
func (h *Handler) HandleMessage(ctx context.Context, sender string, msg ChatMessage) error {
	ctx = reqctx.EnsureRequestID(ctx)
	ctx = reqctx.WithSender(ctx, sender)
	ctx = reqctx.WithMessageID(ctx, msg.MsgID)
	receivedAt := time.Now().UTC()

	if err := h.sender.Send(ctx, sender, NewAcknowledgement(msg.MsgID)); err != nil {
		log.Errorf(ctx, "Failed to acknowledge message: %v", err)
	}

	var errs []error
	for _, item := range msg.Content {
		switch item.Type {
		case ContentText:
		case ContentStartSession, ContentEndSession:
			log.Debugf(ctx, "Received %s marker", item.Type)
			continue
		default:
			log.Debugf(ctx, "Ignoring %s content", item.Type)
			continue
		}

		log.Infof(ctx, "Received message from %s: %s", sender, item.Text)
		reply := h.responder.ProcessQuery(ctx, item.Text)

		if err := h.sender.Send(ctx, sender, NewTextMessage(reply)); err != nil {
			log.Errorf(ctx, "Failed to send reply: %v", err)
			errs = append(errs, err)
			continue
		}
		h.record(ctx, Exchange{
			MsgID:      msg.MsgID,
			Sender:     sender,
			Query:      item.Text,
			Reply:      reply,
			ReceivedAt: receivedAt,
			RepliedAt:  time.Now().UTC(),
		})
	}
	return errors.Join(errs...)
}

// HandleAcknowledgement only logs
func (h *Handler) HandleAcknowledgement(ctx context.Context, sender string, ack ChatAcknowledgement) {
	log.Infof(ctx, "Received acknowledgement from %s for message %s", sender, ack.AcknowledgedMsgID)
}

func (h *Handler) record(ctx context.Context, ex Exchange) {
	if h.recorder == nil {
		return
	}
	if err := h.recorder.Record(ctx, ex); err != nil {
		log.Warnf(ctx, "Failed to record exchange: %v", err)
	}
}
