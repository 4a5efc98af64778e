// Package chat implements the agent chat protocol: content-bearing messages
// and acknowledgements exchanged between agents.
package chat

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	ProtocolName    = "AgentChatProtocol"
	ProtocolVersion = "0.3.0"
)

// Content types
const (
	ContentText         = "text"
	ContentStartSession = "start-session"
	ContentEndSession   = "end-session"
	ContentMetadata     = "metadata"
)

// Digests identify payload schemas on the wire
var (
	ChatMessageDigest         = schemaDigest("ChatMessage", "timestamp", "msg_id", "content")
	ChatAcknowledgementDigest = schemaDigest("ChatAcknowledgement", "timestamp", "acknowledged_msg_id", "metadata")
	ProtocolDigest            = "proto:" + hash(ProtocolName+":"+ProtocolVersion+":"+ChatMessageDigest+":"+ChatAcknowledgementDigest)
)

// Model is a payload that can travel in an envelope
type Model interface {
	SchemaDigest() string
}

// Content is one item of a ChatMessage. Text is set for text items,
// Metadata for metadata items; session markers carry neither.
type Content struct {
	Type     string            `json:"type"`
	Text     string            `json:"text,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type ChatMessage struct {
	Timestamp time.Time `json:"timestamp"`
	MsgID     string    `json:"msg_id"`
	Content   []Content `json:"content"`
}

func (ChatMessage) SchemaDigest() string { return ChatMessageDigest }

// Texts returns the text items in order
func (m ChatMessage) Texts() []string {
	var out []string
	for _, c := range m.Content {
		if c.Type == ContentText {
			out = append(out, c.Text)
		}
	}
	return out
}

type ChatAcknowledgement struct {
	Timestamp         time.Time         `json:"timestamp"`
	AcknowledgedMsgID string            `json:"acknowledged_msg_id"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

func (ChatAcknowledgement) SchemaDigest() string { return ChatAcknowledgementDigest }

// NewTextMessage builds a message with a fresh msg_id and a single text item
func NewTextMessage(text string) ChatMessage {
	return ChatMessage{
		Timestamp: time.Now().UTC(),
		MsgID:     uuid.New().String(),
		Content:   []Content{{Type: ContentText, Text: text}},
	}
}

// NewAcknowledgement acknowledges msgID
func NewAcknowledgement(msgID string) ChatAcknowledgement {
	return ChatAcknowledgement{
		Timestamp:         time.Now().UTC(),
		AcknowledgedMsgID: msgID,
	}
}

func schemaDigest(title string, fields ...string) string {
	return "model:" + hash(title+"("+strings.Join(fields, ",")+")")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
