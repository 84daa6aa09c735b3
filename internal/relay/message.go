package relay

import (
	"encoding/json"
	"fmt"

	"github.com/livecaphq/livecap/internal/transcript"
)

// MessageType enumerates the signaling message kinds exchanged over a
// session channel.
type MessageType string

const (
	JoinRequest      MessageType = "JOIN_REQUEST"
	JoinApproved     MessageType = "JOIN_APPROVED"
	JoinRejected     MessageType = "JOIN_REJECTED"
	TranscriptUpdate MessageType = "TRANSCRIPT_UPDATE"
	TranscriptClear  MessageType = "TRANSCRIPT_CLEAR"
	SessionEnded     MessageType = "SESSION_ENDED"
)

// Message is the transport-agnostic wire shape. The type fully determines
// the expected payload; payloads are decoded strictly per variant so a
// malformed message is a decode error, never a crash downstream.
type Message struct {
	Type     MessageType     `json:"type"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	SenderID string          `json:"senderId,omitempty"`
}

type JoinRequestPayload struct {
	GuestID     string `json:"guestId"`
	DisplayName string `json:"displayName,omitempty"`
}

type JoinDecisionPayload struct {
	GuestID string `json:"guestId"`
}

type TranscriptUpdatePayload struct {
	Entry transcript.Entry `json:"entry"`
}

// NewJoinRequest builds a JOIN_REQUEST from a guest.
func NewJoinRequest(guestID, displayName string) Message {
	return mustMessage(JoinRequest, guestID, JoinRequestPayload{GuestID: guestID, DisplayName: displayName})
}

func NewJoinApproved(hostID, guestID string) Message {
	return mustMessage(JoinApproved, hostID, JoinDecisionPayload{GuestID: guestID})
}

func NewJoinRejected(hostID, guestID string) Message {
	return mustMessage(JoinRejected, hostID, JoinDecisionPayload{GuestID: guestID})
}

func NewTranscriptUpdate(hostID string, e transcript.Entry) Message {
	return mustMessage(TranscriptUpdate, hostID, TranscriptUpdatePayload{Entry: e})
}

func NewTranscriptClear(hostID string) Message {
	return Message{Type: TranscriptClear, SenderID: hostID}
}

func NewSessionEnded(hostID string) Message {
	return Message{Type: SessionEnded, SenderID: hostID}
}

func mustMessage(t MessageType, senderID string, payload any) Message {
	data, err := json.Marshal(payload)
	if err != nil {
		// Payload structs marshal unconditionally; this is unreachable.
		panic(fmt.Sprintf("relay: marshal %s payload: %v", t, err))
	}
	return Message{Type: t, Payload: data, SenderID: senderID}
}

// DecodeJoinRequest validates and extracts a JOIN_REQUEST payload.
func DecodeJoinRequest(m Message) (JoinRequestPayload, error) {
	var p JoinRequestPayload
	if m.Type != JoinRequest {
		return p, fmt.Errorf("expected %s, got %s", JoinRequest, m.Type)
	}
	if err := decodePayload(m, &p); err != nil {
		return p, err
	}
	if p.GuestID == "" {
		return p, fmt.Errorf("%s: missing guestId", m.Type)
	}
	return p, nil
}

// DecodeJoinDecision validates a JOIN_APPROVED or JOIN_REJECTED payload.
func DecodeJoinDecision(m Message) (JoinDecisionPayload, error) {
	var p JoinDecisionPayload
	if m.Type != JoinApproved && m.Type != JoinRejected {
		return p, fmt.Errorf("expected join decision, got %s", m.Type)
	}
	if err := decodePayload(m, &p); err != nil {
		return p, err
	}
	if p.GuestID == "" {
		return p, fmt.Errorf("%s: missing guestId", m.Type)
	}
	return p, nil
}

// DecodeTranscriptUpdate validates a TRANSCRIPT_UPDATE payload.
func DecodeTranscriptUpdate(m Message) (TranscriptUpdatePayload, error) {
	var p TranscriptUpdatePayload
	if m.Type != TranscriptUpdate {
		return p, fmt.Errorf("expected %s, got %s", TranscriptUpdate, m.Type)
	}
	if err := decodePayload(m, &p); err != nil {
		return p, err
	}
	if p.Entry.ID == "" {
		return p, fmt.Errorf("%s: missing entry id", m.Type)
	}
	return p, nil
}

func decodePayload(m Message, dst any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%s: missing payload", m.Type)
	}
	if err := json.Unmarshal(m.Payload, dst); err != nil {
		return fmt.Errorf("%s: decode payload: %w", m.Type, err)
	}
	return nil
}
