package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultRoom is the room clients join when they name none.
	DefaultRoom = "chat-room"
	// MaxMessageLength is measured in runes.
	MaxMessageLength = 500
	// MaxDisplayNameLength bounds the cosmetic display name.
	MaxDisplayNameLength = 50
	// MaxRoomLength matches the room column width.
	MaxRoomLength = 100
)

// MessageKind distinguishes user messages from system notices.
type MessageKind string

const (
	KindMessage MessageKind = "message"
	KindSystem  MessageKind = "system"
)

// ChatMessage is an entry of a room's message log. Immutable once appended.
type ChatMessage struct {
	ID        string      `json:"id"`
	Room      string      `json:"room"`
	Seq       int64       `json:"seq"`
	UserID    *string     `json:"user_id,omitempty"`
	Username  string      `json:"username"`
	Body      string      `json:"body"`
	Kind      MessageKind `json:"kind"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewUserMessage builds an unsent user message.
func NewUserMessage(room, userID, username, body string) *ChatMessage {
	return &ChatMessage{
		Room:     room,
		UserID:   &userID,
		Username: username,
		Body:     body,
		Kind:     KindMessage,
	}
}

// NewSystemNotice builds an unsent system notice with no author.
func NewSystemNotice(room, text string) *ChatMessage {
	return &ChatMessage{
		Room:     room,
		Username: "system",
		Body:     text,
		Kind:     KindSystem,
	}
}

// NormalizeBody trims a message body, composes it to NFC and validates its length.
func NormalizeBody(body string) (string, error) {
	body = norm.NFC.String(strings.TrimSpace(body))
	if body == "" {
		return "", ErrMessageEmpty
	}
	if n := utf8.RuneCountInString(body); n > MaxMessageLength {
		return "", ErrMessageTooLong.Withf("message has %d characters, the limit is %d", n, MaxMessageLength)
	}
	return body, nil
}

// NormalizeDisplayName returns a cleaned display name, falling back when the
// client-asserted one is unusable.
func NormalizeDisplayName(name, fallback string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return fallback
	}
	if utf8.RuneCountInString(name) > MaxDisplayNameLength {
		runes := []rune(name)
		name = string(runes[:MaxDisplayNameLength])
	}
	return name
}

// NormalizeRoom returns the default room for an empty name and rejects names wider
// than the room column.
func NormalizeRoom(room string) (string, error) {
	room = norm.NFC.String(strings.TrimSpace(room))
	if room == "" {
		return DefaultRoom, nil
	}
	if n := utf8.RuneCountInString(room); n > MaxRoomLength {
		return "", NewError(ErrCodeBadRequest, fmt.Sprintf("room name has %d characters, the limit is %d", n, MaxRoomLength))
	}
	return room, nil
}
