package domain

// WebSocket message types from client.
const (
	MsgTypeJoin        = "join"
	MsgTypeSendMessage = "send_message"
	MsgTypeTyping      = "typing"
	MsgTypeLeave       = "leave"
	MsgTypePing        = "ping"
)

// WebSocket message types to client.
const (
	MsgTypeHistory        = "history"
	MsgTypeMessage        = "message"
	MsgTypeSystemNotice   = "system_notice"
	MsgTypeDeliveryFailed = "delivery_failed"
	MsgTypeError          = "error"
	MsgTypePong           = "pong"
)

// BaseMessage is the base structure for all WebSocket messages.
type BaseMessage struct {
	Type string `json:"type"`
}

// Client -> Server messages

type JoinMessage struct {
	Type        string `json:"type"`
	Room        string `json:"room"`
	DisplayName string `json:"display_name,omitempty"`
}

type SendMessageWS struct {
	Type string `json:"type"`
	Body string `json:"body"`
}

type TypingMessage struct {
	Type     string `json:"type"`
	IsTyping bool   `json:"is_typing"`
}

// Server -> Client messages

type HistoryOut struct {
	Type     string        `json:"type"`
	Room     string        `json:"room"`
	Messages []ChatMessage `json:"messages"`
}

type MessageOut struct {
	Type    string      `json:"type"`
	Message ChatMessage `json:"message"`
}

// SystemNoticeOut carries a notice. Seq is zero for ephemeral notices that could not be
// stored.
type SystemNoticeOut struct {
	Type      string `json:"type"`
	Room      string `json:"room"`
	Text      string `json:"text"`
	Seq       int64  `json:"seq,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type TypingOut struct {
	Type     string `json:"type"`
	Room     string `json:"room"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	IsTyping bool   `json:"is_typing"`
}

type DeliveryFailedOut struct {
	Type   string `json:"type"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorMessage(code ErrorCode, message string) *ErrorMessage {
	return &ErrorMessage{
		Type:    MsgTypeError,
		Code:    string(code),
		Message: message,
	}
}

// NewNoticeOut renders a stored system notice.
func NewNoticeOut(m *ChatMessage) *SystemNoticeOut {
	return &SystemNoticeOut{
		Type:      MsgTypeSystemNotice,
		Room:      m.Room,
		Text:      m.Body,
		Seq:       m.Seq,
		Timestamp: m.CreatedAt.UnixMilli(),
	}
}
