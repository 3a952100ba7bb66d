package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Mariodrm17/Practica1/internal/domain"
	"github.com/Mariodrm17/Practica1/internal/messagelog"
	"github.com/Mariodrm17/Practica1/internal/registry"
	"github.com/Mariodrm17/Practica1/pkg/log"
)

// Config tunes the hub.
type Config struct {
	// HistoryLimit is how many user messages a joiner is replayed.
	HistoryLimit int
	// AppendAttempts bounds tries to store one message.
	AppendAttempts int
	// RetryBackoff is multiplied by the attempt number between tries.
	RetryBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 50
	}
	if c.AppendAttempts <= 0 {
		c.AppendAttempts = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 50 * time.Millisecond
	}
	return c
}

// Hub routes chat traffic between connections.
//
// Every operation that appends to a room or fans out to it holds that room's
// ordering lock, so log order and delivery order are the same for every member.
type Hub struct {
	registry *registry.RoomRegistry
	log      messagelog.Log
	config   Config

	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]*roomLock

	shuttingDown atomic.Bool
}

func NewHub(reg *registry.RoomRegistry, msgLog messagelog.Log, cfg Config) *Hub {
	return &Hub{
		registry: reg,
		log:      msgLog,
		config:   cfg.withDefaults(),
		clients:  make(map[string]*Client),
		rooms:    make(map[string]*roomLock),
	}
}

// Register makes a new connection known to the hub.
func (h *Hub) Register(c *Client) error {
	if h.shuttingDown.Load() {
		return domain.ErrRoomJoinFailed.Withf("server is shutting down")
	}
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	l := log.L()
	l.Debug().Str(log.FieldConnID, c.ID).Msg("client registered")
	return nil
}

func (h *Hub) client(id string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[id]
	return c, ok
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// roomLock orders one room's traffic. refs counts holders and waiters; the lock is
// dropped once nobody references it.
type roomLock struct {
	mu   sync.Mutex
	refs int
}

func (h *Hub) lockRoom(room string) func() {
	h.mu.Lock()
	rl, ok := h.rooms[room]
	if !ok {
		rl = &roomLock{}
		h.rooms[room] = rl
	}
	rl.refs++
	h.mu.Unlock()

	rl.mu.Lock()
	return func() {
		rl.mu.Unlock()
		h.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(h.rooms, room)
		}
		h.mu.Unlock()
	}
}

// Join enters room. The joiner first receives the replay of recent user messages,
// then its own join notice together with every other member.
func (h *Hub) Join(ctx context.Context, c *Client, room, displayName string) error {
	if h.shuttingDown.Load() {
		return domain.ErrRoomJoinFailed.Withf("server is shutting down")
	}
	if state := c.Session.State(); state != domain.StateAnonymous {
		return domain.ErrInvalidState.Withf("cannot join while %s", state)
	}

	room, err := domain.NormalizeRoom(room)
	if err != nil {
		return err
	}
	name := domain.NormalizeDisplayName(displayName, c.Session.Identity.Username)
	l := log.Ctx(ctx).With().Str(log.FieldConnID, c.ID).Str(log.FieldRoom, room).Logger()

	unlock := h.lockRoom(room)
	defer unlock()

	history, err := h.log.Tail(ctx, room, h.config.HistoryLimit, domain.KindMessage)
	if err != nil {
		l.Error().Err(err).Msg("failed to load history")
		return domain.WrapError(domain.ErrCodeRoomJoinFailed, "could not load room history", err)
	}

	h.registry.Join(room, registry.Member{
		ConnID:      c.ID,
		UserID:      c.Session.Identity.UserID,
		DisplayName: name,
	})

	if err := c.SendMessage(&domain.HistoryOut{
		Type:     domain.MsgTypeHistory,
		Room:     room,
		Messages: history,
	}); err != nil {
		h.registry.Leave(c.ID)
		return domain.WrapError(domain.ErrCodeRoomJoinFailed, "could not deliver history", err)
	}

	// A disconnect may have run while the history was loading.
	if c.IsClosed() || c.Session.State() != domain.StateAnonymous {
		h.registry.Leave(c.ID)
		return domain.ErrInvalidState.Withf("connection closed while joining")
	}

	notice, err := h.appendWithRetry(ctx, domain.NewSystemNotice(room, name+" joined the chat"))
	if err != nil {
		h.registry.Leave(c.ID)
		l.Error().Err(err).Msg("failed to store join notice")
		return domain.WrapError(domain.ErrCodeRoomJoinFailed, "could not record join", err)
	}

	if err := c.Session.Join(room, name); err != nil {
		h.registry.Leave(c.ID)
		// The stored join notice still needs its matching leave.
		if _, leaveErr := h.appendWithRetry(ctx, domain.NewSystemNotice(room, name+" left the chat")); leaveErr != nil {
			l.Error().Err(leaveErr).Msg("failed to store leave notice for abandoned join")
		}
		return err
	}
	h.broadcastLocked(room, domain.NewNoticeOut(notice), "")

	l.Info().Str(log.FieldUserID, c.Session.Identity.UserID).Int64(log.FieldSeq, notice.Seq).Msg("client joined room")
	return nil
}

// SendMessage stores body and fans it out to every member, sender included. If it
// cannot be stored the sender alone is told and nothing is fanned out.
func (h *Hub) SendMessage(ctx context.Context, c *Client, body string) (*domain.ChatMessage, error) {
	room, ok := c.Session.CurrentRoom()
	if !ok {
		return nil, domain.ErrInvalidState.Withf("join a room before sending messages")
	}
	body, err := domain.NormalizeBody(body)
	if err != nil {
		return nil, err
	}

	unlock := h.lockRoom(room)
	defer unlock()

	msg := domain.NewUserMessage(room, c.Session.Identity.UserID, c.Session.Name(), body)
	stored, err := h.appendWithRetry(ctx, msg)
	if err != nil {
		c.SendMessage(&domain.DeliveryFailedOut{
			Type:   domain.MsgTypeDeliveryFailed,
			Code:   string(domain.ErrCodePersistenceFailed),
			Reason: "message could not be stored, please retry",
		})
		return nil, err
	}

	h.broadcastLocked(room, &domain.MessageOut{Type: domain.MsgTypeMessage, Message: *stored}, "")
	return stored, nil
}

// Typing tells the other members that c started or stopped typing. Nothing is stored.
func (h *Hub) Typing(ctx context.Context, c *Client, isTyping bool) error {
	room, ok := c.Session.CurrentRoom()
	if !ok {
		return domain.ErrInvalidState.Withf("join a room first")
	}

	unlock := h.lockRoom(room)
	defer unlock()

	h.broadcastLocked(room, &domain.TypingOut{
		Type:     domain.MsgTypeTyping,
		Room:     room,
		UserID:   c.Session.Identity.UserID,
		Username: c.Session.Name(),
		IsTyping: isTyping,
	}, c.ID)
	return nil
}

// Leave exits the joined room. The connection stays open but may not rejoin.
func (h *Hub) Leave(ctx context.Context, c *Client) error {
	room, ok := c.Session.Leave()
	if !ok {
		return domain.ErrInvalidState.Withf("not in a room")
	}
	h.leaveRoom(ctx, c, room)
	return nil
}

// Disconnect is called once a connection is gone. A joined connection leaves its
// room; one that never joined leaves no trace in the log.
func (h *Hub) Disconnect(ctx context.Context, c *Client) {
	if room, ok := c.Session.Leave(); ok {
		h.leaveRoom(ctx, c, room)
	} else {
		c.Session.Close()
	}

	h.mu.Lock()
	delete(h.clients, c.ID)
	h.mu.Unlock()
	c.Close()

	l := log.L()
	l.Debug().Str(log.FieldConnID, c.ID).Msg("client unregistered")
}

func (h *Hub) leaveRoom(ctx context.Context, c *Client, room string) {
	l := log.Ctx(ctx).With().Str(log.FieldConnID, c.ID).Str(log.FieldRoom, room).Logger()

	unlock := h.lockRoom(room)
	defer unlock()

	h.registry.Leave(c.ID)
	text := c.Session.Name() + " left the chat"

	notice, err := h.appendWithRetry(ctx, domain.NewSystemNotice(room, text))
	if err != nil {
		l.Error().Err(err).Msg("failed to store leave notice, sending it unsequenced")
		h.broadcastLocked(room, &domain.SystemNoticeOut{
			Type:      domain.MsgTypeSystemNotice,
			Room:      room,
			Text:      text,
			Timestamp: time.Now().UnixMilli(),
		}, "")
		return
	}
	h.broadcastLocked(room, domain.NewNoticeOut(notice), "")
	l.Info().Int64(log.FieldSeq, notice.Seq).Msg("client left room")
}

// broadcastLocked sends a frame to the room's members. The room lock must be held.
// A member that cannot keep up is closed so it never sees a gap in room order.
func (h *Hub) broadcastLocked(room string, message interface{}, exclude string) {
	data, err := json.Marshal(message)
	if err != nil {
		l := log.L()
		l.Error().Err(err).Str(log.FieldRoom, room).Msg("failed to encode frame")
		return
	}

	for _, m := range h.registry.Members(room) {
		if m.ConnID == exclude {
			continue
		}
		c, ok := h.client(m.ConnID)
		if !ok {
			continue
		}
		if err := c.Enqueue(data); err != nil {
			if errors.Is(err, errSendBuffer) {
				l := log.L()
				l.Warn().Str(log.FieldConnID, c.ID).Str(log.FieldRoom, room).Msg("slow consumer disconnected")
			}
			c.Close()
			go h.Disconnect(context.Background(), c)
		}
	}
}

// appendWithRetry stores msg with bounded retries. Errors that are not retryable
// stop early.
func (h *Hub) appendWithRetry(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error) {
	var lastErr error
	for attempt := 1; attempt <= h.config.AppendAttempts; attempt++ {
		stored, err := h.log.Append(ctx, msg)
		if err == nil {
			return stored, nil
		}
		lastErr = err

		l := log.Ctx(ctx)
		l.Warn().Err(err).Int(log.FieldAttempt, attempt).Str(log.FieldRoom, msg.Room).Msg("append failed")

		var dErr *domain.Error
		if errors.As(err, &dErr) && !dErr.Retryable {
			break
		}
		if attempt == h.config.AppendAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, domain.WrapError(domain.ErrCodePersistenceFailed, "message could not be stored", ctx.Err())
		case <-time.After(time.Duration(attempt) * h.config.RetryBackoff):
		}
	}
	return nil, &domain.Error{
		Code:      domain.ErrCodePersistenceFailed,
		Message:   "message could not be stored",
		Retryable: true,
		Err:       lastErr,
	}
}

// Shutdown stops accepting joins and disconnects every client.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.shuttingDown.Store(true)

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := ctx.Err(); err != nil {
			return err
		}
		h.Disconnect(ctx, c)
	}
	l := log.L()
	l.Info().Int("clients", len(clients)).Msg("chat hub shut down")
	return nil
}
