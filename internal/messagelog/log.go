//go:generate go run go.uber.org/mock/mockgen -source=log.go -destination=../mocks/mock_message_log.go -package=mocks

// Package messagelog stores each room's chat history as an append-only sequence.
package messagelog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mariodrm17/Practica1/internal/domain"
)

// Log is an append-only, per-room ordered message store.
type Log interface {
	// Append assigns id, seq and timestamp and returns the stored message. Appends to
	// one room are serialized and seq grows by exactly one.
	Append(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error)
	// Tail returns up to limit of the room's most recent messages, oldest first. When
	// kinds is non-empty only those kinds are returned.
	Tail(ctx context.Context, room string, limit int, kinds ...domain.MessageKind) ([]domain.ChatMessage, error)
	Close() error
}

func stamp(msg *domain.ChatMessage, seq int64) *domain.ChatMessage {
	stored := *msg
	stored.ID = uuid.NewString()
	stored.Seq = seq
	stored.CreatedAt = time.Now().UTC()
	if stored.Kind == "" {
		stored.Kind = domain.KindMessage
	}
	return &stored
}

func matchesKind(kind domain.MessageKind, kinds []domain.MessageKind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// roomLocks serializes appends per room within the process.
type roomLocks struct {
	locks sync.Map // room -> *sync.Mutex
}

func (r *roomLocks) lock(room string) func() {
	v, _ := r.locks.LoadOrStore(room, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func reverse(msgs []domain.ChatMessage) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
