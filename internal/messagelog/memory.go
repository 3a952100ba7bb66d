package messagelog

import (
	"context"
	"sync"

	"github.com/Mariodrm17/Practica1/internal/domain"
)

// MemoryLog keeps history in process memory. History is lost on restart.
type MemoryLog struct {
	mu    sync.RWMutex
	rooms map[string][]domain.ChatMessage
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{rooms: make(map[string][]domain.ChatMessage)}
}

func (l *MemoryLog) Append(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	stored := stamp(msg, int64(len(l.rooms[msg.Room])+1))
	l.rooms[msg.Room] = append(l.rooms[msg.Room], *stored)
	return stored, nil
}

func (l *MemoryLog) Tail(_ context.Context, room string, limit int, kinds ...domain.MessageKind) ([]domain.ChatMessage, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	all := l.rooms[room]
	out := make([]domain.ChatMessage, 0, min(limit, len(all)))
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		if matchesKind(all[i].Kind, kinds) {
			out = append(out, all[i])
		}
	}
	reverse(out)
	return out, nil
}

func (l *MemoryLog) Close() error {
	return nil
}
