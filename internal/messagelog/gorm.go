package messagelog

import (
	"context"

	"gorm.io/gorm"

	"github.com/Mariodrm17/Practica1/internal/domain"
)

// GormLog stores history in the chat_messages table. The (room, seq) unique index
// rejects a duplicate position even if two processes share the database.
type GormLog struct {
	db    *gorm.DB
	locks roomLocks
}

func NewGormLog(db *gorm.DB) *GormLog {
	return &GormLog{db: db}
}

func (l *GormLog) Append(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error) {
	unlock := l.locks.lock(msg.Room)
	defer unlock()

	var stored *domain.ChatMessage
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last int64
		if err := tx.Model(&domain.ChatMessageModel{}).
			Where("room = ?", msg.Room).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&last).Error; err != nil {
			return err
		}
		stored = stamp(msg, last+1)
		return tx.Create(domain.ChatMessageToModel(stored)).Error
	})
	if err != nil {
		return nil, domain.Unavailable("append message", err)
	}
	return stored, nil
}

func (l *GormLog) Tail(ctx context.Context, room string, limit int, kinds ...domain.MessageKind) ([]domain.ChatMessage, error) {
	query := l.db.WithContext(ctx).Where("room = ?", room)
	if len(kinds) > 0 {
		names := make([]string, len(kinds))
		for i, k := range kinds {
			names[i] = string(k)
		}
		query = query.Where("kind IN ?", names)
	}

	var models []domain.ChatMessageModel
	if err := query.Order("seq DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, domain.Unavailable("read history", err)
	}

	out := make([]domain.ChatMessage, len(models))
	for i := range models {
		out[len(models)-1-i] = models[i].ToDomain()
	}
	return out, nil
}

// Close is a no-op; the *gorm.DB is owned by the caller.
func (l *GormLog) Close() error {
	return nil
}
