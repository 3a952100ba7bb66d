package messagelog

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/Mariodrm17/Practica1/internal/domain"
)

// BadgerLog stores history in an embedded badger database.
//
// Keys are "msg:{hex(room)}:{seq}" with seq zero-padded to 19 digits so lexicographic
// order is append order and a reverse prefix scan yields the tail. The room is hex
// encoded so no room's prefix is a prefix of another's.
type BadgerLog struct {
	db    *badger.DB
	locks roomLocks

	mu   sync.Mutex
	last map[string]int64 // room -> last seq, loaded lazily
}

// OpenBadgerLog opens (or creates) a badger database at path.
func OpenBadgerLog(path string) (*BadgerLog, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return NewBadgerLog(db), nil
}

func NewBadgerLog(db *badger.DB) *BadgerLog {
	return &BadgerLog{db: db, last: make(map[string]int64)}
}

func roomPrefix(room string) []byte {
	return []byte("msg:" + hex.EncodeToString([]byte(room)) + ":")
}

func messageKey(room string, seq int64) []byte {
	return append(roomPrefix(room), fmt.Sprintf("%019d", seq)...)
}

// tailKey sorts after every key of the room.
func tailKey(prefix []byte) []byte {
	return append(append([]byte{}, prefix...), "9999999999999999999"...)
}

func (l *BadgerLog) lastSeq(txn *badger.Txn, room string) (int64, error) {
	l.mu.Lock()
	seq, ok := l.last[room]
	l.mu.Unlock()
	if ok {
		return seq, nil
	}

	prefix := roomPrefix(room)
	opts := badger.DefaultIteratorOptions
	opts.Reverse = true
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	it.Seek(tailKey(prefix))
	if !it.ValidForPrefix(prefix) {
		return 0, nil
	}
	key := it.Item().Key()
	return strconv.ParseInt(string(key[len(prefix):]), 10, 64)
}

func (l *BadgerLog) Append(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	unlock := l.locks.lock(msg.Room)
	defer unlock()

	var stored *domain.ChatMessage
	err := l.db.Update(func(txn *badger.Txn) error {
		last, err := l.lastSeq(txn, msg.Room)
		if err != nil {
			return err
		}
		stored = stamp(msg, last+1)
		data, err := json.Marshal(stored)
		if err != nil {
			return err
		}
		return txn.Set(messageKey(msg.Room, stored.Seq), data)
	})
	if err != nil {
		return nil, domain.Unavailable("append message", err)
	}

	l.mu.Lock()
	l.last[msg.Room] = stored.Seq
	l.mu.Unlock()
	return stored, nil
}

func (l *BadgerLog) Tail(ctx context.Context, room string, limit int, kinds ...domain.MessageKind) ([]domain.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]domain.ChatMessage, 0, limit)
	err := l.db.View(func(txn *badger.Txn) error {
		prefix := roomPrefix(room)
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(tailKey(prefix)); it.ValidForPrefix(prefix) && len(out) < limit; it.Next() {
			var m domain.ChatMessage
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				return err
			}
			if matchesKind(m.Kind, kinds) {
				out = append(out, m)
			}
		}
		return nil
	})
	if err != nil {
		return nil, domain.Unavailable("read history", err)
	}
	reverse(out)
	return out, nil
}

func (l *BadgerLog) Close() error {
	return l.db.Close()
}
