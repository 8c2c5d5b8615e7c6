//go:generate go run go.uber.org/mock/mockgen -source=message_repository.go -destination=../../mocks/mock_message_repository.go -package=mocks
package storage

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

const (
	messagePrefix = "msg:"
	sequenceKey   = "seq:messages"
	// Number of ids leased from Badger at once.
	sequenceBandwidth = 100
)

type IMessageRepository interface {
	Append(cmd domain.PostMessageCommand) (domain.Message, error)
	GetRecent(limit int) ([]domain.Message, error)
	GetByIDs(ids []domain.MessageID) ([]domain.Message, error)
}

// MessageRepository is the durable, append-only message log.
type MessageRepository struct {
	mu       sync.Mutex
	db       *badger.DB
	log      *slog.Logger
	sequence *badger.Sequence
	now      func() time.Time
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log, now: time.Now}
}

// MessageKey formats the Badger key of a message.
// The id is zero padded to 20 digits so lexicographical order equals id order.
func MessageKey(id domain.MessageID) []byte {
	return []byte(messagePrefix + id.String())
}

// Append assigns the next id and the creation time, then durably stores the message.
// The mutex covers id assignment and commit, so commit order always equals id order
// and a concurrent reader never observes a gap.
func (m *MessageRepository) Append(cmd domain.PostMessageCommand) (domain.Message, error) {
	cmd, err := cmd.Normalize()
	if err != nil {
		return domain.Message{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := m.nextID()
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}

	message := domain.Message{
		ID:        id,
		Author:    cmd.Author,
		Text:      cmd.Text,
		CreatedAt: m.now().UTC(),
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(MessageKey(id), marshalDiskMessage(fromMessage(message)))
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	m.log.Debug("Message stored", "id", uint64(id), "author", message.Author)
	return message, nil
}

// nextID returns ids starting at 1. Badger sequences start at 0.
// Must be called with the mutex held.
func (m *MessageRepository) nextID() (domain.MessageID, error) {
	if m.sequence == nil {
		seq, err := m.db.GetSequence([]byte(sequenceKey), sequenceBandwidth)
		if err != nil {
			return 0, err
		}
		m.sequence = seq
	}
	for {
		next, err := m.sequence.Next()
		if err != nil {
			return 0, err
		}
		if next > 0 {
			return domain.MessageID(next), nil
		}
	}
}

// GetRecent returns the last min(limit, total) messages, oldest-first.
// It reads from a single Badger snapshot and never waits for an in-flight append.
func (m *MessageRepository) GetRecent(limit int) ([]domain.Message, error) {
	if limit <= 0 {
		return []domain.Message{}, nil
	}

	var diskMessages []DiskMessage
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(messagePrefix)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		// Reverse iteration must start after the greatest possible key of the prefix
		seekKey := append([]byte(messagePrefix), 0xFF)
		for it.Seek(seekKey); it.ValidForPrefix(prefix) && len(diskMessages) < limit; it.Next() {
			err := it.Item().Value(func(value []byte) error {
				dm, err := unmarshalDiskMessage(value)
				if err != nil {
					return err
				}
				diskMessages = append(diskMessages, dm)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}

	messages := lo.Map(diskMessages, func(item DiskMessage, _ int) domain.Message {
		return toMessage(item)
	})
	slices.Reverse(messages)
	return messages, nil
}

// GetByIDs loads the given messages in id order. Unknown ids are skipped.
func (m *MessageRepository) GetByIDs(ids []domain.MessageID) ([]domain.Message, error) {
	messages := make([]domain.Message, 0, len(ids))
	err := m.db.View(func(txn *badger.Txn) error {
		for _, id := range lo.Uniq(ids) {
			item, err := txn.Get(MessageKey(id))
			if err == badger.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}
			err = item.Value(func(value []byte) error {
				dm, err := unmarshalDiskMessage(value)
				if err != nil {
					return err
				}
				messages = append(messages, toMessage(dm))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	sort.Slice(messages, func(i, j int) bool { return messages[i].ID < messages[j].ID })
	return messages, nil
}

// Close releases the leased id range so the next run continues right after the last used id.
func (m *MessageRepository) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sequence == nil {
		return nil
	}
	err := m.sequence.Release()
	m.sequence = nil
	return err
}
