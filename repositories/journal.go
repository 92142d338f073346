//go:generate go run go.uber.org/mock/mockgen -source=journal.go -destination=../mocks/mock_journal_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const journalPrefix = "journal:"

type IJournalRepository interface {
	Append(entry JournalEntry) error
	Latest(limit int) ([]JournalEntry, error)
}

// JournalEntry is one message broadcast to the clients.
type JournalEntry struct {
	ID      uuid.UUID
	Name    string
	Payload json.RawMessage
	At      time.Time
}

// JournalRepository keeps a trace of every broadcast for inspection.
// It is write-only from the bridge's point of view: nothing is replayed on start.
// Entries expire after ttl; ttl <= 0 keeps them forever.
type JournalRepository struct {
	db  *badger.DB
	log *slog.Logger
	ttl time.Duration
}

func NewJournalRepository(db *badger.DB, log *slog.Logger, ttl time.Duration) JournalRepository {
	return JournalRepository{db: db, log: log, ttl: ttl}
}

// Append stores an entry under "journal:{timestamp_padded}:{uuid}" so a prefix
// scan returns entries in time order.
func (j JournalRepository) Append(entry JournalEntry) error {
	bytes, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	e := badger.NewEntry([]byte(JournalKey(entry)), bytes)
	if j.ttl > 0 {
		e = e.WithTTL(j.ttl)
	}
	return j.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(e)
	})
}

// Latest returns up to limit entries, newest first. limit <= 0 returns everything.
func (j JournalRepository) Latest(limit int) ([]JournalEntry, error) {
	var entries []JournalEntry
	err := j.db.View(func(txn *badger.Txn) error {
		prefix := []byte(journalPrefix)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(append(prefix, 0xFF)); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(entries) == limit {
				break
			}
			err := it.Item().Value(func(value []byte) error {
				entry, err := DecodeEntry(value)
				if err != nil {
					return err
				}
				entries = append(entries, entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return entries, err
}

func JournalKey(entry JournalEntry) string {
	return fmt.Sprintf("%s%019d:%s", journalPrefix, entry.At.UnixNano(), entry.ID)
}

func encodeEntry(entry JournalEntry) ([]byte, error) {
	payload := &structpb.Value{}
	if len(entry.Payload) > 0 {
		if err := protojson.Unmarshal(entry.Payload, payload); err != nil {
			return nil, fmt.Errorf("journal payload: %w", err)
		}
	} else {
		payload = structpb.NewNullValue()
	}
	record := &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":      structpb.NewStringValue(entry.ID.String()),
		"name":    structpb.NewStringValue(entry.Name),
		"at":      structpb.NewStringValue(strconv.FormatInt(entry.At.UnixNano(), 10)),
		"payload": payload,
	}}
	return proto.Marshal(record)
}

func DecodeEntry(value []byte) (JournalEntry, error) {
	var record structpb.Struct
	if err := proto.Unmarshal(value, &record); err != nil {
		return JournalEntry{}, err
	}
	fields := record.GetFields()

	id, err := uuid.Parse(fields["id"].GetStringValue())
	if err != nil {
		return JournalEntry{}, err
	}
	nanos, err := strconv.ParseInt(fields["at"].GetStringValue(), 10, 64)
	if err != nil {
		return JournalEntry{}, err
	}
	payload, err := protojson.Marshal(fields["payload"])
	if err != nil {
		return JournalEntry{}, err
	}
	return JournalEntry{
		ID:      id,
		Name:    fields["name"].GetStringValue(),
		Payload: payload,
		At:      time.Unix(0, nanos).UTC(),
	}, nil
}
