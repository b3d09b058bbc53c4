package storage

import (
	"context"
	"sync"
	"time"

	"github.com/keshon/datastore"
)

const commandHistoryLimit int = 20

// flagsKey is the reserved datastore key for per-channel active-command
// flags. Guild records are keyed by snowflake IDs, so it cannot collide.
const flagsKey = "command_flags"

type Storage struct {
	ds     *datastore.DataStore
	cancel context.CancelFunc

	// Guild records are JSON blobs; concurrent sessions in different
	// channels of the same guild read-modify-write the same blob, so
	// updates are serialized here.
	mu sync.Mutex
}

type CommandHistoryRecord struct {
	ChannelID string    `json:"channel_id"`
	GuildName string    `json:"guild_name"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Command   string    `json:"command"`
	Datetime  time.Time `json:"datetime"`
}

type Record struct {
	CommandsHistoryList []CommandHistoryRecord `json:"cmd_history"`
	Scores              map[string]int         `json:"scores"`       // key = userID
	TriviaToken         string                 `json:"trivia_token"` // question source continuation token
}

// New opens the datastore at filePath. The store autosaves in the background
// until ctx is cancelled or Close is called; Close flushes the final state.
func New(ctx context.Context, filePath string) (*Storage, error) {
	ctx, cancel := context.WithCancel(ctx)
	ds, err := datastore.New(ctx, filePath)
	if err != nil {
		cancel()
		return nil, err
	}
	return &Storage{ds: ds, cancel: cancel}, nil
}

// Close stops the autosave loop and writes the final snapshot. The store's
// Close waits for that loop, so the context is cancelled first.
func (s *Storage) Close() error {
	s.cancel()
	return s.ds.Close()
}

// getOrCreateGuildRecord returns the guild record, creating an empty one if
// the guild has never been seen. Callers must hold s.mu when they intend to
// write the record back.
func (s *Storage) getOrCreateGuildRecord(guildID string) (*Record, error) {
	var record Record
	exists, err := s.ds.Get(guildID, &record)
	if err != nil {
		return nil, err
	}
	if !exists {
		newRecord := &Record{
			CommandsHistoryList: []CommandHistoryRecord{},
			Scores:              map[string]int{},
		}
		if err := s.ds.Set(guildID, newRecord); err != nil {
			return nil, err
		}
		return newRecord, nil
	}

	if record.Scores == nil {
		record.Scores = map[string]int{}
	}

	if len(record.CommandsHistoryList) > commandHistoryLimit {
		record.CommandsHistoryList = record.CommandsHistoryList[len(record.CommandsHistoryList)-commandHistoryLimit:]
	}

	return &record, nil
}
