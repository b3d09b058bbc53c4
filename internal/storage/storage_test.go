package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(context.Background(), filepath.Join(t.TempDir(), "datastore.json"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestScoresSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datastore.json")

	s, err := New(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, s.SetScore("guild1", "alice", 5))
	require.NoError(t, s.SetTriviaToken("guild1", "abc123"))
	require.NoError(t, s.Close())

	s, err = New(context.Background(), path)
	require.NoError(t, err)
	defer s.Close()

	score, err := s.GetScore("guild1", "alice")
	require.NoError(t, err)
	require.Equal(t, 5, score)

	token, err := s.GetTriviaToken("guild1")
	require.NoError(t, err)
	require.Equal(t, "abc123", token)
}

func TestScoresRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	score, err := s.GetScore("guild1", "alice")
	require.NoError(t, err)
	require.Zero(t, score)

	require.NoError(t, s.SetScore("guild1", "alice", 3))
	require.NoError(t, s.SetScore("guild1", "bob", 1))
	require.NoError(t, s.SetScore("guild2", "alice", 7))

	score, err = s.GetScore("guild1", "alice")
	require.NoError(t, err)
	require.Equal(t, 3, score)

	// Scores are per guild.
	score, err = s.GetScore("guild2", "alice")
	require.NoError(t, err)
	require.Equal(t, 7, score)

	// Upsert overwrites.
	require.NoError(t, s.SetScore("guild1", "alice", 4))
	score, err = s.GetScore("guild1", "alice")
	require.NoError(t, err)
	require.Equal(t, 4, score)
}

func TestCommandFlags(t *testing.T) {
	s := newTestStorage(t)

	active, err := s.IsCommandActive("quiz", "chan1")
	require.NoError(t, err)
	require.False(t, active)

	require.NoError(t, s.SetCommandActive("quiz", "chan1", true))

	active, err = s.IsCommandActive("quiz", "chan1")
	require.NoError(t, err)
	require.True(t, active)

	// Other channels and commands stay unaffected.
	active, err = s.IsCommandActive("quiz", "chan2")
	require.NoError(t, err)
	require.False(t, active)
	active, err = s.IsCommandActive("discuss", "chan1")
	require.NoError(t, err)
	require.False(t, active)

	require.NoError(t, s.SetCommandActive("quiz", "chan1", false))
	active, err = s.IsCommandActive("quiz", "chan1")
	require.NoError(t, err)
	require.False(t, active)
}

func TestClearCommandFlags(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.SetCommandActive("quiz", "chan1", true))
	require.NoError(t, s.SetCommandActive("quiz", "chan2", true))

	require.NoError(t, s.ClearCommandFlags())

	for _, ch := range []string{"chan1", "chan2"} {
		active, err := s.IsCommandActive("quiz", ch)
		require.NoError(t, err)
		require.False(t, active)
	}
}

func TestTriviaTokenRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	token, err := s.GetTriviaToken("guild1")
	require.NoError(t, err)
	require.Empty(t, token)

	require.NoError(t, s.SetTriviaToken("guild1", "abc123"))

	token, err = s.GetTriviaToken("guild1")
	require.NoError(t, err)
	require.Equal(t, "abc123", token)

	// Token lives alongside scores in the same guild record.
	require.NoError(t, s.SetScore("guild1", "alice", 2))
	token, err = s.GetTriviaToken("guild1")
	require.NoError(t, err)
	require.Equal(t, "abc123", token)
}

func TestCommandHistoryTrimsAtLimit(t *testing.T) {
	s := newTestStorage(t)

	for i := 0; i < commandHistoryLimit+5; i++ {
		require.NoError(t, s.AppendCommandToHistory("guild1", CommandHistoryRecord{
			ChannelID: "chan1",
			UserID:    "alice",
			Command:   "quiz",
		}))
	}

	history, err := s.FetchCommandHistory("guild1")
	require.NoError(t, err)
	require.LessOrEqual(t, len(history), commandHistoryLimit)
}
