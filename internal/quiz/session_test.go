package quiz

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"quizbot/internal/trivia"

	"github.com/stretchr/testify/require"
)

type fakeMessenger struct {
	mu       sync.Mutex
	surfaces []*fakeSurface
}

func (m *fakeMessenger) CreateSurface(ctx context.Context) (Surface, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &fakeSurface{}
	m.surfaces = append(m.surfaces, s)
	return s, nil
}

func (m *fakeMessenger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.surfaces)
}

type fakeScores struct {
	mu     sync.Mutex
	scores map[string]int
}

func newFakeScores() *fakeScores {
	return &fakeScores{scores: map[string]int{}}
}

func (f *fakeScores) GetScore(guildID, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scores[guildID+"/"+userID], nil
}

func (f *fakeScores) SetScore(guildID, userID string, score int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scores[guildID+"/"+userID] = score
	return nil
}

type fakeFlags struct {
	mu    sync.Mutex
	flags map[string]bool
	sets  []bool
}

func newFakeFlags() *fakeFlags {
	return &fakeFlags{flags: map[string]bool{}}
}

func (f *fakeFlags) IsCommandActive(command, channelID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flags[command+"/"+channelID], nil
}

func (f *fakeFlags) SetCommandActive(command, channelID string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flags[command+"/"+channelID] = active
	f.sets = append(f.sets, active)
	return nil
}

type fakeSource struct {
	mu         sync.Mutex
	categories []int
	questions  []trivia.Question
	next       int
	err        error
}

func (f *fakeSource) FetchQuestions(ctx context.Context, guildID string, categoryID, count int) ([]trivia.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.categories = append(f.categories, categoryID)
	q := f.questions[f.next%len(f.questions)]
	f.next++
	return []trivia.Question{q}, nil
}

func scriptedQuestions(n int) []trivia.Question {
	qs := make([]trivia.Question, n)
	for i := range qs {
		qs[i] = trivia.Question{
			Prompt:    fmt.Sprintf("Question %d", i+1),
			Correct:   fmt.Sprintf("Right %d", i+1),
			Incorrect: []string{"Wrong A", "Wrong B", "Wrong C"},
			Type:      "multiple",
		}
	}
	return qs
}

func newTestSession(catalog *trivia.Catalog, source QuestionSource, scores ScoreStore, flags FlagStore, msgr Messenger, counts []int) *Session {
	return NewSession(SessionConfig{
		Command:          "quiz",
		GuildID:          "guild1",
		ChannelID:        "chan1",
		Catalog:          catalog,
		Source:           source,
		Scores:           scores,
		Flags:            flags,
		Messenger:        msgr,
		VotingDuration:   50 * time.Millisecond,
		QuestionDuration: 60 * time.Millisecond,
		TopicSample:      1,
		Counts:           counts,
		Rand:             rand.New(rand.NewSource(7)),
	})
}

// waitForRound blocks until the session enters a question round different
// from prev.
func waitForRound(t *testing.T, s *Session, prev *Round) *Round {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		r := s.round
		s.mu.Unlock()
		if r != nil && r != prev {
			return r
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("session never entered the expected round")
	return nil
}

func waitForVoting(t *testing.T, s *Session) *Voting {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		v := s.voting
		s.mu.Unlock()
		if v != nil {
			return v
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("session never entered voting")
	return nil
}

func TestSessionFullRun(t *testing.T) {
	catalog := trivia.BuildCatalog([]trivia.Category{{ID: 23, Name: "History"}})
	source := &fakeSource{questions: scriptedQuestions(2)}
	scores := newFakeScores()
	flags := newFakeFlags()
	msgr := &fakeMessenger{}

	s := newTestSession(catalog, source, scores, flags, msgr, []int{2})

	type result struct {
		report *Report
		err    error
	}
	resCh := make(chan result, 1)
	go func() {
		report, err := s.Run(context.Background())
		resCh <- result{report, err}
	}()

	var prev *Round
	for i := 0; i < 2; i++ {
		r := waitForRound(t, s, prev)
		prev = r
		wrong := (r.correct + 1) % len(r.options)

		s.SubmitAnswer("alice", r.correct)
		if i == 0 {
			s.SubmitAnswer("bob", r.correct)
		} else {
			s.SubmitAnswer("bob", wrong)
		}
		s.SubmitAnswer("carol", wrong)

		// Wait out the round so the next waitForRound sees a new one.
		select {
		case <-r.done:
		case <-time.After(2 * time.Second):
			t.Fatal("round never finished")
		}
	}

	res := <-resCh
	require.NoError(t, res.err)
	require.False(t, res.report.Cancelled)
	require.Equal(t, []ReportEntry{{UserID: "alice", Score: 2}, {UserID: "bob", Score: 1}}, res.report.Entries)
	require.Equal(t, []ReportEntry{{UserID: "alice", Score: 2}}, res.report.Top(1))

	alice, _ := scores.GetScore("guild1", "alice")
	bob, _ := scores.GetScore("guild1", "bob")
	carol, _ := scores.GetScore("guild1", "carol")
	require.Equal(t, 2, alice)
	require.Equal(t, 1, bob)
	require.Equal(t, 0, carol)

	// Flag was raised exactly once and then cleared.
	require.Equal(t, []bool{true, false}, flags.sets)
	active, _ := flags.IsCommandActive("quiz", "chan1")
	require.False(t, active)

	// One voting surface plus one per round, all against the direct topic id.
	require.Equal(t, 3, msgr.count())
	require.Equal(t, []int{23, 23}, source.categories)
}

func TestSessionRejectsBusyChannel(t *testing.T) {
	catalog := trivia.BuildCatalog([]trivia.Category{{ID: 23, Name: "History"}})
	flags := newFakeFlags()
	flags.flags["quiz/chan1"] = true
	msgr := &fakeMessenger{}
	scores := newFakeScores()

	s := newTestSession(catalog, &fakeSource{questions: scriptedQuestions(1)}, scores, flags, msgr, []int{2})

	report, err := s.Run(context.Background())
	require.ErrorIs(t, err, ErrSessionActive)
	require.Nil(t, report)

	// Nothing rendered, nothing written, flag untouched.
	require.Zero(t, msgr.count())
	require.Empty(t, flags.sets)
	active, _ := flags.IsCommandActive("quiz", "chan1")
	require.True(t, active)
}

func TestSessionCancelledByVote(t *testing.T) {
	catalog := trivia.BuildCatalog([]trivia.Category{{ID: 23, Name: "History"}})
	source := &fakeSource{questions: scriptedQuestions(1)}
	flags := newFakeFlags()
	msgr := &fakeMessenger{}

	s := newTestSession(catalog, source, newFakeScores(), flags, msgr, []int{2})

	resCh := make(chan *Report, 1)
	go func() {
		report, err := s.Run(context.Background())
		require.NoError(t, err)
		resCh <- report
	}()

	waitForVoting(t, s)
	s.ToggleCancel("u1")

	report := <-resCh
	require.True(t, report.Cancelled)
	require.Empty(t, report.Entries)

	// No rounds ran.
	require.Equal(t, 1, msgr.count())
	require.Empty(t, source.categories)

	active, _ := flags.IsCommandActive("quiz", "chan1")
	require.False(t, active)
}

func TestSessionFetchErrorClearsFlag(t *testing.T) {
	catalog := trivia.BuildCatalog([]trivia.Category{{ID: 23, Name: "History"}})
	source := &fakeSource{err: errors.New("source down")}
	flags := newFakeFlags()

	s := newTestSession(catalog, source, newFakeScores(), flags, &fakeMessenger{}, []int{2})

	_, err := s.Run(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrSessionActive)

	active, _ := flags.IsCommandActive("quiz", "chan1")
	require.False(t, active)
	require.Equal(t, []bool{true, false}, flags.sets)
}

func TestSessionDrawsSubtopicsForGroupedTopic(t *testing.T) {
	catalog := trivia.BuildCatalog([]trivia.Category{
		{ID: 11, Name: "Entertainment: Film"},
		{ID: 12, Name: "Entertainment: Music"},
	})
	source := &fakeSource{questions: scriptedQuestions(3)}
	flags := newFakeFlags()

	s := newTestSession(catalog, source, newFakeScores(), flags, &fakeMessenger{}, []int{3})

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	require.False(t, report.Cancelled)

	require.Len(t, source.categories, 3)
	for _, id := range source.categories {
		require.Contains(t, []int{11, 12}, id)
	}
}

func TestSessionReferenceURLFailureIsNonFatal(t *testing.T) {
	catalog := trivia.BuildCatalog([]trivia.Category{{ID: 23, Name: "History"}})
	source := &fakeSource{questions: scriptedQuestions(1)}
	flags := newFakeFlags()

	s := newTestSession(catalog, source, newFakeScores(), flags, &fakeMessenger{}, []int{1})
	s.cfg.ReferenceURL = func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("lookup down")
	}

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	require.False(t, report.Cancelled)
}
