package quiz

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"quizbot/internal/trivia"
)

// ErrSessionActive is returned when a session start is rejected because the
// channel's active flag is already set. Callers surface it as a normal
// user-visible notice, not a failure.
var ErrSessionActive = errors.New("a quiz is already running in this channel")

type SessionConfig struct {
	Command   string // active-flag name, e.g. "quiz"
	GuildID   string
	ChannelID string

	Catalog   *trivia.Catalog
	Source    QuestionSource
	Scores    ScoreStore
	Flags     FlagStore
	Messenger Messenger

	// ReferenceURL resolves a "learn more" link for a question prompt.
	// Optional; rounds simply omit the link when nil or erroring.
	ReferenceURL func(ctx context.Context, prompt string) (string, error)

	VotingDuration   time.Duration
	QuestionDuration time.Duration
	TopicSample      int   // displayed topic options; defaults to 3
	Counts           []int // question count options; defaults to 5/10/15
	Rand             *rand.Rand
	Limiter          *rate.Limiter
}

type ReportEntry struct {
	UserID string
	Score  int
}

type Report struct {
	Cancelled bool
	Entries   []ReportEntry // descending score, ties in encounter order
}

// Top returns the first n report entries.
func (r *Report) Top(n int) []ReportEntry {
	if n > len(r.Entries) {
		n = len(r.Entries)
	}
	return r.Entries[:n]
}

// Session drives one full quiz for a channel: Idle -> Voting ->
// Questioning(1..N) -> Reporting -> Idle. The channel's active flag guards
// session creation and is cleared on every exit path.
type Session struct {
	cfg SessionConfig

	mu     sync.Mutex
	voting *Voting
	round  *Round
}

func NewSession(cfg SessionConfig) *Session {
	if cfg.TopicSample <= 0 {
		cfg.TopicSample = 3
	}
	if len(cfg.Counts) == 0 {
		cfg.Counts = []int{5, 10, 15}
	}
	return &Session{cfg: cfg}
}

// CastTopic forwards a topic vote to the voting phase, if it is running.
func (s *Session) CastTopic(user, topic string) {
	s.mu.Lock()
	v := s.voting
	s.mu.Unlock()
	if v != nil {
		v.CastTopic(user, topic)
	}
}

// CastCount forwards a question-count vote to the voting phase.
func (s *Session) CastCount(user string, count int) {
	s.mu.Lock()
	v := s.voting
	s.mu.Unlock()
	if v != nil {
		v.CastCount(user, count)
	}
}

// ToggleCancel forwards a cancel toggle to the voting phase.
func (s *Session) ToggleCancel(user string) {
	s.mu.Lock()
	v := s.voting
	s.mu.Unlock()
	if v != nil {
		v.ToggleCancel(user)
	}
}

// SubmitAnswer forwards an answer to the current question round.
func (s *Session) SubmitAnswer(user string, option int) {
	s.mu.Lock()
	r := s.round
	s.mu.Unlock()
	if r != nil {
		r.SubmitAnswer(user, option)
	}
}

// Run executes the session. It returns ErrSessionActive if the channel
// already has a running session; any other error still leaves the active
// flag cleared.
func (s *Session) Run(ctx context.Context) (*Report, error) {
	active, err := s.cfg.Flags.IsCommandActive(s.cfg.Command, s.cfg.ChannelID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, ErrSessionActive
	}
	if err := s.cfg.Flags.SetCommandActive(s.cfg.Command, s.cfg.ChannelID, true); err != nil {
		return nil, err
	}
	defer func() {
		if err := s.cfg.Flags.SetCommandActive(s.cfg.Command, s.cfg.ChannelID, false); err != nil {
			log.Printf("[ERR] Failed to clear active flag for channel %s: %v", s.cfg.ChannelID, err)
		}
	}()

	result, err := s.runVoting(ctx)
	if err != nil {
		return nil, err
	}
	if result.Cancelled {
		return &Report{Cancelled: true}, nil
	}

	return s.runRounds(ctx, result.Topic, result.Count)
}

func (s *Session) runVoting(ctx context.Context) (VotingResult, error) {
	pool := s.cfg.Catalog.Topics()
	sample := s.sampleTopics(pool)

	surface, err := s.cfg.Messenger.CreateSurface(ctx)
	if err != nil {
		return VotingResult{}, fmt.Errorf("create voting message: %w", err)
	}

	voting := NewVoting(VotingConfig{
		Topics:   append(sample, RandomTopic),
		Counts:   s.cfg.Counts,
		Pool:     pool,
		Duration: s.cfg.VotingDuration,
		Surface:  surface,
		Rand:     s.cfg.Rand,
		Limiter:  s.cfg.Limiter,
	})

	s.mu.Lock()
	s.voting = voting
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.voting = nil
		s.mu.Unlock()
	}()

	return voting.Run(ctx)
}

func (s *Session) sampleTopics(pool []string) []string {
	n := s.cfg.TopicSample
	if n > len(pool) {
		n = len(pool)
	}
	sample := make([]string, 0, n)
	for _, i := range s.cfg.Rand.Perm(len(pool))[:n] {
		sample = append(sample, pool[i])
	}
	return sample
}

func (s *Session) runRounds(ctx context.Context, topic string, count int) (*Report, error) {
	hasSubs := s.cfg.Catalog.HasSubtopics(topic)
	subtopicCorrect := map[int]int{}

	tally := map[string]int{}
	var participants []string // first-correct-answer encounter order

	for i := 1; i <= count; i++ {
		categoryID, err := s.resolveCategory(topic, hasSubs, subtopicCorrect)
		if err != nil {
			return nil, err
		}

		questions, err := s.cfg.Source.FetchQuestions(ctx, s.cfg.GuildID, categoryID, 1)
		if err != nil {
			return nil, fmt.Errorf("fetch question for round %d: %w", i, err)
		}
		if len(questions) == 0 {
			return nil, fmt.Errorf("question source returned no questions for category %d", categoryID)
		}
		question := questions[0]

		var refURL string
		if s.cfg.ReferenceURL != nil {
			if refURL, err = s.cfg.ReferenceURL(ctx, question.Prompt); err != nil {
				log.Printf("[WARN] Failed to resolve reference link: %v", err)
				refURL = ""
			}
		}

		surface, err := s.cfg.Messenger.CreateSurface(ctx)
		if err != nil {
			return nil, fmt.Errorf("create round message: %w", err)
		}

		round := NewRound(RoundConfig{
			Prompt:       question.Prompt,
			Correct:      question.Correct,
			Incorrect:    question.Incorrect,
			Boolean:      question.Type == "boolean",
			ReferenceURL: refURL,
			Number:       i,
			Total:        count,
			Duration:     s.cfg.QuestionDuration,
			Surface:      surface,
			Rand:         s.cfg.Rand,
			Limiter:      s.cfg.Limiter,
		})

		s.mu.Lock()
		s.round = round
		s.mu.Unlock()
		correct, err := round.Run(ctx)
		s.mu.Lock()
		s.round = nil
		s.mu.Unlock()
		if err != nil {
			return nil, err
		}

		for _, user := range correct {
			if _, seen := tally[user]; !seen {
				participants = append(participants, user)
			}
			tally[user]++

			score, err := s.cfg.Scores.GetScore(s.cfg.GuildID, user)
			if err != nil {
				return nil, fmt.Errorf("read score for %s: %w", user, err)
			}
			if err := s.cfg.Scores.SetScore(s.cfg.GuildID, user, score+1); err != nil {
				return nil, fmt.Errorf("write score for %s: %w", user, err)
			}

			if hasSubs {
				subtopicCorrect[categoryID]++
			}
		}
	}

	return buildReport(participants, tally), nil
}

func (s *Session) resolveCategory(topic string, hasSubs bool, subtopicCorrect map[int]int) (int, error) {
	if hasSubs {
		ids := s.cfg.Catalog.SubtopicIDs(topic)
		return trivia.SelectSubtopic(ids, subtopicCorrect, s.cfg.Rand), nil
	}
	id, ok := s.cfg.Catalog.TopicID(topic)
	if !ok {
		return 0, fmt.Errorf("topic %q does not resolve to a category", topic)
	}
	return id, nil
}

// buildReport ranks participants by session score descending; the stable
// sort keeps encounter order for ties.
func buildReport(participants []string, tally map[string]int) *Report {
	entries := make([]ReportEntry, 0, len(participants))
	for _, user := range participants {
		entries = append(entries, ReportEntry{UserID: user, Score: tally[user]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return &Report{Entries: entries}
}
