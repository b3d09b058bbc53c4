package quiz

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

// RandomTopic is the wildcard voting option: if it wins, a concrete topic is
// re-rolled uniformly from the full pool rather than the displayed sample.
const RandomTopic = "Random"

const defaultRefresh = 500 * time.Millisecond

type VotingConfig struct {
	Topics   []string // displayed topic options, including RandomTopic
	Counts   []int    // question count options
	Pool     []string // full topic pool for the wildcard re-roll
	Duration time.Duration
	Surface  Surface
	Rand     *rand.Rand
	Refresh  time.Duration // countdown re-render cadence; defaults to 500ms
	Limiter  *rate.Limiter // caps message edits; nil means unlimited
}

type VotingResult struct {
	Cancelled bool
	Topic     string
	Count     int
}

type voteKind int

const (
	voteTopic voteKind = iota
	voteCount
	voteCancel
)

type voteEvent struct {
	kind  voteKind
	user  string
	topic string
	count int
}

// userVote is one user's current selections. Zero values mean no selection.
type userVote struct {
	topic  string
	count  int
	cancel bool
}

// Voting collects topic, count and cancel votes until its duration elapses,
// then resolves winners by max tally with a uniform random tie-break. All
// state is owned by the Run goroutine; the Cast methods only send events.
type Voting struct {
	cfg    VotingConfig
	events chan voteEvent
	done   chan struct{}

	votes      map[string]*userVote
	topicTally map[string]int
	countTally map[int]int
}

func NewVoting(cfg VotingConfig) *Voting {
	if cfg.Refresh <= 0 {
		cfg.Refresh = defaultRefresh
	}
	return &Voting{
		cfg:        cfg,
		events:     make(chan voteEvent, 64),
		done:       make(chan struct{}),
		votes:      map[string]*userVote{},
		topicTally: map[string]int{},
		countTally: map[int]int{},
	}
}

// CastTopic records a user's topic vote, replacing any earlier topic vote by
// the same user. Safe to call from any goroutine; dropped once voting ended.
func (v *Voting) CastTopic(user, topic string) {
	select {
	case v.events <- voteEvent{kind: voteTopic, user: user, topic: topic}:
	case <-v.done:
	}
}

// CastCount records a user's question-count vote, replacing any earlier one.
func (v *Voting) CastCount(user string, count int) {
	select {
	case v.events <- voteEvent{kind: voteCount, user: user, count: count}:
	case <-v.done:
	}
}

// ToggleCancel flips a user's cancel vote.
func (v *Voting) ToggleCancel(user string) {
	select {
	case v.events <- voteEvent{kind: voteCancel, user: user}:
	case <-v.done:
	}
}

// Run drives the voting phase until the duration elapses or ctx is
// cancelled. It is the only goroutine touching tally state.
func (v *Voting) Run(ctx context.Context) (VotingResult, error) {
	deadline := time.Now().Add(v.cfg.Duration)
	timer := time.NewTimer(v.cfg.Duration)
	defer timer.Stop()
	ticker := time.NewTicker(v.cfg.Refresh)
	defer ticker.Stop()

	v.render(deadline)

	for {
		select {
		case evt := <-v.events:
			v.apply(evt)
			v.render(deadline)
		case <-ticker.C:
			// Cosmetic countdown refresh; reads tallies, never mutates.
			v.render(deadline)
		case <-timer.C:
			close(v.done)
			return v.finalize(), nil
		case <-ctx.Done():
			close(v.done)
			return VotingResult{}, ctx.Err()
		}
	}
}

// apply performs the retract-then-apply step for one event so a user's
// replaced vote and new vote change tallies as a single unit.
func (v *Voting) apply(evt voteEvent) {
	uv := v.votes[evt.user]
	if uv == nil {
		uv = &userVote{}
		v.votes[evt.user] = uv
	}

	switch evt.kind {
	case voteTopic:
		if uv.topic == evt.topic {
			return
		}
		if uv.topic != "" {
			v.topicTally[uv.topic]--
		}
		uv.topic = evt.topic
		v.topicTally[evt.topic]++
	case voteCount:
		if uv.count == evt.count {
			return
		}
		if uv.count != 0 {
			v.countTally[uv.count]--
		}
		uv.count = evt.count
		v.countTally[evt.count]++
	case voteCancel:
		uv.cancel = !uv.cancel
	}
}

// voters counts users with at least one active selection.
func (v *Voting) voters() int {
	n := 0
	for _, uv := range v.votes {
		if uv.topic != "" || uv.count != 0 || uv.cancel {
			n++
		}
	}
	return n
}

func (v *Voting) cancelVotes() int {
	n := 0
	for _, uv := range v.votes {
		if uv.cancel {
			n++
		}
	}
	return n
}

// cancelDecided reports whether cancel votes hold a strict majority of all
// users who cast any vote.
func (v *Voting) cancelDecided() bool {
	return v.cancelVotes()*2 > v.voters()
}

func (v *Voting) finalize() VotingResult {
	if v.cancelDecided() {
		if err := v.cfg.Surface.Update("Quiz is cancelled.", v.rows(true, "", 0)); err != nil {
			log.Printf("[WARN] Failed to render cancelled voting view: %v", err)
		}
		return VotingResult{Cancelled: true}
	}

	topic := maxTallyWinner(v.cfg.Topics, v.topicTally, v.cfg.Rand)
	count := maxTallyWinner(v.cfg.Counts, v.countTally, v.cfg.Rand)

	if topic == RandomTopic {
		topic = v.cfg.Pool[v.cfg.Rand.Intn(len(v.cfg.Pool))]
	}

	content := fmt.Sprintf("Started **%d questions** on the topic: **%s**", count, topic)
	if err := v.cfg.Surface.Update(content, v.rows(true, topic, count)); err != nil {
		log.Printf("[WARN] Failed to render final voting view: %v", err)
	}

	return VotingResult{Topic: topic, Count: count}
}

// maxTallyWinner collects every option tied at the maximum tally and picks
// one uniformly at random. With no votes at all every option is tied at
// zero, so the pick degrades to a uniform draw over all options.
func maxTallyWinner[T comparable](options []T, tally map[T]int, rng *rand.Rand) T {
	max := 0
	for _, opt := range options {
		if tally[opt] > max {
			max = tally[opt]
		}
	}
	var winners []T
	for _, opt := range options {
		if tally[opt] == max {
			winners = append(winners, opt)
		}
	}
	return winners[rng.Intn(len(winners))]
}

func (v *Voting) render(deadline time.Time) {
	if v.cfg.Limiter != nil && !v.cfg.Limiter.Allow() {
		return
	}
	remaining := int(time.Until(deadline).Round(time.Second).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	content := fmt.Sprintf("Choose your topic! Time remaining: **%d seconds**", remaining)
	if err := v.cfg.Surface.Update(content, v.rows(false, "", 0)); err != nil {
		log.Printf("[WARN] Failed to render voting view: %v", err)
	}
}

// rows builds the control layout: topic buttons, then count buttons plus the
// cancel control. When locked, every control is disabled and the winning
// selections are highlighted.
func (v *Voting) rows(locked bool, wonTopic string, wonCount int) [][]Control {
	topicRow := make([]Control, 0, len(v.cfg.Topics))
	for _, topic := range v.cfg.Topics {
		style := StylePrimary
		if locked && topic == wonTopic {
			style = StyleSuccess
		}
		topicRow = append(topicRow, Control{
			ID:       "vote:topic:" + topic,
			Label:    fmt.Sprintf("%s (%d)", topic, v.topicTally[topic]),
			Style:    style,
			Disabled: locked,
		})
	}

	countRow := make([]Control, 0, len(v.cfg.Counts)+1)
	for _, count := range v.cfg.Counts {
		style := StyleSecondary
		if locked && count == wonCount {
			style = StyleSuccess
		}
		countRow = append(countRow, Control{
			ID:       fmt.Sprintf("vote:count:%d", count),
			Label:    fmt.Sprintf("%d Questions (%d)", count, v.countTally[count]),
			Style:    style,
			Disabled: locked,
		})
	}
	countRow = append(countRow, Control{
		ID:       "vote:cancel",
		Label:    fmt.Sprintf("Cancel (%d)", v.cancelVotes()),
		Style:    StyleDanger,
		Disabled: locked,
	})

	return [][]Control{topicRow, countRow}
}
