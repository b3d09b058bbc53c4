package quiz

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

type RoundConfig struct {
	Prompt       string
	Correct      string
	Incorrect    []string
	Boolean      bool   // true/false question: fixed option pair
	ReferenceURL string // "learn more" link revealed with the answer
	Number       int    // 1-based round number
	Total        int    // number of rounds in the session
	Duration     time.Duration
	Surface      Surface
	Rand         *rand.Rand
	Refresh      time.Duration
	Limiter      *rate.Limiter
}

type answerEvent struct {
	user   string
	option int
}

// Round runs one timed question: it renders the answer options, collects at
// most one standing answer per user (the latest submission wins), and on
// timeout reveals the correct option and reports who had it right.
type Round struct {
	cfg     RoundConfig
	options []string
	correct int // index into options

	events chan answerEvent
	done   chan struct{}

	answers map[string]int
	order   []string // users in first-submission order
}

func NewRound(cfg RoundConfig) *Round {
	if cfg.Refresh <= 0 {
		cfg.Refresh = defaultRefresh
	}

	r := &Round{
		cfg:     cfg,
		events:  make(chan answerEvent, 64),
		done:    make(chan struct{}),
		answers: map[string]int{},
	}

	if cfg.Boolean {
		r.options = []string{"True", "False"}
	} else {
		r.options = append([]string{cfg.Correct}, cfg.Incorrect...)
		cfg.Rand.Shuffle(len(r.options), func(i, j int) {
			r.options[i], r.options[j] = r.options[j], r.options[i]
		})
	}
	for i, opt := range r.options {
		if opt == cfg.Correct {
			r.correct = i
			break
		}
	}
	return r
}

// SubmitAnswer records a user's answer by option index; a later submission
// by the same user replaces the earlier one. Dropped once the round ended.
func (r *Round) SubmitAnswer(user string, option int) {
	select {
	case r.events <- answerEvent{user: user, option: option}:
	case <-r.done:
	}
}

// Run drives the round until timeout or ctx cancellation and returns the
// users whose final answer was correct, in first-submission order.
func (r *Round) Run(ctx context.Context) ([]string, error) {
	deadline := time.Now().Add(r.cfg.Duration)
	timer := time.NewTimer(r.cfg.Duration)
	defer timer.Stop()
	ticker := time.NewTicker(r.cfg.Refresh)
	defer ticker.Stop()

	r.render(deadline)

	for {
		select {
		case evt := <-r.events:
			if evt.option < 0 || evt.option >= len(r.options) {
				continue
			}
			if _, seen := r.answers[evt.user]; !seen {
				r.order = append(r.order, evt.user)
			}
			r.answers[evt.user] = evt.option
		case <-ticker.C:
			r.render(deadline)
		case <-timer.C:
			close(r.done)
			return r.finalize(), nil
		case <-ctx.Done():
			close(r.done)
			return nil, ctx.Err()
		}
	}
}

// finalize reveals the correct answer and collects the correct respondents.
// A failed reveal render is logged only; score attribution must not depend
// on the message edit landing.
func (r *Round) finalize() []string {
	if err := r.cfg.Surface.Update(r.content(0), r.rows(true)); err != nil {
		log.Printf("[WARN] Failed to render round reveal: %v", err)
	}

	var correct []string
	for _, user := range r.order {
		if r.answers[user] == r.correct {
			correct = append(correct, user)
		}
	}
	return correct
}

func (r *Round) render(deadline time.Time) {
	if r.cfg.Limiter != nil && !r.cfg.Limiter.Allow() {
		return
	}
	remaining := int(time.Until(deadline).Round(time.Second).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	if err := r.cfg.Surface.Update(r.content(remaining), r.rows(false)); err != nil {
		log.Printf("[WARN] Failed to render round view: %v", err)
	}
}

func (r *Round) content(remaining int) string {
	if remaining > 0 {
		next := "Next question"
		if r.cfg.Number == r.cfg.Total {
			next = "Quiz ends"
		}
		return fmt.Sprintf("### %d) %s\n%s in **%d seconds**", r.cfg.Number, r.cfg.Prompt, next, remaining)
	}
	return fmt.Sprintf("### %d) %s\nThe answer was **%s**", r.cfg.Number, r.cfg.Prompt, r.cfg.Correct)
}

func (r *Round) rows(revealed bool) [][]Control {
	row := make([]Control, 0, len(r.options))
	for i, opt := range r.options {
		style := StyleSecondary
		if revealed && i == r.correct {
			style = StyleSuccess
		}
		row = append(row, Control{
			ID:       fmt.Sprintf("answer:%d", i),
			Label:    opt,
			Style:    style,
			Disabled: revealed,
		})
	}
	rows := [][]Control{row}

	if revealed && r.cfg.ReferenceURL != "" {
		rows = append(rows, []Control{{
			Label: "Learn more",
			Style: StyleLink,
			URL:   r.cfg.ReferenceURL,
		}})
	}
	return rows
}
