// Package quiz implements the quiz session state machine: a voting phase
// that picks topic and question count, N sequential timed question rounds,
// and a final report. The package is gateway-agnostic: user interactions
// arrive through coordinator methods, rendering goes through the Surface
// and Messenger interfaces, and persistence through small store interfaces,
// so the whole flow runs against fakes in tests.
package quiz

import (
	"context"

	"quizbot/internal/trivia"
)

type ControlStyle int

const (
	StylePrimary ControlStyle = iota
	StyleSecondary
	StyleSuccess
	StyleDanger
	StyleLink
)

// Control is one interactive element (a button) on a rendered message.
type Control struct {
	ID       string // logical id, e.g. "vote:topic:Science"; empty for link controls
	Label    string
	Style    ControlStyle
	Disabled bool
	URL      string // set only for link controls
}

// Surface is a single editable message owned by a coordinator. Update
// replaces the message content and controls wholesale.
type Surface interface {
	Update(content string, rows [][]Control) error
}

// Messenger creates new surfaces in the session's channel, one per phase
// message.
type Messenger interface {
	CreateSurface(ctx context.Context) (Surface, error)
}

// ScoreStore persists per-user per-guild scores with upsert semantics.
type ScoreStore interface {
	GetScore(guildID, userID string) (int, error)
	SetScore(guildID, userID string, score int) error
}

// FlagStore is the mutual-exclusion primitive: one active flag per
// (command, channel).
type FlagStore interface {
	IsCommandActive(command, channelID string) (bool, error)
	SetCommandActive(command, channelID string, active bool) error
}

// QuestionSource fetches normalized questions for a category.
type QuestionSource interface {
	FetchQuestions(ctx context.Context, guildID string, categoryID, count int) ([]trivia.Question, error)
}
