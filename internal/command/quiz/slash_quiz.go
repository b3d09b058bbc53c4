package quiz

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"quizbot/internal/config"
	"quizbot/internal/core"
	"quizbot/internal/quiz"
	"quizbot/internal/trivia"
	"quizbot/internal/wiki"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

var (
	sessionsMu sync.Mutex
	sessions   = map[string]*quiz.Session{} // channelID -> running session

	catalogOnce   sync.Once
	catalogSource *trivia.CatalogSource
	wikiClient    *wiki.Client
)

type QuizCommand struct{}

func (c *QuizCommand) Name() string        { return "quiz" }
func (c *QuizCommand) Description() string { return "Start a trivia quiz in this channel" }
func (c *QuizCommand) Aliases() []string   { return []string{} }
func (c *QuizCommand) Group() string       { return "quiz" }
func (c *QuizCommand) Category() string    { return "🎲 Trivia" }

func (c *QuizCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
	}
}

func (c *QuizCommand) Run(ctx interface{}) error {
	slash, ok := ctx.(*core.SlashInteractionContext)
	if !ok {
		return fmt.Errorf("wrong context type")
	}

	session := slash.Session
	event := slash.Event
	cfg := config.New()

	catalogOnce.Do(func() {
		catalogSource = trivia.NewCatalogSource(cfg.TriviaAPIURL)
		wikiClient = wiki.NewClient()
	})

	fetchCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	catalog, err := catalogSource.Catalog(fetchCtx)
	cancel()
	if err != nil {
		return core.RespondEmbedEphemeral(session, event, &discordgo.MessageEmbed{
			Description: "The trivia catalog is unavailable right now. Try again in a minute.",
			Color:       core.EmbedColor,
		})
	}

	msgr := &messenger{session: session, event: event}
	qs := quiz.NewSession(quiz.SessionConfig{
		Command:   c.Name(),
		GuildID:   event.GuildID,
		ChannelID: event.ChannelID,
		Catalog:   catalog,
		Source:    trivia.NewClient(cfg.TriviaAPIURL, slash.Storage),
		Scores:    slash.Storage,
		Flags:     slash.Storage,
		Messenger: msgr,
		ReferenceURL: func(ctx context.Context, prompt string) (string, error) {
			return wikiClient.ArticleURL(ctx, prompt)
		},
		VotingDuration:   time.Duration(cfg.VotingSeconds) * time.Second,
		QuestionDuration: time.Duration(cfg.QuestionSeconds) * time.Second,
		Rand:             rand.New(rand.NewSource(time.Now().UnixNano())),
		Limiter:          rate.NewLimiter(rate.Every(time.Second), 1),
	})

	sessionsMu.Lock()
	if _, exists := sessions[event.ChannelID]; exists {
		sessionsMu.Unlock()
		return respondAlreadyRunning(session, event)
	}
	sessions[event.ChannelID] = qs
	sessionsMu.Unlock()
	defer func() {
		sessionsMu.Lock()
		delete(sessions, event.ChannelID)
		sessionsMu.Unlock()
	}()

	report, err := qs.Run(context.Background())
	if err != nil {
		if err == quiz.ErrSessionActive {
			return respondAlreadyRunning(session, event)
		}
		if msgr.consumedResponse() {
			_ = core.MessageEmbed(session, event.ChannelID, &discordgo.MessageEmbed{
				Description: fmt.Sprintf("The quiz could not continue: %v", err),
				Color:       core.EmbedColor,
			})
			return nil
		}
		return err
	}

	if report.Cancelled {
		return nil
	}
	return core.MessageEmbed(session, event.ChannelID, reportEmbed(report))
}

func respondAlreadyRunning(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return core.RespondEmbedEphemeral(s, i, &discordgo.MessageEmbed{
		Description: "A quiz is already running in this channel. Join that one!",
		Color:       core.EmbedColor,
	})
}

// reportEmbed formats the final standings, top three only.
func reportEmbed(report *quiz.Report) *discordgo.MessageEmbed {
	medals := []string{"🥇", "🥈", "🥉"}
	top := report.Top(3)

	if len(top) == 0 {
		return &discordgo.MessageEmbed{
			Title:       "🏁 Quiz over",
			Description: "Nobody got a single answer right. Rough crowd.",
			Color:       core.EmbedColor,
		}
	}

	var sb strings.Builder
	for i, entry := range top {
		points := "points"
		if entry.Score == 1 {
			points = "point"
		}
		fmt.Fprintf(&sb, "%s <@%s> — %d %s\n", medals[i], entry.UserID, entry.Score, points)
	}
	return &discordgo.MessageEmbed{
		Title:       "🏁 Quiz over",
		Description: sb.String(),
		Color:       core.EmbedColor,
	}
}

// Component routes button clicks to the channel's running session.
func (c *QuizCommand) Component(ctx *core.ComponentInteractionContext) error {
	event := ctx.Event
	customID := strings.TrimPrefix(event.MessageComponentData().CustomID, componentPrefix)

	if err := core.AckComponent(ctx.Session, event); err != nil {
		log.Printf("[WARN] Failed to ack quiz component: %v", err)
	}

	sessionsMu.Lock()
	qs := sessions[event.ChannelID]
	sessionsMu.Unlock()
	if qs == nil {
		return nil
	}

	user := core.ResolveUser(ctx.Session, event)

	switch {
	case strings.HasPrefix(customID, "vote:topic:"):
		qs.CastTopic(user.ID, strings.TrimPrefix(customID, "vote:topic:"))
	case strings.HasPrefix(customID, "vote:count:"):
		if n, err := strconv.Atoi(strings.TrimPrefix(customID, "vote:count:")); err == nil {
			qs.CastCount(user.ID, n)
		}
	case customID == "vote:cancel":
		qs.ToggleCancel(user.ID)
	case strings.HasPrefix(customID, "answer:"):
		if n, err := strconv.Atoi(strings.TrimPrefix(customID, "answer:")); err == nil {
			qs.SubmitAnswer(user.ID, n)
		}
	}
	return nil
}

func init() {
	core.RegisterCommand(core.ApplyMiddlewares(
		&QuizCommand{},
		core.WithGuildOnly(),
		core.WithCommandLogger(),
	))
}
