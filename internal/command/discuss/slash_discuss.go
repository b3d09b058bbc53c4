package discuss

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"quizbot/internal/ai"
	"quizbot/internal/config"
	"quizbot/internal/core"

	"github.com/bwmarrin/discordgo"
)

const (
	discussSpeakers = 3
	discussLines    = 12
	// Typing delay per character of the line, clamped below.
	delayPerChar = 60 * time.Millisecond
	delayMin     = time.Second
	delayMax     = 6 * time.Second
)

type DiscussCommand struct{}

func (c *DiscussCommand) Name() string        { return "discuss" }
func (c *DiscussCommand) Description() string { return "Have the bot stage a chat about a topic" }
func (c *DiscussCommand) Aliases() []string   { return []string{} }
func (c *DiscussCommand) Group() string       { return "discuss" }
func (c *DiscussCommand) Category() string    { return "💬 Discussion" }

func (c *DiscussCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "topic",
				Description: "What should they talk about?",
				Required:    true,
			},
		},
	}
}

func (c *DiscussCommand) Run(ctx interface{}) error {
	slash, ok := ctx.(*core.SlashInteractionContext)
	if !ok {
		return fmt.Errorf("wrong context type")
	}

	session := slash.Session
	event := slash.Event

	topic := ""
	for _, opt := range event.ApplicationCommandData().Options {
		if opt.Name == "topic" {
			topic = opt.StringValue()
		}
	}
	if strings.TrimSpace(topic) == "" {
		return core.RespondEphemeral(session, event, "Give me a topic to work with.")
	}

	provider, err := ai.NewProvider(config.New().AIProvider)
	if err != nil {
		return err
	}

	if err := core.RespondEphemeral(session, event, fmt.Sprintf("Getting a conversation going about **%s**...", topic)); err != nil {
		return err
	}

	genCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	reply, err := provider.Generate(genCtx, []ai.Message{
		{Role: "system", Content: fmt.Sprintf(
			"Write a casual chat between %d friends about the given topic. "+
				"Exactly %d short lines, each on its own line in the form 'Speaker N: text' with N from 1 to %d. "+
				"No narration, no markdown, just the lines.",
			discussSpeakers, discussLines, discussSpeakers)},
		{Role: "user", Content: topic},
	})
	if err != nil {
		return followupError(session, event, fmt.Sprintf("The conversation never got started: %v", err))
	}

	lines := parseScript(reply)
	if len(lines) == 0 {
		return followupError(session, event, "The conversation never got started. Try another topic.")
	}

	cast := pickCast(session, event.GuildID, discussSpeakers)

	webhook, err := session.WebhookCreate(event.ChannelID, "discussion", "")
	if err != nil {
		return fmt.Errorf("create webhook: %w", err)
	}
	defer func() {
		if err := session.WebhookDelete(webhook.ID); err != nil {
			log.Printf("[WARN] Failed to delete discussion webhook: %v", err)
		}
	}()

	for _, line := range lines {
		speaker := cast[line.speaker%len(cast)]
		_, err := session.WebhookExecute(webhook.ID, webhook.Token, true, &discordgo.WebhookParams{
			Content:   line.text,
			Username:  speaker.name,
			AvatarURL: speaker.avatar,
		})
		if err != nil {
			log.Printf("[WARN] Failed to post discussion line: %v", err)
			continue
		}
		time.Sleep(lineDelay(line.text))
	}
	return nil
}

type scriptLine struct {
	speaker int // 0-based
	text    string
}

// parseScript splits an AI reply into speaker-attributed lines. Lines that
// don't follow the requested format are attributed round-robin.
func parseScript(reply string) []scriptLine {
	var out []scriptLine
	for _, raw := range strings.Split(reply, "\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		speaker := len(out) % discussSpeakers
		text := raw
		if prefix, rest, ok := strings.Cut(raw, ":"); ok {
			var n int
			if _, err := fmt.Sscanf(strings.TrimSpace(prefix), "Speaker %d", &n); err == nil && n >= 1 {
				speaker = (n - 1) % discussSpeakers
				text = strings.TrimSpace(rest)
			}
		}
		if text == "" {
			continue
		}
		out = append(out, scriptLine{speaker: speaker, text: text})
	}
	return out
}

type castMember struct {
	name   string
	avatar string
}

// pickCast borrows display names and avatars from random guild members so
// the webhook lines read like locals chatting. Falls back to stock names.
func pickCast(s *discordgo.Session, guildID string, n int) []castMember {
	cast := make([]castMember, 0, n)

	members, err := s.GuildMembers(guildID, "", 100)
	if err != nil {
		log.Printf("[WARN] Failed to list members for discussion cast: %v", err)
	}
	var humans []*discordgo.Member
	for _, m := range members {
		if m.User != nil && !m.User.Bot {
			humans = append(humans, m)
		}
	}
	for _, i := range rand.Perm(len(humans)) {
		if len(cast) == n {
			break
		}
		m := humans[i]
		name := m.Nick
		if name == "" {
			name = m.User.Username
		}
		cast = append(cast, castMember{name: name, avatar: m.User.AvatarURL("")})
	}

	stock := []string{"Alex", "Sam", "Charlie"}
	for i := 0; len(cast) < n; i++ {
		cast = append(cast, castMember{name: stock[i%len(stock)]})
	}
	return cast
}

func lineDelay(text string) time.Duration {
	d := time.Duration(len(text)) * delayPerChar
	if d < delayMin {
		d = delayMin
	}
	if d > delayMax {
		d = delayMax
	}
	return d
}

func followupError(s *discordgo.Session, i *discordgo.InteractionCreate, msg string) error {
	return core.FollowupEmbedEphemeral(s, i, &discordgo.MessageEmbed{
		Description: msg,
		Color:       core.EmbedColor,
	})
}

func init() {
	core.RegisterCommand(core.ApplyMiddlewares(
		&DiscussCommand{},
		core.WithGuildOnly(),
		core.WithCommandLogger(),
	))
}
