package discuss

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"quizbot/internal/ai"
	"quizbot/internal/config"
	"quizbot/internal/core"

	"github.com/bwmarrin/discordgo"
)

// messageRefRegex accepts a raw message ID or a full message link.
var messageRefRegex = regexp.MustCompile(`^(?:https://(?:\w+\.)?discord(?:app)?\.com/channels/\d+/(\d+)/)?(\d{15,21})$`)

const shortifyMaxMessages = 100

type ShortifyCommand struct{}

func (c *ShortifyCommand) Name() string        { return "shortify" }
func (c *ShortifyCommand) Description() string { return "Summarize the conversation between two messages" }
func (c *ShortifyCommand) Aliases() []string   { return []string{} }
func (c *ShortifyCommand) Group() string       { return "discuss" }
func (c *ShortifyCommand) Category() string    { return "💬 Discussion" }

func (c *ShortifyCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "start",
				Description: "First message (link or ID)",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "end",
				Description: "Last message (link or ID)",
				Required:    true,
			},
		},
	}
}

func (c *ShortifyCommand) Run(ctx interface{}) error {
	slash, ok := ctx.(*core.SlashInteractionContext)
	if !ok {
		return fmt.Errorf("wrong context type")
	}

	session := slash.Session
	event := slash.Event

	var startRef, endRef string
	for _, opt := range event.ApplicationCommandData().Options {
		switch opt.Name {
		case "start":
			startRef = strings.TrimSpace(opt.StringValue())
		case "end":
			endRef = strings.TrimSpace(opt.StringValue())
		}
	}

	startID, ok := parseMessageRef(startRef, event.ChannelID)
	if !ok {
		return badRefError(session, event, startRef)
	}
	endID, ok := parseMessageRef(endRef, event.ChannelID)
	if !ok {
		return badRefError(session, event, endRef)
	}
	// Snowflakes grow monotonically, so swap when given in reverse.
	if snowflakeLess(endID, startID) {
		startID, endID = endID, startID
	}

	provider, err := ai.NewProvider(config.New().AIProvider)
	if err != nil {
		return err
	}

	if err := core.RespondDeferred(session, event); err != nil {
		return err
	}

	transcript, err := fetchTranscript(session, event.ChannelID, startID, endID)
	if err != nil {
		return followupError(session, event, fmt.Sprintf("Couldn't read those messages: %v", err))
	}
	if transcript == "" {
		return followupError(session, event, "There's nothing between those two messages.")
	}

	genCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	summary, err := summarize(genCtx, provider, transcript)
	if err != nil {
		return followupError(session, event, fmt.Sprintf("Couldn't summarize that: %v", err))
	}

	return core.FollowupEmbed(session, event, &discordgo.MessageEmbed{
		Title:       "📝 TL;DR",
		Description: summary,
		Color:       core.EmbedColor,
	})
}

// parseMessageRef extracts a message ID from a link or raw ID. Links must
// point at the invoking channel.
func parseMessageRef(ref, channelID string) (string, bool) {
	m := messageRefRegex.FindStringSubmatch(ref)
	if m == nil {
		return "", false
	}
	if m[1] != "" && m[1] != channelID {
		return "", false
	}
	return m[2], true
}

func snowflakeLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// fetchTranscript loads messages from startID through endID inclusive and
// renders them as "author: text" lines with user mentions expanded.
func fetchTranscript(s *discordgo.Session, channelID, startID, endID string) (string, error) {
	first, err := s.ChannelMessage(channelID, startID)
	if err != nil {
		return "", err
	}
	last, err := s.ChannelMessage(channelID, endID)
	if err != nil {
		return "", err
	}

	msgs := []*discordgo.Message{first}
	after := startID
	for len(msgs) < shortifyMaxMessages {
		batch, err := s.ChannelMessages(channelID, 100, "", after, "")
		if err != nil {
			return "", err
		}
		if len(batch) == 0 {
			break
		}
		// ChannelMessages returns newest first.
		done := false
		for i := len(batch) - 1; i >= 0; i-- {
			m := batch[i]
			if snowflakeLess(endID, m.ID) {
				done = true
				break
			}
			msgs = append(msgs, m)
			after = m.ID
			if m.ID == endID {
				done = true
				break
			}
		}
		if done {
			break
		}
	}
	if msgs[len(msgs)-1].ID != endID {
		msgs = append(msgs, last)
	}

	var sb strings.Builder
	for _, m := range msgs {
		text := expandMentions(m)
		if text == "" || m.Author == nil {
			continue
		}
		fmt.Fprintf(&sb, "%s: %s\n", m.Author.Username, text)
	}
	return strings.TrimSpace(sb.String()), nil
}

func expandMentions(m *discordgo.Message) string {
	text := m.Content
	for _, u := range m.Mentions {
		text = strings.ReplaceAll(text, "<@"+u.ID+">", "@"+u.Username)
		text = strings.ReplaceAll(text, "<@!"+u.ID+">", "@"+u.Username)
	}
	return strings.TrimSpace(text)
}

func badRefError(s *discordgo.Session, i *discordgo.InteractionCreate, ref string) error {
	return core.RespondEmbedEphemeral(s, i, &discordgo.MessageEmbed{
		Description: fmt.Sprintf("`%s` is not a message link or ID from this channel.", ref),
		Color:       core.EmbedColor,
	})
}

func init() {
	core.RegisterCommand(core.ApplyMiddlewares(
		&ShortifyCommand{},
		core.WithGuildOnly(),
		core.WithCommandLogger(),
	))
}
