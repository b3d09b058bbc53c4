package discuss

import (
	"context"
	"fmt"
	"time"

	"quizbot/internal/ai"
	"quizbot/internal/config"
	"quizbot/internal/core"

	"github.com/bwmarrin/discordgo"
)

type SummarizeCommand struct{}

func (c *SummarizeCommand) Name() string        { return "summarize" }
func (c *SummarizeCommand) Description() string { return "Summarize a piece of text" }
func (c *SummarizeCommand) Aliases() []string   { return []string{} }
func (c *SummarizeCommand) Group() string       { return "discuss" }
func (c *SummarizeCommand) Category() string    { return "💬 Discussion" }

func (c *SummarizeCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "text",
				Description: "The text to summarize",
				Required:    true,
			},
		},
	}
}

func (c *SummarizeCommand) Run(ctx interface{}) error {
	slash, ok := ctx.(*core.SlashInteractionContext)
	if !ok {
		return fmt.Errorf("wrong context type")
	}

	session := slash.Session
	event := slash.Event

	text := ""
	for _, opt := range event.ApplicationCommandData().Options {
		if opt.Name == "text" {
			text = opt.StringValue()
		}
	}

	provider, err := ai.NewProvider(config.New().AIProvider)
	if err != nil {
		return err
	}

	if err := core.RespondDeferred(session, event); err != nil {
		return err
	}

	genCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	summary, err := summarize(genCtx, provider, text)
	if err != nil {
		return followupError(session, event, fmt.Sprintf("Couldn't summarize that: %v", err))
	}

	return core.FollowupEmbed(session, event, &discordgo.MessageEmbed{
		Title:       "📝 Summary",
		Description: summary,
		Color:       core.EmbedColor,
	})
}

func summarize(ctx context.Context, provider ai.Provider, text string) (string, error) {
	return provider.Generate(ctx, []ai.Message{
		{Role: "system", Content: "Summarize the given text in a few short sentences. Keep names and facts, drop filler."},
		{Role: "user", Content: text},
	})
}

func init() {
	core.RegisterCommand(core.ApplyMiddlewares(
		&SummarizeCommand{},
		core.WithGuildOnly(),
		core.WithCommandLogger(),
	))
}
