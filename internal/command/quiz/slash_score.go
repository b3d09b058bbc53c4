package quiz

import (
	"fmt"

	"quizbot/internal/core"

	"github.com/bwmarrin/discordgo"
)

type ScoreCommand struct{}

func (c *ScoreCommand) Name() string        { return "get-score" }
func (c *ScoreCommand) Description() string { return "Show a player's all-time quiz score" }
func (c *ScoreCommand) Aliases() []string   { return []string{} }
func (c *ScoreCommand) Group() string       { return "quiz" }
func (c *ScoreCommand) Category() string    { return "🎲 Trivia" }

func (c *ScoreCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "player",
				Description: "Whose score to show (defaults to you)",
				Required:    false,
			},
		},
	}
}

func (c *ScoreCommand) Run(ctx interface{}) error {
	slash, ok := ctx.(*core.SlashInteractionContext)
	if !ok {
		return fmt.Errorf("wrong context type")
	}

	session := slash.Session
	event := slash.Event

	target := core.ResolveUser(session, event)
	for _, opt := range event.ApplicationCommandData().Options {
		if opt.Name == "player" {
			target = opt.UserValue(session)
		}
	}

	score, err := slash.Storage.GetScore(event.GuildID, target.ID)
	if err != nil {
		return fmt.Errorf("read score: %w", err)
	}

	return core.RespondEmbedEphemeral(session, event, scoreEmbed(target.ID, score))
}

func scoreEmbed(userID string, score int) *discordgo.MessageEmbed {
	if score == 0 {
		return &discordgo.MessageEmbed{
			Description: fmt.Sprintf("<@%s> has not attempted the quiz yet.", userID),
			Color:       0xED4245,
		}
	}

	points := "points"
	if score == 1 {
		points = "point"
	}
	return &discordgo.MessageEmbed{
		Description: fmt.Sprintf("🎯 <@%s> has **%d %s**.", userID, score, points),
		Color:       core.EmbedColor,
	}
}

func init() {
	core.RegisterCommand(core.ApplyMiddlewares(
		&ScoreCommand{},
		core.WithGuildOnly(),
		core.WithCommandLogger(),
	))
}
