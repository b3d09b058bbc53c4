package core

import (
	"fmt"
	"sort"
	"strings"

	"quizbot/internal/config"
	"quizbot/internal/core"
	"quizbot/internal/version"

	"github.com/bwmarrin/discordgo"
)

type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "Get a list of available commands" }
func (c *HelpCommand) Aliases() []string   { return []string{} }
func (c *HelpCommand) Group() string       { return "core" }
func (c *HelpCommand) Category() string    { return "🕯️ Information" }

func (c *HelpCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "view_as",
				Description: "View commands as categories or a flat list",
				Required:    false,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "Categories", Value: "category"},
					{Name: "Flat list", Value: "flat"},
				},
			},
		},
	}
}

func (c *HelpCommand) Run(ctx interface{}) error {
	slash, ok := ctx.(*core.SlashInteractionContext)
	if !ok {
		return fmt.Errorf("wrong context type")
	}

	session := slash.Session
	event := slash.Event

	viewAs := "category"
	if opts := event.ApplicationCommandData().Options; len(opts) > 0 {
		viewAs = opts[0].StringValue()
	}

	var output string
	switch viewAs {
	case "flat":
		output = buildHelpFlat()
	default:
		output = buildHelpByCategory()
	}

	return core.RespondEmbedEphemeral(session, event, &discordgo.MessageEmbed{
		Title:       version.AppName + " Help",
		Description: output,
		Color:       core.EmbedColor,
	})
}

func buildHelpByCategory() string {
	categoryMap := make(map[string][]core.Command)
	for _, cmd := range core.AllCommands() {
		cat := cmd.Category()
		categoryMap[cat] = append(categoryMap[cat], cmd)
	}

	var cats []string
	for cat := range categoryMap {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool {
		wi, wj := config.CategoryWeights[cats[i]], config.CategoryWeights[cats[j]]
		if wi != wj {
			return wi < wj
		}
		return cats[i] < cats[j]
	})

	var sb strings.Builder
	for _, cat := range cats {
		sb.WriteString(fmt.Sprintf("**%s**\n", cat))
		cmds := categoryMap[cat]
		sort.Slice(cmds, func(i, j int) bool {
			return cmds[i].Name() < cmds[j].Name()
		})
		for _, cmd := range cmds {
			sb.WriteString(fmt.Sprintf("`%s` - %s\n", cmd.Name(), cmd.Description()))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func buildHelpFlat() string {
	cmds := core.AllCommands()
	sort.Slice(cmds, func(i, j int) bool {
		return cmds[i].Name() < cmds[j].Name()
	})

	var sb strings.Builder
	for _, cmd := range cmds {
		sb.WriteString(fmt.Sprintf("`%s` - %s\n", cmd.Name(), cmd.Description()))
	}
	return sb.String()
}

func init() {
	core.RegisterCommand(core.ApplyMiddlewares(
		&HelpCommand{},
		core.WithGuildOnly(),
		core.WithCommandLogger(),
	))
}
