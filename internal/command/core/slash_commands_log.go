package core

import (
	"fmt"
	"strings"

	"quizbot/internal/core"
	"quizbot/internal/storage"

	"github.com/bwmarrin/discordgo"
)

const (
	discordMaxMessageLength = 2000
	codeLeftBlockWrapper    = "```md"
	codeRightBlockWrapper   = "```"
)

var maxContentLength = discordMaxMessageLength - len(codeLeftBlockWrapper) - len(codeRightBlockWrapper)

type CommandsLogCommand struct{}

func (c *CommandsLogCommand) Name() string        { return "commands-log" }
func (c *CommandsLogCommand) Description() string { return "Review recently used commands" }
func (c *CommandsLogCommand) Aliases() []string   { return []string{} }
func (c *CommandsLogCommand) Group() string       { return "core" }
func (c *CommandsLogCommand) Category() string    { return "🕯️ Information" }

func (c *CommandsLogCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *CommandsLogCommand) Run(ctx interface{}) error {
	slash, ok := ctx.(*core.SlashInteractionContext)
	if !ok {
		return fmt.Errorf("wrong context type")
	}

	session := slash.Session
	event := slash.Event

	if event.Member == nil || event.Member.Permissions&discordgo.PermissionAdministrator == 0 {
		return core.RespondEphemeral(session, event, "Only administrators can view the command log.")
	}

	records, err := slash.Storage.FetchCommandHistory(event.GuildID)
	if err != nil {
		return core.RespondEphemeral(session, event, fmt.Sprintf("Failed to fetch command log: %v", err))
	}

	if len(records) == 0 {
		return core.RespondEphemeral(session, event, "No command history yet. Quiet guild.")
	}

	out := codeLeftBlockWrapper + "\n" + buildLogLines(records, channelNameResolver(session)) + codeRightBlockWrapper
	return core.RespondEphemeral(session, event, out)
}

// buildLogLines renders history records newest first, stopping before the
// output would no longer fit in a single Discord message.
func buildLogLines(records []storage.CommandHistoryRecord, channelName func(string) string) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%-19s\t%-15s\t%-12s\t%s\n", "# Datetime", "# Username", "# Channel", "# Command"))

	for idx := len(records) - 1; idx >= 0; idx-- {
		r := records[idx]
		line := fmt.Sprintf(
			"%-19s\t%-15s\t#%-12s\t/%s\n",
			r.Datetime.Format("2006-01-02 15:04:05"),
			r.Username,
			channelName(r.ChannelID),
			r.Command,
		)

		if builder.Len()+len(line) > maxContentLength {
			break
		}
		builder.WriteString(line)
	}

	return builder.String()
}

func channelNameResolver(s *discordgo.Session) func(string) string {
	return func(channelID string) string {
		if ch, err := s.State.Channel(channelID); err == nil {
			return ch.Name
		}
		if ch, err := s.Channel(channelID); err == nil {
			return ch.Name
		}
		return channelID
	}
}

func init() {
	core.RegisterCommand(core.ApplyMiddlewares(
		&CommandsLogCommand{},
		core.WithGuildOnly(),
		core.WithCommandLogger(),
	))
}
