package quiz

import (
	"context"
	"sync"

	"quizbot/internal/quiz"

	"github.com/bwmarrin/discordgo"
)

// componentPrefix namespaces every quiz customID so the gateway can route
// component clicks back to this command.
const componentPrefix = "quiz:"

// messenger hands out surfaces for one session. The first surface is the
// interaction response itself, later ones are plain channel messages.
type messenger struct {
	session *discordgo.Session
	event   *discordgo.InteractionCreate

	mu   sync.Mutex
	used bool
}

func (m *messenger) CreateSurface(ctx context.Context) (quiz.Surface, error) {
	m.mu.Lock()
	first := !m.used
	m.used = true
	m.mu.Unlock()

	if first {
		err := m.session.InteractionRespond(m.event.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Content: "Starting the quiz..."},
		})
		if err != nil {
			return nil, err
		}
		return &interactionSurface{session: m.session, event: m.event}, nil
	}

	msg, err := m.session.ChannelMessageSend(m.event.ChannelID, "...")
	if err != nil {
		return nil, err
	}
	return &channelSurface{session: m.session, channelID: m.event.ChannelID, messageID: msg.ID}, nil
}

// consumedResponse reports whether the interaction response was already sent.
func (m *messenger) consumedResponse() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used
}

type interactionSurface struct {
	session *discordgo.Session
	event   *discordgo.InteractionCreate
}

func (s *interactionSurface) Update(content string, rows [][]quiz.Control) error {
	components := buildComponents(rows)
	_, err := s.session.InteractionResponseEdit(s.event.Interaction, &discordgo.WebhookEdit{
		Content:    &content,
		Components: &components,
	})
	return err
}

type channelSurface struct {
	session   *discordgo.Session
	channelID string
	messageID string
}

func (s *channelSurface) Update(content string, rows [][]quiz.Control) error {
	components := buildComponents(rows)
	_, err := s.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         s.messageID,
		Channel:    s.channelID,
		Content:    &content,
		Components: &components,
	})
	return err
}

func buildComponents(rows [][]quiz.Control) []discordgo.MessageComponent {
	out := make([]discordgo.MessageComponent, 0, len(rows))
	for _, row := range rows {
		buttons := make([]discordgo.MessageComponent, 0, len(row))
		for _, c := range row {
			btn := discordgo.Button{
				Label:    c.Label,
				Style:    buttonStyle(c.Style),
				Disabled: c.Disabled,
			}
			if c.Style == quiz.StyleLink {
				btn.URL = c.URL
			} else {
				btn.CustomID = componentPrefix + c.ID
			}
			buttons = append(buttons, btn)
		}
		out = append(out, discordgo.ActionsRow{Components: buttons})
	}
	return out
}

func buttonStyle(s quiz.ControlStyle) discordgo.ButtonStyle {
	switch s {
	case quiz.StylePrimary:
		return discordgo.PrimaryButton
	case quiz.StyleSuccess:
		return discordgo.SuccessButton
	case quiz.StyleDanger:
		return discordgo.DangerButton
	case quiz.StyleLink:
		return discordgo.LinkButton
	default:
		return discordgo.SecondaryButton
	}
}
