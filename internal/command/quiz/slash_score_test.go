package quiz

import (
	"testing"

	"quizbot/internal/core"

	"github.com/stretchr/testify/require"
)

func TestScoreEmbedNeverAttempted(t *testing.T) {
	e := scoreEmbed("42", 0)
	require.Equal(t, "<@42> has not attempted the quiz yet.", e.Description)
	require.NotEqual(t, core.EmbedColor, e.Color)
}

func TestScoreEmbedSingularPlural(t *testing.T) {
	require.Equal(t, "🎯 <@42> has **1 point**.", scoreEmbed("42", 1).Description)
	require.Equal(t, "🎯 <@42> has **7 points**.", scoreEmbed("42", 7).Description)
	require.Equal(t, core.EmbedColor, scoreEmbed("42", 7).Color)
}
