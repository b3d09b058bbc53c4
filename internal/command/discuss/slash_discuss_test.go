package discuss

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseScriptAttributesSpeakers(t *testing.T) {
	reply := `Speaker 1: Did you hear about the eclipse?
Speaker 2: Yeah, saw it from the roof.

Speaker 3: I slept through the whole thing.
Speaker 1: Classic.`

	lines := parseScript(reply)
	require.Len(t, lines, 4)
	require.Equal(t, 0, lines[0].speaker)
	require.Equal(t, "Did you hear about the eclipse?", lines[0].text)
	require.Equal(t, 1, lines[1].speaker)
	require.Equal(t, 2, lines[2].speaker)
	require.Equal(t, 0, lines[3].speaker)
	require.Equal(t, "Classic.", lines[3].text)
}

func TestParseScriptFallsBackToRoundRobin(t *testing.T) {
	lines := parseScript("just a line\nanother line\nthird line\nfourth line")
	require.Len(t, lines, 4)
	require.Equal(t, 0, lines[0].speaker)
	require.Equal(t, 1, lines[1].speaker)
	require.Equal(t, 2, lines[2].speaker)
	require.Equal(t, 0, lines[3].speaker)
	require.Equal(t, "just a line", lines[0].text)
}

func TestParseScriptIgnoresEmptyOutput(t *testing.T) {
	require.Empty(t, parseScript("   \n\n  "))
}

func TestLineDelayClamps(t *testing.T) {
	require.Equal(t, delayMin, lineDelay("hi"))
	require.Equal(t, delayMax, lineDelay(string(make([]byte, 500))))

	mid := lineDelay("a sentence of a reasonable length here")
	require.Greater(t, mid, delayMin)
	require.Less(t, mid, delayMax)
}
