package discuss

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMessageRef(t *testing.T) {
	id, ok := parseMessageRef("1234567890123456789", "chan1")
	require.True(t, ok)
	require.Equal(t, "1234567890123456789", id)

	id, ok = parseMessageRef("https://discord.com/channels/111/222/1234567890123456789", "222")
	require.True(t, ok)
	require.Equal(t, "1234567890123456789", id)

	id, ok = parseMessageRef("https://ptb.discord.com/channels/111/222/1234567890123456789", "222")
	require.True(t, ok)
	require.Equal(t, "1234567890123456789", id)

	// Link pointing at another channel is rejected.
	_, ok = parseMessageRef("https://discord.com/channels/111/333/1234567890123456789", "222")
	require.False(t, ok)

	_, ok = parseMessageRef("not a message", "222")
	require.False(t, ok)
	_, ok = parseMessageRef("12345", "222")
	require.False(t, ok, "too short for a snowflake")
}

func TestSnowflakeLess(t *testing.T) {
	require.True(t, snowflakeLess("99", "100"))
	require.True(t, snowflakeLess("100", "101"))
	require.False(t, snowflakeLess("101", "100"))
	require.False(t, snowflakeLess("100", "100"))
}
