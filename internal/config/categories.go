package config

// CategoryWeights orders command categories in /help output.
var CategoryWeights = map[string]int{
	"🕯️ Information": 0,
	"🎲 Trivia":       10,
	"💬 Discussion":   20,
}
