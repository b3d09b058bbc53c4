package version

// Overridden at build time via -ldflags "-X quizbot/internal/version.BuildDate=..."
var (
	AppName        = "Quizbot"
	AppDescription = "Trivia quizzes, AI discussions and summaries for your server"
	BuildDate      string
	GoVersion      string
)
