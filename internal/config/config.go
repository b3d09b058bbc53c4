package config

import (
	"log"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DiscordToken      string   `env:"DISCORD_TOKEN,required"`
	StoragePath       string   `env:"STORAGE_PATH" envDefault:"datastore.json"`
	AIProvider        string   `env:"AI_PROVIDER" envDefault:"pollinations"`
	TriviaAPIURL      string   `env:"TRIVIA_API_URL" envDefault:"https://opentdb.com"`
	VotingSeconds     int      `env:"VOTING_SECONDS" envDefault:"10"`
	QuestionSeconds   int      `env:"QUESTION_SECONDS" envDefault:"10"`
	InitSlashCommands bool     `env:"INIT_SLASH_COMMANDS" envDefault:"true"`
	GuildBlacklist    []string `env:"DISCORD_GUILD_BLACKLIST" envSeparator:","`
}

var (
	once sync.Once
	cfg  *Config
)

// New parses the environment once and returns the cached config on subsequent calls.
func New() *Config {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Println("[INFO] No .env file found, falling back to system environment variables")
		}
		c := &Config{}
		if err := env.Parse(c); err != nil {
			log.Fatalf("[ERR] Failed to parse config: %v", err)
		}
		cfg = c
	})
	return cfg
}
