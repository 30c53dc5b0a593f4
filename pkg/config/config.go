package config

import (
	"time"

	"marshal/internal/repository"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Repo repository.Config `envPrefix:"REPO_"`

	DiscordToken   string `env:"DISCORD_TOKEN" envDefault:""`
	DiscordGuildID string `env:"DISCORD_GUILD_ID" envDefault:""`

	ChallongeAPIKey string `env:"CHALLONGE_API_KEY" envDefault:""`

	LogLevel string `env:"LOGGER_LEVEL" envDefault:"debug"`

	// AdminUserIDs may manage any match session, alongside its marshal.
	AdminUserIDs []string `env:"ADMIN_USER_IDS" envSeparator:"," envDefault:""`

	// AckWindow is how long a game result waits for both acknowledgements
	// before the sweep settles it.
	AckWindow     time.Duration `env:"ACK_WINDOW" envDefault:"5m"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
}

func ReadEnvConfig(cfg *Config) error {
	return env.Parse(cfg)
}
