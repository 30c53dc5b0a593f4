package config

import (
	"testing"
	"time"
)

func TestReadEnvConfigDefaults(t *testing.T) {
	cfg := Config{}
	if err := ReadEnvConfig(&cfg); err != nil {
		t.Fatalf("ReadEnvConfig: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.AckWindow != 5*time.Minute {
		t.Errorf("AckWindow = %s, want 5m", cfg.AckWindow)
	}
	if cfg.SweepInterval != time.Minute {
		t.Errorf("SweepInterval = %s, want 1m", cfg.SweepInterval)
	}
}

func TestReadEnvConfigOverrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "tok")
	t.Setenv("DISCORD_GUILD_ID", "guild-1")
	t.Setenv("ADMIN_USER_IDS", "111,222")
	t.Setenv("ACK_WINDOW", "10m")
	t.Setenv("REPO_DB_HOST", "dbhost")

	cfg := Config{}
	if err := ReadEnvConfig(&cfg); err != nil {
		t.Fatalf("ReadEnvConfig: %v", err)
	}

	if cfg.DiscordToken != "tok" || cfg.DiscordGuildID != "guild-1" {
		t.Errorf("discord config = %q / %q", cfg.DiscordToken, cfg.DiscordGuildID)
	}
	if len(cfg.AdminUserIDs) != 2 || cfg.AdminUserIDs[0] != "111" || cfg.AdminUserIDs[1] != "222" {
		t.Errorf("AdminUserIDs = %v, want [111 222]", cfg.AdminUserIDs)
	}
	if cfg.AckWindow != 10*time.Minute {
		t.Errorf("AckWindow = %s, want 10m", cfg.AckWindow)
	}
	if cfg.Repo.Host != "dbhost" {
		t.Errorf("Repo.Host = %q, want dbhost", cfg.Repo.Host)
	}
}
