// Package config holds the process-wide configuration, read once at startup
// and passed explicitly to the components that need it.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"ghdigest/server/internal/mcp"
)

// Config carries the credentials for the two backend tool servers.
// All fields are required; Load fails if any is missing.
type Config struct {
	GitHubToken    string `envconfig:"GITHUB_TOKEN" required:"true"`
	SlackBotToken  string `envconfig:"SLACK_BOT_TOKEN" required:"true"`
	SlackTeamID    string `envconfig:"SLACK_TEAM_ID" required:"true"`
	SlackChannelID string `envconfig:"SLACK_CHANNEL_ID" required:"true"`
}

// Load reads configuration from the environment, exporting a local .env
// file first when one exists.
func Load() (*Config, error) {
	if err := exportEnvironmentIfExists(".env"); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	var conf Config
	if err := envconfig.Process("", &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

// GitHubServer describes how to launch the GitHub tool backend.
func (c *Config) GitHubServer() mcp.ServerSpec {
	return mcp.ServerSpec{
		Command: "docker",
		Args:    []string{"run", "-i", "--rm", "-e", "GITHUB_PERSONAL_ACCESS_TOKEN", "ghcr.io/github/github-mcp-server"},
		Env:     map[string]string{"GITHUB_PERSONAL_ACCESS_TOKEN": c.GitHubToken},
	}
}

// SlackServer describes how to launch the Slack tool backend.
func (c *Config) SlackServer() mcp.ServerSpec {
	return mcp.ServerSpec{
		Command: "docker",
		Args:    []string{"run", "-i", "--rm", "-e", "SLACK_BOT_TOKEN", "-e", "SLACK_TEAM_ID", "-e", "SLACK_CHANNEL_IDS", "mcp/slack"},
		Env: map[string]string{
			"SLACK_BOT_TOKEN":   c.SlackBotToken,
			"SLACK_TEAM_ID":     c.SlackTeamID,
			"SLACK_CHANNEL_IDS": c.SlackChannelID,
		},
	}
}

func exportEnvironmentIfExists(filepath string) error {
	info, err := os.Stat(filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}

	viper.SetConfigFile(filepath)
	if err := viper.ReadInConfig(); err != nil {
		return err
	}
	for k, v := range viper.AllSettings() {
		if err := os.Setenv(strings.ToUpper(k), fmt.Sprint(v)); err != nil {
			return err
		}
	}
	return nil
}
