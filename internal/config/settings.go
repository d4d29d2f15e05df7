package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SettingsFile is the default local settings filename.
const SettingsFile = "xilmadeploy.yaml"

// Settings is the optional local settings file. Every field is a default
// that environment variables override and prompts fall back to.
type Settings struct {
	Host       string `yaml:"host,omitempty"`
	User       string `yaml:"user,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	AuthMethod string `yaml:"auth_method,omitempty"`
	KeyPath    string `yaml:"key_path,omitempty"`

	RepoURL string `yaml:"repo_url,omitempty"`
	RepoRef string `yaml:"repo_ref,omitempty"`
	AppDir  string `yaml:"app_dir,omitempty"`

	InstallDocker string `yaml:"install_docker,omitempty"`
	SyncEnv       string `yaml:"sync_env,omitempty"`

	Secrets SettingsSecrets `yaml:"secrets,omitempty"`
}

// SettingsSecrets carries secret defaults. The file is expected to be
// operator-owned with restrictive permissions; a world-readable settings
// file is the operator's own exposure, not ours.
type SettingsSecrets struct {
	TelegramBotToken string `yaml:"telegram_bot_token,omitempty"`
	AdminUserID      string `yaml:"admin_user_id,omitempty"`
	AvalaiAPIKey     string `yaml:"avalai_api_key,omitempty"`
	AvalaiBaseURL    string `yaml:"avalai_base_url,omitempty"`
	DefaultModel     string `yaml:"default_model,omitempty"`
	SponsorChannels  string `yaml:"sponsor_channels,omitempty"`
	LogLevel         string `yaml:"log_level,omitempty"`
	PostgresUser     string `yaml:"postgres_user,omitempty"`
	PostgresPassword string `yaml:"postgres_password,omitempty"`
	PostgresDB       string `yaml:"postgres_db,omitempty"`
	DatabaseURL      string `yaml:"database_url,omitempty"`
}

// LoadSettings loads the local settings file. A missing file is not an
// error: it returns (nil, nil) and the collector falls back to prompts.
func LoadSettings(path string) (*Settings, error) {
	if path == "" {
		path = SettingsFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return &settings, nil
}
