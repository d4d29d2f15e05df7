package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/xilma-bot/xilmadeploy/internal/security"
)

// Prompter is the interactive input surface. The terminal implementation
// lives in internal/cmd; tests supply fakes.
type Prompter interface {
	// Prompt asks for a value, showing the default. Empty input selects
	// the default.
	Prompt(label, def string) (string, error)
	// PromptSecret asks for a value with input echo suppressed.
	PromptSecret(label string) (string, error)
}

// Collector gathers session configuration applying the precedence rules:
// exported environment variable, then local settings file, then
// interactive prompt with a stated default, then hard failure when a
// required item is still empty.
type Collector struct {
	Settings    *Settings
	Prompter    Prompter
	Interactive bool

	// LookupEnv defaults to os.LookupEnv; injected in tests.
	LookupEnv func(string) (string, bool)
	// Warn receives non-fatal validation findings.
	Warn func(format string, args ...interface{})
}

type item struct {
	label    string
	envVar   string
	preset   string
	def      string
	required bool
	secret   bool
}

func (c *Collector) lookup(name string) (string, bool) {
	if c.LookupEnv != nil {
		return c.LookupEnv(name)
	}
	return os.LookupEnv(name)
}

func (c *Collector) warn(format string, args ...interface{}) {
	if c.Warn != nil {
		c.Warn(format, args...)
	}
}

// resolve applies the precedence rules for one configuration item.
func (c *Collector) resolve(it item) (string, error) {
	value, _, err := c.resolveTracked(it)
	return value, err
}

// resolveTracked additionally reports whether the value fell back to the
// item default rather than being operator-supplied. Callers that merge
// against an existing env file use the flag to keep tool defaults from
// overwriting values already on the host.
func (c *Collector) resolveTracked(it item) (string, bool, error) {
	value := ""
	defaulted := false
	if v, ok := c.lookup(it.envVar); ok && strings.TrimSpace(v) != "" {
		value = strings.TrimSpace(v)
	} else if it.preset != "" {
		value = it.preset
	} else if c.Interactive && c.Prompter != nil {
		var err error
		if it.secret {
			value, err = c.Prompter.PromptSecret(it.label)
		} else {
			value, err = c.Prompter.Prompt(it.label, it.def)
		}
		if err != nil {
			return "", false, fmt.Errorf("failed to read %s: %w", it.label, err)
		}
		if value == "" {
			value = it.def
			defaulted = it.def != ""
		}
	} else {
		value = it.def
		defaulted = it.def != ""
	}

	if value == "" && it.required {
		return "", false, fmt.Errorf("%s is required (set %s or add it to %s)", it.label, it.envVar, SettingsFile)
	}
	return value, defaulted, nil
}

// Collect gathers and validates the full session configuration for the
// given mode. No network action happens here; every validation failure
// surfaces before a connection is attempted.
func (c *Collector) Collect(mode Mode) (*Session, error) {
	s := &Session{Mode: mode, SettingsFound: c.Settings != nil}
	set := c.Settings
	if set == nil {
		set = &Settings{}
	}

	if err := c.collectConnection(s, set); err != nil {
		return nil, err
	}
	if err := c.collectRepository(s, set); err != nil {
		return nil, err
	}
	if err := c.collectPreferences(s, set); err != nil {
		return nil, err
	}

	if mode == ModeDeploy || s.SyncWanted() {
		if err := c.collectSecrets(s, set); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (c *Collector) collectConnection(s *Session, set *Settings) error {
	host, err := c.resolve(item{label: "remote host", envVar: "XILMA_DEPLOY_HOST", preset: set.Host, required: true})
	if err != nil {
		return err
	}

	user, err := c.resolve(item{label: "remote user", envVar: "XILMA_DEPLOY_USER", preset: set.User, def: "root", required: true})
	if err != nil {
		return err
	}
	if err := security.ValidateUnixUser(user); err != nil {
		return fmt.Errorf("invalid remote user: %w", err)
	}

	presetPort := ""
	if set.Port != 0 {
		presetPort = strconv.Itoa(set.Port)
	}
	rawPort, err := c.resolve(item{label: "SSH port", envVar: "XILMA_DEPLOY_PORT", preset: presetPort, def: "22", required: true})
	if err != nil {
		return err
	}
	port, err := strconv.Atoi(rawPort)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid SSH port %q: must be a number between 1 and 65535", rawPort)
	}

	rawAuth, err := c.resolve(item{label: "auth method (key/password)", envVar: "XILMA_DEPLOY_AUTH_METHOD", preset: set.AuthMethod, def: "key", required: true})
	if err != nil {
		return err
	}
	var auth AuthMethod
	switch strings.ToLower(rawAuth) {
	case "key":
		auth = AuthKey
	case "password":
		auth = AuthPassword
	default:
		return fmt.Errorf("unsupported auth method %q: must be 'key' or 'password'", rawAuth)
	}

	password := ""
	keyPath := ""
	if auth == AuthPassword {
		// The credential must exist before any network action.
		password, err = c.resolve(item{label: "SSH password", envVar: "XILMA_DEPLOY_PASSWORD", required: true, secret: true})
		if err != nil {
			return err
		}
	} else {
		keyPath, err = c.resolve(item{label: "SSH key path (empty for agent/discovery)", envVar: "XILMA_DEPLOY_KEY_PATH", preset: set.KeyPath})
		if err != nil {
			return err
		}
	}

	s.Connection = Connection{
		Host:     host,
		User:     user,
		Port:     port,
		Auth:     auth,
		Password: password,
		KeyPath:  keyPath,
	}
	return nil
}

func (c *Collector) collectRepository(s *Session, set *Settings) error {
	// In update mode a pre-existing checkout is assumed: the URL is
	// optional and a blank ref means "keep current".
	urlRequired := s.Mode == ModeDeploy

	url, err := c.resolve(item{label: "repository URL", envVar: "XILMA_DEPLOY_REPO_URL", preset: set.RepoURL, required: urlRequired})
	if err != nil {
		return err
	}

	refDefault := ""
	if s.Mode == ModeDeploy {
		refDefault = "main"
	}
	ref, err := c.resolve(item{label: "repository ref", envVar: "XILMA_DEPLOY_REPO_REF", preset: set.RepoRef, def: refDefault, required: s.Mode == ModeDeploy})
	if err != nil {
		return err
	}
	if err := security.ValidateRef(ref); err != nil {
		return fmt.Errorf("invalid repository ref: %w", err)
	}

	dir, err := c.resolve(item{label: "application directory", envVar: "XILMA_DEPLOY_APP_DIR", preset: set.AppDir, def: "/opt/xilma", required: true})
	if err != nil {
		return err
	}
	if err := security.ValidateRemoteDir(dir); err != nil {
		return err
	}

	s.Repository = Repository{URL: url, Ref: ref, Dir: dir}
	return nil
}

func (c *Collector) collectPreferences(s *Session, set *Settings) error {
	rawInstall, err := c.resolve(item{label: "install docker if missing (yes/no)", envVar: "XILMA_DEPLOY_INSTALL_DOCKER", preset: set.InstallDocker, def: "no", required: true})
	if err != nil {
		return err
	}
	switch strings.ToLower(rawInstall) {
	case "yes":
		s.InstallDocker = true
	case "no":
		s.InstallDocker = false
	default:
		return fmt.Errorf("invalid install_docker value %q: must be 'yes' or 'no'", rawInstall)
	}

	if s.Mode == ModeUpdate {
		rawSync, err := c.resolve(item{label: "sync env file (auto/yes/no)", envVar: "XILMA_DEPLOY_SYNC_ENV", preset: set.SyncEnv, def: "auto", required: true})
		if err != nil {
			return err
		}
		switch strings.ToLower(rawSync) {
		case "auto":
			s.SyncEnv = SyncAuto
		case "yes":
			s.SyncEnv = SyncYes
		case "no":
			s.SyncEnv = SyncNo
		default:
			return fmt.Errorf("invalid sync_env value %q: must be 'auto', 'yes', or 'no'", rawSync)
		}
	}

	return nil
}

func (c *Collector) collectSecrets(s *Session, set *Settings) error {
	// Secrets are mandatory only in deploy mode; an update sync merges
	// whatever is supplied into the existing remote file.
	required := s.Mode == ModeDeploy

	var err error
	sec := &s.Secrets

	if sec.TelegramBotToken, err = c.resolve(item{label: "Telegram bot token", envVar: "TELEGRAM_BOT_TOKEN", preset: set.Secrets.TelegramBotToken, required: required, secret: true}); err != nil {
		return err
	}
	if sec.AdminUserID, err = c.resolve(item{label: "admin user id", envVar: "ADMIN_USER_ID", preset: set.Secrets.AdminUserID, required: required}); err != nil {
		return err
	}
	if sec.AdminUserID != "" && !security.IsNumericID(sec.AdminUserID) {
		// Deliberate leniency: a warning, never a hard failure.
		c.warn("admin user id %q does not look numeric", sec.AdminUserID)
	}
	if sec.AvalaiAPIKey, err = c.resolve(item{label: "AvalAI API key", envVar: "AVALAI_API_KEY", preset: set.Secrets.AvalaiAPIKey, required: required, secret: true}); err != nil {
		return err
	}
	if sec.AvalaiBaseURL, err = c.resolve(item{label: "AvalAI base URL", envVar: "AVALAI_BASE_URL", preset: set.Secrets.AvalaiBaseURL}); err != nil {
		return err
	}
	if sec.DefaultModel, err = c.resolve(item{label: "default model", envVar: "DEFAULT_MODEL", preset: set.Secrets.DefaultModel}); err != nil {
		return err
	}
	if sec.SponsorChannels, err = c.resolve(item{label: "sponsor channels (comma separated)", envVar: "SPONSOR_CHANNELS", preset: set.Secrets.SponsorChannels}); err != nil {
		return err
	}
	if sec.LogLevel, err = c.resolve(item{label: "application log level", envVar: "LOG_LEVEL", preset: set.Secrets.LogLevel}); err != nil {
		return err
	}
	if sec.PostgresUser, sec.PostgresUserDefaulted, err = c.resolveTracked(item{label: "postgres user", envVar: "POSTGRES_USER", preset: set.Secrets.PostgresUser, def: "xilma"}); err != nil {
		return err
	}
	if sec.PostgresPassword, err = c.resolve(item{label: "postgres password", envVar: "POSTGRES_PASSWORD", preset: set.Secrets.PostgresPassword, required: required, secret: true}); err != nil {
		return err
	}
	if sec.PostgresDB, sec.PostgresDBDefaulted, err = c.resolveTracked(item{label: "postgres database", envVar: "POSTGRES_DB", preset: set.Secrets.PostgresDB, def: "xilma"}); err != nil {
		return err
	}
	if sec.DatabaseURLOverride, err = c.resolve(item{label: "database URL override", envVar: "DATABASE_URL", preset: set.Secrets.DatabaseURL, secret: true}); err != nil {
		return err
	}

	return nil
}

// DatabaseURL returns the connection string for the bundle and whether it
// was derived from the postgres components rather than supplied
// explicitly. A derived value never overwrites an existing key on merge.
func (s *Secrets) DatabaseURL() (string, bool) {
	if s.DatabaseURLOverride != "" {
		return s.DatabaseURLOverride, false
	}
	if s.PostgresPassword == "" {
		return "", false
	}
	user := s.PostgresUser
	if user == "" {
		user = "xilma"
	}
	db := s.PostgresDB
	if db == "" {
		db = "xilma"
	}
	return fmt.Sprintf("postgresql://%s:%s@db:5432/%s", user, s.PostgresPassword, db), true
}

// Summary renders the non-secret session summary shown before the
// operator confirms. Secrets appear masked.
func (s *Session) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Mode:        %s\n", s.Mode)
	fmt.Fprintf(&b, "Target:      %s@%s:%d (%s auth)\n", s.Connection.User, s.Connection.Host, s.Connection.Port, s.Connection.Auth)
	if s.Connection.Auth == AuthKey && s.Connection.KeyPath != "" {
		fmt.Fprintf(&b, "Key:         %s\n", s.Connection.KeyPath)
	}
	if s.Repository.URL != "" {
		fmt.Fprintf(&b, "Repository:  %s\n", s.Repository.URL)
	}
	ref := s.Repository.Ref
	if ref == "" {
		ref = "(keep current)"
	}
	fmt.Fprintf(&b, "Ref:         %s\n", ref)
	fmt.Fprintf(&b, "Directory:   %s\n", s.Repository.Dir)
	fmt.Fprintf(&b, "Install docker: %v\n", s.InstallDocker)
	if s.Mode == ModeUpdate {
		fmt.Fprintf(&b, "Sync env:    %s\n", s.SyncEnv)
	}
	if s.Secrets.TelegramBotToken != "" {
		fmt.Fprintf(&b, "Bot token:   %s\n", security.Mask(s.Secrets.TelegramBotToken))
	}
	if s.Secrets.AvalaiAPIKey != "" {
		fmt.Fprintf(&b, "API key:     %s\n", security.Mask(s.Secrets.AvalaiAPIKey))
	}
	if s.Secrets.PostgresPassword != "" {
		fmt.Fprintf(&b, "DB password: %s\n", security.Mask(s.Secrets.PostgresPassword))
	}
	return b.String()
}
