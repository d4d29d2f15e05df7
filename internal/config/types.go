package config

// Mode selects the operating mode of a deployment session.
type Mode string

const (
	// ModeDeploy is the full provisioning path: prerequisites, clone,
	// secret upload, build, run.
	ModeDeploy Mode = "deploy"
	// ModeUpdate is the fast path against an existing checkout.
	ModeUpdate Mode = "update"
)

// AuthMethod is the SSH authentication method for a session.
type AuthMethod string

const (
	AuthKey      AuthMethod = "key"
	AuthPassword AuthMethod = "password"
)

// SyncPref controls whether an update session re-syncs the application
// environment file.
type SyncPref string

const (
	SyncAuto SyncPref = "auto"
	SyncYes  SyncPref = "yes"
	SyncNo   SyncPref = "no"
)

// Connection holds the parameters of the SSH channel to the remote host.
type Connection struct {
	Host     string
	User     string
	Port     int
	Auth     AuthMethod
	Password string // password auth only
	KeyPath  string // key auth; empty means discovery/agent
}

// Repository identifies the application checkout on the remote host.
type Repository struct {
	URL string
	Ref string
	Dir string
}

// Secrets is the application secret set transported to the remote host.
// Field names mirror the environment keys the Xilma bot reads at startup.
type Secrets struct {
	TelegramBotToken string
	AdminUserID      string
	AvalaiAPIKey     string
	AvalaiBaseURL    string
	DefaultModel     string
	SponsorChannels  string
	LogLevel         string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	// DatabaseURLOverride is an explicit connection string; when empty
	// the URL is derived from the postgres components.
	DatabaseURLOverride string

	// PostgresUserDefaulted and PostgresDBDefaulted record that the
	// value fell back to the tool default rather than being
	// operator-supplied. A defaulted value never overwrites an existing
	// key when merging into a remote env file.
	PostgresUserDefaulted bool
	PostgresDBDefaulted   bool
}

// Session is the validated configuration of one invocation. It owns all
// collected state for the duration of the run; nothing is persisted
// across invocations.
type Session struct {
	Mode          Mode
	Connection    Connection
	Repository    Repository
	Secrets       Secrets
	InstallDocker bool
	SyncEnv       SyncPref

	// SettingsFound records whether a local settings file was loaded;
	// SyncAuto resolves against it.
	SettingsFound bool
}

// SyncWanted resolves the env-sync preference for an update session.
// Auto means "sync only when a local settings file was present".
func (s *Session) SyncWanted() bool {
	if s.Mode != ModeUpdate {
		return true
	}
	switch s.SyncEnv {
	case SyncYes:
		return true
	case SyncNo:
		return false
	default:
		return s.SettingsFound
	}
}
