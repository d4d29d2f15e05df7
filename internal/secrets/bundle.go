package secrets

import (
	"fmt"
	"os"
	"strings"

	"github.com/xilma-bot/xilmadeploy/internal/config"
)

// Entry is one key/value pair of the bundle. Derived entries were
// computed from other values and must never overwrite a pre-existing key
// on merge.
type Entry struct {
	Key     string
	Value   string
	Derived bool
}

// Bundle is the ordered secret set rendered into the transported env
// file. Keys are unique; insertion order is preserved.
type Bundle struct {
	entries []Entry
	index   map[string]int
}

// NewBundle returns an empty bundle.
func NewBundle() *Bundle {
	return &Bundle{index: make(map[string]int)}
}

// Set adds or replaces a key.
func (b *Bundle) Set(key, value string) {
	b.put(Entry{Key: key, Value: value})
}

// SetDerived adds or replaces a key whose value was computed rather than
// supplied by the operator.
func (b *Bundle) SetDerived(key, value string) {
	b.put(Entry{Key: key, Value: value, Derived: true})
}

// SetOptional adds the key only when the value is non-empty, so the
// application's own default stays in effect otherwise.
func (b *Bundle) SetOptional(key, value string) {
	if value == "" {
		return
	}
	b.Set(key, value)
}

func (b *Bundle) put(e Entry) {
	if i, ok := b.index[e.Key]; ok {
		b.entries[i] = e
		return
	}
	b.index[e.Key] = len(b.entries)
	b.entries = append(b.entries, e)
}

// Len returns the number of entries.
func (b *Bundle) Len() int {
	return len(b.entries)
}

// Entries returns the entries in insertion order.
func (b *Bundle) Entries() []Entry {
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Render produces the bundle file content: one KEY="escaped value" line
// per entry, in insertion order.
func (b *Bundle) Render() string {
	var sb strings.Builder
	for _, e := range b.entries {
		sb.WriteString(e.Key)
		sb.WriteString(`="`)
		sb.WriteString(escapeValue(e.Value))
		sb.WriteString("\"\n")
	}
	return sb.String()
}

// escapeValue escapes a value for a double-quoted env assignment.
// Backslashes are escaped before quotes so quote escapes are not
// themselves re-escaped.
func escapeValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

// ForSession builds the bundle from a collected session. Required keys
// are emitted as-is (collection already enforced their presence in deploy
// mode); optional keys are omitted when empty; the database URL is
// derived from the postgres components unless explicitly overridden.
func ForSession(s *config.Session) *Bundle {
	sec := s.Secrets
	b := NewBundle()

	b.SetOptional("TELEGRAM_BOT_TOKEN", sec.TelegramBotToken)
	b.SetOptional("ADMIN_USER_ID", sec.AdminUserID)
	b.SetOptional("AVALAI_API_KEY", sec.AvalaiAPIKey)
	b.SetOptional("AVALAI_BASE_URL", sec.AvalaiBaseURL)
	b.SetOptional("DEFAULT_MODEL", sec.DefaultModel)
	b.SetOptional("SPONSOR_CHANNELS", sec.SponsorChannels)
	b.SetOptional("LOG_LEVEL", sec.LogLevel)
	// Defaulted postgres values travel as derived entries so a merge
	// keeps whatever the host's env file already says.
	if sec.PostgresUserDefaulted {
		b.SetDerived("POSTGRES_USER", sec.PostgresUser)
	} else {
		b.SetOptional("POSTGRES_USER", sec.PostgresUser)
	}
	b.SetOptional("POSTGRES_PASSWORD", sec.PostgresPassword)
	if sec.PostgresDBDefaulted {
		b.SetDerived("POSTGRES_DB", sec.PostgresDB)
	} else {
		b.SetOptional("POSTGRES_DB", sec.PostgresDB)
	}

	if url, derived := sec.DatabaseURL(); url != "" {
		if derived {
			b.SetDerived("DATABASE_URL", url)
		} else {
			b.Set("DATABASE_URL", url)
		}
	}

	return b
}

// LocalFile is the guaranteed-release handle around the local temporary
// bundle file. Remove is safe to call more than once.
type LocalFile struct {
	Path    string
	removed bool
}

// Remove deletes the file. Idempotent.
func (f *LocalFile) Remove() error {
	if f == nil || f.removed {
		return nil
	}
	f.removed = true
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// WriteLocal materializes content into a temporary file. The file is
// created with owner-only permissions before any value is written.
func WriteLocal(content string) (*LocalFile, error) {
	// os.CreateTemp opens with 0600, closing the window during which
	// secret content could be world-readable.
	f, err := os.CreateTemp("", "xilma-env-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create bundle file: %w", err)
	}

	handle := &LocalFile{Path: f.Name()}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		_ = handle.Remove()
		return nil, fmt.Errorf("failed to write bundle file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = handle.Remove()
		return nil, fmt.Errorf("failed to close bundle file: %w", err)
	}
	return handle, nil
}
