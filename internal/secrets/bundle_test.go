package secrets

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xilma-bot/xilmadeploy/internal/config"
)

func TestBundleRender(t *testing.T) {
	b := NewBundle()
	b.Set("TELEGRAM_BOT_TOKEN", "123:abc")
	b.Set("LOG_LEVEL", "INFO")

	want := "TELEGRAM_BOT_TOKEN=\"123:abc\"\nLOG_LEVEL=\"INFO\"\n"
	assert.Equal(t, want, b.Render())
}

func TestBundleRenderEscaping(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"plain", "value", `K="value"` + "\n"},
		{"double quote", `pa"ss`, `K="pa\"ss"` + "\n"},
		{"backslash", `a\b`, `K="a\\b"` + "\n"},
		{"backslash then quote", `\"`, `K="\\\""` + "\n"},
		{"dollar preserved", "$HOME", `K="$HOME"` + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBundle()
			b.Set("K", tt.value)
			assert.Equal(t, tt.want, b.Render())
		})
	}
}

func TestBundleSetReplacesInPlace(t *testing.T) {
	b := NewBundle()
	b.Set("A", "1")
	b.Set("B", "2")
	b.Set("A", "3")

	entries := b.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "A", entries[0].Key)
	assert.Equal(t, "3", entries[0].Value)
	assert.Equal(t, "B", entries[1].Key)
}

func TestBundleSetOptionalSkipsEmpty(t *testing.T) {
	b := NewBundle()
	b.SetOptional("PRESENT", "x")
	b.SetOptional("ABSENT", "")

	assert.Equal(t, 1, b.Len())
	assert.Equal(t, "PRESENT=\"x\"\n", b.Render())
}

func TestForSession(t *testing.T) {
	s := &config.Session{
		Mode: config.ModeDeploy,
		Secrets: config.Secrets{
			TelegramBotToken: "123:abc",
			AdminUserID:      "42",
			AvalaiAPIKey:     "sk-test",
			PostgresUser:     "bot",
			PostgresPassword: "pw",
			PostgresDB:       "botdb",
		},
	}

	b := ForSession(s)
	vars := ParseEnv(b.Render())

	assert.Equal(t, "123:abc", vars["TELEGRAM_BOT_TOKEN"])
	assert.Equal(t, "42", vars["ADMIN_USER_ID"])
	assert.Equal(t, "postgresql://bot:pw@db:5432/botdb", vars["DATABASE_URL"])

	// Empty optionals stay out so the application defaults apply.
	_, hasModel := vars["DEFAULT_MODEL"]
	assert.False(t, hasModel)

	for _, e := range b.Entries() {
		if e.Key == "DATABASE_URL" {
			assert.True(t, e.Derived)
		} else {
			assert.False(t, e.Derived)
		}
	}
}

func TestForSessionDefaultedPostgresIsDerived(t *testing.T) {
	s := &config.Session{
		Secrets: config.Secrets{
			PostgresUser:          "xilma",
			PostgresDB:            "xilma",
			PostgresUserDefaulted: true,
			PostgresDBDefaulted:   true,
		},
	}

	for _, e := range ForSession(s).Entries() {
		switch e.Key {
		case "POSTGRES_USER", "POSTGRES_DB":
			assert.True(t, e.Derived, "%s should be derived", e.Key)
		}
	}
}

func TestForSessionExplicitDatabaseURL(t *testing.T) {
	s := &config.Session{
		Secrets: config.Secrets{
			PostgresPassword:    "pw",
			DatabaseURLOverride: "postgresql://u:p@other:5432/d",
		},
	}

	b := ForSession(s)
	for _, e := range b.Entries() {
		if e.Key == "DATABASE_URL" {
			assert.Equal(t, "postgresql://u:p@other:5432/d", e.Value)
			assert.False(t, e.Derived)
		}
	}
}

func TestWriteLocal(t *testing.T) {
	handle, err := WriteLocal("SECRET=\"x\"\n")
	require.NoError(t, err)
	defer handle.Remove()

	info, err := os.Stat(handle.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(handle.Path)
	require.NoError(t, err)
	assert.Equal(t, "SECRET=\"x\"\n", string(data))
}

func TestLocalFileRemoveIdempotent(t *testing.T) {
	handle, err := WriteLocal("x")
	require.NoError(t, err)

	require.NoError(t, handle.Remove())
	_, statErr := os.Stat(handle.Path)
	assert.True(t, os.IsNotExist(statErr))

	// Second call is a no-op.
	assert.NoError(t, handle.Remove())
}
