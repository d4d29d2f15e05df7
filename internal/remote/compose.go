package remote

// ComposeForm is the closed set of compose invocation forms: the docker
// CLI plugin subcommand, or the standalone legacy binary.
type ComposeForm int

const (
	ComposeUnknown ComposeForm = iota
	ComposePlugin
	ComposeStandalone
)

func (f ComposeForm) String() string {
	switch f {
	case ComposePlugin:
		return "docker compose (plugin)"
	case ComposeStandalone:
		return "docker-compose (standalone)"
	default:
		return "unknown"
	}
}

// command renders a compose invocation without any elevation prefix.
func (f ComposeForm) command(args string) string {
	switch f {
	case ComposeStandalone:
		return "docker-compose " + args
	default:
		return "docker compose " + args
	}
}
