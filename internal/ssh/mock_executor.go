package ssh

import "context"

// MockExecutor is a test double that records commands and returns
// configured results.
type MockExecutor struct {
	ExecFunc func(ctx context.Context, command string) (*ExecResult, error)
	Commands []string
}

// Exec records the command and delegates to ExecFunc. Without an
// ExecFunc every command succeeds with empty output.
func (m *MockExecutor) Exec(ctx context.Context, command string) (*ExecResult, error) {
	m.Commands = append(m.Commands, command)
	if m.ExecFunc != nil {
		result, err := m.ExecFunc(ctx, command)
		if result != nil && result.Command == "" {
			result.Command = command
		}
		return result, err
	}
	return &ExecResult{Command: command}, nil
}
