package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/xilma-bot/xilmadeploy/internal/logging"
	"github.com/xilma-bot/xilmadeploy/internal/ssh"
)

// Step is one named phase of a run.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// StepError reports which step failed and carries the remote exit code
// so the caller can propagate it.
type StepError struct {
	Step     string
	Position int
	Command  string
	ExitCode int
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s) failed: %v", e.Position, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// RunPipeline executes steps in order and stops at the first failure.
// Steps already completed are never rolled back.
func RunPipeline(ctx context.Context, steps []Step) error {
	log := logging.NewLogger("pipeline")
	for i, step := range steps {
		log.Debugf("step %d/%d: %s", i+1, len(steps), step.Name)
		if err := step.Run(ctx); err != nil {
			stepErr := &StepError{
				Step:     step.Name,
				Position: i + 1,
				ExitCode: 1,
				Err:      err,
			}
			var cmdErr *ssh.CommandError
			if errors.As(err, &cmdErr) {
				stepErr.Command = cmdErr.Command
				if cmdErr.ExitCode > 0 {
					stepErr.ExitCode = cmdErr.ExitCode
				}
			}
			return stepErr
		}
	}
	return nil
}
