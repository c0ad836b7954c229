package execshell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
)

// OSCommandRunner executes shell commands through os/exec. The git data plane
// and the secret-manager CLIs (gh, op, bw) all run through it, so standard
// input is wired for the commands that read from it.
type OSCommandRunner struct{}

// NewOSCommandRunner constructs a runner backed by os/exec.
func NewOSCommandRunner() *OSCommandRunner {
	return &OSCommandRunner{}
}

// Run executes the command and captures both output streams. A non-zero exit
// comes back in the result rather than as an error, so the executor can
// attach the captured stderr to the failure it raises.
func (runner *OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	executable := exec.CommandContext(executionContext, string(command.Name), command.Details.Arguments...)
	executable.Dir = command.Details.WorkingDirectory
	executable.Env = runner.environmentFor(command.Details)

	var standardOutputBuffer, standardErrorBuffer bytes.Buffer
	executable.Stdout = &standardOutputBuffer
	executable.Stderr = &standardErrorBuffer
	if len(command.Details.StandardInput) > 0 {
		executable.Stdin = bytes.NewReader(command.Details.StandardInput)
	}

	runError := executable.Run()
	executionResult := ExecutionResult{
		StandardOutput: standardOutputBuffer.String(),
		StandardError:  standardErrorBuffer.String(),
	}

	var exitError *exec.ExitError
	switch {
	case runError == nil:
		return executionResult, nil
	case errors.As(runError, &exitError):
		executionResult.ExitCode = exitError.ExitCode()
		return executionResult, nil
	default:
		return ExecutionResult{}, runError
	}
}

// environmentFor merges the request's variables over the ambient environment.
// A nil return keeps exec's default inheritance when nothing is overridden.
func (runner *OSCommandRunner) environmentFor(details CommandDetails) []string {
	if len(details.EnvironmentVariables) == 0 {
		return nil
	}
	mergedEnvironment := os.Environ()
	for environmentKey, environmentValue := range details.EnvironmentVariables {
		mergedEnvironment = append(mergedEnvironment, environmentKey+"="+environmentValue)
	}
	return mergedEnvironment
}
