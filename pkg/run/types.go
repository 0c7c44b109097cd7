package run

import (
	"github.com/epics-containers/kodman/pkg/errors"
)

// Request is one docker-run-style invocation.
type Request struct {
	// Image is the container image reference, e.g. "alpine" or
	// "ghcr.io/org/tool:1.2".
	Image string
	// Entrypoint overrides the image entrypoint. When set, Command is passed
	// to it as the first argument.
	Entrypoint string
	// Command is the program to run.
	Command string
	// Args follow Command.
	Args []string
	// Volumes are SRC[:DST[:MODE]] specifications copied into the Pod before
	// the command starts.
	Volumes []string
	// Remove deletes the Pod after the command exits.
	Remove bool

	// Name replaces the generated Pod name.
	Name string
	// Interactive attaches the runner's stdin to the command.
	Interactive bool
	// Env holds KEY=VALUE pairs set on the container.
	Env []string
	// Workdir is the container working directory.
	Workdir string
	// Labels are added to the Pod.
	Labels map[string]string
}

// Argv returns the command line to exec: the entrypoint, then the command,
// then the arguments.
func (r Request) Argv() ([]string, error) {
	argv := make([]string, 0, len(r.Args)+2)
	if r.Entrypoint != "" {
		argv = append(argv, r.Entrypoint)
	}
	if r.Command != "" {
		argv = append(argv, r.Command)
	}
	argv = append(argv, r.Args...)

	if len(argv) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidRequest,
			"no command given: kodman can not read the image's default command")
	}
	return argv, nil
}

// Result is the outcome of a run whose command executed.
type Result struct {
	// Name of the Pod the command ran in.
	Name string
	// ExitCode is the command's exit status.
	ExitCode int
}
