package defaults

import "time"

// NamePrefix prefixes generated Pod names.
const NamePrefix = "kodman-run"

// Pod lifecycle.
const (
	ReadyPollInterval  = 1 * time.Second
	DeleteGracePeriod  = 2 * time.Second
	DeletePollInterval = 2 * time.Second
	CleanupTimeout     = 2 * time.Minute

	// TerminationGracePeriod is written into every Pod spec.
	TerminationGracePeriod = 2 * time.Second
)

// ExecFlushInterval bounds how long an unterminated output line is held back.
const ExecFlushInterval = 5 * time.Second

// ExtractCommand returns the command that unpacks a tar stream from stdin at
// the filesystem root. Each call returns a fresh slice.
func ExtractCommand() []string {
	return []string{"tar", "-xf", "-", "-C", "/"}
}
