package pod

import (
	"log/slog"
	"time"

	"k8s.io/client-go/kubernetes"

	"github.com/epics-containers/kodman/pkg/defaults"
)

// Phase is the lifecycle phase of a Pod as tracked by kodman.
type Phase string

const (
	PhasePending   Phase = "Pending"
	PhaseRunning   Phase = "Running"
	PhaseSucceeded Phase = "Succeeded"
	PhaseFailed    Phase = "Failed"
	PhaseUnknown   Phase = "Unknown"
	// PhaseDeleted is set once the API server no longer knows the Pod.
	PhaseDeleted Phase = "Deleted"
)

// Handle identifies a live Pod and the phase it was last observed in.
type Handle struct {
	Name      string
	Namespace string
	Phase     Phase
}

// Options tunes the Manager's polling.
type Options struct {
	// ReadyPollInterval is the delay between status reads in AwaitReady.
	ReadyPollInterval time.Duration
	// ReadyTimeout bounds AwaitReady. Zero waits until the context ends.
	ReadyTimeout time.Duration
	// DeleteGracePeriod is passed to the API server on delete.
	DeleteGracePeriod time.Duration
	// DeletePollInterval is the delay between reads while confirming removal.
	DeletePollInterval time.Duration
}

// DefaultOptions returns a 1s readiness poll, no ready timeout, a 2s grace
// period and a 2s delete poll.
func DefaultOptions() Options {
	return Options{
		ReadyPollInterval:  defaults.ReadyPollInterval,
		DeleteGracePeriod:  defaults.DeleteGracePeriod,
		DeletePollInterval: defaults.DeletePollInterval,
	}
}

// Manager creates, watches and deletes Pods in one namespace.
type Manager struct {
	clientset kubernetes.Interface
	namespace string
	opts      Options
	log       *slog.Logger
}

// NewManager returns a Manager for namespace. Zero intervals in opts are
// replaced with DefaultOptions values.
func NewManager(clientset kubernetes.Interface, namespace string, opts Options, log *slog.Logger) *Manager {
	def := DefaultOptions()
	if opts.ReadyPollInterval <= 0 {
		opts.ReadyPollInterval = def.ReadyPollInterval
	}
	if opts.DeletePollInterval <= 0 {
		opts.DeletePollInterval = def.DeletePollInterval
	}
	if opts.DeleteGracePeriod < 0 {
		opts.DeleteGracePeriod = def.DeleteGracePeriod
	}
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		clientset: clientset,
		namespace: namespace,
		opts:      opts,
		log:       log,
	}
}

// Namespace returns the namespace the Manager operates in.
func (m *Manager) Namespace() string {
	return m.namespace
}
