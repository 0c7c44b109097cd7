package exec

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/util/httpstream"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/remotecommand"
)

// Request describes one command to run in a Pod.
type Request struct {
	Namespace string
	Pod       string
	// Container may be empty for single-container Pods.
	Container string
	Argv      []string
	// Stdin requests an input stream for the command.
	Stdin bool
}

// Opener opens exec channels.
type Opener interface {
	Open(ctx context.Context, req Request) (remotecommand.Executor, error)
}

// ClusterOpener opens exec channels through the API server, preferring the
// WebSocket protocol and falling back to SPDY for servers that can not
// upgrade.
type ClusterOpener struct {
	Clientset kubernetes.Interface
	Config    *rest.Config
}

// Open implements Opener.
func (o *ClusterOpener) Open(_ context.Context, req Request) (remotecommand.Executor, error) {
	if len(req.Argv) == 0 {
		return nil, fmt.Errorf("no command given for pod %q", req.Pod)
	}

	u := o.Clientset.CoreV1().RESTClient().Post().
		Resource("pods").
		Namespace(req.Namespace).
		Name(req.Pod).
		SubResource("exec").
		VersionedParams(&corev1.PodExecOptions{
			Container: req.Container,
			Command:   req.Argv,
			Stdin:     req.Stdin,
			Stdout:    true,
			Stderr:    true,
			TTY:       false,
		}, scheme.ParameterCodec).
		URL()

	ws, err := remotecommand.NewWebSocketExecutor(o.Config, "GET", u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to create websocket executor: %w", err)
	}
	spdy, err := remotecommand.NewSPDYExecutor(o.Config, "POST", u)
	if err != nil {
		return nil, fmt.Errorf("failed to create spdy executor: %w", err)
	}

	return remotecommand.NewFallbackExecutor(ws, spdy, func(err error) bool {
		return httpstream.IsUpgradeFailure(err) || httpstream.IsHTTPSProxyError(err)
	})
}
