package client

import (
	"log/slog"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/epics-containers/kodman/pkg/errors"
)

// Client bundles what the run engine needs to talk to a cluster.
type Client struct {
	Clientset  kubernetes.Interface
	RestConfig *rest.Config
	// Namespace is the namespace Pods are created in.
	Namespace string
}

// BuildKubeClient creates a Kubernetes client and resolves the target namespace.
//
// Parameters:
//   - kubeconfig: Path to a kubeconfig file. If empty, uses automatic discovery:
//     1. KUBECONFIG environment variable (may list several files)
//     2. ~/.kube/config (if it exists)
//     3. In-cluster configuration (service account)
//   - namespace: Namespace override. If empty, the namespace of the current
//     kubeconfig context is used, falling back to the service account namespace
//     in-cluster and "default" otherwise.
//
// Example:
//
//	c, err := client.BuildKubeClient("", "")
//	if err != nil {
//	    return fmt.Errorf("failed to build client: %w", err)
//	}
func BuildKubeClient(kubeconfig, namespace string) (*Client, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	rules.ExplicitPath = kubeconfig

	overrides := &clientcmd.ConfigOverrides{}
	if namespace != "" {
		overrides.Context.Namespace = namespace
	}

	cc := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides)

	config, err := cc.ClientConfig()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnavailable, "failed to build kube config", err)
	}

	ns, _, err := cc.Namespace()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnavailable, "failed to resolve namespace", err)
	}

	cs, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnavailable, "failed to create kubernetes client", err)
	}

	if raw, rerr := cc.RawConfig(); rerr == nil && raw.CurrentContext != "" {
		if ctx, ok := raw.Contexts[raw.CurrentContext]; ok {
			slog.Debug("loaded kube config",
				slog.String("context", raw.CurrentContext),
				slog.String("cluster", ctx.Cluster),
				slog.String("user", ctx.AuthInfo),
				slog.String("namespace", ns))
		}
	} else {
		slog.Debug("loaded in-cluster config", slog.String("namespace", ns))
	}

	return &Client{
		Clientset:  cs,
		RestConfig: config,
		Namespace:  ns,
	}, nil
}
