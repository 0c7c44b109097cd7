/*
Copyright © 2026 The kodman Authors
SPDX-License-Identifier: Apache-2.0
*/

/*
Package run executes one docker-run-style request as an ephemeral Kubernetes Pod.

A run is a two-phase protocol. The allocate phase creates a Pod whose single
container idles in a Placeholder entrypoint, so the Pod reaches a steady state
before anything of the caller's runs in it. The attach phase copies the
requested volumes into the live Pod and injects the real command through the
exec channel. The command's exit code becomes the run's result.

	Request ──▶ NameGenerator ──▶ BuildPod ──▶ pod.Manager.Create
	                                                 │
	            exec.Session.Run ◀── transfer.Copier ◀── pod.Manager.AwaitReady
	                   │
	                   ▼
	             Result{ExitCode} ──▶ pod.Manager.Delete (Remove, or aborted runs)

# Usage Example

	clients, err := client.BuildKubeClient("", "")
	if err != nil {
		return err
	}
	pods := pod.NewManager(clients.Clientset, clients.Namespace, pod.DefaultOptions(), log)
	opener := &exec.ClusterOpener{Clientset: clients.Clientset, Config: clients.RestConfig}

	runner := run.NewRunner(pods, opener, run.DefaultOptions(), log)
	res, err := runner.Run(ctx, run.Request{
		Image:   "alpine",
		Command: "echo",
		Args:    []string{"ok"},
		Remove:  true,
	})

# Cleanup

Once the Pod exists, its deletion is deferred. The Pod is removed when the
request asks for it, and always when the run aborts before the command
produced an exit code. Deletion runs on a context detached from the caller's
cancellation and bounded by Options.CleanupTimeout. Its failure is logged and
never changes the run's result.

# Naming

Generated names are "<prefix>-<xxhash64>" of the image, command, arguments and
volumes salted with the current time and a random UUID, so repeated identical
requests never share a name. A caller-supplied Request.Name is used verbatim.
A name that already exists is a fatal NAME_COLLISION error unless
Options.NameCollisionRetries allows creating again under a fresh name.
*/
package run
