/*
Copyright © 2026 The kodman Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package cli implements the kodman command-line interface.
//
// # Overview
//
// kodman runs docker-run-style commands as short-lived Kubernetes Pods. The
// image is started in a Pod with an idle entrypoint, local volumes are copied
// in, the command is exec'd, and its output and exit code are relayed back.
//
// # Commands
//
// run - Run a command in a new Pod:
//
//	kodman run --rm alpine echo hello
//	kodman run --rm -v ./data:/data alpine ls /data
//	kodman run --rm --entrypoint sh alpine -c 'exit 7'
//	kodman run --rm -i alpine cat < input.txt
//	kodman run --dry-run --format json alpine echo hello
//	kodman run --dry-run -o pod.yaml alpine echo hello
//
// Flags are only parsed up to IMAGE. Everything after it is passed to the
// command, as with docker run. Without --rm the Pod keeps idling after the
// command exits and can be removed with delete.
//
// delete - Delete Pods by name:
//
//	kodman delete kodman-run-1234567890
//	kodman rm pod-a pod-b
//
// version - Print version information.
//
// # Global Flags
//
//	--debug           verbose "LEVEL:\tmessage" logging to stderr
//	--log-json        JSON logs to stderr
//	--kubeconfig      kubeconfig path (default: KUBECONFIG, ~/.kube/config, in-cluster)
//	--namespace, -n   namespace (default: current context namespace)
//	--config          config file (default: ~/.config/kodman/config.yaml)
//	--metrics-file    write Prometheus metrics to this file on exit
//
// Environment variables recognized by kodman are listed at the end of
// `kodman --help` with their current values.
//
// # Exit Status
//
// kodman exits with the remote command's exit code. Failures of kodman itself
// exit 125, and interruption by SIGINT or SIGTERM exits 130. The Pod of an
// interrupted or failed run is always deleted.
//
// The ranges overlap as they do for docker run: a remote command may exit 125
// or 130 itself. kodman prints "Error: ..." or "Interrupted" on stderr only for
// its own statuses, which is how scripts tell the cases apart.
//
// # Output
//
// Without --debug or --log-json, progress is shown as a single status line on
// stderr when it is a terminal, and only warnings and errors are printed
// otherwise.
package cli
