/*
Copyright © 2026 The kodman Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package defaults holds the tuning constants shared by kodman's packages.
//
// The config file, the pod manager, the exec session and the runner all
// start from these values, so a run configured with nothing behaves the same
// no matter which layer supplies the default.
//
// # Timeout Guidelines
//
//   - Readiness: polled every second with no overall limit unless the caller
//     asks for one.
//   - Deletion: a short grace period, then the Pod is re-read until it is
//     gone, bounded by CleanupTimeout.
//   - Output: an unterminated line is held at most ExecFlushInterval.
package defaults
