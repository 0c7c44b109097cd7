/*
Copyright © 2026 The kodman Authors
SPDX-License-Identifier: Apache-2.0
*/

/*
Package pod manages the lifecycle of the ephemeral Pods kodman runs commands in.

A Manager creates a Pod, waits until the scheduler has moved it out of the
Pending phase, and deletes it again, confirming removal by polling until the
API server answers NotFound.

# Readiness

Readiness means "scheduled", not "healthy": any phase other than Pending ends
the wait, including Failed. The caller's next step (exec or file copy) fails
with a precise error if the container never started. Two conditions end the
wait early with an error:

  - a Pod read that carries no status at all (EMPTY_STATUS)
  - a container stuck on an image that can not be pulled (IMAGE_PULL)

# Deletion

Delete is idempotent: a Pod that is already gone is a successful delete.
Release does the same for a Handle and marks it PhaseDeleted once removal is
confirmed.

# Usage Example

	m := pod.NewManager(clientset, "team-a", pod.DefaultOptions(), slog.Default())

	h, err := m.Create(ctx, manifest)
	if err != nil {
		return err
	}
	defer m.Release(context.WithoutCancel(ctx), h)

	if _, err := m.AwaitReady(ctx, h); err != nil {
		return err
	}

# Testing

The Manager accepts any kubernetes.Interface, so tests use the fake clientset:

	clientset := fake.NewClientset()
	m := pod.NewManager(clientset, "test", pod.Options{ReadyPollInterval: time.Millisecond}, slog.Default())
*/
package pod
