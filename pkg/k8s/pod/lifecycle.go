package pod

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/utils/ptr"

	"github.com/epics-containers/kodman/pkg/errors"
)

// unpullableReasons are container waiting reasons after which the kubelet
// will not start the container without outside intervention.
var unpullableReasons = map[string]bool{
	"ImagePullBackOff":  true,
	"InvalidImageName":  true,
	"ErrImageNeverPull": true,
}

// Create submits pod and returns a handle to it. An existing Pod with the
// same name is reported as ErrCodeNameCollision, any other rejection as
// ErrCodeCreateFailed. Create never retries.
func (m *Manager) Create(ctx context.Context, pod *corev1.Pod) (*Handle, error) {
	pod = pod.DeepCopy()
	pod.Namespace = m.namespace

	log := m.log.With(slog.String("pod", pod.Name), slog.String("namespace", m.namespace))
	log.Debug("creating pod")

	created, err := m.clientset.CoreV1().Pods(m.namespace).Create(ctx, pod, metav1.CreateOptions{})
	if apierrors.IsAlreadyExists(err) {
		podCreateTotal.WithLabelValues("collision").Inc()
		return nil, errors.WrapWithContext(errors.ErrCodeNameCollision,
			fmt.Sprintf("pod %q already exists", pod.Name), err,
			map[string]any{"pod": pod.Name, "namespace": m.namespace})
	}
	if err != nil {
		podCreateTotal.WithLabelValues("error").Inc()
		return nil, errors.WrapWithContext(errors.ErrCodeCreateFailed,
			fmt.Sprintf("failed to create pod %q", pod.Name), err,
			map[string]any{"pod": pod.Name, "namespace": m.namespace})
	}
	podCreateTotal.WithLabelValues("success").Inc()

	ns := created.Namespace
	if ns == "" {
		ns = m.namespace
	}
	log.Info("created pod")

	return &Handle{
		Name:      created.Name,
		Namespace: ns,
		Phase:     Phase(created.Status.Phase),
	}, nil
}

// AwaitReady polls the Pod until its phase is no longer Pending and returns
// an updated handle. Any non-Pending phase is accepted, Failed included.
func (m *Manager) AwaitReady(ctx context.Context, h *Handle) (*Handle, error) {
	log := m.log.With(slog.String("pod", h.Name))
	log.Info("waiting for pod to be scheduled")

	pollCtx := ctx
	if m.opts.ReadyTimeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, m.opts.ReadyTimeout)
		defer cancel()
	}

	start := time.Now()
	phase := h.Phase
	lastReason := ""

	err := wait.PollUntilContextCancel(pollCtx, m.opts.ReadyPollInterval, true, func(ctx context.Context) (bool, error) {
		p, err := m.clientset.CoreV1().Pods(h.Namespace).Get(ctx, h.Name, metav1.GetOptions{})
		if apierrors.IsNotFound(err) {
			return false, errors.Wrap(errors.ErrCodeNotFound,
				fmt.Sprintf("pod %q disappeared while waiting for it", h.Name), err)
		}
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			return false, errors.Wrap(errors.ErrCodeUnavailable,
				fmt.Sprintf("failed to read pod %q", h.Name), err)
		}

		if p.Status.Phase == "" {
			return false, errors.WrapWithContext(errors.ErrCodeEmptyStatus,
				fmt.Sprintf("pod %q has an empty status", h.Name), nil,
				map[string]any{"pod": h.Name})
		}

		phase = Phase(p.Status.Phase)
		if phase != PhasePending {
			return true, nil
		}

		if reason, msg := waitingReason(p); reason != "" {
			if reason != lastReason {
				log.Debug("pod is pending", slog.String("reason", reason), slog.String("message", msg))
				lastReason = reason
			}
			if unpullableReasons[reason] {
				return false, errors.WrapWithContext(errors.ErrCodeImagePull,
					fmt.Sprintf("pod %q can not start: %s", h.Name, reason), stderrors.New(msg),
					map[string]any{"pod": h.Name, "reason": reason})
			}
		}
		return false, nil
	})
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, errors.Wrap(errors.ErrCodeTimeout,
				fmt.Sprintf("pod %q still pending after %s", h.Name, m.opts.ReadyTimeout), err)
		}
		return nil, err
	}

	podReadyDuration.Observe(time.Since(start).Seconds())
	log.Info("pod scheduled", slog.String("phase", string(phase)))

	return &Handle{
		Name:      h.Name,
		Namespace: h.Namespace,
		Phase:     phase,
	}, nil
}

// Delete removes the named Pod and blocks until the API server reports it
// gone. Deleting a Pod that does not exist succeeds. Any other failure is
// reported as ErrCodeDeleteFailed.
func (m *Manager) Delete(ctx context.Context, name string) error {
	log := m.log.With(slog.String("pod", name), slog.String("namespace", m.namespace))
	pods := m.clientset.CoreV1().Pods(m.namespace)

	err := pods.Delete(ctx, name, metav1.DeleteOptions{
		GracePeriodSeconds: ptr.To(int64(m.opts.DeleteGracePeriod / time.Second)),
	})
	if apierrors.IsNotFound(err) {
		podDeleteTotal.WithLabelValues("absent").Inc()
		log.Debug("pod already deleted")
		return nil
	}
	if err != nil {
		podDeleteTotal.WithLabelValues("error").Inc()
		return errors.WrapWithContext(errors.ErrCodeDeleteFailed,
			fmt.Sprintf("failed to delete pod %q", name), err,
			map[string]any{"pod": name, "namespace": m.namespace})
	}

	log.Info("awaiting pod cleanup")

	err = wait.PollUntilContextCancel(ctx, m.opts.DeletePollInterval, true, func(ctx context.Context) (bool, error) {
		_, err := pods.Get(ctx, name, metav1.GetOptions{})
		if apierrors.IsNotFound(err) {
			return true, nil
		}
		return false, err
	})
	if err != nil {
		podDeleteTotal.WithLabelValues("error").Inc()
		return errors.WrapWithContext(errors.ErrCodeDeleteFailed,
			fmt.Sprintf("failed to confirm deletion of pod %q", name), err,
			map[string]any{"pod": name, "namespace": m.namespace})
	}

	podDeleteTotal.WithLabelValues("success").Inc()
	log.Info("pod deleted")
	return nil
}

// Release deletes the Pod behind h like Delete and marks h PhaseDeleted once
// removal is confirmed. h keeps its last observed phase on failure.
func (m *Manager) Release(ctx context.Context, h *Handle) error {
	if err := m.Delete(ctx, h.Name); err != nil {
		return err
	}
	h.Phase = PhaseDeleted
	return nil
}

// waitingReason returns the first waiting reason among the Pod's containers.
func waitingReason(p *corev1.Pod) (string, string) {
	for _, cs := range p.Status.ContainerStatuses {
		if w := cs.State.Waiting; w != nil && w.Reason != "" {
			return w.Reason, w.Message
		}
	}
	return "", ""
}
