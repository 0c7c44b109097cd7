package run

import (
	"fmt"
	"strings"
	"time"

	"github.com/distribution/reference"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/utils/ptr"

	"github.com/epics-containers/kodman/pkg/defaults"
	"github.com/epics-containers/kodman/pkg/errors"
)

const (
	// ContainerName is the name of the Pod's only container.
	ContainerName = "main"

	LabelManagedBy = "app.kubernetes.io/managed-by"
	LabelRun       = "kodman.io/run"
	managerName    = "kodman"
)

// Placeholder is the entrypoint a Pod idles in until commands are exec'd into it.
type Placeholder struct {
	Command []string
	Args    []string
}

// DefaultPlaceholder sleeps forever and exits cleanly on SIGTERM.
func DefaultPlaceholder() Placeholder {
	return Placeholder{
		Command: []string{"/bin/sh"},
		Args:    []string{"-c", "trap 'exit 0' TERM; while true; do sleep 1; done"},
	}
}

// BuildPod returns the Pod that hosts req under name.
func BuildPod(name string, req Request, ph Placeholder) (*corev1.Pod, error) {
	image, err := normalizeImage(req.Image)
	if err != nil {
		return nil, err
	}
	if len(ph.Command) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "placeholder command must not be empty")
	}

	env, err := parseEnv(req.Env)
	if err != nil {
		return nil, err
	}

	labels := map[string]string{}
	for k, v := range req.Labels {
		if msgs := validation.IsQualifiedName(k); len(msgs) > 0 {
			return nil, errors.New(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("invalid label key %q: %s", k, strings.Join(msgs, "; ")))
		}
		if msgs := validation.IsValidLabelValue(v); len(msgs) > 0 {
			return nil, errors.New(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("invalid label value %q: %s", v, strings.Join(msgs, "; ")))
		}
		labels[k] = v
	}
	labels[LabelManagedBy] = managerName
	labels[LabelRun] = name

	return &corev1.Pod{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "v1",
			Kind:       "Pod",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:   name,
			Labels: labels,
			Annotations: map[string]string{
				ocispec.AnnotationRefName: req.Image,
			},
		},
		Spec: corev1.PodSpec{
			RestartPolicy:                 corev1.RestartPolicyNever,
			TerminationGracePeriodSeconds: ptr.To(int64(defaults.TerminationGracePeriod / time.Second)),
			Containers: []corev1.Container{
				{
					Name:       ContainerName,
					Image:      image,
					Command:    append([]string(nil), ph.Command...),
					Args:       append([]string(nil), ph.Args...),
					Env:        env,
					WorkingDir: req.Workdir,
				},
			},
		},
	}, nil
}

// normalizeImage expands a familiar reference such as "alpine" to its
// canonical form "docker.io/library/alpine:latest".
func normalizeImage(image string) (string, error) {
	named, err := reference.ParseNormalizedNamed(image)
	if err != nil {
		return "", errors.WrapWithContext(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid image reference %q", image), err,
			map[string]any{"image": image})
	}
	return reference.TagNameOnly(named).String(), nil
}

func parseEnv(pairs []string) ([]corev1.EnvVar, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	env := make([]corev1.EnvVar, 0, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, errors.New(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("invalid environment variable %q: expected KEY=VALUE", p))
		}
		if msgs := validation.IsEnvVarName(k); len(msgs) > 0 {
			return nil, errors.New(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("invalid environment variable name %q: %s", k, strings.Join(msgs, "; ")))
		}
		env = append(env, corev1.EnvVar{Name: k, Value: v})
	}
	return env, nil
}
