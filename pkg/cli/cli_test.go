/*
Copyright © 2026 The kodman Authors
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/epics-containers/kodman/pkg/config"
	"github.com/epics-containers/kodman/pkg/errors"
	"github.com/epics-containers/kodman/pkg/run"
)

type fakeService struct {
	requests  []run.Request
	result    run.Result
	runErr    error
	deleted   []string
	deleteErr map[string]error
}

func (f *fakeService) Run(_ context.Context, req run.Request) (run.Result, error) {
	f.requests = append(f.requests, req)
	return f.result, f.runErr
}

func (f *fakeService) Delete(_ context.Context, name string) error {
	if err := f.deleteErr[name]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, name)
	return nil
}

func (f *fakeService) Manifest(req run.Request) (*corev1.Pod, error) {
	f.requests = append(f.requests, req)
	return &corev1.Pod{
		TypeMeta:   metav1.TypeMeta{APIVersion: "v1", Kind: "Pod"},
		ObjectMeta: metav1.ObjectMeta{Name: "preview", Namespace: "ci"},
	}, nil
}

type testApp struct {
	*app
	svc    *fakeService
	cfg    *config.Config
	opts   run.Options
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

// newTestApp returns an app with a fake run engine, an empty config file and
// the given environment.
func newTestApp(t *testing.T, env map[string]string) *testApp {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("namePrefix: test-run\n"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	vars := map[string]string{config.EnvConfig: cfgPath}
	for k, v := range env {
		vars[k] = v
	}

	ta := &testApp{
		svc:    &fakeService{},
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}
	ta.app = newApp(strings.NewReader(""), ta.stdout, ta.stderr, func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	})
	ta.newService = func(cfg *config.Config, opts run.Options, _ *slog.Logger) (service, error) {
		ta.cfg = cfg
		ta.opts = opts
		return ta.svc, nil
	}
	return ta
}

func (ta *testApp) run(args ...string) int {
	return ta.execute(context.Background(), append([]string{"kodman"}, args...))
}

func TestRun_BuildsRequest(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
		want run.Request
	}{
		{
			name: "image and command",
			args: []string{"run", "alpine", "echo", "ok"},
			want: run.Request{Image: "alpine", Command: "echo", Args: []string{"ok"}},
		},
		{
			name: "image only",
			args: []string{"run", "alpine"},
			want: run.Request{Image: "alpine"},
		},
		{
			name: "entrypoint takes command as first argument",
			args: []string{"run", "--rm", "--entrypoint", "sh", "alpine", "-c", "exit 7"},
			want: run.Request{Image: "alpine", Entrypoint: "sh", Command: "-c", Args: []string{"exit 7"}, Remove: true},
		},
		{
			name: "flags after image belong to the command",
			args: []string{"run", "alpine", "ls", "--rm", "-v", "/x"},
			want: run.Request{Image: "alpine", Command: "ls", Args: []string{"--rm", "-v", "/x"}},
		},
		{
			name: "volumes in order",
			args: []string{"run", "-v", "/tmp/a:/a", "--volume", "/tmp/b", "alpine", "true"},
			want: run.Request{Image: "alpine", Command: "true", Volumes: []string{"/tmp/a:/a", "/tmp/b"}},
		},
		{
			name: "environment with commas and passthrough",
			args: []string{"run", "-e", "LIST=a,b", "-e", "FROM_HOST", "-e", "UNSET", "alpine", "env"},
			env:  map[string]string{"FROM_HOST": "value"},
			want: run.Request{Image: "alpine", Command: "env", Env: []string{"LIST=a,b", "FROM_HOST=value"}},
		},
		{
			name: "docker style options",
			args: []string{"run", "-i", "-w", "/work", "--name", "my-run", "--label", "team=controls", "alpine", "cat"},
			want: run.Request{
				Image:       "alpine",
				Command:     "cat",
				Interactive: true,
				Workdir:     "/work",
				Name:        "my-run",
				Labels:      map[string]string{"team": "controls"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestApp(t, tt.env)

			if code := ta.run(tt.args...); code != 0 {
				t.Fatalf("exit code = %d, stderr: %s", code, ta.stderr.String())
			}
			if len(ta.svc.requests) != 1 {
				t.Fatalf("expected 1 request, got %d", len(ta.svc.requests))
			}

			got := ta.svc.requests[0]
			if len(got.Labels) == 0 {
				got.Labels = nil
			}
			if len(got.Volumes) == 0 {
				got.Volumes = nil
			}
			if len(got.Args) == 0 {
				got.Args = nil
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("request = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRun_ExitCodes(t *testing.T) {
	tests := []struct {
		name       string
		result     run.Result
		err        error
		wantCode   int
		wantStderr string
	}{
		{name: "success", wantCode: 0},
		{name: "remote exit code", result: run.Result{ExitCode: 7}, wantCode: 7},
		{
			name:       "fatal error",
			err:        errors.New(errors.ErrCodeCreateFailed, "failed to create pod"),
			wantCode:   ExitCodeFatal,
			wantStderr: "Error: [CREATE_FAILED] failed to create pod",
		},
		{
			name:       "interrupted",
			err:        fmt.Errorf("pod never became ready: %w", context.Canceled),
			wantCode:   ExitCodeInterrupted,
			wantStderr: "Interrupted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestApp(t, nil)
			ta.svc.result = tt.result
			ta.svc.runErr = tt.err

			if code := ta.run("run", "alpine", "true"); code != tt.wantCode {
				t.Errorf("exit code = %d, want %d", code, tt.wantCode)
			}
			if tt.wantStderr != "" && !strings.Contains(ta.stderr.String(), tt.wantStderr) {
				t.Errorf("stderr = %q, want it to contain %q", ta.stderr.String(), tt.wantStderr)
			}
		})
	}
}

func TestRun_RemoteExitMatchingOwnStatus(t *testing.T) {
	for _, code := range []int{ExitCodeFatal, ExitCodeInterrupted} {
		ta := newTestApp(t, nil)
		ta.svc.result = run.Result{ExitCode: code}

		if got := ta.run("run", "alpine", "sh", "-c", fmt.Sprintf("exit %d", code)); got != code {
			t.Errorf("exit code = %d, want %d", got, code)
		}
		if out := ta.stderr.String(); strings.Contains(out, "Error:") || strings.Contains(out, "Interrupted") {
			t.Errorf("remote exit %d printed kodman's own status: %q", code, out)
		}
	}
}

func TestRun_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "missing image", args: []string{"run"}},
		{name: "unknown flag", args: []string{"run", "--bogus", "alpine"}},
		{name: "bad dry-run format", args: []string{"run", "--dry-run", "--format", "xml", "alpine"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestApp(t, nil)
			if code := ta.run(tt.args...); code != ExitCodeFatal {
				t.Errorf("exit code = %d, want %d", code, ExitCodeFatal)
			}
			if len(ta.svc.requests) != 0 {
				t.Errorf("expected no requests, got %+v", ta.svc.requests)
			}
		})
	}
}

func TestRun_DryRun(t *testing.T) {
	ta := newTestApp(t, nil)
	if code := ta.run("run", "--dry-run", "alpine", "echo", "ok"); code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, ta.stderr.String())
	}
	if !strings.Contains(ta.stdout.String(), "kind: Pod") {
		t.Errorf("expected YAML manifest, got %q", ta.stdout.String())
	}

	ta = newTestApp(t, nil)
	if code := ta.run("run", "--dry-run", "--format", "json", "alpine"); code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, ta.stderr.String())
	}
	if !strings.Contains(ta.stdout.String(), `"kind": "Pod"`) {
		t.Errorf("expected JSON manifest, got %q", ta.stdout.String())
	}
}

func TestRun_DryRunOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pod.yaml")
	ta := newTestApp(t, nil)
	if code := ta.run("run", "--dry-run", "-o", path, "alpine", "true"); code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, ta.stderr.String())
	}
	if ta.stdout.Len() != 0 {
		t.Errorf("stdout = %q, want nothing", ta.stdout.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading manifest: %v", err)
	}
	if !strings.Contains(string(data), "kind: Pod") {
		t.Errorf("expected YAML manifest in file, got %q", data)
	}

	ta = newTestApp(t, nil)
	if code := ta.run("run", "--dry-run", "-o", "/nonexistent/dir/pod.yaml", "alpine"); code != ExitCodeFatal {
		t.Errorf("exit code = %d, want %d", code, ExitCodeFatal)
	}
}

func TestRun_Configuration(t *testing.T) {
	ta := newTestApp(t, map[string]string{
		config.EnvNamespace:            "from-env",
		config.EnvNameCollisionRetries: "2",
	})

	code := ta.run("--namespace", "from-flag", "--kubeconfig", "/tmp/kubeconfig",
		"run", "--ready-timeout", "30s", "alpine", "true")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, ta.stderr.String())
	}

	if ta.cfg.Namespace != "from-flag" {
		t.Errorf("Namespace = %q, want from-flag", ta.cfg.Namespace)
	}
	if ta.cfg.Kubeconfig != "/tmp/kubeconfig" {
		t.Errorf("Kubeconfig = %q", ta.cfg.Kubeconfig)
	}
	if ta.cfg.ReadyTimeout != 30*time.Second {
		t.Errorf("ReadyTimeout = %s, want 30s", ta.cfg.ReadyTimeout)
	}
	if ta.opts.NamePrefix != "test-run" {
		t.Errorf("NamePrefix = %q, want test-run from the config file", ta.opts.NamePrefix)
	}
	if ta.opts.NameCollisionRetries != 2 {
		t.Errorf("NameCollisionRetries = %d, want 2", ta.opts.NameCollisionRetries)
	}
	if ta.opts.Stdout != ta.stdout {
		t.Error("command output should go to stdout")
	}
}

func TestRun_MetricsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kodman.prom")
	ta := newTestApp(t, nil)

	if code := ta.run("--metrics-file", path, "run", "alpine", "true"); code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, ta.stderr.String())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	if !strings.Contains(string(data), "kodman_run_exit_code") {
		t.Errorf("unexpected metrics:\n%s", data)
	}
}

func TestDelete(t *testing.T) {
	ta := newTestApp(t, nil)
	if code := ta.run("delete", "pod-a", "pod-b"); code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, ta.stderr.String())
	}
	if !reflect.DeepEqual(ta.svc.deleted, []string{"pod-a", "pod-b"}) {
		t.Errorf("deleted = %v", ta.svc.deleted)
	}
	if ta.stdout.String() != "pod-a\npod-b\n" {
		t.Errorf("stdout = %q", ta.stdout.String())
	}
}

func TestDelete_PartialFailure(t *testing.T) {
	ta := newTestApp(t, nil)
	ta.svc.deleteErr = map[string]error{"pod-a": stderrors.New("forbidden")}

	if code := ta.run("rm", "pod-a", "pod-b"); code != ExitCodeFatal {
		t.Errorf("exit code = %d, want %d", code, ExitCodeFatal)
	}
	if !reflect.DeepEqual(ta.svc.deleted, []string{"pod-b"}) {
		t.Errorf("deleted = %v, want remaining pods still deleted", ta.svc.deleted)
	}
}

func TestDelete_NoNames(t *testing.T) {
	ta := newTestApp(t, nil)
	if code := ta.run("delete"); code != ExitCodeFatal {
		t.Errorf("exit code = %d, want %d", code, ExitCodeFatal)
	}
}

func TestVersion(t *testing.T) {
	ta := newTestApp(t, nil)
	if code := ta.run("version"); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.HasPrefix(ta.stdout.String(), "kodman version dev\n") {
		t.Errorf("stdout = %q", ta.stdout.String())
	}
}

func TestUnknownCommand(t *testing.T) {
	ta := newTestApp(t, nil)
	if code := ta.run("rnu", "alpine"); code != ExitCodeFatal {
		t.Errorf("exit code = %d, want %d", code, ExitCodeFatal)
	}
	if !strings.Contains(ta.stderr.String(), "Did you mean this?\n\trun") {
		t.Errorf("stderr = %q", ta.stderr.String())
	}
	if len(ta.svc.requests) != 0 {
		t.Error("unknown command must not run anything")
	}
}

func TestHelp_ListsEnvironment(t *testing.T) {
	ta := newTestApp(t, map[string]string{config.EnvNamespace: "team-a"})
	if code := ta.run("--help"); code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, ta.stderr.String())
	}

	out := ta.stdout.String()
	for _, want := range []string{"ENVIRONMENT VARIABLES:", "KODMAN_NAMESPACE  string  (current: team-a)", "KODMAN_DEBUG  bool"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output missing %q:\n%s", want, out)
		}
	}
}
