/*
Copyright © 2026 The kodman Authors
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
	corev1 "k8s.io/api/core/v1"

	"github.com/epics-containers/kodman/pkg/config"
	"github.com/epics-containers/kodman/pkg/errors"
	"github.com/epics-containers/kodman/pkg/k8s/client"
	"github.com/epics-containers/kodman/pkg/k8s/exec"
	"github.com/epics-containers/kodman/pkg/k8s/pod"
	"github.com/epics-containers/kodman/pkg/logging"
	"github.com/epics-containers/kodman/pkg/run"
)

const name = "kodman"

// Set at build time with -ldflags "-X github.com/epics-containers/kodman/pkg/cli.version=...".
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Exit statuses for failures of kodman itself, following docker run.
const (
	ExitCodeFatal       = 125
	ExitCodeInterrupted = 130
)

// envHelpTemplate appends the environment variable listing to the root help.
const envHelpTemplate = `{{with index .Metadata "environment"}}
{{.}}{{end}}`

// service is what the commands need from the run engine.
type service interface {
	Run(ctx context.Context, req run.Request) (run.Result, error)
	Delete(ctx context.Context, name string) error
	Manifest(req run.Request) (*corev1.Pod, error)
}

type serviceFactory func(cfg *config.Config, opts run.Options, log *slog.Logger) (service, error)

// app holds one invocation's streams and the state its Before hook resolves.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	lookup config.LookupFunc
	env    *config.Environment

	newService serviceFactory

	cfg    *config.Config
	log    *slog.Logger
	status *logging.StatusHandler
}

func newApp(stdin io.Reader, stdout, stderr io.Writer, lookup config.LookupFunc) *app {
	return &app{
		stdin:      stdin,
		stdout:     stdout,
		stderr:     stderr,
		lookup:     lookup,
		env:        config.NewEnvironment(lookup),
		newService: newClusterService,
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Execute runs the CLI with args (including the program name) and returns
// the process exit status.
func Execute(ctx context.Context, args []string) int {
	return newApp(os.Stdin, os.Stdout, os.Stderr, os.LookupEnv).execute(ctx, args)
}

func (a *app) execute(ctx context.Context, args []string) int {
	err := a.rootCmd().Run(ctx, args)
	a.finish()
	return a.exitCode(ctx, err)
}

func (a *app) rootCmd() *cli.Command {
	config.Describe(a.env)

	return &cli.Command{
		Name:    name,
		Usage:   "Run docker-style commands as Kubernetes Pods",
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		Reader:  a.stdin,
		Writer:  a.stdout,
		// exitCode reports errors and picks the status.
		ErrWriter:                     a.stderr,
		ExitErrHandler:                func(context.Context, *cli.Command, error) {},
		DisableSliceFlagSeparator:     true,
		EnableShellCompletion:         true,
		Suggest:                       true,
		CustomRootCommandHelpTemplate: cli.RootCommandHelpTemplate + envHelpTemplate,
		Metadata:                      map[string]any{"environment": a.env.Usage()},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
			&cli.BoolFlag{
				Name:  "log-json",
				Usage: "log as JSON to stderr",
			},
			&cli.StringFlag{
				Name:  "kubeconfig",
				Usage: "path to the kubeconfig file",
			},
			&cli.StringFlag{
				Name:    "namespace",
				Aliases: []string{"n"},
				Usage:   "namespace to run pods in",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to the kodman config file",
			},
			&cli.StringFlag{
				Name:  "metrics-file",
				Usage: "write Prometheus metrics to this file on exit",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, a.setup(cmd)
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if !cmd.Args().Present() {
				return cli.ShowRootCommandHelp(cmd)
			}
			provided := cmd.Args().First()
			msg := fmt.Sprintf("unknown command %q for %q", provided, name)
			if s := suggestCommand(cmd.Commands, provided); s != "" {
				msg += fmt.Sprintf("\n\nDid you mean this?\n\t%s", s)
			}
			return errors.New(errors.ErrCodeInvalidRequest, msg)
		},
		Commands: []*cli.Command{
			a.runCmd(),
			a.deleteCmd(),
			a.versionCmd(),
		},
	}
}

// setup resolves the configuration and builds the logger.
func (a *app) setup(cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"), a.env)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidRequest, "failed to load configuration", err)
	}
	if cmd.IsSet("debug") {
		cfg.Debug = cmd.Bool("debug")
	}
	if cmd.IsSet("log-json") {
		cfg.LogJSON = cmd.Bool("log-json")
	}
	if cmd.IsSet("kubeconfig") {
		cfg.Kubeconfig = cmd.String("kubeconfig")
	}
	if cmd.IsSet("namespace") {
		cfg.Namespace = cmd.String("namespace")
	}
	if cmd.IsSet("metrics-file") {
		cfg.MetricsFile = cmd.String("metrics-file")
	}
	a.cfg = cfg

	level := logging.ParseLogLevel(cfg.LogLevel)
	if cfg.Debug {
		level = slog.LevelDebug
	}

	switch {
	case cfg.LogJSON:
		a.log = logging.NewLogger(a.stderr, logging.Options{Level: level, Format: logging.FormatJSON}).
			With(slog.String("name", name), slog.String("version", version))
	case cfg.Debug:
		a.log = logging.NewLogger(a.stderr, logging.Options{Level: level, Format: logging.FormatText})
	case isTerminal(a.stderr):
		a.status = logging.NewStatusHandler(a.stderr, level)
		a.log = slog.New(a.status)
	default:
		a.log = logging.NewLogger(a.stderr, logging.Options{Level: max(level, slog.LevelWarn), Format: logging.FormatText})
	}
	slog.SetDefault(a.log)

	a.log.Debug("configuration loaded",
		slog.String("namespace", cfg.Namespace),
		slog.String("namePrefix", cfg.NamePrefix),
		slog.Duration("readyTimeout", cfg.ReadyTimeout))
	return nil
}

// runOptions returns the run engine settings for the resolved configuration.
func (a *app) runOptions() run.Options {
	opts := run.DefaultOptions()
	opts.NamePrefix = a.cfg.NamePrefix
	opts.NameCollisionRetries = a.cfg.NameCollisionRetries
	opts.ExtractCommand = a.cfg.ExtractCommand
	opts.ExecFlushInterval = a.cfg.ExecFlushInterval
	opts.CleanupTimeout = a.cfg.CleanupTimeout
	opts.Stdin = a.stdin
	opts.Stdout = a.stdout
	opts.Stderr = a.stderr
	if a.status != nil {
		opts.Stdout = a.status.Writer(a.stdout)
		opts.Stderr = a.status.Writer(a.stderr)
	}
	return opts
}

// finish clears the status line and exports metrics.
func (a *app) finish() {
	if a.status != nil {
		a.status.Clear()
	}
	if a.cfg == nil || a.cfg.MetricsFile == "" {
		return
	}
	if err := prometheus.WriteToTextfile(a.cfg.MetricsFile, prometheus.DefaultGatherer); err != nil {
		a.log.Warn("failed to write metrics", slog.String("path", a.cfg.MetricsFile), slog.String("error", err.Error()))
	}
}

// exitCode maps the outcome of the command tree to a process exit status.
func (a *app) exitCode(ctx context.Context, err error) int {
	if err == nil {
		return 0
	}

	var exitErr cli.ExitCoder
	if stderrors.As(err, &exitErr) {
		if msg := exitErr.Error(); msg != "" {
			fmt.Fprintln(a.stderr, msg)
		}
		return exitErr.ExitCode()
	}

	if stderrors.Is(err, context.Canceled) || ctx.Err() != nil {
		fmt.Fprintln(a.stderr, "Interrupted")
		return ExitCodeInterrupted
	}

	a.log.Debug("command failed", slog.String("code", string(errors.CodeOf(err))))
	fmt.Fprintf(a.stderr, "Error: %v\n", err)
	return ExitCodeFatal
}

func newClusterService(cfg *config.Config, opts run.Options, log *slog.Logger) (service, error) {
	clients, err := client.BuildKubeClient(cfg.Kubeconfig, cfg.Namespace)
	if err != nil {
		return nil, err
	}

	pods := pod.NewManager(clients.Clientset, clients.Namespace, pod.Options{
		ReadyPollInterval:  cfg.ReadyPollInterval,
		ReadyTimeout:       cfg.ReadyTimeout,
		DeleteGracePeriod:  cfg.DeleteGracePeriod,
		DeletePollInterval: cfg.DeletePollInterval,
	}, log)
	opener := &exec.ClusterOpener{Clientset: clients.Clientset, Config: clients.RestConfig}

	return run.NewRunner(pods, opener, opts, log), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && logging.IsTerminal(f)
}
