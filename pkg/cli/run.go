/*
Copyright © 2026 The kodman Authors
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
	"k8s.io/utils/ptr"

	"github.com/epics-containers/kodman/pkg/errors"
	"github.com/epics-containers/kodman/pkg/run"
	"github.com/epics-containers/kodman/pkg/serializer"
)

func (a *app) runCmd() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run a command in a new pod",
		ArgsUsage: "IMAGE [COMMAND] [ARG...]",
		Description: `Create a pod from IMAGE, copy volumes into it, run COMMAND with ARGs
and relay its output and exit code.

Flags must come before IMAGE. Everything after IMAGE is passed to the command.

The exit status is the command's. kodman's own failures exit 125 and an
interrupted run exits 130, as with docker run, so a command that itself exits
125 or 130 can only be told apart by the "Error:" or "Interrupted" line kodman
prints on stderr.`,
		// Flag parsing stops at IMAGE, as with docker run.
		StopOnNthArg: ptr.To(1),
		// -e A=1,2 is one variable.
		DisableSliceFlagSeparator: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "rm",
				Usage: "delete the pod when the command exits",
			},
			&cli.StringFlag{
				Name:  "entrypoint",
				Usage: "run this program with COMMAND as its first argument",
			},
			&cli.StringSliceFlag{
				Name:    "volume",
				Aliases: []string{"v"},
				Usage:   "copy a local path into the pod (SRC[:DST[:MODE]])",
			},
			&cli.StringSliceFlag{
				Name:    "env",
				Aliases: []string{"e"},
				Usage:   "set an environment variable (KEY=VALUE, or KEY to pass the local value)",
			},
			&cli.StringFlag{
				Name:    "workdir",
				Aliases: []string{"w"},
				Usage:   "working directory inside the container",
			},
			&cli.BoolFlag{
				Name:    "interactive",
				Aliases: []string{"i"},
				Usage:   "attach stdin to the command",
			},
			&cli.StringFlag{
				Name:  "name",
				Usage: "pod name (default: generated)",
			},
			&cli.StringMapFlag{
				Name:    "label",
				Aliases: []string{"l"},
				Usage:   "add a pod label (KEY=VALUE)",
			},
			&cli.DurationFlag{
				Name:  "ready-timeout",
				Usage: "give up if the pod is still pending after this long (0 waits forever)",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "print the pod manifest instead of running it",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   serializer.StdoutURI,
				Usage:   "write the --dry-run manifest to this file",
			},
			&cli.StringFlag{
				Name:  "format",
				Value: string(serializer.FormatYAML),
				Usage: fmt.Sprintf("manifest format for --dry-run (%s)", strings.Join(serializer.SupportedFormats(), ", ")),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			req, err := a.buildRequestFromCmd(cmd)
			if err != nil {
				return err
			}

			if cmd.IsSet("ready-timeout") {
				a.cfg.ReadyTimeout = cmd.Duration("ready-timeout")
			}

			var format serializer.Format
			if cmd.Bool("dry-run") {
				if format, err = parseOutputFormat(cmd); err != nil {
					return err
				}
			}

			svc, err := a.newService(a.cfg, a.runOptions(), a.log)
			if err != nil {
				return err
			}

			if cmd.Bool("dry-run") {
				p, err := svc.Manifest(req)
				if err != nil {
					return err
				}
				return a.writeManifest(ctx, cmd.String("output"), format, p)
			}

			res, err := svc.Run(ctx, req)
			if err != nil {
				return err
			}
			if res.ExitCode != 0 {
				return cli.Exit("", res.ExitCode)
			}
			return nil
		},
	}
}

// writeManifest serializes p to path, or to the command's stdout for "-".
func (a *app) writeManifest(ctx context.Context, path string, format serializer.Format, p any) error {
	if path == "" || path == serializer.StdoutURI {
		return serializer.NewWriter(format, a.stdout).Serialize(ctx, p)
	}

	w, err := serializer.NewFileWriterOrStdout(format, path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidRequest, "failed to open output", err)
	}
	if err := w.Serialize(ctx, p); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// buildRequestFromCmd maps run's flags and arguments onto a run.Request.
func (a *app) buildRequestFromCmd(cmd *cli.Command) (run.Request, error) {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		return run.Request{}, errors.New(errors.ErrCodeInvalidRequest, `"kodman run" requires at least 1 argument: IMAGE`)
	}

	req := run.Request{
		Image:       args[0],
		Entrypoint:  cmd.String("entrypoint"),
		Volumes:     cmd.StringSlice("volume"),
		Remove:      cmd.Bool("rm"),
		Name:        cmd.String("name"),
		Interactive: cmd.Bool("interactive"),
		Workdir:     cmd.String("workdir"),
		Labels:      cmd.StringMap("label"),
	}
	if len(args) > 1 {
		req.Command = args[1]
		req.Args = args[2:]
	}

	for _, e := range cmd.StringSlice("env") {
		if strings.Contains(e, "=") {
			req.Env = append(req.Env, e)
			continue
		}
		// docker passes a bare KEY through from the caller's environment
		if v, ok := a.lookup(e); ok {
			req.Env = append(req.Env, e+"="+v)
		}
	}

	return req, nil
}
