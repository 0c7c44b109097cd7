/*
Copyright © 2026 The kodman Authors
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/epics-containers/kodman/pkg/errors"
	"github.com/epics-containers/kodman/pkg/run"
)

func (a *app) deleteCmd() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete pods and wait until they are gone",
		ArgsUsage: "NAME...",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			names := cmd.Args().Slice()
			if len(names) == 0 {
				return errors.New(errors.ErrCodeInvalidRequest, `"kodman delete" requires at least 1 argument: NAME`)
			}

			svc, err := a.newService(a.cfg, run.DefaultOptions(), a.log)
			if err != nil {
				return err
			}

			var errs []error
			for _, n := range names {
				if err := svc.Delete(ctx, n); err != nil {
					a.log.Error("failed to delete pod", slog.String("pod", n), slog.String("error", err.Error()))
					errs = append(errs, err)
					continue
				}
				fmt.Fprintln(a.stdout, n)
			}
			return stderrors.Join(errs...)
		},
	}
}
