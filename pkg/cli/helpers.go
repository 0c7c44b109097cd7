/*
Copyright © 2026 The kodman Authors
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/urfave/cli/v3"

	"github.com/epics-containers/kodman/pkg/serializer"
)

// maxSuggestionDistance is the largest edit distance for which a command is
// suggested.
const maxSuggestionDistance = 2

// parseOutputFormat extracts and validates the output format from CLI flags.
func parseOutputFormat(cmd *cli.Command) (serializer.Format, error) {
	outFormat := serializer.Format(cmd.String("format"))
	if outFormat.IsUnknown() {
		return "", fmt.Errorf("unknown output format: %q, valid formats are: %s",
			outFormat, strings.Join(serializer.SupportedFormats(), ", "))
	}
	return outFormat, nil
}

// suggestCommand returns the visible command name closest to provided, or ""
// if none is close enough.
func suggestCommand(commands []*cli.Command, provided string) string {
	best := ""
	bestDistance := maxSuggestionDistance + 1
	for _, c := range commands {
		if c.Hidden {
			continue
		}
		for _, name := range c.Names() {
			if d := levenshtein.ComputeDistance(provided, name); d < bestDistance {
				best, bestDistance = c.Name, d
			}
		}
	}
	return best
}
