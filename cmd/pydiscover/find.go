// SPDX-License-Identifier: MPL-2.0

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"pydiscover/pkg/discovery"
	"pydiscover/pkg/pyinfo"
)

var findJSON bool

var findCmd = &cobra.Command{
	Use:   "find <spec>...",
	Short: "Find the first interpreter satisfying any spec",
	Long: `Find tries each spec in order and returns the first interpreter that
satisfies one. A spec is a structured token (python3.12, pypy3.9,
python3.13t-64-arm64), a version range (">=3.11,<3.13"), or a path.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := buildLogger()
		info, err := discovery.Discover(cmd.Context(), args, buildOptions(logger))
		if err != nil {
			return fmt.Errorf("%s", formatErrorForDisplay(err, verbose))
		}
		if info == nil {
			fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("no interpreter satisfies ")+fmt.Sprintf("%v", args))
			// Absent is an outcome, not a usage error; signal via exit code.
			cmd.SilenceUsage = true
			return fmt.Errorf("discovery exhausted")
		}
		return printInfo(cmd, info, findJSON)
	},
}

func init() {
	findCmd.Flags().BoolVar(&findJSON, "json", false, "print the full metadata record as JSON")
}

// printInfo renders one interpreter, either as a styled summary line or the
// complete JSON record.
func printInfo(cmd *cobra.Command, info *pyinfo.Info, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(),
		SuccessStyle.Render(info.Spec())+" "+PathStyle.Render(info.Executable))
	return nil
}
