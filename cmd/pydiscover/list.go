// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"sort"

	"github.com/git-pkgs/vers"
	"github.com/spf13/cobra"

	"pydiscover/pkg/discovery"
)

var listSpec string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every interpreter on this host, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := buildLogger()
		found, err := discovery.List(cmd.Context(), listSpec, buildOptions(logger))
		if err != nil {
			return fmt.Errorf("%s", formatErrorForDisplay(err, verbose))
		}
		if len(found) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), SubtitleStyle.Render("no interpreters found"))
			return nil
		}

		sort.SliceStable(found, func(i, j int) bool {
			return vers.Compare(found[i].VersionInfo.VersionText(), found[j].VersionInfo.VersionText()) > 0
		})
		for _, info := range found {
			fmt.Fprintln(cmd.OutOrStdout(),
				SuccessStyle.Render(info.Spec())+" "+PathStyle.Render(info.Executable))
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listSpec, "spec", "python", "restrict the listing to interpreters satisfying this spec")
}
