// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pydiscover/pkg/pyinfo"
)

var infoCmd = &cobra.Command{
	Use:   "info <path>",
	Short: "Probe one executable and print its metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := buildLogger()
		prober := &pyinfo.Prober{
			Cache:   buildCache(),
			Timeout: buildOptions(logger).Timeout,
			Logger:  logger,
		}
		info, err := prober.FromExe(cmd.Context(), args[0])
		if err != nil {
			cmd.SilenceUsage = true
			return fmt.Errorf("probe %s: %w", args[0], err)
		}
		return printInfo(cmd, info, true)
	},
}
