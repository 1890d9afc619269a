package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sydlexius/recfinder/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "recfinder %s (%s)\n", version.Version, version.Commit)
		},
	}
}
