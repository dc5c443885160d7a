package cmd

import (
	"github.com/spf13/cobra"

	"github.com/certmint/certmint/internal/version"
)

func newVersionCmd(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display the certmint version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli.Output("certmint version %s", version.GetFormattedVersion())
			return nil
		},
	}
}
