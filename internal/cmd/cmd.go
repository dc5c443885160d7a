// Package cmd implements the certmint command line interface.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/certmint/certmint/internal/config"
	"github.com/certmint/certmint/internal/logging"
	"github.com/certmint/certmint/internal/server/data"
)

// Run the main CLI command with the given args. The args should not contain
// the name of the binary (ex: os.Args[1:]).
func Run(ctx context.Context, args ...string) error {
	cli := newCLI(ctx)
	cmd := NewRootCmd(cli)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

type rootOptions struct {
	LogLevel   string
	ConfigFile string
}

func NewRootCmd(cli *CLI) *cobra.Command {
	cobra.EnableCommandSorting = false

	var opts rootOptions

	rootCmd := &cobra.Command{
		Use:               "certmint",
		Short:             "Issue, track, and distribute TLS certificates",
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return logging.SetLevel(opts.LogLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(
		newServerCmd(&opts),
		newCertificatesCmd(cli, &opts),
		newStatsCmd(cli, &opts),
		newVersionCmd(cli),
	)

	rootCmd.PersistentFlags().Bool("help", false, "Display help")
	rootCmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config-file", "f", "certmint.yaml", "Server configuration file")
	rootCmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "Log level [error, warn, info, debug]")

	return rootCmd
}

// openDatabase loads the config file and connects to the database it names.
func openDatabase(opts *rootOptions) (*gorm.DB, *config.Config, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, nil, err
	}

	var driver gorm.Dialector
	switch {
	case cfg.PostgresDSN != "":
		driver, err = data.NewPostgresDriver(cfg.PostgresDSN)
	case cfg.DBFile != "":
		driver, err = data.NewSQLiteDriver(cfg.DBFile)
	default:
		err = fmt.Errorf("config: one of dbFile or pgDSN is required")
	}
	if err != nil {
		return nil, nil, err
	}

	db, err := data.NewDB(driver)
	if err != nil {
		return nil, nil, err
	}

	return db, cfg, nil
}
