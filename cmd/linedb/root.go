package main

import (
	"fmt"
	"os"

	"github.com/kjk/linedb/backup"
	"github.com/kjk/linedb/linedb"
	"github.com/kjk/linedb/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	// dir for daily log files, empty means stdout only
	LogDir string
	// YAML file with backup credentials
	ConfigPath string
}

// NewRootCommand creates the root command for the linedb CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "linedb",
		Short: "inspect and maintain linedb files",
		Long: `linedb operates on append-only line database files.

A file must not be used by another process while a command runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log.Verbose = opts.Verbose
			if opts.LogDir != "" {
				log.Init(&log.Config{Dir: opts.LogDir})
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.LogDir, "log-dir", "", "write logs and events to daily files in this dir")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "linedb.yaml", "YAML file with backup storage config")

	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewCompactCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewBackupCommand(opts))
	cmd.AddCommand(NewRestoreCommand(opts))

	return cmd
}

// Config is the content of the --config file
type Config struct {
	Backup backup.Config `yaml:"backup"`
	// number of snapshots kept by backup --prune
	Keep int `yaml:"keep"`
}

func loadConfig(path string) (*Config, error) {
	d, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var c Config
	if err = yaml.Unmarshal(d, &c); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if c.Keep <= 0 {
		c.Keep = 7
	}
	// allow secrets outside of the file
	if s := os.Getenv("LINEDB_BACKUP_SECRET"); s != "" {
		c.Backup.Secret = s
	}
	return &c, nil
}

func openStore(path string) (*linedb.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return linedb.Open(path, nil)
}
