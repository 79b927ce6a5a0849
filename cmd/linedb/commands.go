package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/kjk/linedb/backup"
	"github.com/kjk/linedb/linedb"
	"github.com/kjk/linedb/u"
	"github.com/spf13/cobra"
)

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	var indent bool
	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Print current records, one per line",
		Long: `Print records of a database file or a snapshot, without changing it.

Snapshots compressed with gzip, zstd, brotli or lz4 are recognized by extension.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := linedb.ReadSnapshot(args[0])
			if err != nil {
				return err
			}
			return linedb.DumpRecords(cmd.OutOrStdout(), records, indent)
		},
	}
	cmd.Flags().BoolVarP(&indent, "indent", "i", false, "pretty-print JSON records")
	return cmd
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <file>",
		Short: "Show number of records and size of the file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			d, err := u.ReadFileMaybeCompressed(path)
			if err != nil {
				return err
			}
			records, err := linedb.ReadSnapshot(path)
			if err != nil {
				return err
			}
			lines := u.CountLines(d)
			size := u.FileSize(path)
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "file:    %s\n", path)
			fmt.Fprintf(w, "size:    %s\n", humanize.Bytes(uint64(size)))
			fmt.Fprintf(w, "lines:   %s\n", humanize.Comma(int64(lines)))
			fmt.Fprintf(w, "records: %s\n", humanize.Comma(int64(len(records))))
			if lines > 0 {
				fmt.Fprintf(w, "garbage: %.1f%%\n", float64(lines-len(records))*100/float64(lines))
			}
			return nil
		},
	}
}

// NewCompactCommand creates the compact command.
func NewCompactCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "compact <file>",
		Short: "Rewrite the file to contain only current records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sizeBefore := u.FileSize(args[0])
			// Open compacts
			s, err := openStore(args[0])
			if err != nil {
				return err
			}
			st := s.Stats()
			if err = s.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "compacted %s: %d records, %s => %s\n", st.Path, st.Records,
				humanize.Bytes(uint64(sizeBefore)), humanize.Bytes(uint64(u.FileSize(st.Path))))
			return nil
		},
	}
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file> <snapshot>",
		Short: "Write current records to a snapshot file",
		Long: `Write current records to a snapshot file.

The snapshot is compressed based on extension: .gz, .zst, .br or .lz4.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			if err = s.Export(args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d records to %s (%s)\n", s.Len(), args[1],
				humanize.Bytes(uint64(u.FileSize(args[1]))))
			return nil
		},
	}
}

func newBackupClient(ctx context.Context, rootOpts *RootOptions) (*backup.Client, *Config, error) {
	config, err := loadConfig(rootOpts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	c, err := backup.New(ctx, &config.Backup)
	if err != nil {
		return nil, nil, err
	}
	return c, config, nil
}

// NewBackupCommand creates the backup command.
func NewBackupCommand(rootOpts *RootOptions) *cobra.Command {
	var prune bool
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "backup <file>",
		Short: "Upload a compressed snapshot to S3-compatible storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			c, config, err := newBackupClient(ctx, rootOpts)
			if err != nil {
				return err
			}
			s, err := openStore(args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			remotePath, err := c.UploadStore(ctx, s)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %d records as %s\n", s.Len(), remotePath)
			if !prune {
				return nil
			}
			n, err := c.Prune(ctx, s.Path(), config.Keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d old snapshots\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&prune, "prune", false, "remove old snapshots, keeping the number set in config")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "max time for the whole operation")
	return cmd
}

// NewRestoreCommand creates the restore command.
func NewRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	var remotePath string
	var list bool
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Replace a file with a snapshot from S3-compatible storage",
		Long: `Replace a file with a snapshot from S3-compatible storage.

Without --remote the most recent snapshot is used. The file must not be open.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			c, _, err := newBackupClient(ctx, rootOpts)
			if err != nil {
				return err
			}
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if list {
				snapshots, err := c.List(ctx, path)
				if err != nil {
					return err
				}
				for _, s := range snapshots {
					fmt.Fprintf(w, "%s %8s %s\n", s.RemotePath, humanize.Bytes(uint64(s.Size)), humanize.Time(s.LastModified))
				}
				return nil
			}
			if remotePath == "" {
				latest, err := c.Latest(ctx, path)
				if err != nil {
					return err
				}
				remotePath = latest.RemotePath
			}
			n, err := c.Restore(ctx, remotePath, path)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "restored %d records from %s to %s\n", n, remotePath, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&remotePath, "remote", "", "remote path of the snapshot")
	cmd.Flags().BoolVarP(&list, "list", "l", false, "only list available snapshots")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "max time for the whole operation")
	return cmd
}
