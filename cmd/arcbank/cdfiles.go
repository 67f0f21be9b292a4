package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jchantrell/arcbank/internal/binio"
	"github.com/jchantrell/arcbank/internal/catalog"
	"github.com/jchantrell/arcbank/internal/cdfiles"
)

var cdfilesCmd = &cobra.Command{
	Use:   "cdfiles [files or directories...]",
	Short: "Unpack the files listed by CDFILES indexes",
	Long: `Cdfiles reads CDFILES index archives and copies every file they list out
of the data blobs stored next to the index. Extracted banks get the index
version stamped into their header.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := collect(args, cfg.Filters.CDFiles)
		if err != nil {
			return fmt.Errorf("collecting inputs: %w", err)
		}
		return runBatch(cmd.Context(), "cdfiles", files, extractIndex)
	},
}

func extractIndex(j *job) error {
	f, err := binio.OpenFile(j.path)
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	idx, err := cdfiles.Parse(f.Reader)
	f.Close()
	if err != nil {
		return err
	}

	j.record.Platform = string(idx.Platform)
	j.record.Version = int(idx.Version)
	for i, file := range idx.Files {
		j.record.Entries = append(j.record.Entries, catalog.Entry{
			Index:  i,
			Type:   "stream_file",
			Name:   file.Name,
			Offset: file.Offset,
			Size:   file.Size,
		})
	}

	out, err := j.out.Sub(baseName(j.path))
	if err != nil {
		return err
	}
	n, err := cdfiles.Extract(idx, cdfiles.DirOpener{Dir: filepath.Dir(j.path)}, out)
	if err != nil {
		return err
	}

	slog.Debug("Extracted index", "path", j.path, "version", idx.Version, "platform", idx.Platform, "files", n)
	return nil
}

func init() {
	rootCmd.AddCommand(cdfilesCmd)
}
