package main

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jchantrell/arcbank/internal/arc"
	"github.com/jchantrell/arcbank/internal/arcn"
	"github.com/jchantrell/arcbank/internal/binio"
)

var decompressCmd = &cobra.Command{
	Use:   "decompress [files or directories...]",
	Short: "Decompress GameCube ARCN banks",
	Long: `Decompress unpacks the LZO1X body of ARCN banks into <bank>.arcd, keeping
the fixed header and zeroing the compression header. Banks stored without
compression are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := collect(args, cfg.Filters.ARCN)
		if err != nil {
			return fmt.Errorf("collecting inputs: %w", err)
		}
		return runBatch(cmd.Context(), "arcn", files, decompressBank)
	},
}

func decompressBank(j *job) error {
	f, err := binio.OpenFile(j.path)
	if err != nil {
		return fmt.Errorf("opening bank: %w", err)
	}
	defer f.Close()

	j.record.Platform = arc.PlatformGC.String()

	var buf bytes.Buffer
	_, err = arcn.Decompress(f.Reader, &buf)
	if errors.Is(err, arcn.ErrNotCompressed) {
		return fmt.Errorf("%w: %w", errSkipped, err)
	}
	if err != nil {
		return err
	}

	return j.out.WriteFile(baseName(j.path)+".arcd", buf.Bytes())
}

func init() {
	rootCmd.AddCommand(decompressCmd)
}
