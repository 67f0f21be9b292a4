package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jchantrell/arcbank/internal/lda"
)

var ldaCmd = &cobra.Command{
	Use:   "lda2txt [files or directories...]",
	Short: "Convert LDA string tables to text",
	Long: `Lda2txt converts lda0 (8 bit) and lda1 (UTF-16) string tables into
<table>.txt, one UTF-8 line per string.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := collect(args, cfg.Filters.LDA)
		if err != nil {
			return fmt.Errorf("collecting inputs: %w", err)
		}
		return runBatch(cmd.Context(), "lda", files, convertTable)
	},
}

func convertTable(j *job) error {
	data, err := os.ReadFile(j.path)
	if err != nil {
		return fmt.Errorf("reading table: %w", err)
	}

	items, err := lda.Decode(data)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := lda.WriteText(&buf, items); err != nil {
		return err
	}
	return j.out.WriteFile(baseName(j.path)+".txt", buf.Bytes())
}

func init() {
	rootCmd.AddCommand(ldaCmd)
}
