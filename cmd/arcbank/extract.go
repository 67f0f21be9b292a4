package main

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jchantrell/arcbank/internal/arc"
	"github.com/jchantrell/arcbank/internal/binio"
	"github.com/jchantrell/arcbank/internal/catalog"
	"github.com/jchantrell/arcbank/internal/scene"
	"github.com/jchantrell/arcbank/internal/texel"
)

var extractCmd = &cobra.Command{
	Use:   "extract [files or directories...]",
	Short: "Convert ARC banks into glTF scenes and loose files",
	Long: `Extract decodes every ARC bank it is given. Models, skeletons, materials
and animations are assembled into <bank>.glb with textures embedded; every
other entry and every texture no material uses is written as a loose file
under a folder named after the bank.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := collect(args, cfg.Filters.ARC)
		if err != nil {
			return fmt.Errorf("collecting inputs: %w", err)
		}

		cache := texel.NewCache(cfg.TextureCacheSize)
		defer cache.LogStats()

		return runBatch(cmd.Context(), "arc", files, func(j *job) error {
			return extractBank(j, cache)
		})
	},
}

func extractBank(j *job, cache *texel.Cache) error {
	f, err := binio.OpenFile(j.path)
	if err != nil {
		return fmt.Errorf("opening bank: %w", err)
	}
	defer f.Close()

	a, err := arc.Open(f.Reader)
	if err != nil {
		return err
	}
	recordEntries(j.record, a)

	b := scene.NewBuilder(a, scene.Options{
		TextureFormat: cfg.TextureFormat,
		Cache:         cache,
	})
	err = b.Build()
	j.addWarnings(b.Warnings())
	if err != nil {
		return err
	}

	name := baseName(j.path)
	if b.HasContent() {
		var buf bytes.Buffer
		if err := b.Document().Finalize(&buf); err != nil {
			return fmt.Errorf("encoding scene: %w", err)
		}
		if err := j.out.WriteFile(name+".glb", buf.Bytes()); err != nil {
			return err
		}
	}

	loose, err := j.out.Sub(name)
	if err != nil {
		return err
	}
	n, err := b.WriteLoose(loose)
	if err != nil {
		return fmt.Errorf("writing loose files: %w", err)
	}

	slog.Debug("Extracted bank", "path", j.path, "scene", b.HasContent(), "loose", n, "warnings", len(b.Warnings()))
	return nil
}

// recordEntries copies the bank's entry table onto its catalog record.
func recordEntries(rec *catalog.Archive, a *arc.Archive) {
	rec.Platform = a.Header.Platform().String()
	rec.Version = int(a.Header.Version())
	for i, e := range a.Entries {
		rec.Entries = append(rec.Entries, catalog.Entry{
			Index:  i,
			Type:   e.Type.Label(),
			Name:   a.QualifiedName(i),
			Offset: int64(e.Offset),
			Size:   int64(e.Size()),
		})
	}
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

