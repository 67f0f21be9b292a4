package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jchantrell/arcbank/internal/arc"
	"github.com/jchantrell/arcbank/internal/binio"
	"github.com/jchantrell/arcbank/internal/discover"
	"github.com/jchantrell/arcbank/internal/gltf"
	"github.com/jchantrell/arcbank/internal/scene"
)

var animCmd = &cobra.Command{
	Use:   "anim [files or directories...]",
	Short: "Apply ARC animation banks to existing glTF scenes",
	Long: `Anim loads every .glb scene among the inputs and adds the animations of
every ARC bank among the inputs, binding channels to scene nodes by name.
Scenes that gained at least one animation are written as <scene>_out.glb.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := collect(args, append(append([]string(nil), cfg.Filters.GLB...), cfg.Filters.ARC...))
		if err != nil {
			return fmt.Errorf("collecting inputs: %w", err)
		}

		scenes, banks := discover.Split(files, discover.MustFilter(cfg.Filters.GLB...), discover.MustFilter(cfg.Filters.ARC...))
		if len(scenes) > 0 && len(banks) == 0 {
			return fmt.Errorf("no animation banks among the inputs")
		}

		clips, failed := loadClips(banks)
		if failed > 0 {
			slog.Warn("Some animation banks could not be read", "failed", failed, "total", len(banks))
		}

		return runBatch(cmd.Context(), "glb", scenes, func(j *job) error {
			return animateScene(j, clips)
		})
	},
}

type bankClips struct {
	path     string
	clips    []*scene.Clip
	warnings []scene.Warning
}

// loadClips reads every bank once. Banks that fail to decode are logged
// and counted, and the scenes are animated with the rest.
func loadClips(banks []string) ([]bankClips, int) {
	var out []bankClips
	failed := 0
	for _, path := range banks {
		bank, err := loadBank(path)
		if err != nil {
			slog.Error("Failed to read animation bank", "path", path, "error", err)
			failed++
			continue
		}
		slog.Debug("Read animation bank", "path", path, "animations", len(bank.clips))
		out = append(out, bank)
	}
	return out, failed
}

func loadBank(path string) (bankClips, error) {
	f, err := binio.OpenFile(path)
	if err != nil {
		return bankClips{}, err
	}
	defer f.Close()

	a, err := arc.Open(f.Reader)
	if err != nil {
		return bankClips{}, err
	}
	clips, ws, err := scene.ReadClips(a)
	if err != nil {
		return bankClips{}, err
	}
	return bankClips{path: path, clips: clips, warnings: ws}, nil
}

func animateScene(j *job, banks []bankClips) error {
	data, err := os.ReadFile(j.path)
	if err != nil {
		return fmt.Errorf("reading scene: %w", err)
	}
	doc, err := gltf.Load(bytes.NewReader(data))
	if err != nil {
		return err
	}

	an := scene.NewAnimator(doc)
	for _, bank := range banks {
		j.addWarnings(bank.warnings)
		for _, clip := range bank.clips {
			if err := an.Add(clip); err != nil {
				return fmt.Errorf("bank %s: %w", bank.path, err)
			}
		}
	}
	j.addWarnings(an.Warnings())

	if len(doc.Animations) == 0 {
		return fmt.Errorf("no animations: %w", errSkipped)
	}

	var buf bytes.Buffer
	if err := doc.Finalize(&buf); err != nil {
		return fmt.Errorf("encoding scene: %w", err)
	}
	return j.out.WriteFile(baseName(j.path)+"_out.glb", buf.Bytes())
}

func init() {
	rootCmd.AddCommand(animCmd)
}
