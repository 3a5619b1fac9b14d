package cli

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/paveg/dispatch/internal/parallel"
	"github.com/paveg/dispatch/internal/render"
	"github.com/spf13/cobra"
)

func newRenderCmd() *cobra.Command {
	var (
		width, height, frames, maxIter int
		zoom                           float64
		outDir                         string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render Mandelbrot frames to PNG, one dispatcher round per frame",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scene := render.DefaultScene()
			scene.MaxIter = maxIter

			r, err := render.NewRenderer(width, height, scene, nil,
				parallel.WithConfig(cfg),
				parallel.WithLogger(logger),
				parallel.WithName("render"))
			if err != nil {
				return fmt.Errorf("create renderer: %w", err)
			}
			defer r.Close()

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Rendering %d frame(s) of %dx%d on %d worker(s)\n", frames, width, height, r.Workers())

			return r.Animate(cmd.Context(), frames, zoom, func(i int, frame *render.Frame) error {
				path := filepath.Join(outDir, fmt.Sprintf("frame-%03d.png", i))
				size, err := writePNG(path, frame)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "  %s  %016x  %s\n", path, frame.Checksum(), humanize.Bytes(size))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&width, "width", 320, "Frame width in pixels")
	cmd.Flags().IntVar(&height, "height", 240, "Frame height in pixels")
	cmd.Flags().IntVar(&frames, "frames", 1, "Number of frames")
	cmd.Flags().IntVar(&maxIter, "max-iter", 256, "Maximum iterations per pixel")
	cmd.Flags().Float64Var(&zoom, "zoom", 1.5, "Zoom factor between frames")
	cmd.Flags().StringVar(&outDir, "out", ".", "Output directory")

	return cmd
}

func writePNG(path string, frame *render.Frame) (uint64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, frame.Image()); err != nil {
		f.Close()
		return 0, fmt.Errorf("encode %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", path, err)
	}
	return uint64(info.Size()), nil //nolint:gosec // file sizes are non-negative
}
