package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func cameraCmd(g *globalFlags) *cobra.Command {
	var (
		out    string
		frames int
	)

	cmd := &cobra.Command{
		Use:     "camera <identifier>",
		Short:   "Save CCTV frames as JPEG files",
		Example: `  rustplus camera DOME1 --frames 3 --out shots`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if frames < 1 {
				return errors.New("--frames must be positive")
			}
			if err := os.MkdirAll(out, 0o755); err != nil {
				return errors.Wrap(err, "create output dir")
			}

			s, err := openSession(g)
			if err != nil {
				return err
			}
			defer s.Close()

			cam := s.rp.GetCamera(args[0])
			for i := 0; i < frames; i++ {
				f, err := cam.NextFrame(s.ctx)
				if err != nil {
					return errors.Wrapf(err, "camera %s frame %d", cam.ID(), cam.LastFrame()+1)
				}
				name := filepath.Join(out, fmt.Sprintf("%s_%04d.jpg", cam.ID(), f.Frame))
				if err := os.WriteFile(name, f.JpgImage, 0o644); err != nil {
					return errors.Wrap(err, "write frame")
				}
				s.log.Debug("frame saved", zap.String("file", name), zap.Int("bytes", len(f.JpgImage)))
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", ".", "Output directory")
	cmd.Flags().IntVarP(&frames, "frames", "n", 1, "Number of frames to fetch")
	return cmd
}
