package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/clipframe/clipframe-extraction-service/internal/infra/imageio"
	"github.com/clipframe/clipframe-extraction-service/internal/infra/opencv"
	"github.com/clipframe/clipframe-extraction-service/internal/usecase"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		outputDir    string
		sampleStride int
		jpegQuality  int
	)

	root := &cobra.Command{
		Use:           "clipframe",
		Short:         "Extract representative still frames from a video file",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&outputDir, "output", "o", "./keyframes", "output directory for extracted frames")
	root.PersistentFlags().IntVar(&sampleStride, "sample-stride", usecase.DefaultSampleStride, "evaluate every Nth frame during scene scanning")
	root.PersistentFlags().IntVar(&jpegQuality, "quality", usecase.DefaultJPEGQuality, "JPEG quality for saved frames")

	newEngine := func() *usecase.Engine {
		return usecase.NewEngine(
			opencv.NewSource(),
			imageio.NewWriter(jpegQuality),
			usecase.EngineConfig{SampleStride: sampleStride},
		)
	}

	var (
		threshold    float64
		maxKeyframes int
	)
	scenes := &cobra.Command{
		Use:   "scenes <video>",
		Short: "Detect scene changes and save one keyframe per scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := newEngine().ExtractScenes(cmd.Context(), args[0], outputDir, threshold, maxKeyframes)
			if err != nil {
				return err
			}
			return printJSON(cmd, manifest)
		},
	}
	scenes.Flags().Float64VarP(&threshold, "threshold", "t", usecase.DefaultThreshold, "scene detection threshold (0.0-1.0, lower detects more scenes)")
	scenes.Flags().IntVarP(&maxKeyframes, "max-frames", "m", usecase.DefaultMaxKeyframes, "maximum number of keyframes to extract")
	root.AddCommand(scenes)

	var (
		timestampList string
		perTimestamp  int
	)
	timestamps := &cobra.Command{
		Use:   "timestamps <video>",
		Short: "Extract a window of frames around specific timestamps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := parseTimestamps(timestampList)
			if err != nil {
				return err
			}
			manifest, err := newEngine().ExtractAtTimestamps(cmd.Context(), args[0], outputDir, ts, perTimestamp)
			if err != nil {
				return err
			}
			return printJSON(cmd, manifest)
		},
	}
	timestamps.Flags().StringVar(&timestampList, "at", "", `comma-separated timestamps in seconds, e.g. "10.5,25.0,60.3"`)
	timestamps.Flags().IntVarP(&perTimestamp, "frames-per-timestamp", "n", usecase.DefaultFramesPerTimestamp, "number of frames to extract per timestamp")
	timestamps.MarkFlagRequired("at")
	root.AddCommand(timestamps)

	return root
}

func parseTimestamps(list string) ([]float64, error) {
	parts := strings.Split(list, ",")
	timestamps := make([]float64, 0, len(parts))
	for _, p := range parts {
		ts, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp %q: use comma-separated numbers", p)
		}
		timestamps = append(timestamps, ts)
	}
	return timestamps, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
