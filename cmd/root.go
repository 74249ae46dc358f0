package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "audioengine",
	Short: "Real-time audio playback engine",
	Long: `audioengine - a real-time playback core built around a render worker,
a seek worker, and an engine facade coordinating lifecycle.

Features:
  - Decoder -> resampler -> DSP chain -> render ring -> output pipeline
  - Callback-pull, buffer-queue, and blocking-write output backends with
    automatic fallback
  - Support for MP3, FLAC, and WAV audio formats
  - Configurable buffer presets, resampler quality, and output device
  - Click-free pause/resume via a realtime fade envelope

Commands:
  - play: Play one or more audio files sequentially
  - transform: Convert audio files to different sample rates and WAV format`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
