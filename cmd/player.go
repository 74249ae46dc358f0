package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/drgolem/audioengine/pkg/backend"
	"github.com/drgolem/audioengine/pkg/engine"
	"github.com/drgolem/audioengine/pkg/renderring"
	"github.com/drgolem/audioengine/pkg/types"

	"github.com/drgolem/go-portaudio/portaudio"
	"github.com/spf13/cobra"
)

const version = "1.0.0"

var (
	deviceIdx     int
	bufferPreset  string
	backendPref   string
	resamplerPref string
	noFallback    bool
	repeatMode    string
	masterGainDB  float64
	showVersion   bool
	verbose       bool
)

// playerCmd represents the play command
var playerCmd = &cobra.Command{
	Use:   "play <audio_file> [audio_file...]",
	Short: "Play audio files (MP3, FLAC, WAV)",
	Long: `Play one or more audio files through the engine's render pipeline:
decode -> resample -> DSP chain -> render ring -> output backend.
Multiple files are played back to back on the same engine instance.

Examples:
  # Play an MP3 file
  audioengine play music.mp3

  # Play a FLAC file on a specific output device
  audioengine play -d 0 music.flac

  # Play several files in sequence
  audioengine play song1.mp3 song2.flac song3.wav

  # Force the blocking-write backend with a larger buffer preset
  audioengine play --backend blocking --buffer-preset large music.wav

  # Loop a file indefinitely at a lower volume
  audioengine play --repeat track --master-gain -6 music.flac

Buffer Presets:
  verysmall, small (default), medium, large - trade latency for stability.

Supported Formats:
  MP3:  .mp3 (16-bit lossy)
  FLAC: .flac, .fla (16/24/32-bit lossless)
  WAV:  .wav (8/16/24/32-bit PCM)`,
	Args: cobra.MinimumNArgs(1),
	Run:  runPlayer,
}

func init() {
	rootCmd.AddCommand(playerCmd)

	playerCmd.Flags().IntVarP(&deviceIdx, "device", "d", 1, "Audio output device index")
	playerCmd.Flags().StringVarP(&bufferPreset, "buffer-preset", "p", "small", "Render buffer preset: verysmall, small, medium, large")
	playerCmd.Flags().StringVar(&backendPref, "backend", "auto", "Output backend: auto, callback, bufferqueue, blocking")
	playerCmd.Flags().StringVar(&resamplerPref, "resampler", "hq", "Resampler quality: hq, linear")
	playerCmd.Flags().BoolVar(&noFallback, "no-fallback", false, "Disable falling back to another backend shape on open failure")
	playerCmd.Flags().StringVar(&repeatMode, "repeat", "off", "Repeat mode: off, track, all, loop-point")
	playerCmd.Flags().Float64Var(&masterGainDB, "master-gain", 0, "Master gain in dB")
	playerCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (debug logging)")
	playerCmd.Flags().BoolVar(&showVersion, "version", false, "Show version information")
}

func runPlayer(cmd *cobra.Command, args []string) {
	if showVersion {
		fmt.Printf("audioengine v%s\n", version)
		fmt.Println("Built with:")
		fmt.Println("  - Decoder -> resampler -> DSP chain -> render ring pipeline")
		fmt.Println("  - Callback-pull / buffer-queue / blocking-write output backends")
		fmt.Println("  - PortAudio for cross-platform audio")
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	for _, fileName := range args {
		if _, err := os.Stat(fileName); os.IsNotExist(err) {
			slog.Error("File not found", "path", fileName)
			os.Exit(1)
		}
	}

	pref, err := parseBackendPref(backendPref)
	if err != nil {
		slog.Error("Invalid backend preference", "error", err)
		os.Exit(1)
	}
	preset, err := parseBufferPreset(bufferPreset)
	if err != nil {
		slog.Error("Invalid buffer preset", "error", err)
		os.Exit(1)
	}
	mode, err := parseRepeatMode(repeatMode)
	if err != nil {
		slog.Error("Invalid repeat mode", "error", err)
		os.Exit(1)
	}
	resamplerQuality := 2
	if strings.EqualFold(resamplerPref, "linear") {
		resamplerQuality = 1
	}

	slog.Info("Initializing PortAudio")
	if err := portaudio.Initialize(); err != nil {
		slog.Error("Failed to initialize PortAudio", "error", err)
		slog.Error("Hint: Make sure PortAudio is installed on your system")
		os.Exit(1)
	}
	defer portaudio.Terminate()
	slog.Info("PortAudio initialized", "version", portaudio.GetVersion())

	eng := engine.New()
	defer eng.Close()

	eng.SetAudioPipelineConfig(engine.PipelineConfig{
		BackendPref:   pref,
		BufferPreset:  preset,
		ResamplerPref: resamplerQuality,
		FallbackOK:    !noFallback,
		DeviceIndex:   deviceIdx,
	})
	eng.SetMasterGainDB(float32(masterGainDB))

	slog.Info("Audio configuration",
		"device_index", deviceIdx,
		"buffer_preset", bufferPreset,
		"backend", pref.String(),
		"resampler", resamplerPref,
		"repeat", repeatMode,
		"file_count", len(args))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	interrupted := false
	for i, fileName := range args {
		if interrupted {
			break
		}

		slog.Info("Opening audio file", "index", i+1, "total", len(args), "path", fileName)
		if err := eng.SetSource(fileName); err != nil {
			slog.Error("Failed to open file", "file", fileName, "error", err)
			continue
		}
		if err := eng.SetRepeatMode(mode); err != nil {
			slog.Warn("Failed to apply repeat mode", "error", err)
		}

		slog.Info("Starting playback", "file", fileName, "duration_seconds", eng.DurationSeconds())
		if err := eng.Start(); err != nil {
			slog.Error("Failed to start playback", "file", fileName, "error", err)
			continue
		}

		statusDone := make(chan struct{})
		go monitorEnginePlayback(eng, fileName, statusDone)

		ticker := time.NewTicker(50 * time.Millisecond)
	waitLoop:
		for {
			select {
			case <-ticker.C:
				if eng.ConsumeNaturalEndEvent() {
					break waitLoop
				}
			case sig := <-sigChan:
				slog.Info("Signal received, stopping playback", "signal", sig)
				interrupted = true
				break waitLoop
			}
		}
		ticker.Stop()
		close(statusDone)

		if interrupted {
			if err := eng.Stop(); err != nil {
				slog.Error("Failed to stop engine", "error", err)
			}
		} else {
			slog.Info("File completed", "file", fileName)
		}
	}

	if interrupted {
		slog.Info("Playback interrupted")
	} else {
		slog.Info("All files completed", "total", len(args))
	}
	slog.Info("Exiting")
}

// monitorEnginePlayback logs playback position every 2 seconds, mirroring
// the status-reporting cadence of the original producer/consumer player.
func monitorEnginePlayback(eng *engine.Engine, fileName string, done chan struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pos := eng.PositionSeconds()
			dur := eng.DurationSeconds()
			slog.Info("Playback status",
				"file", fileName,
				"state", eng.State().String(),
				"position", formatHMS(pos),
				"duration", formatHMS(dur))
		case <-done:
			return
		}
	}
}

func formatHMS(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int64(seconds * 1000)
	hours := total / 3600000
	minutes := (total % 3600000) / 60000
	secs := (total % 60000) / 1000
	ms := total % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, secs, ms)
}

func parseBackendPref(s string) (backend.Preference, error) {
	switch strings.ToLower(s) {
	case "auto", "":
		return backend.PreferAuto, nil
	case "callback", "callback-pull":
		return backend.PreferCallbackPull, nil
	case "bufferqueue", "buffer-queue":
		return backend.PreferBufferQueue, nil
	case "blocking", "blocking-write":
		return backend.PreferBlockingWrite, nil
	default:
		return backend.PreferAuto, fmt.Errorf("unknown backend %q (want auto, callback, bufferqueue, blocking)", s)
	}
}

func parseBufferPreset(s string) (renderring.BufferPreset, error) {
	switch strings.ToLower(s) {
	case "verysmall", "very-small":
		return renderring.VerySmall, nil
	case "small", "":
		return renderring.Small, nil
	case "medium":
		return renderring.Medium, nil
	case "large":
		return renderring.Large, nil
	default:
		return renderring.Small, fmt.Errorf("unknown buffer preset %q (want verysmall, small, medium, large)", s)
	}
}

func parseRepeatMode(s string) (types.RepeatMode, error) {
	switch strings.ToLower(s) {
	case "off", "":
		return types.RepeatOff, nil
	case "track", "current-track":
		return types.RepeatCurrentTrack, nil
	case "all", "set":
		return types.RepeatSet, nil
	case "loop-point", "looppoint":
		return types.RepeatLoopPoint, nil
	default:
		return types.RepeatOff, fmt.Errorf("unknown repeat mode %q (want off, track, all, loop-point)", s)
	}
}
