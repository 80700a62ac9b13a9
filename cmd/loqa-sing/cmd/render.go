package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loqalabs/loqa-sing/internal/audiofile"
	"github.com/loqalabs/loqa-sing/internal/dsp"
	"github.com/loqalabs/loqa-sing/internal/engine"
)

var (
	renderLyric     string
	renderNotes     string
	renderDurations string
	renderOut       string
	renderEngine    string
	renderVoice     string
	renderOpus      bool
	renderAnalyze   bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a lyric to a WAV file",
	Long: `Renders locally without a daemon.

Examples:
  loqa-sing render --lyric かえるのうた --notes "C4|D4|E4|F4|E4|D4|C4" \
      --durations "0.5|0.5|0.5|0.5|0.5|0.5|0.5" --out kaeru.wav
  loqa-sing render --lyric らら --notes "A4|C5" --durations "1|1" --engine additive --opus`,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVar(&renderLyric, "lyric", "", "Lyric text")
	renderCmd.Flags().StringVar(&renderNotes, "notes", "", `Note labels separated by "|"`)
	renderCmd.Flags().StringVar(&renderDurations, "durations", "", `Durations in seconds separated by "|"`)
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "output.wav", "Output WAV path")
	renderCmd.Flags().StringVar(&renderEngine, "engine", "", "First engine to try (default: configured mode)")
	renderCmd.Flags().StringVar(&renderVoice, "voice", "", "Collaborator voice id")
	renderCmd.Flags().BoolVar(&renderOpus, "opus", false, "Also write an Ogg Opus file next to the WAV")
	renderCmd.Flags().BoolVar(&renderAnalyze, "analyze", false, "Print the dominant pitch of each note")
	_ = renderCmd.MarkFlagRequired("notes")
	_ = renderCmd.MarkFlagRequired("durations")
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger()

	req, err := engine.ParseRequest(renderLyric, renderNotes, renderDurations, log)
	if err != nil {
		return err
	}
	req.Voice = renderVoice
	if renderEngine != "" {
		id, err := engine.ParseEngineID(renderEngine)
		if err != nil {
			return err
		}
		req.Prefer = &id
	}

	orch, err := engine.FromConfig(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := orch.RenderToFile(ctx, req, renderOut)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %s (%.3f s, engine %s)\n", renderOut, result.TotalDurationS, result.EngineUsed)
	for _, a := range result.Attempts {
		line := fmt.Sprintf("  %-20s %-8s %6d ms", a.Engine, a.Outcome, a.Elapsed.Milliseconds())
		if a.Error != "" {
			line += "  " + a.Error
		}
		fmt.Fprintln(out, line)
	}

	if renderOpus {
		opusPath := strings.TrimSuffix(renderOut, ".wav") + ".opus"
		if err := audiofile.WriteOpus(opusPath, result.Buffer, audiofile.OpusOptions{Bitrate: cfg.Artifacts.OpusBitrate}); err != nil {
			return fmt.Errorf("write opus: %w", err)
		}
		fmt.Fprintf(out, "Wrote %s\n", opusPath)
	}

	if renderAnalyze {
		fmt.Fprintln(out, "Dominant pitch per note:")
		for _, note := range req.Notes {
			start := dsp.SampleCount(note.StartS, result.Buffer.SampleRate)
			end := min(dsp.SampleCount(note.EndS(), result.Buffer.SampleRate), result.Buffer.Len())
			if start >= end {
				continue
			}
			got := dsp.DominantFrequency(result.Buffer.Samples[start:end], result.Buffer.SampleRate, 80, 2000, 1)
			fmt.Fprintf(out, "  %-4s target %7.2f Hz  dominant %7.2f Hz\n", note.Label, note.FrequencyHz, got)
		}
	}
	return nil
}
