package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loqalabs/loqa-sing/internal/engine"
	"github.com/loqalabs/loqa-sing/internal/lyrics"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a request and show how the lyric maps onto the notes",
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&renderLyric, "lyric", "", "Lyric text")
	validateCmd.Flags().StringVar(&renderNotes, "notes", "", `Note labels separated by "|"`)
	validateCmd.Flags().StringVar(&renderDurations, "durations", "", `Durations in seconds separated by "|"`)
}

func runValidate(cmd *cobra.Command, args []string) error {
	req, err := engine.ParseRequest(renderLyric, renderNotes, renderDurations, newLogger())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d notes, %.3f s total\n", len(req.Notes), req.TotalDuration())
	for _, seg := range lyrics.Align(lyrics.ToSingable(req.Lyric), req.Notes) {
		fmt.Fprintf(out, "  %s  %-4s %7.2f Hz  %.3f-%.3f s\n",
			seg.Grapheme, seg.Note.Label, seg.Note.FrequencyHz, seg.Note.StartS, seg.Note.EndS())
	}
	return nil
}
