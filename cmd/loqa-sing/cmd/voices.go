package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loqalabs/loqa-sing/internal/engine"
	"github.com/loqalabs/loqa-sing/internal/tts"
)

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List engines and collaborator voices",
	RunE:  runVoices,
}

func init() {
	rootCmd.AddCommand(voicesCmd)
}

func runVoices(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Engines:")
	for _, id := range engine.Engines() {
		marker := " "
		if id.String() == cfg.Synthesis.Mode {
			marker = "*"
		}
		note := ""
		if id.UsesTTS() && !cfg.TTS.Enabled {
			note = " (tts disabled)"
		}
		fmt.Fprintf(out, " %s %s%s\n", marker, id, note)
	}
	fmt.Fprintln(out, "Voices:")
	for _, id := range tts.VoiceIDs() {
		marker := " "
		if id == cfg.TTS.Voice {
			marker = "*"
		}
		fmt.Fprintf(out, " %s %-8s %s\n", marker, id, tts.ResolveVoice(id))
	}
	return nil
}
