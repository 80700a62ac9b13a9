package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/loqalabs/loqa-sing/internal/bus"
	"github.com/loqalabs/loqa-sing/internal/protocol"
)

var (
	submitServer  string
	submitTimeout time.Duration
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Send a render request to a running daemon",
	Long: `Publishes a render request on the bus and waits for the reply.

Examples:
  loqa-sing submit --lyric かえる --notes "C4|D4|E4" --durations "0.5|0.5|1"`,
	RunE: runSubmit,
}

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().StringVar(&renderLyric, "lyric", "", "Lyric text")
	submitCmd.Flags().StringVar(&renderNotes, "notes", "", `Note labels separated by "|"`)
	submitCmd.Flags().StringVar(&renderDurations, "durations", "", `Durations in seconds separated by "|"`)
	submitCmd.Flags().StringVar(&renderEngine, "engine", "", "First engine to try")
	submitCmd.Flags().StringVar(&renderVoice, "voice", "", "Collaborator voice id")
	submitCmd.Flags().BoolVar(&renderOpus, "opus", false, "Ask the daemon for an Ogg Opus file as well")
	submitCmd.Flags().StringVar(&submitServer, "server", "", "NATS server URL (default: from config)")
	submitCmd.Flags().DurationVar(&submitTimeout, "timeout", 2*time.Minute, "How long to wait for the render")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	busCfg := cfg.Bus
	if submitServer != "" {
		busCfg.Servers = []string{submitServer}
	}
	client, err := bus.Connect(context.Background(), busCfg, newLogger())
	if err != nil {
		return err
	}
	defer client.Close()

	payload, err := json.Marshal(protocol.RenderRequest{
		Lyric:     renderLyric,
		Notes:     renderNotes,
		Durations: renderDurations,
		Voice:     renderVoice,
		Engine:    renderEngine,
		Opus:      renderOpus,
	})
	if err != nil {
		return err
	}
	msg, err := client.Conn().Request(protocol.SubjectRenderRequest, payload, submitTimeout)
	if err != nil {
		return fmt.Errorf("render request: %w", err)
	}
	var result protocol.RenderResult
	if err := json.Unmarshal(msg.Data, &result); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	if result.Status != protocol.StatusOK {
		return errors.New(result.Error)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job %s: %s (%.3f s, engine %s)\n", result.JobID, result.Path, result.DurationS, result.EngineUsed)
	if result.OpusPath != "" {
		fmt.Fprintf(out, "  opus   %s\n", result.OpusPath)
	}
	if result.Object != "" {
		fmt.Fprintf(out, "  object %s\n", result.Object)
	}
	return nil
}
