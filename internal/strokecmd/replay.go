package strokecmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/stroke/internal/canvas"
	"github.com/MeKo-Tech/stroke/internal/protocol"
)

var replayCmd = &cobra.Command{
	Use:   "replay <recording-file>",
	Short: "Apply a binary recording (DPREC) to a fresh canvas and report throughput",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().Int32("width", 2048, "Canvas width in pixels")
	replayCmd.Flags().Int32("height", 2048, "Canvas height in pixels")
	replayCmd.Flags().String("snapshot", "", "Write a flattened PNG snapshot of the final canvas to this path")

	mustBind := func(key, name string) {
		if err := viper.BindPFlag(key, replayCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}
	mustBind("replay.width", "width")
	mustBind("replay.height", "height")
	mustBind("replay.snapshot", "snapshot")
}

func runReplay(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("strokebench: open log: %w", err)
	}
	defer f.Close()

	meta, messages, err := protocol.ReadBinaryRecording(f)
	if err != nil {
		return fmt.Errorf("strokebench: read recording: %w", err)
	}

	width := viper.GetInt32("replay.width")
	height := viper.GetInt32("replay.height")
	state := canvas.NewCanvasState(width, height)
	state.SetLogger(logger)

	start := time.Now()
	for _, msg := range messages {
		state.ReceiveMessage(msg)
	}
	elapsed := time.Since(start)

	logger.Info("replay complete",
		"recording_version", meta.Version,
		"messages", len(messages),
		"elapsed", elapsed,
		"messages_per_sec", float64(len(messages))/elapsed.Seconds(),
		"layers", len(state.LayerStack().Layers()),
	)

	if snapshot := viper.GetString("replay.snapshot"); snapshot != "" {
		if err := writePNGSnapshot(state, snapshot); err != nil {
			return fmt.Errorf("strokebench: snapshot: %w", err)
		}
		logger.Info("wrote snapshot", "path", snapshot)
	}
	return nil
}
