package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	root := &cobra.Command{
		Use:           "smodctl",
		Short:         "Discover sequence motifs by contrasting sequences with shuffled decoys",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "YAML, JSON or TOML file with flag values")
	root.PersistentFlags().BoolP("verbose", "v", false, "log at debug level")

	root.AddCommand(
		newFitCmd(v),
		newPredictCmd(v),
		newTransformCmd(v),
		newFitPredictCmd(v),
		newInfoCmd(v),
		newShuffleCmd(v),
	)
	return root
}

// newLogger writes text to terminals and JSON otherwise.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
