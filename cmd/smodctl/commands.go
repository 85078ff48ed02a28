package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"smod/internal/fasta"
	"smod/internal/negative"
	"smod/internal/output"
	"smod/pkg/smod"
)

func newFitCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit a motif model and write motifs.txt and per-cluster FASTA",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v, cmd)
			if err != nil {
				return err
			}
			client, _, err := fitFromConfig(cmd, cfg)
			if err != nil {
				return err
			}
			return client.Close()
		},
	}
	addIOFlags(cmd.Flags(), true)
	addFitFlags(cmd.Flags())
	addParallelFlags(cmd.Flags())
	return cmd
}

func newPredictCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Report the motif clusters hit by each input sequence",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v, cmd)
			if err != nil {
				return err
			}
			client, seqs, err := openFromConfig(cmd, cfg)
			if err != nil {
				return err
			}
			return predict(cmd, cfg, client, seqs)
		},
	}
	addIOFlags(cmd.Flags(), false)
	addParallelFlags(cmd.Flags())
	cmd.Flags().Bool("count-multiplicity", false, "repeat a cluster id once per occurrence")
	return cmd
}

func newTransformCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Report every motif match position per cluster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v, cmd)
			if err != nil {
				return err
			}
			client, seqs, err := openFromConfig(cmd, cfg)
			if err != nil {
				return err
			}
			return transform(cmd, cfg, client, seqs)
		},
	}
	addIOFlags(cmd.Flags(), false)
	addParallelFlags(cmd.Flags())
	return cmd
}

func newFitPredictCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fit-predict",
		Short: "Fit a model, then predict and transform the training sequences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v, cmd)
			if err != nil {
				return err
			}
			client, seqs, err := fitFromConfig(cmd, cfg)
			if err != nil {
				return err
			}
			if err := predict(cmd, cfg, client, seqs); err != nil {
				return err
			}
			return transform(cmd, cfg, client, seqs)
		},
	}
	addIOFlags(cmd.Flags(), true)
	addFitFlags(cmd.Flags())
	addParallelFlags(cmd.Flags())
	cmd.Flags().Bool("count-multiplicity", false, "repeat a cluster id once per occurrence")
	return cmd
}

func newInfoCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print the parameters and cluster table of a saved model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v, cmd)
			if err != nil {
				return err
			}
			client, err := smod.Open(cmd.Context(), cfg.ModelFilename)
			if err != nil {
				return err
			}
			info, err := client.Info()
			if err != nil {
				return err
			}
			return printInfo(cmd, info)
		},
	}
	cmd.Flags().StringP("model-filename", "m", "model.db", "model artifact path")
	return cmd
}

func newShuffleCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shuffle",
		Short: "Write k-mer preserving shuffled decoys of the input as FASTA",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v, cmd)
			if err != nil {
				return err
			}
			seqs, err := readInput(cfg.Input)
			if err != nil {
				return err
			}
			decoys, err := negative.Generate(seqs, cfg.NegativeRatio, cfg.ShuffleOrder, cfg.RandomState)
			if err != nil {
				return err
			}
			return fasta.Write(cmd.OutOrStdout(), decoys)
		},
	}
	d := smod.DefaultFitRequest()
	cmd.Flags().StringP("input", "i", "", "input FASTA file (.gz supported, - for stdin)")
	cmd.Flags().Int("negative-ratio", d.NegativeRatio, "decoys per input sequence")
	cmd.Flags().Int("shuffle-order", d.ShuffleOrder, "k-mer order preserved by the shuffle")
	cmd.Flags().Int64("random-state", d.Seed, "random seed")
	return cmd
}

func fitFromConfig(cmd *cobra.Command, cfg Config) (*smod.Client, []smod.Sequence, error) {
	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)
	ctx := cmd.Context()

	seqs, err := readInput(cfg.Input)
	if err != nil {
		return nil, nil, err
	}
	req := cfg.FitRequest()
	req.Sequences = seqs
	if cfg.Negatives != "" {
		if req.Negatives, err = fasta.Read(cfg.Negatives); err != nil {
			return nil, nil, err
		}
	}
	logger.Info("fitting", "sequences", humanize.Comma(int64(len(seqs))), "negatives", humanize.Comma(int64(len(req.Negatives))), "algorithm", req.Algorithm)

	client, err := smod.New(smod.Options{})
	if err != nil {
		return nil, nil, err
	}
	summary, err := client.Fit(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("fitted",
		"model_id", summary.ModelID,
		"subarrays", humanize.Comma(int64(summary.Subarrays)),
		"noise", summary.Noise,
		"clusters", len(summary.Clusters),
		"train_auc", fmt.Sprintf("%.3f", summary.TrainAUC),
	)
	for _, cs := range summary.Clusters {
		logger.Debug("cluster", "id", cs.ClusterID, "total", cs.Total, "distinct", cs.Distinct, "mean_score", cs.MeanScore)
	}

	if err := client.Save(ctx, cfg.ModelFilename); err != nil {
		return nil, nil, err
	}
	if st, err := os.Stat(cfg.ModelFilename); err == nil {
		logger.Info("saved model", "path", cfg.ModelFilename, "size", humanize.Bytes(uint64(st.Size())))
	}

	motifs, err := client.Motifs()
	if err != nil {
		return nil, nil, err
	}
	if err := output.WriteFitArtifacts(cfg.OutputDir, motifs); err != nil {
		return nil, nil, err
	}
	if err := output.WriteSummary(cfg.OutputDir, summary); err != nil {
		return nil, nil, err
	}
	logger.Info("wrote fit artifacts", "dir", cfg.OutputDir)
	return client, seqs, nil
}

func openFromConfig(cmd *cobra.Command, cfg Config) (*smod.Client, []smod.Sequence, error) {
	seqs, err := readInput(cfg.Input)
	if err != nil {
		return nil, nil, err
	}
	client, err := smod.Open(cmd.Context(), cfg.ModelFilename)
	if err != nil {
		return nil, nil, err
	}
	newLogger(cmd.ErrOrStderr(), cfg.Verbose).Debug("loaded model", "path", cfg.ModelFilename, "sequences", humanize.Comma(int64(len(seqs))))
	return client, seqs, nil
}

func predict(cmd *cobra.Command, cfg Config, client *smod.Client, seqs []smod.Sequence) error {
	hits, err := client.Predict(cmd.Context(), seqs, cfg.Parallel())
	if err != nil {
		return err
	}
	hit := 0
	for _, h := range hits {
		if len(h.Clusters) > 0 {
			hit++
		}
	}
	newLogger(cmd.ErrOrStderr(), cfg.Verbose).Info("predicted", "sequences", humanize.Comma(int64(len(seqs))), "with_hits", humanize.Comma(int64(hit)))
	return output.WritePredictArtifacts(cfg.OutputDir, hits, cfg.CountMultiplicity)
}

func transform(cmd *cobra.Command, cfg Config, client *smod.Client, seqs []smod.Sequence) error {
	matches, err := client.Transform(cmd.Context(), seqs, cfg.Parallel())
	if err != nil {
		return err
	}
	spans := 0
	for _, perSeq := range matches {
		for _, cm := range perSeq {
			spans += len(cm.Spans)
		}
	}
	newLogger(cmd.ErrOrStderr(), cfg.Verbose).Info("transformed", "sequences", humanize.Comma(int64(len(seqs))), "matches", humanize.Comma(int64(spans)))
	return output.WriteTransformArtifacts(cfg.OutputDir, seqs, matches)
}

func readInput(path string) ([]smod.Sequence, error) {
	if path == "" {
		return nil, errors.New("--input is required")
	}
	return fasta.Read(path)
}

func printInfo(cmd *cobra.Command, info smod.ModelInfo) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "model\t%s\n", info.ModelID)
	fmt.Fprintf(w, "vectorizer\tcomplexity=%d nbits=%d\n", info.Complexity, info.NBits)
	fmt.Fprintf(w, "estimator\tloss=%s alpha=%g eta0=%g power_t=%g steps=%s\n", info.Loss, info.Alpha, info.Eta0, info.PowerT, humanize.Comma(int64(info.Steps)))
	fmt.Fprintf(w, "build\tsubarray=[%d,%d] min_motif_count=%d min_cluster_size=%d algorithm=%s\n",
		info.MinSubarraySize, info.MaxSubarraySize, info.MinMotifCount, info.MinClusterSize, info.Algorithm)
	fmt.Fprintf(w, "clusters\t%d\n", len(info.Clusters))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "cluster\ttotal\tdistinct")
	for _, c := range info.Clusters {
		fmt.Fprintf(w, "%d\t%d\t%d\n", c.ClusterID, c.Total, c.Distinct)
	}
	return w.Flush()
}
