package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/folds"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/preprocess"
)

func newPreprocessCommand(ctx *commandContext) *cobra.Command {
	var corpora string
	var mode string
	var fold int
	var force bool

	cmd := &cobra.Command{
		Use:   "preprocess",
		Short: "Encode and materialize datasets for training",
		Long: "Encode the configured corpora batch by batch and store the result as Arrow shards.\n" +
			"Without --mode both the train and valid partitions are materialized.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if corpora != "" {
				cfg.Dataset.Corpora = corpora
			}
			if cmd.Flags().Changed("fold") {
				cfg.Dataset.ValidationFold = fold
			}
			var modes []folds.Mode
			if mode != "" {
				parsed, err := folds.ParseMode(mode)
				if err != nil {
					return err
				}
				modes = append(modes, parsed)
			}

			l, err := ctx.newLoader()
			if err != nil {
				return err
			}
			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			sets, err := l.Preprocess(cmd.Context(), store, force, modes...)
			if err != nil {
				return err
			}
			defer func() {
				for _, ds := range sets {
					_ = ds.Close()
				}
			}()

			rows := make([][]string, 0, len(sets))
			for _, m := range []folds.Mode{folds.Train, folds.Valid, folds.Test} {
				ds, ok := sets[m]
				if !ok {
					continue
				}
				rows = append(rows, materializationRow(string(m), ds.Metadata(), ds.Dir()))
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(out,
				[]string{"Mode", "Fingerprint", "Rows", "Partial", "Shards", "Build", "Path"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&corpora, "corpora", "", "'-'-joined corpora to encode (default: dataset.corpora)")
	cmd.Flags().StringVar(&mode, "mode", "", "Only materialize this partition: train, valid or test")
	cmd.Flags().IntVar(&fold, "fold", folds.DefaultNumFolds-1, "Validation fold (-1 for every session)")
	cmd.Flags().BoolVar(&force, "force", false, "Rebuild even when a valid materialization exists")
	return cmd
}

func materializationRow(mode string, meta preprocess.Metadata, dir string) []string {
	return []string{
		mode,
		meta.Fingerprint,
		strconv.Itoa(meta.Rows),
		strconv.Itoa(meta.PartialRows),
		strconv.Itoa(len(meta.Shards)),
		shortID(meta.BuildID),
		dir,
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
