package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/folds"
)

func newFoldsCommand(ctx *commandContext) *cobra.Command {
	var corpusFlag string

	cmd := &cobra.Command{
		Use:   "folds",
		Short: "Show session folds and their row counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			l, err := ctx.newLoader()
			if err != nil {
				return err
			}
			names := annotatedCorpora(cfg, corpusFlag)
			if len(names) == 0 {
				return errors.New("no annotated corpus selected")
			}

			out := cmd.OutOrStdout()
			for _, name := range names {
				adapter, err := l.Adapter(name)
				if err != nil {
					return err
				}
				ranges, err := folds.GetFolds(adapter.NumSessions(), cfg.Dataset.NumFolds)
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				table, err := l.Table(cmd.Context(), name, false)
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}

				counts := make(map[folds.Fold]int, len(ranges))
				for _, rec := range table.Records {
					session, err := adapter.Session(rec.SegmentID)
					if err != nil {
						continue
					}
					for fold, r := range ranges {
						if r.Contains(session) {
							counts[fold]++
							break
						}
					}
				}

				rows := make([][]string, 0, len(ranges))
				for i := 0; i < len(ranges); i++ {
					fold := folds.Fold(i)
					marker := ""
					if int(fold) == cfg.Dataset.ValidationFold {
						marker = "valid"
					}
					rows = append(rows, []string{
						strconv.Itoa(i),
						ranges[fold].String(),
						strconv.Itoa(counts[fold]),
						marker,
					})
				}
				fmt.Fprintf(out, "%s (%d sessions, %d rows)\n", name, adapter.NumSessions(), table.Len())
				fmt.Fprintln(out, renderTable(out,
					[]string{"Fold", "Sessions", "Rows", "Role"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
				))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&corpusFlag, "corpus", "", "Corpus or '-'-joined corpora (default: dataset.corpora)")
	return cmd
}
