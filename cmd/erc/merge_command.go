package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var corpusFlag string
	var force bool
	var multilabel bool

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge raw annotation tables into normalized caches",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if multilabel {
				cfg.Dataset.Multilabel = true
			}
			l, err := ctx.newLoader()
			if err != nil {
				return err
			}
			names := annotatedCorpora(cfg, corpusFlag)
			if len(names) == 0 {
				return errors.New("no annotated corpus selected")
			}

			rows := make([][]string, 0, len(names))
			for _, name := range names {
				merger, err := l.Merger(name)
				if err != nil {
					return err
				}
				table, err := merger.Ensure(cmd.Context(), force)
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				rows = append(rows, []string{
					name,
					strconv.Itoa(table.Len()),
					yesNo(table.Multilabel),
					merger.CachePath(),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(cmd.OutOrStdout(),
				[]string{"Corpus", "Rows", "Multilabel", "Cache"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&corpusFlag, "corpus", "", "Corpus or '-'-joined corpora to merge (default: dataset.corpora)")
	cmd.Flags().BoolVar(&force, "force", false, "Rebuild caches even when they are valid")
	cmd.Flags().BoolVar(&multilabel, "multilabel", false, "Write per-category vote columns")
	return cmd
}
