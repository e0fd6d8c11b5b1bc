package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/audio"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/emotion"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <corpus>",
		Short: "Summarize labels, ratings and segment durations of a corpus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := ctx.newLoader()
			if err != nil {
				return err
			}
			table, err := l.Table(cmd.Context(), args[0], false)
			if err != nil {
				return err
			}
			if table.Len() == 0 {
				return errors.New("corpus has no rows")
			}

			counts := make([]int, emotion.NumCategories)
			disputed, unmapped := 0, 0
			valence := make([]float64, 0, table.Len())
			arousal := make([]float64, 0, table.Len())
			var durations []float64
			for _, rec := range table.Records {
				switch idx := emotion.Index(rec.Emotion); {
				case idx != emotion.Unmappable:
					counts[idx]++
				case emotion.IsDisputed(rec.Emotion):
					disputed++
				default:
					unmapped++
				}
				valence = append(valence, rec.Valence)
				arousal = append(arousal, rec.Arousal)
				if rec.Wav.Valid && rec.Wav.End > rec.Wav.Start {
					durations = append(durations, rec.Wav.End-rec.Wav.Start)
				}
			}

			out := cmd.OutOrStdout()
			labelRows := make([][]string, 0, emotion.NumCategories+2)
			for idx, n := range counts {
				labelRows = append(labelRows, []string{labelName(idx), strconv.Itoa(n), percent(n, table.Len())})
			}
			labelRows = append(labelRows,
				[]string{"disputed", strconv.Itoa(disputed), percent(disputed, table.Len())},
				[]string{"unmappable", strconv.Itoa(unmapped), percent(unmapped, table.Len())},
			)
			fmt.Fprintf(out, "%s: %d rows\n", table.Corpus, table.Len())
			fmt.Fprintln(out, renderTable(out, []string{"Emotion", "Rows", "Share"}, labelRows,
				[]columnAlignment{alignLeft, alignRight, alignRight}))

			summaryRows := make([][]string, 0, 3)
			for _, series := range []struct {
				name   string
				values []float64
			}{
				{"valence", valence},
				{"arousal", arousal},
				{"duration (s)", durations},
			} {
				s, err := audio.SummarizeFloat64(series.values)
				if err != nil {
					if errors.Is(err, audio.ErrEmptySignal) {
						continue
					}
					return err
				}
				summaryRows = append(summaryRows, []string{
					series.name,
					strconv.Itoa(s.Count),
					formatFloat(s.Mean),
					formatFloat(s.StdDev),
					formatFloat(s.Min),
					formatFloat(s.Max),
				})
			}
			fmt.Fprintln(out, renderTable(out, []string{"Series", "Count", "Mean", "Std", "Min", "Max"}, summaryRows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight}))
			return nil
		},
	}
	return cmd
}

func percent(n, total int) string {
	if total == 0 {
		return "-"
	}
	return strconv.FormatFloat(float64(n)*100/float64(total), 'f', 1, 64) + "%"
}
