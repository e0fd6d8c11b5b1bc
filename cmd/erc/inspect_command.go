package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/folds"
)

type exampleView struct {
	SegmentID    string             `json:"segment_id"`
	Corpus       string             `json:"corpus"`
	Partial      bool               `json:"partial"`
	Label        string             `json:"emotion"`
	Probs        []float64          `json:"probs,omitempty"`
	Valence      float32            `json:"valence"`
	Arousal      float32            `json:"arousal"`
	Gender       string             `json:"gender"`
	SamplingRate int                `json:"sampling_rate"`
	WavSamples   int                `json:"wav_samples"`
	WavValid     int                `json:"wav_valid"`
	Text         string             `json:"text"`
	InputIDs     []int64            `json:"input_ids,omitempty"`
	Bio          map[string]float32 `json:"bio,omitempty"`
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var fold int
	var mode string
	var index int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "inspect <corpus>",
		Short: "Show one example of a corpus partition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("fold") {
				cfg.Dataset.ValidationFold = fold
			}
			runMode := folds.Mode(cfg.Dataset.Mode)
			if cmd.Flags().Changed("mode") {
				parsed, err := folds.ParseMode(mode)
				if err != nil {
					return err
				}
				runMode = parsed
			}
			l, err := ctx.newLoader()
			if err != nil {
				return err
			}
			src, err := l.Source(cmd.Context(), args[0], runMode)
			if err != nil {
				return err
			}
			if index < 0 || index >= src.Len() {
				return fmt.Errorf("index %d out of range: %s %s holds %d examples", index, src.Name(), runMode, src.Len())
			}
			ex, err := src.Get(cmd.Context(), index)
			if err != nil {
				return err
			}

			view := exampleView{
				SegmentID:    ex.SegmentID,
				Corpus:       ex.Corpus,
				Partial:      ex.Partial,
				Label:        labelName(ex.Label),
				Probs:        ex.Probs,
				Valence:      ex.Valence,
				Arousal:      ex.Arousal,
				Gender:       genderName(ex.Gender),
				SamplingRate: ex.SamplingRate,
				WavSamples:   len(ex.Wav),
				WavValid:     len(ex.Wav),
				Text:         ex.Text,
				InputIDs:     ex.InputIDs,
				Bio:          ex.Bio,
			}
			if ex.WavMask != nil {
				view.WavValid = 0
				for _, m := range ex.WavMask {
					view.WavValid += int(m)
				}
			}
			if jsonOut {
				return writeJSON(cmd, view)
			}

			rows := [][]string{
				{"Segment", view.SegmentID},
				{"Corpus", view.Corpus},
				{"Partial", yesNo(view.Partial)},
				{"Emotion", view.Label},
				{"Valence", formatFloat(float64(view.Valence))},
				{"Arousal", formatFloat(float64(view.Arousal))},
				{"Gender", view.Gender},
				{"Sampling rate", strconv.Itoa(view.SamplingRate)},
				{"Waveform", fmt.Sprintf("%d samples (%d valid)", view.WavSamples, view.WavValid)},
				{"Text", view.Text},
			}
			if len(view.Probs) > 0 {
				parts := make([]string, len(view.Probs))
				for i, p := range view.Probs {
					parts[i] = labelName(i) + "=" + formatFloat(p)
				}
				rows = append(rows, []string{"Votes", strings.Join(parts, " ")})
			}
			if len(view.InputIDs) > 0 {
				rows = append(rows, []string{"Token ids", fmt.Sprint(view.InputIDs)})
			}
			if len(view.Bio) > 0 {
				keys := make([]string, 0, len(view.Bio))
				for k := range view.Bio {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					rows = append(rows, []string{"Bio " + k, formatFloat(float64(view.Bio[k]))})
				}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s fold %d: example %d of %d\n", src.Name(), runMode, cfg.Dataset.ValidationFold, index, src.Len())
			fmt.Fprintln(out, renderTable(out, []string{"Field", "Value"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().IntVar(&fold, "fold", folds.DefaultNumFolds-1, "Validation fold (-1 for every session)")
	cmd.Flags().StringVar(&mode, "mode", "", "Partition: train, valid or test (default: dataset.mode)")
	cmd.Flags().IntVar(&index, "index", 0, "Example index within the partition")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	return cmd
}
