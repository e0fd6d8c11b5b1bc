package preprocess

import (
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/dataset"
)

// Column positions in exampleSchema.
const (
	colSegmentID = iota
	colCorpus
	colSamplingRate
	colWav
	colWavMask
	colText
	colInputIDs
	colTextMask
	colEmotion
	colProbs
	colValence
	colArousal
	colGender
)

var exampleSchema = arrow.NewSchema([]arrow.Field{
	{Name: "segment_id", Type: arrow.BinaryTypes.String},
	{Name: "corpus", Type: arrow.BinaryTypes.String},
	{Name: "sampling_rate", Type: arrow.PrimitiveTypes.Int32},
	{Name: "wav", Type: arrow.ListOf(arrow.PrimitiveTypes.Float32)},
	{Name: "wav_mask", Type: arrow.ListOf(arrow.PrimitiveTypes.Int8)},
	{Name: "text", Type: arrow.BinaryTypes.String},
	{Name: "txt", Type: arrow.ListOf(arrow.PrimitiveTypes.Int64)},
	{Name: "txt_mask", Type: arrow.ListOf(arrow.PrimitiveTypes.Int8)},
	{Name: "emotion", Type: arrow.PrimitiveTypes.Int32},
	{Name: "probs", Type: arrow.ListOf(arrow.PrimitiveTypes.Float64), Nullable: true},
	{Name: "valence", Type: arrow.PrimitiveTypes.Float32},
	{Name: "arousal", Type: arrow.PrimitiveTypes.Float32},
	{Name: "gender", Type: arrow.PrimitiveTypes.Int32},
}, nil)

// buildRecord converts examples into one record batch. The caller releases it.
func buildRecord(mem memory.Allocator, examples []dataset.Example) arrow.Record {
	b := array.NewRecordBuilder(mem, exampleSchema)
	defer b.Release()

	for _, ex := range examples {
		b.Field(colSegmentID).(*array.StringBuilder).Append(ex.SegmentID)
		b.Field(colCorpus).(*array.StringBuilder).Append(ex.Corpus)
		b.Field(colSamplingRate).(*array.Int32Builder).Append(int32(ex.SamplingRate))

		wav := b.Field(colWav).(*array.ListBuilder)
		wav.Append(true)
		wav.ValueBuilder().(*array.Float32Builder).AppendValues(ex.Wav, nil)

		appendInt8List(b.Field(colWavMask).(*array.ListBuilder), ex.WavMask)
		b.Field(colText).(*array.StringBuilder).Append(ex.Text)

		ids := b.Field(colInputIDs).(*array.ListBuilder)
		ids.Append(true)
		ids.ValueBuilder().(*array.Int64Builder).AppendValues(ex.InputIDs, nil)

		appendInt8List(b.Field(colTextMask).(*array.ListBuilder), ex.TextMask)
		b.Field(colEmotion).(*array.Int32Builder).Append(int32(ex.Label))

		probs := b.Field(colProbs).(*array.ListBuilder)
		if ex.Probs == nil {
			probs.AppendNull()
		} else {
			probs.Append(true)
			probs.ValueBuilder().(*array.Float64Builder).AppendValues(ex.Probs, nil)
		}

		b.Field(colValence).(*array.Float32Builder).Append(ex.Valence)
		b.Field(colArousal).(*array.Float32Builder).Append(ex.Arousal)
		b.Field(colGender).(*array.Int32Builder).Append(int32(ex.Gender))
	}
	return b.NewRecord()
}

func appendInt8List(lb *array.ListBuilder, values []int8) {
	lb.Append(true)
	lb.ValueBuilder().(*array.Int8Builder).AppendValues(values, nil)
}

// decodeRecord copies every row of rec into examples.
func decodeRecord(rec arrow.Record) []dataset.Example {
	n := int(rec.NumRows())
	segmentIDs := rec.Column(colSegmentID).(*array.String)
	corpora := rec.Column(colCorpus).(*array.String)
	rates := rec.Column(colSamplingRate).(*array.Int32)
	texts := rec.Column(colText).(*array.String)
	emotions := rec.Column(colEmotion).(*array.Int32)
	valence := rec.Column(colValence).(*array.Float32)
	arousal := rec.Column(colArousal).(*array.Float32)
	gender := rec.Column(colGender).(*array.Int32)

	out := make([]dataset.Example, n)
	for row := 0; row < n; row++ {
		out[row] = dataset.Example{
			SegmentID:    strings.Clone(segmentIDs.Value(row)),
			Corpus:       strings.Clone(corpora.Value(row)),
			SamplingRate: int(rates.Value(row)),
			Wav:          float32List(rec.Column(colWav), row),
			WavMask:      int8List(rec.Column(colWavMask), row),
			Text:         strings.Clone(texts.Value(row)),
			InputIDs:     int64List(rec.Column(colInputIDs), row),
			TextMask:     int8List(rec.Column(colTextMask), row),
			Label:        int(emotions.Value(row)),
			Probs:        float64List(rec.Column(colProbs), row),
			Valence:      valence.Value(row),
			Arousal:      arousal.Value(row),
			Gender:       int(gender.Value(row)),
		}
	}
	return out
}

func listBounds(col arrow.Array, row int) (*array.List, int64, int64, bool) {
	list := col.(*array.List)
	if list.IsNull(row) {
		return nil, 0, 0, false
	}
	start, end := list.ValueOffsets(row)
	if start == end {
		return nil, 0, 0, false
	}
	return list, start, end, true
}

func float32List(col arrow.Array, row int) []float32 {
	list, start, end, ok := listBounds(col, row)
	if !ok {
		return nil
	}
	values := list.ListValues().(*array.Float32).Float32Values()
	return append([]float32(nil), values[start:end]...)
}

func float64List(col arrow.Array, row int) []float64 {
	list, start, end, ok := listBounds(col, row)
	if !ok {
		return nil
	}
	values := list.ListValues().(*array.Float64).Float64Values()
	return append([]float64(nil), values[start:end]...)
}

func int64List(col arrow.Array, row int) []int64 {
	list, start, end, ok := listBounds(col, row)
	if !ok {
		return nil
	}
	values := list.ListValues().(*array.Int64).Int64Values()
	return append([]int64(nil), values[start:end]...)
}

func int8List(col arrow.Array, row int) []int8 {
	list, start, end, ok := listBounds(col, row)
	if !ok {
		return nil
	}
	values := list.ListValues().(*array.Int8).Int8Values()
	return append([]int8(nil), values[start:end]...)
}
