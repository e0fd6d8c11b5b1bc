package annotation

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/gofrs/flock"

	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/emotion"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/fileutil"
)

// Canonical cache columns.
const (
	ColumnSegmentID = "segment_id"
	ColumnEmotion   = "emotion"
	ColumnValence   = "valence"
	ColumnArousal   = "arousal"
)

// RequiredColumns must be present in every cache file.
var RequiredColumns = []string{ColumnSegmentID, ColumnEmotion, ColumnValence, ColumnArousal}

// Row is the CSV shape of a cached record.
type Row struct {
	SegmentID string `csv:"segment_id"`
	Emotion   string `csv:"emotion"`
	Valence   string `csv:"valence"`
	Arousal   string `csv:"arousal"`
	Numb      string `csv:"numb"`
	WavStart  string `csv:"wav_start"`
	WavEnd    string `csv:"wav_end"`
	ECGStart  string `csv:"ecg_start"`
	ECGEnd    string `csv:"ecg_end"`
	EDAStart  string `csv:"e4-eda_start"`
	EDAEnd    string `csv:"e4-eda_end"`
	TempStart string `csv:"e4-temp_start"`
	TempEnd   string `csv:"e4-temp_end"`
}

// VoteRow extends Row with one vote column per emotion category.
type VoteRow struct {
	Row
	Surprise string `csv:"surprise"`
	Fear     string `csv:"fear"`
	Angry    string `csv:"angry"`
	Neutral  string `csv:"neutral"`
	Happy    string `csv:"happy"`
	Sad      string `csv:"sad"`
	Disgust  string `csv:"disgust"`
}

// CacheStatus classifies a cache file on disk.
type CacheStatus int

const (
	CacheMissing CacheStatus = iota
	CacheStale
	CacheValid
)

func (s CacheStatus) String() string {
	switch s {
	case CacheMissing:
		return "missing"
	case CacheStale:
		return "stale"
	case CacheValid:
		return "valid"
	default:
		return "unknown"
	}
}

// CacheState is the result of ValidateCache. Table is set only when Status
// is CacheValid; Err explains a stale cache.
type CacheState struct {
	Status CacheStatus
	Table  Table
	Err    error
}

// ValidateCache inspects the cache at path. Empty, unreadable, malformed or
// schema-mismatched files are reported as stale so the caller can rebuild.
func ValidateCache(path, corpus string, multilabel bool) CacheState {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return CacheState{Status: CacheMissing}
		}
		return CacheState{Status: CacheStale, Err: fmt.Errorf("read cache: %w", err)}
	}
	table, err := decodeCache(data, corpus)
	if err != nil {
		return CacheState{Status: CacheStale, Err: err}
	}
	if multilabel && !table.Multilabel {
		return CacheState{Status: CacheStale, Err: errors.New("cache lacks per-category vote columns")}
	}
	if !multilabel {
		table.Multilabel = false
	}
	return CacheState{Status: CacheValid, Table: table}
}

// ReadCache loads a cache file.
func ReadCache(path, corpus string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read cache: %w", err)
	}
	return decodeCache(data, corpus)
}

func decodeCache(data []byte, corpus string) (Table, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Table{}, ErrEmptyCache
	}
	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return Table{}, fmt.Errorf("parse cache header: %w", err)
	}
	columns := make(map[string]struct{}, len(header))
	for _, name := range header {
		columns[strings.TrimSpace(name)] = struct{}{}
	}
	for _, required := range RequiredColumns {
		if _, ok := columns[required]; !ok {
			return Table{}, fmt.Errorf("cache missing column %q", required)
		}
	}
	multilabel := true
	for _, name := range emotion.Names() {
		if _, ok := columns[name]; !ok {
			multilabel = false
			break
		}
	}

	var rows []*VoteRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return Table{}, fmt.Errorf("parse cache rows: %w", err)
	}
	if len(rows) == 0 {
		return Table{}, ErrEmptyCache
	}

	table := Table{Corpus: corpus, Multilabel: multilabel, Records: make([]Record, 0, len(rows))}
	for i, row := range rows {
		rec, err := row.record(multilabel)
		if err != nil {
			return Table{}, fmt.Errorf("cache row %d: %w", i+1, err)
		}
		table.Records = append(table.Records, rec)
	}
	return table, nil
}

// WriteCache persists table at path. The write is guarded by a lock file
// next to the cache and lands atomically.
func WriteCache(path string, table Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire cache lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrCacheLocked, path)
	}
	defer func() { _ = lock.Unlock() }()

	var payload []byte
	if table.Multilabel {
		rows := make([]*VoteRow, 0, len(table.Records))
		for _, rec := range table.Records {
			rows = append(rows, newVoteRow(rec))
		}
		payload, err = gocsv.MarshalBytes(&rows)
	} else {
		rows := make([]*Row, 0, len(table.Records))
		for _, rec := range table.Records {
			row := newRow(rec)
			rows = append(rows, &row)
		}
		payload, err = gocsv.MarshalBytes(&rows)
	}
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	if err := fileutil.WriteAtomic(path, payload, 0o644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}

func newRow(rec Record) Row {
	row := Row{
		SegmentID: rec.SegmentID,
		Emotion:   rec.Emotion,
		Valence:   formatFloat(rec.Valence),
		Arousal:   formatFloat(rec.Arousal),
		Numb:      rec.Numb,
	}
	row.WavStart, row.WavEnd = formatInterval(rec.Wav)
	row.ECGStart, row.ECGEnd = formatInterval(rec.Bio[BioECG])
	row.EDAStart, row.EDAEnd = formatInterval(rec.Bio[BioEDA])
	row.TempStart, row.TempEnd = formatInterval(rec.Bio[BioTemp])
	return row
}

func newVoteRow(rec Record) *VoteRow {
	return &VoteRow{
		Row:      newRow(rec),
		Surprise: formatFloat(rec.Votes[emotion.Surprise]),
		Fear:     formatFloat(rec.Votes[emotion.Fear]),
		Angry:    formatFloat(rec.Votes[emotion.Angry]),
		Neutral:  formatFloat(rec.Votes[emotion.Neutral]),
		Happy:    formatFloat(rec.Votes[emotion.Happy]),
		Sad:      formatFloat(rec.Votes[emotion.Sad]),
		Disgust:  formatFloat(rec.Votes[emotion.Disgust]),
	}
}

func (r *VoteRow) record(multilabel bool) (Record, error) {
	segmentID := strings.TrimSpace(r.SegmentID)
	if segmentID == "" {
		return Record{}, errors.New("empty segment_id")
	}
	valence, err := parseFloat(r.Valence)
	if err != nil {
		return Record{}, fmt.Errorf("valence: %w", err)
	}
	arousal, err := parseFloat(r.Arousal)
	if err != nil {
		return Record{}, fmt.Errorf("arousal: %w", err)
	}
	rec := Record{
		Numb:      r.Numb,
		SegmentID: segmentID,
		Emotion:   r.Emotion,
		Valence:   valence,
		Arousal:   arousal,
		Wav:       ParseInterval(r.WavStart, r.WavEnd),
		Bio: map[BioSignal]Interval{
			BioECG:  ParseInterval(r.ECGStart, r.ECGEnd),
			BioEDA:  ParseInterval(r.EDAStart, r.EDAEnd),
			BioTemp: ParseInterval(r.TempStart, r.TempEnd),
		},
	}
	if !multilabel {
		return rec, nil
	}
	raw := [emotion.NumCategories]string{
		emotion.Surprise: r.Surprise,
		emotion.Fear:     r.Fear,
		emotion.Angry:    r.Angry,
		emotion.Neutral:  r.Neutral,
		emotion.Happy:    r.Happy,
		emotion.Sad:      r.Sad,
		emotion.Disgust:  r.Disgust,
	}
	for idx, value := range raw {
		if strings.TrimSpace(value) == "" {
			continue
		}
		v, err := parseFloat(value)
		if err != nil {
			name, _ := emotion.Name(idx)
			return Record{}, fmt.Errorf("%s votes: %w", name, err)
		}
		rec.Votes[idx] = v
	}
	return rec, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func formatInterval(iv Interval) (string, string) {
	if !iv.Valid {
		return "", ""
	}
	return formatFloat(iv.Start), formatFloat(iv.End)
}

// ParseInterval returns an invalid interval when either bound is blank or
// not numeric.
func ParseInterval(start, end string) Interval {
	s, err := parseFloat(start)
	if err != nil {
		return Interval{}
	}
	e, err := parseFloat(end)
	if err != nil {
		return Interval{}
	}
	return Interval{Start: s, End: e, Valid: true}
}
