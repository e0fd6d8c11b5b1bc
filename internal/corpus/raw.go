package corpus

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/annotation"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/logging"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/transcript"
)

// Canonical raw columns. They match the cache column names.
const (
	colNumb      = "numb"
	colWavStart  = "wav_start"
	colWavEnd    = "wav_end"
	colECGStart  = "ecg_start"
	colECGEnd    = "ecg_end"
	colEDAStart  = "e4-eda_start"
	colEDAEnd    = "e4-eda_end"
	colTempStart = "e4-temp_start"
	colTempEnd   = "e4-temp_end"
	colSegmentID = annotation.ColumnSegmentID
	colEmotion   = annotation.ColumnEmotion
	colValence   = annotation.ColumnValence
	colArousal   = annotation.ColumnArousal
)

var bioColumns = map[annotation.BioSignal][2]string{
	annotation.BioECG:  {colECGStart, colECGEnd},
	annotation.BioEDA:  {colEDAStart, colEDAEnd},
	annotation.BioTemp: {colTempStart, colTempEnd},
}

// layout resolves canonical column positions for one raw table.
type layout interface {
	// bind returns column positions and the rows that may hold data.
	bind(rows [][]string) (map[string]int, [][]string, error)
}

// namedLayout reads the first row as a header and renames it through an
// alias table. Blank header cells become "unnamed: <index>".
type namedLayout struct {
	aliases map[string]string
}

func (l namedLayout) bind(rows [][]string) (map[string]int, [][]string, error) {
	if len(rows) == 0 {
		return nil, nil, errors.New("table has no header row")
	}
	positions := make(map[string]int, len(l.aliases))
	for i, cell := range rows[0] {
		key := strings.ToLower(strings.TrimSpace(cell))
		if key == "" {
			key = "unnamed: " + strconv.Itoa(i)
		}
		if canonical, ok := l.aliases[key]; ok {
			if _, dup := positions[canonical]; !dup {
				positions[canonical] = i
			}
		}
	}
	for _, required := range annotation.RequiredColumns {
		if _, ok := positions[required]; !ok {
			return nil, nil, fmt.Errorf("header lacks a %s column", required)
		}
	}
	return positions, rows[1:], nil
}

// positionalLayout assigns canonical columns by position. Header rows are
// dropped later by the numeric Numb filter.
type positionalLayout struct {
	columns []string
}

func (l positionalLayout) bind(rows [][]string) (map[string]int, [][]string, error) {
	positions := make(map[string]int, len(l.columns))
	for i, name := range l.columns {
		positions[name] = i
	}
	return positions, rows, nil
}

// DiscoverTables lists the per-session annotation tables under root in
// sorted order.
func DiscoverTables(root string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(root, "annotation", "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("glob annotation tables: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no annotation/*.csv under %s", annotation.ErrMissingInput, root)
	}
	sort.Strings(paths)
	return paths, nil
}

// mergeStats counts rows dropped while merging.
type mergeStats struct {
	tables     int
	nonData    int
	invalid    int
	duplicates int
}

func mergeTables(ctx context.Context, root string, l layout, logger *slog.Logger) ([]annotation.Record, error) {
	paths, err := DiscoverTables(root)
	if err != nil {
		return nil, err
	}

	var (
		records []annotation.Record
		stats   mergeStats
		seen    = make(map[string]string)
	)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := readTable(path)
		if err != nil {
			return nil, err
		}
		positions, body, err := l.bind(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		stats.tables++
		for _, row := range body {
			if _, ok := positions[colNumb]; ok && !isInteger(cell(row, positions, colNumb)) {
				stats.nonData++
				continue
			}
			rec, err := buildRecord(row, positions)
			if err != nil {
				stats.invalid++
				logger.Debug("skipping unusable annotation row",
					logging.String("table", filepath.Base(path)),
					logging.Error(err),
				)
				continue
			}
			if first, dup := seen[rec.SegmentID]; dup {
				stats.duplicates++
				logging.WarnWithContext(logger, "duplicate segment id in raw annotations", "annotation_duplicate_segment",
					logging.String(logging.FieldSegmentID, rec.SegmentID),
					logging.String("first_table", filepath.Base(first)),
					logging.String("table", filepath.Base(path)),
					logging.String(logging.FieldImpact, "later row ignored"),
					logging.String(logging.FieldErrorHint, "check the raw annotation tables for repeated rows"),
				)
				continue
			}
			seen[rec.SegmentID] = path
			records = append(records, rec)
		}
	}

	logger.Info("raw annotation tables merged",
		logging.String("root", root),
		logging.Int("tables", stats.tables),
		logging.Int("rows", len(records)),
		logging.Int("non_data_rows", stats.nonData),
		logging.Int("invalid_rows", stats.invalid),
		logging.Int("duplicates", stats.duplicates),
	)
	return records, nil
}

func buildRecord(row []string, positions map[string]int) (annotation.Record, error) {
	segmentID := cell(row, positions, colSegmentID)
	if segmentID == "" {
		return annotation.Record{}, errors.New("blank segment id")
	}
	valence, err := strconv.ParseFloat(cell(row, positions, colValence), 64)
	if err != nil {
		return annotation.Record{}, fmt.Errorf("%s valence: %w", segmentID, err)
	}
	arousal, err := strconv.ParseFloat(cell(row, positions, colArousal), 64)
	if err != nil {
		return annotation.Record{}, fmt.Errorf("%s arousal: %w", segmentID, err)
	}
	rec := annotation.Record{
		Numb:      normalizeInteger(cell(row, positions, colNumb)),
		SegmentID: segmentID,
		Emotion:   cell(row, positions, colEmotion),
		Valence:   valence,
		Arousal:   arousal,
		Wav:       annotation.ParseInterval(cell(row, positions, colWavStart), cell(row, positions, colWavEnd)),
	}
	for signal, cols := range bioColumns {
		if _, ok := positions[cols[0]]; !ok {
			continue
		}
		if rec.Bio == nil {
			rec.Bio = make(map[annotation.BioSignal]annotation.Interval, len(bioColumns))
		}
		rec.Bio[signal] = annotation.ParseInterval(cell(row, positions, cols[0]), cell(row, positions, cols[1]))
	}
	return rec, nil
}

// readTable parses a raw annotation CSV. Ragged rows are allowed, a UTF-8
// byte order mark is dropped, and non-UTF-8 files are decoded as cp949.
func readTable(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read annotation table: %w", err)
	}
	text := string(data)
	if !utf8.Valid(data) {
		if text, err = transcript.Decode(data, "cp949"); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	text = strings.TrimPrefix(text, "\ufeff")

	reader := csv.NewReader(bytes.NewReader([]byte(text)))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rows, nil
}

func cell(row []string, positions map[string]int, column string) string {
	idx, ok := positions[column]
	if !ok || idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// isInteger accepts "12" and integral floats such as "12.0".
func isInteger(s string) bool {
	if s == "" {
		return false
	}
	if _, err := strconv.Atoi(s); err == nil {
		return true
	}
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && f == math.Trunc(f) && !math.IsInf(f, 0)
}

func normalizeInteger(s string) string {
	if _, err := strconv.Atoi(s); err == nil {
		return s
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}
