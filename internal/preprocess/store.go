package preprocess

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/dataset"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/fileutil"
)

// MetadataFile is written next to the shards of every materialization.
const MetadataFile = "metadata.json"

// formatVersion is bumped whenever the shard schema changes.
const formatVersion = 1

// ErrStaleMaterialization reports a directory that exists but cannot be
// reused as-is.
var ErrStaleMaterialization = errors.New("preprocess: materialization is stale")

// ShardInfo describes one Arrow IPC file.
type ShardInfo struct {
	File   string `json:"file"`
	Rows   int    `json:"rows"`
	Bytes  int64  `json:"bytes"`
	SHA256 string `json:"sha256"`
	// Batches lists the row count of each record batch in file order.
	Batches []int `json:"batches"`
}

// Metadata is the JSON manifest of a materialization.
type Metadata struct {
	FormatVersion int         `json:"format_version"`
	Fingerprint   string      `json:"fingerprint"`
	BuildID       string      `json:"build_id"`
	CreatedAt     time.Time   `json:"created_at"`
	Corpora       string      `json:"corpora"`
	Mode          string      `json:"mode"`
	Fold          int         `json:"fold"`
	Multilabel    bool        `json:"multilabel"`
	RemoveDeuce   bool        `json:"remove_deuce"`
	SamplingRate  int         `json:"sampling_rate"`
	MaxLengthWav  int         `json:"max_length_wav"`
	MaxLengthText int         `json:"max_length_txt"`
	Rows          int         `json:"rows"`
	PartialRows   int         `json:"partial_rows"`
	Shards        []ShardInfo `json:"shards"`
}

func shardName(index int) string {
	return fmt.Sprintf("data-%05d.arrow", index)
}

// shardWriter appends record batches to data-NNNNN.arrow files, rotating
// once a shard reaches its row budget.
type shardWriter struct {
	dir       string
	shardRows int
	mem       memory.Allocator

	file   *os.File
	writer *ipc.FileWriter
	shards []ShardInfo
}

func newShardWriter(dir string, shardRows int) *shardWriter {
	return &shardWriter{dir: dir, shardRows: shardRows, mem: memory.NewGoAllocator()}
}

func (w *shardWriter) write(examples []dataset.Example) error {
	for start := 0; start < len(examples); {
		if w.writer == nil || w.shards[len(w.shards)-1].Rows >= w.shardRows {
			if err := w.rotate(); err != nil {
				return err
			}
		}
		current := &w.shards[len(w.shards)-1]
		end := start + recordRows
		if room := start + w.shardRows - current.Rows; end > room {
			end = room
		}
		if end > len(examples) {
			end = len(examples)
		}
		rec := buildRecord(w.mem, examples[start:end])
		err := w.writer.Write(rec)
		rec.Release()
		if err != nil {
			return fmt.Errorf("write %s: %w", current.File, err)
		}
		current.Rows += end - start
		current.Batches = append(current.Batches, end-start)
		start = end
	}
	return nil
}

func (w *shardWriter) rotate() error {
	if err := w.closeCurrent(); err != nil {
		return err
	}
	name := shardName(len(w.shards))
	file, err := os.Create(filepath.Join(w.dir, name))
	if err != nil {
		return fmt.Errorf("create shard: %w", err)
	}
	writer, err := ipc.NewFileWriter(file, ipc.WithSchema(exampleSchema), ipc.WithAllocator(w.mem))
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("open shard writer: %w", err)
	}
	w.file, w.writer = file, writer
	w.shards = append(w.shards, ShardInfo{File: name})
	return nil
}

func (w *shardWriter) closeCurrent() error {
	if w.writer == nil {
		return nil
	}
	err := w.writer.Close()
	if closeErr := w.file.Close(); err == nil {
		err = closeErr
	}
	w.writer, w.file = nil, nil
	if err != nil {
		return fmt.Errorf("close shard: %w", err)
	}
	return nil
}

// finish closes the open shard and returns every shard written with its
// size and checksum.
func (w *shardWriter) finish() ([]ShardInfo, error) {
	if err := w.closeCurrent(); err != nil {
		return nil, err
	}
	for i := range w.shards {
		sum, size, err := fileutil.HashFile(filepath.Join(w.dir, w.shards[i].File))
		if err != nil {
			return nil, fmt.Errorf("checksum shard: %w", err)
		}
		w.shards[i].SHA256, w.shards[i].Bytes = sum, size
	}
	return w.shards, nil
}

func writeMetadata(dir string, meta Metadata) error {
	payload, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := fileutil.WriteAtomic(filepath.Join(dir, MetadataFile), append(payload, '\n'), 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// ReadMetadata loads the manifest of the materialization in dir.
func ReadMetadata(dir string) (Metadata, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return Metadata{}, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, fmt.Errorf("%w: parse metadata: %v", ErrStaleMaterialization, err)
	}
	return meta, nil
}

type shardReader struct {
	file   *os.File
	reader *ipc.FileReader
}

type span struct {
	shard int
	batch int
	start int
	end   int
}

// Dataset is a materialization opened for reading. It implements
// dataset.Source; the most recently decoded record batch is kept in memory.
type Dataset struct {
	dir    string
	meta   Metadata
	shards []shardReader
	spans  []span

	mu      sync.Mutex
	current int
	rows    []dataset.Example
}

// Open validates the materialization in dir against fingerprint and opens
// its shards. A missing directory or manifest yields an error satisfying
// errors.Is(err, fs.ErrNotExist); any inconsistency yields
// ErrStaleMaterialization.
func Open(dir, fingerprint string) (*Dataset, error) {
	meta, err := ReadMetadata(dir)
	if err != nil {
		return nil, err
	}
	if meta.FormatVersion != formatVersion {
		return nil, fmt.Errorf("%w: format version %d, want %d", ErrStaleMaterialization, meta.FormatVersion, formatVersion)
	}
	if meta.Fingerprint != fingerprint {
		return nil, fmt.Errorf("%w: fingerprint %q, want %q", ErrStaleMaterialization, meta.Fingerprint, fingerprint)
	}

	ds := &Dataset{dir: dir, meta: meta, current: -1}
	total := 0
	for i, info := range meta.Shards {
		file, err := os.Open(filepath.Join(dir, info.File))
		if err != nil {
			_ = ds.Close()
			return nil, fmt.Errorf("%w: open shard %s: %v", ErrStaleMaterialization, info.File, err)
		}
		if stat, err := file.Stat(); err != nil || stat.Size() != info.Bytes {
			_ = file.Close()
			_ = ds.Close()
			return nil, fmt.Errorf("%w: shard %s size differs from its manifest", ErrStaleMaterialization, info.File)
		}
		reader, err := ipc.NewFileReader(file, ipc.WithAllocator(memory.NewGoAllocator()))
		if err != nil {
			_ = file.Close()
			_ = ds.Close()
			return nil, fmt.Errorf("%w: read shard %s: %v", ErrStaleMaterialization, info.File, err)
		}
		ds.shards = append(ds.shards, shardReader{file: file, reader: reader})
		if !reader.Schema().Equal(exampleSchema) || reader.NumRecords() != len(info.Batches) {
			_ = ds.Close()
			return nil, fmt.Errorf("%w: shard %s does not match its manifest", ErrStaleMaterialization, info.File)
		}
		shardRows := 0
		for b, rows := range info.Batches {
			ds.spans = append(ds.spans, span{shard: i, batch: b, start: total, end: total + rows})
			total += rows
			shardRows += rows
		}
		if shardRows != info.Rows {
			_ = ds.Close()
			return nil, fmt.Errorf("%w: shard %s holds %d rows, manifest says %d", ErrStaleMaterialization, info.File, shardRows, info.Rows)
		}
	}
	if total != meta.Rows {
		_ = ds.Close()
		return nil, fmt.Errorf("%w: %d rows in shards, manifest says %d", ErrStaleMaterialization, total, meta.Rows)
	}
	return ds, nil
}

// Dir returns the materialization directory.
func (d *Dataset) Dir() string {
	return d.dir
}

// Metadata returns the manifest.
func (d *Dataset) Metadata() Metadata {
	return d.meta
}

// Name returns the corpus list the materialization was built from.
func (d *Dataset) Name() string {
	return d.meta.Corpora
}

// Len returns the number of materialized examples.
func (d *Dataset) Len() int {
	return d.meta.Rows
}

// Get returns example i.
func (d *Dataset) Get(ctx context.Context, i int) (dataset.Example, error) {
	if i < 0 || i >= d.meta.Rows {
		return dataset.Example{}, fmt.Errorf("%w: %d not in [0, %d)", dataset.ErrIndexOutOfRange, i, d.meta.Rows)
	}
	if err := ctx.Err(); err != nil {
		return dataset.Example{}, err
	}
	idx := sort.Search(len(d.spans), func(k int) bool { return d.spans[k].end > i })
	sp := d.spans[idx]

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current != idx {
		rec, err := d.shards[sp.shard].reader.Record(sp.batch)
		if err != nil {
			return dataset.Example{}, fmt.Errorf("read %s batch %d: %w", d.meta.Shards[sp.shard].File, sp.batch, err)
		}
		d.rows = decodeRecord(rec)
		d.current = idx
	}
	return d.rows[i-sp.start], nil
}

// Close releases every shard.
func (d *Dataset) Close() error {
	var firstErr error
	for _, s := range d.shards {
		if err := s.reader.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := s.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	d.shards = nil
	return firstErr
}

// ErrChecksumMismatch reports a shard whose content differs from the digest
// recorded at build time.
var ErrChecksumMismatch = errors.New("preprocess: shard checksum mismatch")

// Verify rehashes every shard of the materialization in dir and compares the
// digests with the manifest.
func Verify(dir string) error {
	meta, err := ReadMetadata(dir)
	if err != nil {
		return err
	}
	for _, info := range meta.Shards {
		sum, _, err := fileutil.HashFile(filepath.Join(dir, info.File))
		if err != nil {
			return fmt.Errorf("hash %s: %w", info.File, err)
		}
		if sum != info.SHA256 {
			return fmt.Errorf("%w: %s", ErrChecksumMismatch, info.File)
		}
	}
	return nil
}
