package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

const gib = 1024 * 1024 * 1024

// ErrInsufficientSpace reports a filesystem with less free space than required.
var ErrInsufficientSpace = errors.New("preflight: insufficient free disk space")

// Statfs reports total and available bytes of the filesystem holding path.
// Tests may replace it.
var Statfs = realStatfs

func realStatfs(path string) (uint64, uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}

func failed(name, subject, format string, args ...any) Result {
	return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s)", subject, fmt.Sprintf(format, args...))}
}

// CheckDirectoryAccess passes when path is a directory the process can list,
// read and write.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return failed(name, path, "does not exist")
	case err != nil:
		return failed(name, path, "stat: %v", err)
	case !info.IsDir():
		return failed(name, path, "is not a directory")
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return failed(name, path, "insufficient permissions: %v", err)
	}
	return Result{Name: name, Passed: true, Detail: path + " (read/write ok)"}
}

// EnsureFreeSpace fails with ErrInsufficientSpace when the filesystem holding
// path has less than minGiB available. The nearest existing ancestor of path
// is inspected so the check works before the directory is created.
func EnsureFreeSpace(path string, minGiB int) error {
	if minGiB <= 0 {
		return nil
	}
	target := existingAncestor(path)
	_, free, err := Statfs(target)
	if err != nil {
		return fmt.Errorf("statfs %s: %w", target, err)
	}
	if free < uint64(minGiB)*gib {
		return fmt.Errorf("%w: %s has %.1f GiB free, need %d GiB", ErrInsufficientSpace, target, float64(free)/gib, minGiB)
	}
	return nil
}

// CheckFreeSpace wraps EnsureFreeSpace as a Result.
func CheckFreeSpace(name, path string, minGiB int) Result {
	if err := EnsureFreeSpace(path, minGiB); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("at least %d GiB free", minGiB)}
}

func existingAncestor(path string) string {
	current := filepath.Clean(path)
	for {
		if _, err := os.Stat(current); err == nil {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			return current
		}
		current = parent
	}
}

// CheckCorpusLayout verifies that root holds annotation tables and a wav
// directory.
func CheckCorpusLayout(name, root string) Result {
	tables, err := filepath.Glob(filepath.Join(root, "annotation", "*.csv"))
	if err != nil {
		return failed(name, root, "%v", err)
	}
	if len(tables) == 0 {
		return failed(name, root, "no annotation/*.csv tables")
	}
	if info, err := os.Stat(filepath.Join(root, "wav")); err != nil || !info.IsDir() {
		return failed(name, root, "wav directory missing")
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d annotation tables)", root, len(tables))}
}

// CheckDialogLayout verifies that the dialogue corpus pairs every annotation
// file with a waveform.
func CheckDialogLayout(name, root string) Result {
	annotations, _ := filepath.Glob(filepath.Join(root, "annotation", "*.csv"))
	waves, _ := filepath.Glob(filepath.Join(root, "wav", "*.wav"))
	switch {
	case len(annotations) == 0:
		return failed(name, root, "no annotation/*.csv files")
	case len(annotations) != len(waves):
		return failed(name, root, "%d annotations but %d waveforms", len(annotations), len(waves))
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d dialogues)", root, len(annotations))}
}

// CheckFile verifies that path is a readable regular file.
func CheckFile(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		return failed(name, path, "%v", err)
	}
	if info.IsDir() {
		return failed(name, path, "is a directory")
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return failed(name, path, "not readable: %v", err)
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckEncoder passes when the remote feature encoder answers GET /health
// with 200 within five seconds.
func CheckEncoder(ctx context.Context, baseURL string) Result {
	const name = "Feature encoder"
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/health", nil)
	if err != nil {
		return failed(name, base, "%v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return failed(name, base, "health check timed out")
		}
		return failed(name, base, "%v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return failed(name, base, "health returned %d", resp.StatusCode)
	}
	return Result{Name: name, Passed: true, Detail: base + " (reachable)"}
}
