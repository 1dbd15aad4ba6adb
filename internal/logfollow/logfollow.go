// Package logfollow implements C6: the rotation-aware, compression-aware
// byte-offset tracker from spec.md §4.6. It mirrors the original
// daemon's daemonLoop inode/offset bookkeeping: rotation is detected by
// inode change, truncation by a shrinking size, and both force a
// rescan from offset zero.
package logfollow

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/dotX12/denyhosts-go/internal/domain"
)

// OffsetStore is the subset of *store.Store this package depends on.
type OffsetStore interface {
	LoadOffset(path string) (domain.FileOffset, bool, error)
	SaveOffset(o domain.FileOffset) error
}

// Tick describes what a single Tracker.Poll call found: either no
// change, or a byte range of the (possibly reopened) file to classify.
type Tick struct {
	Lines   []string
	Changed bool
}

// Tracker follows one log path across rotation, truncation, and
// compression, matching spec.md §4.6's four-step per-tick algorithm.
type Tracker struct {
	logger zerolog.Logger
	store  OffsetStore
	path   string

	state domain.FileOffset
	known bool
}

// New loads any previously persisted offset for path.
func New(logger zerolog.Logger, store OffsetStore, path string) (*Tracker, error) {
	t := &Tracker{logger: logger, store: store, path: path}
	state, ok, err := store.LoadOffset(path)
	if err != nil {
		return nil, err
	}
	if ok {
		t.state = state
		t.known = true
	} else {
		t.state = domain.FileOffset{Path: path}
	}
	return t, nil
}

// Poll executes one tick of spec.md §4.6's algorithm: stat, detect
// rotation/truncation, read new lines, and persist the new offset.
func (t *Tracker) Poll() (Tick, error) {
	info, err := os.Stat(t.path)
	if os.IsNotExist(err) {
		t.logger.Warn().Str("path", t.path).Msg("log file missing, will retry next tick")
		return Tick{}, nil
	}
	if err != nil {
		return Tick{}, fmt.Errorf("stat %s: %w", t.path, err)
	}

	inode, err := inodeOf(info)
	if err != nil {
		return Tick{}, err
	}

	if t.known && inode != t.state.Inode {
		t.logger.Info().Str("path", t.path).Msg("log file rotated")
		t.state.Offset = 0 // sentinel: force a rescan of the new file from zero
	}
	t.state.Inode = inode
	t.known = true

	size := info.Size()
	if isCompressed(t.path) && size > 0 {
		// The offset of a compressed log counts decompressed bytes, so it
		// is compared against the decompressed length, not the file size.
		if _, size, err = t.readFrom(0); err != nil {
			return Tick{}, err
		}
	}
	switch {
	case size > t.state.Offset:
		lines, newOffset, err := t.readFrom(t.state.Offset)
		if err != nil {
			return Tick{}, err
		}
		t.state.Offset = newOffset
		if err := t.store.SaveOffset(t.state); err != nil {
			return Tick{}, err
		}
		return Tick{Lines: lines, Changed: true}, nil

	case size == 0 || size == t.state.Offset:
		return Tick{}, nil

	default: // size < t.state.Offset: rotated-in-place or truncated
		t.logger.Debug().Str("path", t.path).Msg("log shrank, resetting offset and refreshing first-line fingerprint")
		t.state.Offset = 0
		if err := t.refreshFirstLine(); err != nil {
			return Tick{}, err
		}
		return Tick{}, nil
	}
}

func (t *Tracker) readFrom(offset int64) (lines []string, newOffset int64, err error) {
	f, err := os.Open(t.path)
	if err != nil {
		return nil, offset, fmt.Errorf("opening %s: %w", t.path, err)
	}
	defer f.Close()

	// A compressed log (spec.md §4.6: "compressed logs are opened
	// transparently") is decompressed wholesale and re-scanned from the
	// decompressed stream's own offset; the persisted offset therefore
	// tracks decompressed bytes, not the compressed file's size.
	if isCompressed(t.path) {
		r, err := decompressReader(t.path, f)
		if err != nil {
			return nil, offset, err
		}
		scanner := bufio.NewScanner(r)
		var consumed int64
		for scanner.Scan() {
			consumed += int64(len(scanner.Bytes())) + 1
			if consumed <= offset {
				continue
			}
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, offset, fmt.Errorf("reading %s: %w", t.path, err)
		}
		return lines, consumed, nil
	}

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seeking %s: %w", t.path, err)
	}

	scanner := bufio.NewScanner(f)
	var consumed int64 = offset
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		consumed += int64(len(scanner.Bytes())) + 1
	}
	if err := scanner.Err(); err != nil {
		return nil, offset, fmt.Errorf("reading %s: %w", t.path, err)
	}

	pos, err := f.Seek(0, io.SeekCurrent)
	if err == nil {
		consumed = pos
	}
	return lines, consumed, nil
}

func isCompressed(path string) bool {
	return strings.HasSuffix(path, ".gz") || strings.HasSuffix(path, ".bz2")
}

func decompressReader(path string, f *os.File) (io.Reader, error) {
	switch {
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream %s: %w", path, err)
		}
		return gz, nil
	case strings.HasSuffix(path, ".bz2"):
		return bzip2.NewReader(f), nil
	default:
		return f, nil
	}
}

func (t *Tracker) refreshFirstLine() error {
	f, err := os.Open(t.path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", t.path, err)
	}
	defer f.Close()

	r, err := decompressReader(t.path, f)
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(r)
	if scanner.Scan() {
		t.state.FirstLineHash = fingerprint(scanner.Text())
	} else {
		t.state.FirstLineHash = ""
	}
	return t.store.SaveOffset(t.state)
}

func fingerprint(line string) string {
	const prefixLen = 64
	if len(line) <= prefixLen {
		return line
	}
	return line[:prefixLen]
}

func inodeOf(info os.FileInfo) (uint64, error) {
	stat, ok := info.Sys().(*unix.Stat_t)
	if !ok {
		return 0, fmt.Errorf("unsupported platform: cannot extract inode for %s", info.Name())
	}
	return stat.Ino, nil
}

// ReadArchived transparently decompresses path (.gz or .bz2) and
// returns every line, for reprocessing rotated-away archives (spec.md
// §4.6: "offsets apply to the decompressed stream").
func ReadArchived(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}
	defer f.Close()

	r, err := decompressReader(path, f)
	if err != nil {
		return nil, err
	}
	if gz, ok := r.(*gzip.Reader); ok {
		defer gz.Close()
	}

	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}
