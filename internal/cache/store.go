package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog"
)

// ErrMiss is returned by Load for any entry that cannot be used: absent,
// unreadable, or undecodable. Callers treat all of these as "go fetch".
var ErrMiss = errors.New("cache miss")

// Store is a write-once-read-many file cache rooted at one directory.
// Safe for concurrent use: entries are immutable and writes are atomic.
type Store struct {
	root string
	log  zerolog.Logger
}

// NewStore creates a Store rooted at dir, creating the directory if absent.
func NewStore(dir string, log zerolog.Logger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("cache directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &Store{root: dir, log: log.With().Str("component", "cache").Logger()}, nil
}

// Root returns the cache root directory.
func (s *Store) Root() string {
	return s.root
}

// Path returns the entry path for a (tree, shot, expression) tuple. The
// mapping is deterministic: identical inputs always yield the same path.
func (s *Store) Path(tree string, shotNum int64, expr string) string {
	sum := sha256.Sum256([]byte(expr))
	return filepath.Join(s.root, tree, strconv.FormatInt(shotNum, 10), hex.EncodeToString(sum[:]))
}

// Load reads the entry for the tuple into out. Every failure mode is
// collapsed into ErrMiss; anything other than plain absence is also logged
// at warn so persistent problems (say, a permission error) stay visible.
func (s *Store) Load(tree string, shotNum int64, expr string, out any) error {
	path := s.Path(tree, shotNum, expr)

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn().Err(err).Str("path", path).Msg("unreadable cache entry, refetching")
		}
		return ErrMiss
	}

	if err := cbor.Unmarshal(data, out); err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("corrupt cache entry, refetching")
		return ErrMiss
	}
	return nil
}

// Save writes the entry for the tuple, creating the (tree, shot) directory
// if absent. The blob lands under a temp name and is renamed into place so
// a crash mid-write never leaves a partial entry at the final path. Write
// failures propagate to the caller.
func (s *Store) Save(tree string, shotNum int64, expr string, v any) error {
	data, err := cbor.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	path := s.Path(tree, shotNum, expr)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating cache entry directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("committing cache entry: %w", err)
	}
	return nil
}

// Entry describes one stored cache file, for the management commands.
type Entry struct {
	Tree    string
	Shot    int64
	Digest  string
	Size    int64
	ModTime time.Time
}

// Entries walks the cache and lists every stored entry. Files that do not
// fit the <tree>/<shot>/<digest> layout are skipped.
func (s *Store) Entries() ([]Entry, error) {
	var out []Entry
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) != 3 {
			return nil
		}
		shotNum, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, Entry{
			Tree:    parts[0],
			Shot:    shotNum,
			Digest:  parts[2],
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking cache: %w", err)
	}
	return out, nil
}

// Size returns the total bytes stored across all entries.
func (s *Store) Size() (int64, error) {
	entries, err := s.Entries()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, e := range entries {
		total += e.Size
	}
	return total, nil
}

// Clear removes every entry under the cache root, keeping the root itself.
func (s *Store) Clear() error {
	children, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("reading cache root: %w", err)
	}
	for _, c := range children {
		if err := os.RemoveAll(filepath.Join(s.root, c.Name())); err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
	}
	return nil
}
