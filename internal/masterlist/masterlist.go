// Package masterlist maintains the persisted, deduplicated list of discovered
// domains, one name per line.
package masterlist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"

	"censys-toolkit/internal/fsutil"
	"censys-toolkit/internal/logging"
	"censys-toolkit/internal/model"
)

// Mode selects how incoming names are merged into the existing list.
type Mode int

const (
	// ModeUpdate keeps the sorted union.
	ModeUpdate Mode = iota
	// ModeAppend keeps existing order and adds new names at the end.
	ModeAppend
	// ModeReplace discards the existing list.
	ModeReplace
)

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "update", "":
		return ModeUpdate, nil
	case "append":
		return ModeAppend, nil
	case "replace":
		return ModeReplace, nil
	}
	return 0, &model.ConfigurationError{Setting: "mode", Value: s, Reason: "choose update, append or replace"}
}

func (m Mode) String() string {
	switch m {
	case ModeUpdate:
		return "update"
	case ModeAppend:
		return "append"
	case ModeReplace:
		return "replace"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// IOError reports a master list file that could not be read, written or locked.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("master list %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

type Options struct {
	Logger *slog.Logger
	// FileMode applies to saved lists. Defaults to 0644.
	FileMode fs.FileMode
}

type Manager struct {
	logger *slog.Logger
	perm   fs.FileMode
}

func New(opts Options) *Manager {
	perm := opts.FileMode
	if perm == 0 {
		perm = 0o644
	}
	return &Manager{
		logger: logging.OrDiscard(opts.Logger).With("component", "masterlist"),
		perm:   perm,
	}
}

// Load reads the list at path. A missing file is an error unless mode is
// ModeReplace, which starts from an empty list.
func (m *Manager) Load(path string, mode Mode) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && mode == ModeReplace {
			return []string{}, nil
		}
		return nil, &IOError{Op: "load", Path: path, Err: err}
	}
	defer f.Close()

	names, err := m.readLines(f, path)
	if err != nil {
		return nil, &IOError{Op: "load", Path: path, Err: err}
	}
	return names, nil
}

// readLines parses one name per line. Blank lines and # comments are
// ignored; invalid names are logged and skipped; duplicates keep the first.
func (m *Manager) readLines(r io.Reader, origin string) ([]string, error) {
	var raw []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		raw = append(raw, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return m.clean(raw, origin), nil
}

// clean normalizes names, dropping invalid entries and duplicates.
func (m *Manager) clean(raw []string, origin string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, name := range raw {
		normalized, err := model.NormalizeName(name)
		if err != nil {
			m.logger.Warn("skipping invalid entry", "source", origin, "entry", name, "error", err)
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

// Merge combines existing and incoming according to mode. Both inputs are
// expected to be normalized; the result never contains duplicates.
func Merge(existing, incoming []string, mode Mode) []string {
	switch mode {
	case ModeUpdate:
		out := appendNew(appendNew(nil, existing), incoming)
		sort.Strings(out)
		return out
	case ModeAppend:
		return appendNew(appendNew(nil, existing), incoming)
	case ModeReplace:
		return appendNew(nil, incoming)
	}
	panic(fmt.Sprintf("masterlist: unknown mode %d", int(mode)))
}

// appendNew appends names not already in dst, preserving order.
func appendNew(dst, names []string) []string {
	seen := make(map[string]struct{}, len(dst)+len(names))
	for _, n := range dst {
		seen[n] = struct{}{}
	}
	if dst == nil {
		dst = make([]string, 0, len(names))
	}
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		dst = append(dst, n)
	}
	return dst
}

// Save writes list atomically. On failure the previous file is left untouched.
func (m *Manager) Save(path string, list []string) error {
	err := fsutil.WriteAtomic(path, m.perm, func(w io.Writer) error {
		for _, name := range list {
			if _, err := io.WriteString(w, name+"\n"); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &IOError{Op: "save", Path: path, Err: err}
	}
	return nil
}

type Result struct {
	// Added counts names in the new list that were not in the old one.
	Added int
	// Removed counts names dropped by a replace.
	Removed int
	Total   int
	List    []string
}

// Update loads, merges and saves under an exclusive lock on path + ".lock".
func (m *Manager) Update(path string, incoming []string, mode Mode) (Result, error) {
	unlock, err := lockFile(path + ".lock")
	if err != nil {
		return Result{}, &IOError{Op: "lock", Path: path, Err: err}
	}
	defer func() {
		if err := unlock(); err != nil {
			m.logger.Warn("could not release lock", "path", path, "error", err)
		}
	}()

	existing, err := m.Load(path, mode)
	if err != nil {
		return Result{}, err
	}
	merged := Merge(existing, m.clean(incoming, "incoming"), mode)

	before := make(map[string]struct{}, len(existing))
	for _, n := range existing {
		before[n] = struct{}{}
	}
	res := Result{Total: len(merged), List: merged}
	for _, n := range merged {
		if _, ok := before[n]; ok {
			delete(before, n)
			continue
		}
		res.Added++
	}
	res.Removed = len(before)

	if err := m.Save(path, merged); err != nil {
		return Result{}, err
	}
	m.logger.Info("master list updated",
		"path", path,
		"mode", mode,
		"added", res.Added,
		"removed", res.Removed,
		"total", res.Total,
	)
	return res, nil
}
