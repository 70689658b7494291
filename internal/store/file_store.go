package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/AdamBeresnev/tourney/internal/bracket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	primaryFile   = "tournament.json"
	historyDir    = "history"
	historyPrefix = "tournament-"
)

// FileStore keeps one directory per scope:
//
//	<dir>/<scope>/tournament.json
//	<dir>/<scope>/history/tournament-<timestamp>.json
type FileStore struct {
	dir   string
	clock clockwork.Clock
	keep  int
}

func NewFileStore(dir string, clock clockwork.Clock) *FileStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &FileStore{dir: dir, clock: clock, keep: HistoryLimit}
}

func (s *FileStore) Save(ctx context.Context, scope string, t *bracket.Tournament) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	scopeDir, err := s.scopeDir(scope)
	if err != nil {
		return err
	}

	data, err := encode(t)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Join(scopeDir, historyDir), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	now := s.clock.Now().UTC()
	if err := writeAtomic(filepath.Join(scopeDir, primaryFile), data, now); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	// The primary copy is already durable, history problems only cost a rollback point
	name := historyPrefix + now.Format("20060102T150405.000000000Z") + ".json"
	if err := writeAtomic(filepath.Join(scopeDir, historyDir, name), data, now); err != nil {
		log.Warn().Err(err).Str("scope", scope).Msg("failed to write snapshot history")
		return nil
	}
	if err := s.prune(scopeDir); err != nil {
		log.Warn().Err(err).Str("scope", scope).Msg("failed to prune snapshot history")
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context, scope string) (*bracket.Tournament, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	scopeDir, err := s.scopeDir(scope)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(scopeDir, primaryFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return decode(data)
}

// History lists the retained dated copies, newest first.
func (s *FileStore) History(ctx context.Context, scope string) ([]Revision, error) {
	scopeDir, err := s.scopeDir(scope)
	if err != nil {
		return nil, err
	}
	files, err := s.historyFiles(scopeDir)
	if err != nil {
		return nil, err
	}
	revisions := make([]Revision, 0, len(files))
	for _, f := range files {
		revisions = append(revisions, Revision{Name: f.name, SavedAt: f.modTime})
	}
	return revisions, nil
}

func (s *FileStore) scopeDir(scope string) (string, error) {
	clean, err := ValidateScope(scope)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, clean), nil
}

type historyFile struct {
	name    string
	modTime time.Time
}

func (s *FileStore) historyFiles(scopeDir string) ([]historyFile, error) {
	entries, err := os.ReadDir(filepath.Join(scopeDir, historyDir))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var files []historyFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), historyPrefix) || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, historyFile{name: e.Name(), modTime: info.ModTime()})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].modTime.Equal(files[j].modTime) {
			return files[i].name > files[j].name
		}
		return files[i].modTime.After(files[j].modTime)
	})
	return files, nil
}

func (s *FileStore) prune(scopeDir string) error {
	files, err := s.historyFiles(scopeDir)
	if err != nil {
		return err
	}
	for i := s.keep; i < len(files); i++ {
		if err := os.Remove(filepath.Join(scopeDir, historyDir, files[i].name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// writeAtomic writes to a temp file in the same directory and renames it over path,
// so readers only ever see a complete file.
func writeAtomic(path string, data []byte, modTime time.Time) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chtimes(tmpName, modTime, modTime); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
