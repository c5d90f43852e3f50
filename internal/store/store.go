// Package store reads and writes the pipeline's JSON data files: the active
// news file, one archive file per month and the stats file.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"ainews/aggregator/internal/models"
)

const (
	NewsFile   = "news.json"
	StatsFile  = "stats.json"
	ArchiveDir = "archive"
)

var (
	// ErrNotFound is returned when the requested data file does not exist.
	ErrNotFound = errors.New("data file not found")
	// ErrInvalidMonth is returned for month keys not shaped like YYYY-MM.
	ErrInvalidMonth = errors.New("invalid archive month")

	monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)
)

// FileStore keeps the data files under a single directory.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir. Nothing is created until the
// first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the root data directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path joins a slash separated relative name onto the data directory.
func (s *FileStore) Path(rel string) string {
	return filepath.Join(s.dir, filepath.FromSlash(rel))
}

// ValidMonth reports whether month is a YYYY-MM key.
func ValidMonth(month string) bool {
	return monthPattern.MatchString(month)
}

func (s *FileStore) archivePath(month string) string {
	return filepath.Join(s.dir, ArchiveDir, month+".json")
}

// LoadNews reads the active news file.
func (s *FileStore) LoadNews() (*models.NewsData, error) {
	var data models.NewsData
	if err := readJSON(filepath.Join(s.dir, NewsFile), &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// SaveNews replaces the active news file.
func (s *FileStore) SaveNews(data *models.NewsData) error {
	return writeJSON(filepath.Join(s.dir, NewsFile), data)
}

// LoadArchive reads the archive for month.
func (s *FileStore) LoadArchive(month string) (*models.ArchiveData, error) {
	if !ValidMonth(month) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMonth, month)
	}
	var data models.ArchiveData
	if err := readJSON(s.archivePath(month), &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// SaveArchive writes data to the archive file of data.Month.
func (s *FileStore) SaveArchive(data *models.ArchiveData) error {
	if !ValidMonth(data.Month) {
		return fmt.Errorf("%w: %q", ErrInvalidMonth, data.Month)
	}
	return writeJSON(s.archivePath(data.Month), data)
}

// ListArchiveMonths returns the months that have an archive file, newest first.
func (s *FileStore) ListArchiveMonths() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, ArchiveDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	var months []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		month := strings.TrimSuffix(e.Name(), ".json")
		if ValidMonth(month) {
			months = append(months, month)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	return months, nil
}

// LoadStats reads the stats file.
func (s *FileStore) LoadStats() (*models.NewsStats, error) {
	var stats models.NewsStats
	if err := readJSON(filepath.Join(s.dir, StatsFile), &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// SaveStats replaces the stats file.
func (s *FileStore) SaveStats(stats *models.NewsStats) error {
	return writeJSON(filepath.Join(s.dir, StatsFile), stats)
}

// Files lists the existing data files as slash separated paths relative to
// the data directory.
func (s *FileStore) Files() ([]string, error) {
	var files []string
	for _, name := range []string{NewsFile, StatsFile} {
		if _, err := os.Stat(filepath.Join(s.dir, name)); err == nil {
			files = append(files, name)
		}
	}

	months, err := s.ListArchiveMonths()
	if err != nil {
		return nil, err
	}
	for _, m := range months {
		files = append(files, ArchiveDir+"/"+m+".json")
	}
	return files, nil
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// writeJSON pretty-prints v to a temp file next to path and renames it into
// place so readers never see a partial file.
func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	b = append(b, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file for %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
