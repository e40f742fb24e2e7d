package receipts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"retailstore/backend/internal/domain"
)

const (
	textSuffix   = ".txt"
	recordSuffix = ".rcpt"
	filePrefix   = "receipt-"
)

// FileArchive keeps one text rendering and one binary record per receipt in a directory.
type FileArchive struct {
	dir    string
	logger zerolog.Logger
}

func NewFileArchive(dir string, logger zerolog.Logger) *FileArchive {
	return &FileArchive{dir: dir, logger: logger}
}

func (a *FileArchive) Dir() string {
	return a.dir
}

func (a *FileArchive) Save(_ context.Context, r domain.Receipt) error {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return domain.IOError("create receipt directory", err)
	}
	base := filepath.Join(a.dir, fileBase(r.Number))
	if err := writeFileAtomic(base+textSuffix, []byte(Render(r))); err != nil {
		return domain.IOError(fmt.Sprintf("write receipt #%d text", r.Number), err)
	}
	if err := writeFileAtomic(base+recordSuffix, Marshal(r)); err != nil {
		return domain.IOError(fmt.Sprintf("write receipt #%d record", r.Number), err)
	}
	return nil
}

// LoadAll returns every decodable receipt ordered by number. A missing directory is empty,
// and unreadable records are skipped with a warning.
func (a *FileArchive) LoadAll(_ context.Context) ([]domain.Receipt, error) {
	entries, err := os.ReadDir(a.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.Receipt{}, nil
	}
	if err != nil {
		return nil, domain.IOError("list receipt directory", err)
	}

	out := make([]domain.Receipt, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordSuffix) {
			continue
		}
		path := filepath.Join(a.dir, entry.Name())
		r, err := readRecord(path)
		if err != nil {
			a.logger.Warn().Err(err).Str("file", path).Msg("skipping unreadable receipt record")
			continue
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(x, y domain.Receipt) int {
		switch {
		case x.Number < y.Number:
			return -1
		case x.Number > y.Number:
			return 1
		}
		return 0
	})
	return out, nil
}

// Load reports found=false for a receipt number that was never saved.
func (a *FileArchive) Load(_ context.Context, number int64) (domain.Receipt, bool, error) {
	path := filepath.Join(a.dir, fileBase(number)+recordSuffix)
	r, err := readRecord(path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Receipt{}, false, nil
	}
	if err != nil {
		return domain.Receipt{}, false, domain.IOError(fmt.Sprintf("load receipt #%d", number), err)
	}
	return r, true, nil
}

func readRecord(path string) (domain.Receipt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Receipt{}, err
	}
	return Unmarshal(data)
}

func fileBase(number int64) string {
	return filePrefix + strconv.FormatInt(number, 10)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
