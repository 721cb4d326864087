package flatfile

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sasha-s/go-deadlock"
	"github.com/simaogato/ledger-backend/internal/domain"
)

// File names inside the data directory
const (
	CustomersFile    = "customers.txt"
	AccountsFile     = "accounts.txt"
	TransactionsFile = "transactions.txt"
	PasswordsFile    = "passwords.txt"
)

const (
	separator     = "|"
	savedAtLayout = "2006-01-02 15:04:05"
	maxLineBytes  = 1 << 20
)

// dataFile is one record file and the lock that serialises access to it
type dataFile struct {
	mu   deadlock.Mutex
	name string
	path string
}

// Store is the flat-file ledger store. Each file is guarded by its own lock; a rewrite
// holds the lock from the read until the replacement has been renamed into place.
type Store struct {
	dir    string
	codec  codec
	logger *slog.Logger

	customers    *dataFile
	accounts     *dataFile
	transactions *dataFile
	passwords    *dataFile
}

// NewStore creates a store rooted at dir.
// policy supplies the account parameters that the record format does not carry.
func NewStore(dir string, policy domain.Policy, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	newFile := func(name string) *dataFile {
		return &dataFile{name: name, path: filepath.Join(dir, name)}
	}
	return &Store{
		dir:          dir,
		codec:        codec{policy: policy, now: time.Now},
		logger:       logger.With("component", "flatfile"),
		customers:    newFile(CustomersFile),
		accounts:     newFile(AccountsFile),
		transactions: newFile(TransactionsFile),
		passwords:    newFile(PasswordsFile),
	}
}

// Dir returns the data directory
func (s *Store) Dir() string {
	return s.dir
}

// Init creates the data directory and any missing record file
func (s *Store) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return s.ioError("create data directory", s.dir, err)
	}
	for _, f := range s.files() {
		f.mu.Lock()
		file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY, 0o644)
		if err == nil {
			err = file.Close()
		}
		f.mu.Unlock()
		if err != nil {
			return s.ioError("create", f.name, err)
		}
	}
	s.logger.Debug("data files initialised", "dir", s.dir)
	return nil
}

func (s *Store) files() []*dataFile {
	return []*dataFile{s.customers, s.accounts, s.transactions, s.passwords}
}

// appendLine writes one record at the end of the file
func (s *Store) appendLine(ctx context.Context, f *dataFile, line string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return s.ioError("open", f.name, err)
	}
	if _, err := file.WriteString(line + "\n"); err != nil {
		file.Close()
		return s.ioError("append to", f.name, err)
	}
	if err := file.Close(); err != nil {
		return s.ioError("close", f.name, err)
	}
	return nil
}

// readAll returns the non-empty lines of the file. A missing file is empty.
func (s *Store) readAll(ctx context.Context, f *dataFile) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	lines, err := readLines(f.path)
	if err != nil {
		return nil, s.ioError("read", f.name, err)
	}
	return lines, nil
}

// lineEdit decides the fate of one line during a rewrite:
// matched marks the line as a hit, keep=false drops it, out replaces it when kept
type lineEdit func(line string) (out string, keep, matched bool)

// rewrite streams the file through edit into a temporary file and renames it over the
// original. When nothing matched the original is left untouched and 0 is returned.
func (s *Store) rewrite(ctx context.Context, f *dataFile, edit lineEdit) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	lines, err := readLines(f.path)
	if err != nil {
		return 0, s.ioError("read", f.name, err)
	}

	var b strings.Builder
	matched := 0
	for _, line := range lines {
		out, keep, hit := edit(line)
		if hit {
			matched++
		}
		if keep {
			b.WriteString(out)
			b.WriteByte('\n')
		}
	}
	if matched == 0 {
		return 0, nil
	}

	if err := s.replace(f, b.String()); err != nil {
		return 0, err
	}
	return matched, nil
}

// replace writes content to a temp file in the same directory and renames it over f.
// An interrupted replace leaves at most an orphaned *.tmp file next to an intact original.
func (s *Store) replace(f *dataFile, content string) error {
	tmp, err := os.CreateTemp(s.dir, f.name+".*.tmp")
	if err != nil {
		return s.ioError("create temp file for", f.name, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.WriteString(content); err != nil {
		cleanup()
		return s.ioError("write temp file for", f.name, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		cleanup()
		return s.ioError("chmod temp file for", f.name, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return s.ioError("sync temp file for", f.name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return s.ioError("close temp file for", f.name, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return s.ioError("replace", f.name, err)
	}
	return nil
}

func (s *Store) ioError(action, target string, err error) error {
	s.logger.Error("file operation failed", "action", action, "file", target, "error", err)
	return fmt.Errorf("failed to %s %s: %w: %w", action, target, domain.ErrPersistence, err)
}

func (s *Store) skipMalformed(f *dataFile, lineNo int, err error) {
	s.logger.Warn("skipping malformed record", "file", f.name, "line", lineNo, "error", err)
}

func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// key returns the field at index i of a raw record line
func key(line string, i int) string {
	fields := strings.SplitN(line, separator, i+2)
	if i >= len(fields) {
		return ""
	}
	return fields[i]
}
