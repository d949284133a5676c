package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MigrationFile describes one created up/down pair. Pairs are named
// <version>_<name>.up.sql / .down.sql with a timestamp version, so lexical
// order is application order.
type MigrationFile struct {
	Version     string
	Name        string
	Description string
	Timestamp   string
	UpPath      string
	DownPath    string
}

// CreateMigration writes a stub up/down pair into dir, creating the
// directory when needed.
func CreateMigration(dir, name, description string) (*MigrationFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create migrations directory: %w", err)
	}

	now := time.Now()
	mf := &MigrationFile{
		Version:     now.Format("20060102150405"),
		Name:        name,
		Description: description,
		Timestamp:   now.Format(time.RFC3339),
	}
	base := mf.Version + "_" + sanitizeName(name)
	mf.UpPath = filepath.Join(dir, base+".up.sql")
	mf.DownPath = filepath.Join(dir, base+".down.sql")

	up := fmt.Sprintf("-- %s\n-- created %s\n-- %s\n\n-- forward schema change goes here\n",
		name, mf.Timestamp, description)
	if err := os.WriteFile(mf.UpPath, []byte(up), 0o644); err != nil {
		return nil, fmt.Errorf("write up migration: %w", err)
	}

	down := fmt.Sprintf("-- revert %s\n-- created %s\n\n-- rollback of the up migration goes here\n",
		name, mf.Timestamp)
	if err := os.WriteFile(mf.DownPath, []byte(down), 0o644); err != nil {
		// Never leave a half pair behind.
		_ = os.Remove(mf.UpPath)
		return nil, fmt.Errorf("write down migration: %w", err)
	}
	return mf, nil
}

// sanitizeName lowercases a human migration name into a snake_case file
// name fragment, dropping anything that is not alphanumeric.
func sanitizeName(name string) string {
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c >= 'A' && c <= 'Z':
			b.WriteByte(c + 'a' - 'A')
		case c == ' ' || c == '-' || c == '_':
			if s := b.String(); len(s) > 0 && s[len(s)-1] != '_' {
				b.WriteByte('_')
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// ListMigrations returns the base names of the migration pairs in dir, in
// lexical (= application) order. A missing directory is an empty list.
func ListMigrations(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if base, ok := strings.CutSuffix(entry.Name(), ".up.sql"); ok {
			names = append(names, base)
		}
	}
	return names, nil
}
