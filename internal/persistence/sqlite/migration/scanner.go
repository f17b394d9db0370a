package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var migrationFilePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_-]+)\.sql$`)

// FileScanner reads migrations from a directory of an fs.FS.
type FileScanner struct {
	fsys fs.FS
	dir  string
}

// NewFileScanner returns a scanner over dir inside fsys.
func NewFileScanner(fsys fs.FS, dir string) *FileScanner {
	if dir == "" {
		dir = "."
	}
	return &FileScanner{fsys: fsys, dir: dir}
}

// ScanMigrations parses every .sql file in the directory, ordered by version.
func (s *FileScanner) ScanMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(s.fsys, s.dir)
	if err != nil {
		return nil, NewMigrationError("", s.dir, "read directory", err)
	}

	var migrations []Migration
	seen := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		migration, err := s.parse(entry.Name())
		if err != nil {
			return nil, err
		}

		number, _ := strconv.Atoi(migration.Version)
		if existing, ok := seen[number]; ok {
			return nil, NewMigrationError(migration.Version, entry.Name(), "check duplicates",
				fmt.Errorf("%w: also defined by %s", ErrDuplicateVersion, existing))
		}
		seen[number] = entry.Name()
		migrations = append(migrations, migration)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return versionNumber(migrations[i].Version) < versionNumber(migrations[j].Version)
	})
	return migrations, nil
}

// ValidateFileName checks the {version}_{description}.sql convention.
func ValidateFileName(name string) error {
	if !migrationFilePattern.MatchString(name) {
		return fmt.Errorf("%w: filename %q does not match {version}_{description}.sql", ErrInvalidMigrationFile, name)
	}
	return nil
}

func (s *FileScanner) parse(name string) (Migration, error) {
	if err := ValidateFileName(name); err != nil {
		return Migration{}, NewMigrationError("", name, "validate filename", err)
	}
	matches := migrationFilePattern.FindStringSubmatch(name)
	version := matches[1]

	body, err := fs.ReadFile(s.fsys, path.Join(s.dir, name))
	if err != nil {
		return Migration{}, NewMigrationError(version, name, "read file", err)
	}
	content := string(body)
	if len(splitStatements(content)) == 0 {
		return Migration{}, NewMigrationError(version, name, "validate content",
			fmt.Errorf("%w: no SQL statements", ErrInvalidMigrationFile))
	}

	sum := sha256.Sum256(body)
	return Migration{
		Version:     version,
		Description: strings.ReplaceAll(matches[2], "_", " "),
		SQL:         content,
		Name:        name,
		Checksum:    hex.EncodeToString(sum[:]),
	}, nil
}

func versionNumber(version string) int {
	n, err := strconv.Atoi(version)
	if err != nil {
		return -1
	}
	return n
}

// splitStatements splits SQL on semicolons and drops comment-only lines.
func splitStatements(sql string) []string {
	var statements []string
	for _, stmt := range strings.Split(sql, ";") {
		var lines []string
		for _, line := range strings.Split(stmt, "\n") {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "--") {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			statements = append(statements, strings.Join(lines, "\n"))
		}
	}
	return statements
}
