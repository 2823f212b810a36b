// Package migrations embeds the PostgreSQL schema.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed *.sql
var files embed.FS

// Migration is one numbered schema step.
type Migration struct {
	Version string
	Up      string
	Down    string
}

// All returns every migration in ascending version order.
func All() ([]Migration, error) {
	entries, err := fs.Glob(files, "*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(entries)

	migrations := make([]Migration, 0, len(entries))
	for _, upName := range entries {
		version := strings.TrimSuffix(upName, ".up.sql")

		up, err := files.ReadFile(upName)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", upName, err)
		}
		down, err := files.ReadFile(version + ".down.sql")
		if err != nil {
			return nil, fmt.Errorf("read %s down: %w", version, err)
		}

		migrations = append(migrations, Migration{
			Version: version,
			Up:      string(up),
			Down:    string(down),
		})
	}
	return migrations, nil
}
