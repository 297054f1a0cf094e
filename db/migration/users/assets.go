// Package users holds the schema migrations of the users table.
package users

import (
	"embed"
	"io/fs"
	"sort"
)

//go:embed *.sql
var migrations embed.FS

// AssetNames returns the names of the migration scripts in lexical order.
func AssetNames() []string {
	entries, err := fs.ReadDir(migrations, ".")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

// Asset returns the content of the named migration script.
func Asset(name string) ([]byte, error) {
	return migrations.ReadFile(name)
}
