// Package assets holds the demo animations shipped with the binary.
package assets

import (
	"embed"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// FS holds every bundled animation document.
//
//go:embed *.yaml
var FS embed.FS

// Bundled demo documents.
const (
	CleanTheCar = "clean_the_car.yaml"
	Vehicles    = "vehicles.yaml"
)

// LoadFile reads an embedded asset by assets-relative path.
func LoadFile(path string) ([]byte, error) {
	return FS.ReadFile(cleanAssetPath(path))
}

// Names lists the bundled documents in lexical order.
func Names() []string {
	entries, err := fs.ReadDir(FS, ".")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

func cleanAssetPath(path string) string {
	if path == "" {
		return ""
	}
	if filepath.IsAbs(path) {
		s := filepath.ToSlash(path)
		if idx := strings.LastIndex(s, "/assets/"); idx >= 0 {
			return s[idx+len("/assets/"):]
		}
		return filepath.Base(path)
	}
	s := filepath.ToSlash(path)
	s = strings.TrimPrefix(s, "./")
	return strings.TrimPrefix(s, "assets/")
}
