package scripts

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// BuiltinSource marks scripts bundled with the binary.
const BuiltinSource = "builtin"

// LoadBuiltinScripts returns the scripts bundled with reel.
func LoadBuiltinScripts() ([]*Script, error) {
	entries, err := fs.ReadDir(builtinFS, "builtin")
	if err != nil {
		return nil, fmt.Errorf("read builtin scripts: %w", err)
	}

	scripts := make([]*Script, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := builtinFS.ReadFile("builtin/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read builtin script %s: %w", entry.Name(), err)
		}
		script, err := ParseScript(data)
		if err != nil {
			return nil, fmt.Errorf("parse builtin script %s: %w", entry.Name(), err)
		}
		script.Source = BuiltinSource
		scripts = append(scripts, script)
	}

	sort.Slice(scripts, func(i, j int) bool {
		return scripts[i].Name < scripts[j].Name
	})

	return scripts, nil
}
