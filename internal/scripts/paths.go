package scripts

import (
	"os"
	"path/filepath"
)

// SearchPaths returns script directories in precedence order: the project
// directory, any extra directories, the user config directory, then the
// system share directory.
func SearchPaths(projectDir string, extraDirs ...string) []string {
	paths := make([]string, 0, 3+len(extraDirs))
	if projectDir != "" {
		paths = append(paths, filepath.Join(projectDir, ".reel", "scripts"))
	}
	for _, dir := range extraDirs {
		if dir != "" {
			paths = append(paths, dir)
		}
	}

	if home, err := os.UserHomeDir(); err == nil && home != "" {
		paths = append(paths, filepath.Join(home, ".config", "reel", "scripts"))
	}

	paths = append(paths, filepath.Join(string(filepath.Separator), "usr", "share", "reel", "scripts"))
	return paths
}

// LoadFromSearchPaths loads scripts from every search path and the builtins.
// The first script seen for a name wins.
func LoadFromSearchPaths(projectDir string, extraDirs ...string) ([]*Script, error) {
	seen := make(map[string]*Script)
	order := make([]string, 0)

	add := func(scripts []*Script) {
		for _, script := range scripts {
			if _, exists := seen[script.Name]; exists {
				continue
			}
			seen[script.Name] = script
			order = append(order, script.Name)
		}
	}

	for _, path := range SearchPaths(projectDir, extraDirs...) {
		scripts, err := LoadScriptsFromDir(path)
		if err != nil {
			return nil, err
		}
		add(scripts)
	}

	builtins, err := LoadBuiltinScripts()
	if err != nil {
		return nil, err
	}
	add(builtins)

	resolved := make([]*Script, 0, len(order))
	for _, name := range order {
		resolved = append(resolved, seen[name])
	}
	return resolved, nil
}
