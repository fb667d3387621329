package main

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/mod/modfile"
)

// target is where the generated graph goes.
type target struct {
	path       string
	importPath string
}

// findTarget computes the import path of the directory holding the output file from the module
// declared in the closest go.mod.
func findTarget(output string) (target, error) {
	dir := filepath.Dir(output)
	modPath, err := findGoMod(dir)
	if err != nil {
		return target{}, err
	}
	content, err := os.ReadFile(modPath)
	if err != nil {
		return target{}, fmt.Errorf("failed to read %s:\n\t%w", modPath, err)
	}
	module := modfile.ModulePath(content)
	if module == "" {
		return target{}, fmt.Errorf("no module declaration found in %s", modPath)
	}

	rel, err := filepath.Rel(filepath.Dir(modPath), dir)
	if err != nil {
		return target{}, fmt.Errorf("output %s is not part of the module %s:\n\t%w", output, module, err)
	}
	importPath := module
	if rel != "." {
		importPath += "/" + filepath.ToSlash(rel)
	}
	return target{path: output, importPath: importPath}, nil
}

func findGoMod(dir string) (string, error) {
	current := filepath.Clean(dir)
	for {
		candidate := filepath.Join(current, "go.mod")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("no go.mod found from %s", dir)
		}
		current = parent
	}
}
