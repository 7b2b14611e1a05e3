package ruleset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// LoadFile reads the rulesets of one .yaml, .yml or .cue file.
func LoadFile(path string) ([]*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ruleset file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(data, path)
	case ".cue":
		return CompileCUEString(string(data), path)
	default:
		return nil, fmt.Errorf("%s: unsupported ruleset file extension", path)
	}
}

// LoadDir loads every ruleset in dir (not recursive) into a new library.
//
// YAML files are read one by one in name order. CUE files are loaded
// together as one package, so they may share definitions.
func LoadDir(dir string) (*Library, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("rulesets directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error scanning directory: %w", err)
	}

	var yamlFiles []string
	hasCUE := false
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml":
			yamlFiles = append(yamlFiles, filepath.Join(dir, entry.Name()))
		case ".cue":
			hasCUE = true
		}
	}
	if len(yamlFiles) == 0 && !hasCUE {
		return nil, fmt.Errorf("no ruleset files found in %s", dir)
	}
	sort.Strings(yamlFiles)

	lib, _ := NewLibrary()
	for _, path := range yamlFiles {
		defs, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		for _, def := range defs {
			if err := lib.Add(def); err != nil {
				return nil, err
			}
		}
	}

	if hasCUE {
		defs, err := loadCUEPackage(dir)
		if err != nil {
			return nil, err
		}
		for _, def := range defs {
			if err := lib.Add(def); err != nil {
				return nil, err
			}
		}
	}
	return lib, nil
}

func loadCUEPackage(dir string) ([]*Definition, error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("%s: no CUE instances loaded", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	ctx := cuecontext.New()
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	defs, err := CompileCUE(value)
	if err != nil {
		return nil, err
	}
	for _, def := range defs {
		def.Source = dir
	}
	return defs, nil
}
