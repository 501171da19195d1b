package contract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// definitionFile accepts either a single contract at the top level or a
// `contracts:` list.
type definitionFile struct {
	Definition `yaml:",inline"`
	Contracts  []Definition `yaml:"contracts,omitempty"`
}

// ParseYAML decodes and validates the definitions in a YAML payload.
// Multiple YAML documents in one payload are all read.
func ParseYAML(data []byte) ([]Definition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("contract: definition payload is empty")
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	var defs []Definition
	for doc := 0; ; doc++ {
		var file definitionFile
		err := decoder.Decode(&file)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("contract: decode document %d: %w", doc, err)
		}
		switch {
		case strings.TrimSpace(file.Name) != "":
			defs = append(defs, file.Definition)
		case len(file.Attributes) > 0 || len(file.Methods) > 0:
			return nil, fmt.Errorf("contract: document %d: name is required", doc)
		}
		defs = append(defs, file.Contracts...)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("contract: no contracts declared")
	}
	for idx, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("contract[%d]: %w", idx, err)
		}
		defs[idx] = def.Normalized()
	}
	return defs, nil
}

// LoadFile reads a YAML or Go source file and returns its contracts with
// ancestors declared in the same file linked.
func LoadFile(path string) ([]*Contract, error) {
	catalog := NewCatalog()
	if err := catalog.AddFile(path); err != nil {
		return nil, err
	}
	return catalog.Contracts()
}

// LoadDir reads every contract file in dir into one catalog so ancestors can
// live in other files. Missing directories are treated as "no contracts".
func LoadDir(dir string) ([]*Contract, error) {
	catalog := NewCatalog()
	if err := catalog.AddDir(dir); err != nil {
		return nil, err
	}
	return catalog.Contracts()
}

// LoadPaths loads files and directories into one catalog.
func LoadPaths(paths ...string) ([]*Contract, error) {
	catalog := NewCatalog()
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("contract: stat %s: %w", path, err)
		}
		if info.IsDir() {
			err = catalog.AddDir(path)
		} else {
			err = catalog.AddFile(path)
		}
		if err != nil {
			return nil, err
		}
	}
	return catalog.Contracts()
}

// AddFile parses a YAML or Go source file into the catalog.
func (c *Catalog) AddFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("contract: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("contract: %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("contract: read %s: %w", path, err)
	}
	var defs []Definition
	switch {
	case isYAMLFile(path):
		defs, err = ParseYAML(data)
	case isGoFile(path):
		defs, err = ParseGoSource(path, data)
	default:
		return fmt.Errorf("contract: %s: unsupported file type", path)
	}
	if err != nil {
		return fmt.Errorf("contract: %s: %w", path, err)
	}
	source := filepath.Clean(path)
	for _, def := range defs {
		if err := c.Add(def, source); err != nil {
			return err
		}
	}
	return nil
}

// AddDir adds every *.yaml, *.yml and non-test *.go file in dir, in path order.
func (c *Catalog) AddDir(dir string) error {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil
	}
	entries, err := os.ReadDir(trimmed)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("contract: read %s: %w", trimmed, err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if isYAMLFile(name) || isGoFile(name) {
			paths = append(paths, filepath.Join(trimmed, name))
		}
	}
	sort.Strings(paths)
	for _, path := range paths {
		if err := c.AddFile(path); err != nil {
			return err
		}
	}
	return nil
}

func isYAMLFile(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}

func isGoFile(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	return strings.HasSuffix(lower, ".go") && !strings.HasSuffix(lower, "_test.go")
}
