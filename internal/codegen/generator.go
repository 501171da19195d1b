// Package codegen writes synthesized value types to disk as Go source, the
// build-time counterpart of runtime synthesis.
package codegen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kingrea/valobj/contract"
	"github.com/kingrea/valobj/internal/logging"
	"github.com/kingrea/valobj/synth"
)

// Header marks every generated file.
const Header = "// Code generated by valobj. DO NOT EDIT."

const defaultLimit = 4

// Generator renders one file per contract into Out.
type Generator struct {
	Out     string
	Package string
	Suffix  string
	// Limit bounds concurrent renders; zero means a small default.
	Limit int
	Log   *logging.Logger
}

// File is one generated output.
type File struct {
	Contract string
	Type     string
	Path     string
}

// GeneratePaths loads contracts from files and directories and generates
// them.
func (g *Generator) GeneratePaths(ctx context.Context, paths ...string) ([]File, error) {
	contracts, err := contract.LoadPaths(paths...)
	if err != nil {
		return nil, err
	}
	return g.Generate(ctx, contracts)
}

// Generate validates every contract first and only then writes files, so a
// rejected contract leaves the output directory untouched.
func (g *Generator) Generate(ctx context.Context, contracts []*contract.Contract) ([]File, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	log := g.Log
	if log == nil {
		log = logging.Nop()
	}
	jobs := make([]File, len(contracts))
	seen := map[string]string{}
	for i, c := range contracts {
		if err := contract.Validate(c); err != nil {
			return nil, err
		}
		file := File{
			Contract: c.QualifiedName(),
			Type:     c.Name + g.Suffix,
			Path:     filepath.Join(g.Out, FileName(c.Name)),
		}
		if prev, dup := seen[file.Path]; dup {
			return nil, fmt.Errorf("codegen: %s and %s both generate %s", prev, file.Contract, file.Path)
		}
		seen[file.Path] = file.Contract
		jobs[i] = file
	}
	if err := os.MkdirAll(g.Out, 0o755); err != nil {
		return nil, fmt.Errorf("codegen: ensure %s: %w", g.Out, err)
	}

	limit := g.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(limit)
	for i := range contracts {
		c, job := contracts[i], jobs[i]
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := g.write(c, job); err != nil {
				return err
			}
			log.Debug("generated value type", "contract", job.Contract, "type", job.Type, "path", job.Path)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Path < jobs[j].Path })
	log.Info("generation finished", "files", len(jobs), "out", g.Out)
	return jobs, nil
}

func (g *Generator) check() error {
	if strings.TrimSpace(g.Out) == "" {
		return fmt.Errorf("codegen: output directory is required")
	}
	if strings.TrimSpace(g.Package) == "" {
		return fmt.Errorf("codegen: package name is required")
	}
	return nil
}

func (g *Generator) write(c *contract.Contract, job File) error {
	spec, err := synth.Plan(job.Type, c, contract.Inspect(c))
	if err != nil {
		return fmt.Errorf("codegen: %s: %w", job.Contract, err)
	}
	src, err := synth.RenderSource(spec, synth.SourceOptions{
		Package:         g.Package,
		DeclareContract: !declaredInPackage(c, g.Package),
		Header:          Header,
	})
	if err != nil {
		return fmt.Errorf("codegen: %s: %w", job.Contract, err)
	}
	if err := os.WriteFile(job.Path, src, 0o644); err != nil {
		return fmt.Errorf("codegen: write %s: %w", job.Path, err)
	}
	return nil
}

// declaredInPackage reports contracts read from Go source of the output
// package; their interface already exists there.
func declaredInPackage(c *contract.Contract, pkg string) bool {
	return c.Package == pkg && strings.HasSuffix(c.Source, ".go")
}

// FileName returns the generated file name for a contract, e.g.
// "point_value.go" for Point.
func FileName(contractName string) string {
	return toSnake(contractName) + "_value.go"
}

func toSnake(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		lower := strings.ToLower(string(r))
		if i > 0 && lower != string(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && strings.ToLower(string(runes[i+1])) == string(runes[i+1])
			if strings.ToLower(string(prev)) == string(prev) || nextLower {
				b.WriteByte('_')
			}
		}
		b.WriteString(lower)
	}
	return b.String()
}
