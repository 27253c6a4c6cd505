// Package dataset turns a pool of annotated source files into labeled
// training rows: parse every file, verify every unit, extract its feature
// vector, and emit one record per unit. File-level parallelism is bounded
// by a worker pool; output order is always the lexical file order so two
// runs over the same pool produce byte-identical datasets.
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"speclens/internal/features"
	"speclens/internal/logging"
	"speclens/internal/parse"
	"speclens/internal/verify"
)

// Record is one labeled unit, the row unit of the emitted dataset.
type Record struct {
	SourceFile string
	Name       string
	Class      string
	Features   features.Vector
	Label      verify.Label
}

// ID returns the qualified unit name, Class.Name for methods.
func (r Record) ID() string {
	if r.Class != "" {
		return r.Class + "." + r.Name
	}
	return r.Name
}

// Options configures a dataset build.
type Options struct {
	Trials     int
	Seed       int64
	StepBudget int
	// Parallel bounds concurrent file workers; <=0 means serial.
	Parallel int
}

type fileResult struct {
	records []Record
	err     error
}

// Build parses, verifies and featurizes every .py file under dir.
// Unparseable files are logged and skipped; an engine-internal fault
// aborts the whole build.
func Build(ctx context.Context, dir string, opts Options) ([]Record, error) {
	logger := logging.New("dataset")

	paths, err := poolFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("dataset: scan pool: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("dataset: no .py files under %s", dir)
	}

	parallel := opts.Parallel
	if parallel <= 0 {
		parallel = 1
	}

	// Results land in a slice indexed by file position, so the merge
	// restores lexical order no matter how workers finish.
	results := make([]fileResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			recs, err := BuildFile(path, opts)
			results[i] = fileResult{records: recs, err: err}
			if isInternal(err) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}

	var out []Record
	for i, res := range results {
		if res.err != nil {
			// Only parse failures reach here; they cost one file.
			logger.Warn("skipping unparseable file", "path", paths[i], "error", res.err)
			continue
		}
		out = append(out, res.records...)
	}
	logger.Info("dataset built", "files", len(paths), "records", len(out))
	return out, nil
}

// BuildFile labels every unit of a single file.
func BuildFile(path string, opts Options) ([]Record, error) {
	mod, err := parse.File(path)
	if err != nil {
		return nil, err
	}
	defer mod.Close()

	recs := make([]Record, 0, len(mod.Units))
	for _, u := range mod.Units {
		rep, err := verify.Unit(u, mod.Source, verify.Options{
			Trials:     opts.Trials,
			Seed:       opts.Seed,
			StepBudget: opts.StepBudget,
		})
		if err != nil {
			return nil, err
		}
		recs = append(recs, Record{
			SourceFile: filepath.Base(path),
			Name:       u.Name,
			Class:      u.Class,
			Features:   features.Extract(u),
			Label:      rep.Label,
		})
	}
	return recs, nil
}

// isInternal reports whether err is the engine's own fault rather than a
// defect of the input file.
func isInternal(err error) bool {
	if err == nil {
		return false
	}
	var fpe *parse.FileParseError
	return !errors.As(err, &fpe)
}

// poolFiles lists the .py files under dir in lexical order.
func poolFiles(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".py") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// Stats summarizes a record set for reporting.
type Stats struct {
	Records int
	Safe    int
	Risky   int
}

func Summarize(recs []Record) Stats {
	s := Stats{Records: len(recs)}
	for _, r := range recs {
		switch r.Label {
		case verify.Safe:
			s.Safe++
		case verify.Risky:
			s.Risky++
		}
	}
	return s
}

// Header is the CSV column list: provenance columns, the shared feature
// schema, then the label.
func Header() []string {
	h := []string{"source_file", "name", "class"}
	h = append(h, features.Columns...)
	return append(h, "label")
}

// WriteCSV emits the records with a header row.
func WriteCSV(w io.Writer, recs []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return fmt.Errorf("dataset: write header: %w", err)
	}
	for _, r := range recs {
		row := []string{r.SourceFile, r.Name, r.Class}
		for _, v := range r.Features.Row() {
			row = append(row, strconv.Itoa(v))
		}
		row = append(row, string(r.Label))
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("dataset: write row for %s: %w", r.ID(), err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a dataset previously written by WriteCSV.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("dataset: read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("dataset: empty csv")
	}
	want := Header()
	if len(rows[0]) != len(want) {
		return nil, fmt.Errorf("dataset: header has %d columns, want %d", len(rows[0]), len(want))
	}

	recs := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) != len(want) {
			return nil, fmt.Errorf("dataset: row %d has %d columns, want %d", i+2, len(row), len(want))
		}
		nums := make([]int, len(features.Columns))
		for j := range nums {
			n, err := strconv.Atoi(row[3+j])
			if err != nil {
				return nil, fmt.Errorf("dataset: row %d column %s: %w", i+2, features.Columns[j], err)
			}
			nums[j] = n
		}
		recs = append(recs, Record{
			SourceFile: row[0],
			Name:       row[1],
			Class:      row[2],
			Features:   vectorFromRow(nums),
			Label:      verify.Label(row[len(row)-1]),
		})
	}
	return recs, nil
}

func vectorFromRow(nums []int) features.Vector {
	return features.Vector{
		NParams:            nums[0],
		NRequires:          nums[1],
		NEnsures:           nums[2],
		NInvariants:        nums[3],
		NLOC:               nums[4],
		HasSelf:            nums[5],
		HasOther:           nums[6],
		RequiresComplexity: nums[7],
		EnsuresComplexity:  nums[8],
		EnsuresHasArith:    nums[9],
		EnsuresHasCmp:      nums[10],
	}
}
