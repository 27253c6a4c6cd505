package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"speclens/internal/dataset"
)

const cliSrc = `def add(a: int, b: int):
    # @ensures result == a + b
    return a + b


def off_by_one(a: int):
    # @ensures result == a + 1
    return a
`

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("speclens %s: %v\n%s", strings.Join(args, " "), err, buf.String())
	}
	return buf.String()
}

// unitLabel pulls the label column from the verify table row for unit.
func unitLabel(out, unit string) string {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == unit {
			return fields[1]
		}
	}
	return ""
}

func writeSubject(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "subject.py")
	if err := os.WriteFile(path, []byte(cliSrc), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseCommand(t *testing.T) {
	out := runCLI(t, "parse", writeSubject(t))
	if !strings.Contains(out, "add(a,b)") {
		t.Errorf("missing unit signature in output:\n%s", out)
	}
	if !strings.Contains(out, "Total: 2 units") {
		t.Errorf("missing unit total in output:\n%s", out)
	}
}

func TestVerifyCommand(t *testing.T) {
	out := runCLI(t, "verify", writeSubject(t), "--seed", "7", "--trials", "10")
	if label := unitLabel(out, "add"); label != "SAFE" {
		t.Errorf("add labeled %q, want SAFE:\n%s", label, out)
	}
	if label := unitLabel(out, "off_by_one"); label != "RISKY" {
		t.Errorf("off_by_one labeled %q, want RISKY:\n%s", label, out)
	}
	if !strings.Contains(out, "2 units, 1 risky") {
		t.Errorf("missing summary:\n%s", out)
	}
}

func TestDatasetBuildAndStats(t *testing.T) {
	pool := t.TempDir()
	if err := os.WriteFile(filepath.Join(pool, "subject.py"), []byte(cliSrc), 0o644); err != nil {
		t.Fatal(err)
	}
	outDir := t.TempDir()
	csvPath := filepath.Join(outDir, "out.csv")
	dbPath := filepath.Join(outDir, "runs.db")

	runCLI(t, "dataset", "build", pool, csvPath, "--seed", "7", "--trials", "10", "--store", dbPath)

	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatalf("dataset csv missing: %v", err)
	}
	defer f.Close()
	recs, err := dataset.ReadCSV(f)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}

	stats := runCLI(t, "dataset", "stats", csvPath)
	if !strings.Contains(stats, "Records") || !strings.Contains(stats, "2") {
		t.Errorf("unexpected stats output:\n%s", stats)
	}

	runs := runCLI(t, "dataset", "runs", dbPath)
	if !strings.Contains(runs, pool) {
		t.Errorf("run listing should name the pool:\n%s", runs)
	}
}
