package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spektr-org/tabula"
	tberrors "github.com/spektr-org/tabula/errors"
	"github.com/spektr-org/tabula/format"
)

// ============================================================================
// HELPERS
// ============================================================================

const salesCSV = "Region,Product,Amount\nNorth,A,10.5\nSouth,A,20.25\nNorth,B,5.75\nEast,B,1.5\n"

type cli struct {
	stdout, stderr bytes.Buffer
}

// exec runs the CLI with a nonexistent .env so the working directory
// never leaks into the test.
func (c *cli) exec(t *testing.T, stdin string, args ...string) error {
	t.Helper()
	c.stdout.Reset()
	c.stderr.Reset()
	args = append([]string{"--env", filepath.Join(t.TempDir(), "none.env")}, args...)
	return run(context.Background(), args, strings.NewReader(stdin), &c.stdout, &c.stderr)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readRows(t *testing.T, p format.Plugin, text string) [][]any {
	t.Helper()
	df, err := p.Parse(text)
	if err != nil {
		t.Fatalf("parse output: %v\n%s", err, text)
	}
	rows, err := df.ToRows()
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

// ============================================================================
// TESTS
// ============================================================================

func TestVersion(t *testing.T) {
	var c cli
	if err := c.exec(t, "", "--version"); err != nil {
		t.Fatal(err)
	}
	if got := c.stdout.String(); got != "tabula "+tabula.Version+"\n" {
		t.Errorf("got %q", got)
	}
}

func TestConvertWithSortAndKeep(t *testing.T) {
	var c cli
	in := writeFile(t, "sales.csv", salesCSV)
	out := filepath.Join(t.TempDir(), "top.json")

	err := c.exec(t, "", "--in", in, "--infer", "--keep", "Region,Amount", "--sort", "Amount", "--desc", "--out", out)
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, c.stderr.String())
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	got := readRows(t, format.JSON{}, string(data))
	want := [][]any{{"South", 20.25}, {"North", 10.5}, {"North", 5.75}, {"East", 1.5}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestStdinToStdout(t *testing.T) {
	var c cli
	if err := c.exec(t, salesCSV, "--distinct", "Region", "--keep", "Region", "--out-format", "yaml"); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	got := readRows(t, format.YAML{}, c.stdout.String())
	want := [][]any{{"North"}, {"South"}, {"East"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if !strings.HasSuffix(c.stdout.String(), "\n") {
		t.Error("terminal output should end with a newline")
	}
}

func TestStructuredQuery(t *testing.T) {
	var c cli
	err := c.exec(t, salesCSV, "--infer", "--group", "Region", "--agg", "sum", "--measure", "Amount",
		"--where", "Product=a", "--out-format", "json")
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, c.stderr.String())
	}
	got := readRows(t, format.JSON{UseInts: true}, c.stdout.String())
	want := [][]any{{"North", 10.5, 1}, {"South", 20.25, 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if !strings.Contains(c.stderr.String(), "Found 2 records") {
		t.Errorf("summary not printed: %s", c.stderr.String())
	}
}

func TestDescribe(t *testing.T) {
	var c cli
	if err := c.exec(t, salesCSV, "--describe"); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	for _, want := range []string{"key: Region", "key: Amount", "record_count"} {
		if !strings.Contains(c.stdout.String(), want) {
			t.Errorf("schema missing %q:\n%s", want, c.stdout.String())
		}
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	var c cli
	dsn := filepath.Join(t.TempDir(), "sales.db")
	if err := c.exec(t, salesCSV, "--infer", "--out", "sqlite:"+dsn, "--table", "sales"); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	err := c.exec(t, "", "--in", "sqlite:"+dsn, "--sql", `SELECT "Region", "Amount" FROM sales WHERE "Amount" > 10 ORDER BY "Amount"`)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got, want := c.stdout.String(), "Region,Amount\r\nNorth,10.5\r\nSouth,20.25\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSnappyFileRoundTrip(t *testing.T) {
	var c cli
	path := filepath.Join(t.TempDir(), "sales.csv.sz")
	if err := c.exec(t, salesCSV, "--out", path); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	raw, _ := os.ReadFile(path)
	if strings.Contains(string(raw), "Region,Product") {
		t.Error("file should be compressed")
	}
	if err := c.exec(t, "", "--in", path, "--keep", "Product", "--distinct", "Product"); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got := c.stdout.String(); got != "Product\r\nA\r\nB\n" {
		t.Errorf("got %q", got)
	}
}

func TestRunErrors(t *testing.T) {
	cases := map[string]struct {
		args  []string
		check func(error) bool
	}{
		"unknown sort column": {[]string{"--sort", "Nope"}, tberrors.IsMissingColumn},
		"bad pivot":           {[]string{"--pivot", "Region"}, tberrors.IsInvalidArgument},
		"bad detect":          {[]string{"--detect", "shapes"}, tberrors.IsInvalidArgument},
		"sqlite without sql":  {[]string{"--in", "sqlite::memory:"}, tberrors.IsInvalidArgument},
		"unknown format":      {[]string{"--in-format", "xls"}, func(err error) bool { return err != nil }},
		"query without key":   {[]string{"--query", "total"}, func(err error) bool { return err != nil && strings.Contains(err.Error(), "GEMINI_API_KEY") }},
	}
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("TABULA_GEMINI_API_KEY", "")
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var c cli
			if err := c.exec(t, salesCSV, tc.args...); !tc.check(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseWhere(t *testing.T) {
	f, err := parseWhere([]string{"Region=North|South", " Product = A "})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string][]string{"Region": {"North", "South"}, "Product": {"A"}}
	if !reflect.DeepEqual(f.Columns, want) {
		t.Errorf("got %v", f.Columns)
	}
	if _, err := parseWhere([]string{"Region"}); !tberrors.IsInvalidArgument(err) {
		t.Errorf("expected INVALID_ARGUMENT, got %v", err)
	}
}
