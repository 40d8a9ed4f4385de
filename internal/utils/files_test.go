package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSafeWriteFileReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "out.json")
	if err := SafeWriteFile(p, []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := SafeWriteFile(p, []byte("two")); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "two" {
		t.Fatalf("expected overwritten content, got %q", b)
	}
	if _, err := os.Stat(p + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}

func TestPrettyJSON(t *testing.T) {
	b, err := PrettyJSON(map[string]int{"a": 1})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "\n  \"a\": 1") {
		t.Fatalf("expected indented json, got %s", b)
	}
}

func TestSafeBaseName(t *testing.T) {
	cases := map[string]string{
		"/tmp/sales 2024.csv": "sales_2024",
		"readings.tsv.gz":     "readings",
		"../weird/$$$.json":   "dataset",
		"report.v2.xlsx":      "report.v2",
		"données.csv":         "donn_es",
	}
	for in, want := range cases {
		if got := SafeBaseName(in); got != want {
			t.Errorf("SafeBaseName(%q) = %q, want %q", in, got, want)
		}
	}
}
