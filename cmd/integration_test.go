package cmd

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/edaloom-cli/internal/project"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags restores every flag of c and its children to its default so
// state from one invocation does not leak into the next.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		_ = fl.Value.Set(fl.DefValue)
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) {
	t.Helper()
	if err := execCmd(args...); err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
}

func execCmd(args ...string) error {
	resetFlags(rootCmd)
	cfg = nil
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

// captureStdout runs fn and returns what it printed.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	done := make(chan string)
	go func() {
		b, _ := io.ReadAll(r)
		done <- string(b)
	}()
	fn()
	_ = w.Close()
	os.Stdout = old
	return <-done
}

func writeFile(t *testing.T, path, body string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

const orchardCSV = `tree,variety,height,yield
t1,gala,10,100
t2,fuji,11,110
t3,gala,12,120
t4,gala,13,
t5,fuji,12,115
t6,gala,40,118
`

func TestCLI_Init_Analyze_AttachAndList(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	data := writeFile(t, filepath.Join(home, "orchard.csv"), orchardCSV)

	runCmd(t, "init", "itest", "-d", "integration test")
	runCmd(t, "analyze", data, "-p", "itest", "--desc", "trees", "--show-removed")

	dir, err := resolveProjectDirByName("itest")
	if err != nil {
		t.Fatalf("resolve project: %v", err)
	}
	p, err := project.LoadProject(dir)
	if err != nil {
		t.Fatalf("load project: %v", err)
	}
	if len(p.Summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(p.Summaries))
	}
	s := p.SortedSummaries()[0]
	if s.Rows != 6 || s.RemovedMissing != 1 || s.RemovedOutliers != 1 || s.CleanedRows != 4 {
		t.Fatalf("unexpected counts: %+v", s)
	}
	body, err := os.ReadFile(filepath.Join(dir, s.File))
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	for _, want := range []string{"[REMOVED ROWS: MISSING VALUES]", "[REMOVED ROWS: OUTLIERS]", "| t6 | gala | 40 | 118 |"} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("summary missing %q:\n%s", want, body)
		}
	}

	out := captureStdout(t, func() { runCmd(t, "list", "--summaries", "-p", "itest") })
	if !strings.Contains(out, data) || !strings.Contains(out, "(trees)") {
		t.Fatalf("list output missing summary: %q", out)
	}
	out = captureStdout(t, func() { runCmd(t, "list", "--projects") })
	if !strings.Contains(out, "- itest") {
		t.Fatalf("list --projects missing project: %q", out)
	}
	out = captureStdout(t, func() { runCmd(t, "project", "digest", "-p", "itest") })
	if !strings.Contains(out, "--- Dataset: orchard.csv (trees) ---") {
		t.Fatalf("digest missing dataset header: %q", out)
	}
}

func TestCLI_InitRefusesExistingProject(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	runCmd(t, "init", "dup")
	if err := execCmd("init", "dup"); err == nil {
		t.Fatalf("expected error re-initializing project")
	}
}

func TestCLI_AnalyzeWritesRenderedFormats(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	data := writeFile(t, filepath.Join(home, "orchard.csv"), orchardCSV)

	jsonOut := filepath.Join(home, "report.json")
	runCmd(t, "analyze", data, "--format", "json", "-o", jsonOut)
	b, err := os.ReadFile(jsonOut)
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	if !strings.Contains(string(b), `"removed_outliers": 1`) {
		t.Fatalf("json report missing outlier count: %s", b)
	}

	htmlOut := filepath.Join(home, "report.html")
	runCmd(t, "analyze", data, "--format", "html", "-o", htmlOut)
	b, err = os.ReadFile(htmlOut)
	if err != nil {
		t.Fatalf("read html: %v", err)
	}
	if !strings.Contains(string(b), "<html") {
		t.Fatalf("expected html document")
	}

	if err := execCmd("analyze", data, "--format", "pdf"); err == nil {
		t.Fatalf("expected error for unsupported report format")
	}
	if err := execCmd("analyze", writeFile(t, filepath.Join(home, "x.parquet"), "PAR1")); err == nil {
		t.Fatalf("expected error for unsupported input format")
	}
}

func TestCLI_CleanPrintsRemovedRows(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	data := writeFile(t, filepath.Join(home, "orchard.csv"), orchardCSV)

	out := captureStdout(t, func() { runCmd(t, "clean", data) })
	if !strings.Contains(out, "[CLEANED ROWS]") || strings.Contains(out, "[REMOVED ROWS") {
		t.Fatalf("unexpected default clean output:\n%s", out)
	}
	if strings.Contains(out, "| t6 |") || strings.Contains(out, "| t4 |") {
		t.Fatalf("removed rows leaked into cleaned output:\n%s", out)
	}

	out = captureStdout(t, func() { runCmd(t, "clean", data, "--show-removed") })
	for _, want := range []string{"[REMOVED ROWS: MISSING VALUES]", "| t4 | gala | 13 | null |", "| t6 | gala | 40 | 118 |", "[FENCES]"} {
		if !strings.Contains(out, want) {
			t.Fatalf("clean --show-removed missing %q:\n%s", want, out)
		}
	}

	csvOut := filepath.Join(home, "cleaned.csv")
	runCmd(t, "clean", data, "--format", "csv", "--show-removed", "-o", csvOut)
	b, err := os.ReadFile(csvOut)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 7 || lines[0] != "status,tree,variety,height,yield" {
		t.Fatalf("unexpected csv output:\n%s", b)
	}
	if lines[5] != "missing,t4,gala,13," || lines[6] != "outlier,t6,gala,40,118" {
		t.Fatalf("removed rows not labeled:\n%s", b)
	}
}

func TestCLI_ConfigSetAndShow(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	runCmd(t, "config", "set", "sample_rows", "2")
	if err := execCmd("config", "set", "sample_rows", "lots"); err == nil {
		t.Fatalf("expected validation error")
	}
	if err := execCmd("config", "set", "nope", "1"); err == nil {
		t.Fatalf("expected unknown key error")
	}
	out := captureStdout(t, func() { runCmd(t, "config", "show") })
	if !strings.Contains(out, "sample_rows: 2\n") || !strings.Contains(out, "default_format: md\n") {
		t.Fatalf("unexpected config show output:\n%s", out)
	}
}

func TestCLI_ProjectSettingsApplyToAdd(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	data := writeFile(t, filepath.Join(home, "orchard.csv"), orchardCSV)

	runCmd(t, "init", "settings")
	runCmd(t, "project", "set", "show_removed", "true", "-p", "settings")
	runCmd(t, "project", "set", "sample_rows", "1", "-p", "settings")
	if err := execCmd("project", "set", "sample_rows", "-p", "settings"); err == nil {
		t.Fatalf("expected error for missing value")
	}
	runCmd(t, "add", data, "-p", "settings")

	p, err := loadProjectByName("settings")
	if err != nil {
		t.Fatalf("load project: %v", err)
	}
	s := p.SortedSummaries()[0]
	body, err := os.ReadFile(filepath.Join(p.RootDir(), s.File))
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	md := string(body)
	if !strings.Contains(md, "[REMOVED ROWS: OUTLIERS]") {
		t.Fatalf("project show_removed not applied:\n%s", md)
	}
	if strings.Contains(md, "| t2 |") {
		t.Fatalf("project sample_rows not applied:\n%s", md)
	}

	runCmd(t, "project", "remove", s.ID[:8], "-p", "settings")
	if err := execCmd("project", "digest", "-p", "settings"); err == nil {
		t.Fatalf("expected digest error after removing the only summary")
	}
}
