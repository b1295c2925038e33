package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/chazu/tether/config"
)

func init() {
	color.NoColor = true
}

func TestRunDemo(t *testing.T) {
	dir := t.TempDir()
	opts := demoOptions{
		journalPath: filepath.Join(dir, "crossings.db"),
		statsPath:   filepath.Join(dir, "stats.cbor"),
		vectors:     4,
	}

	var out bytes.Buffer
	if err := runDemo(&out, config.Default(), opts); err != nil {
		t.Fatalf("demo failed: %v\n%s", err, out.String())
	}

	text := out.String()
	for _, want := range []string{
		"|a| = 5",
		"(a + b).x = 10",
		"property is read-only",
		"apply(scale, |a|) = 10",
		"scale expects a number",
		"print typeof a: native",
		"journal ",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}

	if _, err := os.Stat(opts.statsPath); err != nil {
		t.Errorf("stats snapshot not written: %v", err)
	}
}

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("tether %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestJournalAndStatsCommands(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "j.db")
	snapshot := filepath.Join(dir, "s.cbor")

	runCLI(t, "demo", "--journal", db, "--stats", snapshot, "--vectors", "2")

	sessions := runCLI(t, "journal", db, "--sessions")
	if !strings.Contains(sessions, "crossings") {
		t.Errorf("sessions output: %s", sessions)
	}

	ctors := runCLI(t, "journal", db, "--kind", "constructor")
	if strings.Count(ctors, "constructor") < 4 {
		t.Errorf("expected at least 4 constructor crossings:\n%s", ctors)
	}

	failed := runCLI(t, "journal", db, "--errors")
	if !strings.Contains(failed, "scale expects a number") {
		t.Errorf("errors output: %s", failed)
	}

	stats := runCLI(t, "stats", snapshot)
	if !strings.Contains(stats, "classes") {
		t.Errorf("stats output: %s", stats)
	}
}

func TestJournalUnknownKind(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"journal", filepath.Join(t.TempDir(), "x.db"), "--kind", "sideways"})
	if err := cmd.Execute(); err == nil {
		t.Error("unknown kind accepted")
	}
}

func TestConfigCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, config.FileName)
	if err := os.WriteFile(path, []byte("[frames]\ncapacity = 12\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := runCLI(t, "--config", path, "config")
	if !strings.Contains(out, "capacity = 12") {
		t.Errorf("config output:\n%s", out)
	}
}
