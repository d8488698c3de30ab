package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Neumenon/sgb/backup"
	"github.com/Neumenon/sgb/derrors"
	"github.com/Neumenon/sgb/internal/config"
	"github.com/Neumenon/sgb/luabins"
	"github.com/Neumenon/sgb/savefile"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestApp(stdin string) (*app, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	a := &app{
		cfg:    &config.Config{LogLevel: "error", Backup: true, Workers: 2},
		stdin:  strings.NewReader(stdin),
		stdout: &stdout,
		stderr: &stderr,
		now:    func() time.Time { return testNow },
	}
	return a, &stdout, &stderr
}

func testForest() []*luabins.Value {
	return []*luabins.Value{luabins.NewTable(
		luabins.Field("GameState", luabins.NewTable(
			luabins.Field("Resources", luabins.NewTable(luabins.Field("Gems", luabins.Int(40)))),
		)),
		luabins.Field("CurrentRun", luabins.NewTable(luabins.Field("Depth", luabins.Int(3)))),
	)}
}

// writeTestSave writes a v17 save holding testForest and returns its
// path.
func writeTestSave(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	save := &savefile.SaveV17{Header: savefile.Header{
		Timestamp:      1234567,
		Location:       "Erebus",
		Runs:           9,
		LuaKeys:        []string{"GameState"},
		CurrentMapName: "F_Opening01",
	}}
	if err := savefile.EncodeFile(path, save, testForest()); err != nil {
		t.Fatalf("EncodeFile failed: %v", err)
	}
	return path
}

func readForest(t *testing.T, path string) []*luabins.Value {
	t.Helper()
	save, err := savefile.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	forest, err := luabins.Decode(save.Common().LuaState)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return forest
}

func gems(t *testing.T, path string) int64 {
	t.Helper()
	n, err := readForest(t, path)[0].GetString("GameState").GetString("Resources").GetString("Gems").AsInt()
	if err != nil {
		t.Fatalf("Gems: %v", err)
	}
	return n
}

func TestUsageErrors(t *testing.T) {
	for _, args := range [][]string{nil, {"bogus"}, {"info"}, {"get", "only-file"}, {"backups"}, {"restore", "x"}} {
		a, _, _ := newTestApp("")
		if err := a.run(context.Background(), args); !errors.Is(err, errUsage) {
			t.Errorf("run(%q) error = %v, want errUsage", args, err)
		}
	}
}

func TestVersion(t *testing.T) {
	a, stdout, _ := newTestApp("")
	if err := a.run(context.Background(), []string{"version"}); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(stdout.String(), "sgb "+version) {
		t.Errorf("version output = %q", stdout)
	}
}

func TestInfo(t *testing.T) {
	dir := t.TempDir()
	p1 := writeTestSave(t, dir, "Profile1.sav")
	p2 := writeTestSave(t, dir, "Profile2.sav")

	a, stdout, _ := newTestApp("")
	if err := a.run(context.Background(), []string{"info", p1, p2, "-workers", "2"}); err != nil {
		t.Fatalf("info failed: %v", err)
	}
	out := stdout.String()
	for _, want := range []string{p1, p2, "version:      v17", "location:     Erebus", "values:       1", "fingerprint:"} {
		if !strings.Contains(out, want) {
			t.Errorf("info output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, p1) > strings.Index(out, p2) {
		t.Error("info reports are not in argument order")
	}

	if err := a.run(context.Background(), []string{"info", filepath.Join(dir, "missing.sav")}); err == nil {
		t.Error("info on a missing file succeeded")
	}
}

func TestVerify(t *testing.T) {
	path := writeTestSave(t, t.TempDir(), "Profile1.sav")
	a, stdout, _ := newTestApp("")
	if err := a.run(context.Background(), []string{"verify", path}); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "checksum ok") {
		t.Errorf("verify output = %q", stdout)
	}

	data, _ := os.ReadFile(path)
	data[len(data)-1] ^= 0xFF
	os.WriteFile(path, data, 0o644)
	if err := a.run(context.Background(), []string{"verify", path}); err == nil {
		t.Error("verify accepted a corrupted file")
	}
}

func TestGet(t *testing.T) {
	path := writeTestSave(t, t.TempDir(), "Profile1.sav")
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"GameState.Resources.Gems"}, "40\n"},
		{[]string{"GameState", "Resources"}, "{Gems=40}\n"},
		{[]string{"CurrentRun.Missing"}, "nil\n"},
	}
	for _, tt := range tests {
		a, stdout, _ := newTestApp("")
		if err := a.run(context.Background(), append([]string{"get", path}, tt.args...)); err != nil {
			t.Fatalf("get %v failed: %v", tt.args, err)
		}
		if stdout.String() != tt.want {
			t.Errorf("get %v = %q, want %q", tt.args, stdout, tt.want)
		}
	}
}

func TestEdit(t *testing.T) {
	dir := t.TempDir()
	path := writeTestSave(t, dir, "Profile1.sav")
	script := filepath.Join(dir, "gems.lua")
	os.WriteFile(script, []byte("GameState.Resources.Gems = GameState.Resources.Gems * 2\n"), 0o644)

	a, _, _ := newTestApp("")
	if err := a.run(context.Background(), []string{"edit", path, "-script", script}); err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if got := gems(t, path); got != 80 {
		t.Errorf("Gems = %d, want 80", got)
	}

	archives, err := backup.List("", path)
	if err != nil || len(archives) != 1 {
		t.Fatalf("archives = %v, %v; want one", archives, err)
	}
	orig, err := backup.Read(archives[0])
	if err != nil {
		t.Fatal(err)
	}
	if _, err := savefile.Read(orig); err != nil {
		t.Errorf("archived original does not read back: %v", err)
	}
}

func TestEdit_NoOpSkipsWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeTestSave(t, dir, "Profile1.sav")
	before, _ := os.ReadFile(path)
	script := filepath.Join(dir, "noop.lua")
	os.WriteFile(script, []byte("local x = GameState.Resources.Gems\n"), 0o644)

	a, _, _ := newTestApp("")
	if err := a.run(context.Background(), []string{"edit", "-script", script, path}); err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	after, _ := os.ReadFile(path)
	if !bytes.Equal(before, after) {
		t.Error("no-op edit rewrote the file")
	}
	if archives, _ := backup.List("", path); len(archives) != 0 {
		t.Errorf("no-op edit made archives %v", archives)
	}
}

func TestEdit_OutputAndNoBackup(t *testing.T) {
	dir := t.TempDir()
	path := writeTestSave(t, dir, "Profile1.sav")
	out := filepath.Join(dir, "Edited.sav")
	script := filepath.Join(dir, "gems.lua")
	os.WriteFile(script, []byte("GameState.Resources.Gems = 1\n"), 0o644)

	a, _, _ := newTestApp("")
	if err := a.run(context.Background(), []string{"edit", path, "-script", script, "-o", out}); err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if got := gems(t, out); got != 1 {
		t.Errorf("Gems in OUT = %d, want 1", got)
	}
	if got := gems(t, path); got != 40 {
		t.Errorf("Gems in FILE = %d, want 40 (untouched)", got)
	}

	if err := a.run(context.Background(), []string{"edit", path, "-script", script, "-no-backup"}); err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if archives, _ := backup.List("", path); len(archives) != 0 {
		t.Errorf("-no-backup still archived: %v", archives)
	}
}

func TestDumpImport(t *testing.T) {
	dir := t.TempDir()
	path := writeTestSave(t, dir, "Profile1.sav")

	a, stdout, _ := newTestApp("")
	if err := a.run(context.Background(), []string{"dump", path}); err != nil {
		t.Fatalf("dump failed: %v", err)
	}
	dump := strings.Replace(stdout.String(), "Gems: 40", "Gems: 777", 1)
	if dump == stdout.String() {
		t.Fatalf("dump has no Gems: 40 line:\n%s", stdout)
	}
	yamlPath := filepath.Join(dir, "state.yaml")
	os.WriteFile(yamlPath, []byte(dump), 0o644)

	a.cfg.Backup = false
	if err := a.run(context.Background(), []string{"import", path, yamlPath}); err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if got := gems(t, path); got != 777 {
		t.Errorf("Gems = %d, want 777", got)
	}
}

func TestRepl(t *testing.T) {
	dir := t.TempDir()
	path := writeTestSave(t, dir, "Profile1.sav")
	out := filepath.Join(dir, "Repl.sav")

	input := strings.Join([]string{
		"GameState.Resources.Gems",
		"GameState.Resources.Gems = 5",
		"nosuchfunction()",
		":save " + out,
		":quit",
		"GameState.Resources.Gems = 6",
	}, "\n")
	a, stdout, stderr := newTestApp(input)
	if err := a.run(context.Background(), []string{"repl", path}); err != nil {
		t.Fatalf("repl failed: %v", err)
	}
	if stdout.String() != "40\n" {
		t.Errorf("stdout = %q, want %q", stdout, "40\n")
	}
	if !strings.Contains(stderr.String(), "error:") {
		t.Errorf("stderr did not report the failed call:\n%s", stderr)
	}
	if got := gems(t, out); got != 5 {
		t.Errorf("saved Gems = %d, want 5", got)
	}
}

func TestRestore(t *testing.T) {
	dir := t.TempDir()
	path := writeTestSave(t, dir, "Profile1.sav")
	orig, _ := os.ReadFile(path)
	archive, err := backup.Write("", path, orig, testNow)
	if err != nil {
		t.Fatal(err)
	}

	a, stdout, _ := newTestApp("")
	if err := a.run(context.Background(), []string{"backups", path}); err != nil {
		t.Fatalf("backups failed: %v", err)
	}
	if got := strings.TrimSpace(stdout.String()); got != archive {
		t.Errorf("backups listed %q, want %q", got, archive)
	}

	restored := filepath.Join(dir, "Restored.sav")
	if err := a.run(context.Background(), []string{"restore", archive, restored}); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	got, _ := os.ReadFile(restored)
	if !bytes.Equal(got, orig) {
		t.Error("restored file differs from the original")
	}

	junk, err := backup.Write("", filepath.Join(dir, "junk.sav"), []byte("not a save"), testNow)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.run(context.Background(), []string{"restore", junk, restored}); err == nil {
		t.Error("restore accepted an archive that is not a save")
	}
}

func TestSplitPath(t *testing.T) {
	got := splitPath([]string{"GameState.Resources", "Gems", "a..b"})
	want := []string{"GameState", "Resources", "Gems", "a", "b"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("splitPath = %v, want %v", got, want)
	}
}

func TestExitCode(t *testing.T) {
	dir := t.TempDir()
	junk := filepath.Join(dir, "junk.sav")
	os.WriteFile(junk, []byte("SGB0 not a save"), 0o644)

	a, _, _ := newTestApp("")
	err := a.run(context.Background(), []string{"info", junk})
	if got := exitCode(err); got != 3 {
		t.Errorf("exitCode(%v) = %d, want 3", err, got)
	}
	err = a.run(context.Background(), []string{"info", filepath.Join(dir, "missing.sav")})
	if got := exitCode(err); got != 1 {
		t.Errorf("exitCode(%v) = %d, want 1", err, got)
	}
	err = a.run(context.Background(), []string{"bogus"})
	if got := exitCode(err); got != 2 {
		t.Errorf("exitCode(%v) = %d, want 2", err, got)
	}
}

func TestSubcommandHelp(t *testing.T) {
	for _, cmd := range []string{"info", "edit", "get", "backups"} {
		a, _, stderr := newTestApp("")
		err := a.run(context.Background(), []string{cmd, "-h"})
		if got := exitCode(err); got != 0 {
			t.Errorf("%s -h: exitCode(%v) = %d, want 0", cmd, err, got)
		}
		if !strings.Contains(stderr.String(), "-verify-checksum") {
			t.Errorf("%s -h printed %q, want the flag list", cmd, stderr.String())
		}
	}
}

func TestReadOptionsFromConfigAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := writeTestSave(t, dir, "Profile1.sav")
	data, _ := os.ReadFile(path)
	data[4] ^= 0xff
	os.WriteFile(path, data, 0o644)

	a, _, _ := newTestApp("")
	if err := a.run(context.Background(), []string{"info", path}); err != nil {
		t.Errorf("info with a stale checksum failed by default: %v", err)
	}
	if err := a.run(context.Background(), []string{"info", "-verify-checksum", path}); !errors.Is(err, derrors.Checksum) {
		t.Errorf("info -verify-checksum error = %v, want derrors.Checksum", err)
	}

	a.cfg.VerifyChecksum = true
	if err := a.run(context.Background(), []string{"get", path, "GameState"}); !errors.Is(err, derrors.Checksum) {
		t.Errorf("get with SGB_VERIFY_CHECKSUM error = %v, want derrors.Checksum", err)
	}
	if err := a.run(context.Background(), []string{"get", "-verify-checksum=false", path, "GameState"}); err != nil {
		t.Errorf("flag did not override the environment: %v", err)
	}
}

