package luastate

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Neumenon/sgb/derrors"
	"github.com/Neumenon/sgb/luabins"
	"github.com/Neumenon/sgb/savefile"
	"github.com/google/go-cmp/cmp"
)

func saveForest() []*luabins.Value {
	return []*luabins.Value{
		luabins.NewTable(
			luabins.Field("GameState", luabins.NewTable(
				luabins.Field("Resources", luabins.NewTable(
					luabins.Field("Gems", luabins.Int(40)),
					luabins.Field("Darkness", luabins.Int(1500)),
				)),
				luabins.Field("Flags", luabins.List(luabins.Bool(true), luabins.String("second"))),
				luabins.Field("Ratio", luabins.Float(0.75)),
			)),
			luabins.Field("CurrentRun", luabins.NewTable(luabins.Field("Depth", luabins.Int(3)))),
			luabins.Field("MapState", luabins.NewTable(luabins.Field("Room", luabins.String("A_Boss01")))),
		),
	}
}

func newLoaded(t *testing.T, p Policy) *Engine {
	t.Helper()
	e := NewEngine(p)
	t.Cleanup(e.Close)
	if err := e.Load(saveForest()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return e
}

func TestPolicy(t *testing.T) {
	v16 := PolicyFor(savefile.V16)
	for _, name := range []string{"_G", "string", "MapState", "GameData", "SaveIgnores"} {
		if v16.Allow(name) {
			t.Errorf("v16 Allow(%q) = true", name)
		}
	}
	if !v16.Allow("GameState") {
		t.Error("v16 Allow(GameState) = false")
	}

	v17 := PolicyFor(savefile.V17)
	if !v17.Allow("NextSeeds") || !v17.Allow("MapState") {
		t.Error("v17 rejects a whitelisted global")
	}
	if v17.Allow("GameData") {
		t.Error("v17 Allow(GameData) = true")
	}
	if len(v17.Whitelist) != 11 {
		t.Errorf("v17 whitelist has %d names, want 11", len(v17.Whitelist))
	}
}

func TestLoadExtract_V17(t *testing.T) {
	e := newLoaded(t, PolicyFor(savefile.V17))

	got, err := e.Extract()
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !luabins.ForestEqual(got, saveForest()) {
		t.Errorf("Extract = %v, want %v", got, saveForest())
	}

	var keys []string
	for _, entry := range got[0].Entries() {
		k, _ := entry.Key.AsString()
		keys = append(keys, k)
	}
	if diff := cmp.Diff([]string{"GameState", "CurrentRun", "MapState"}, keys); diff != "" {
		t.Errorf("extract order mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadExtract_V16Ignores(t *testing.T) {
	e := newLoaded(t, PolicyFor(savefile.V16))

	got, err := e.Extract()
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	want := saveForest()
	want[0].Delete(luabins.String("MapState"))
	if !luabins.ForestEqual(got, want) {
		t.Errorf("Extract = %v, want %v", got, want)
	}

	v, err := e.Lookup("MapState")
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsNil() {
		t.Errorf("ignored global was loaded: %v", v)
	}
}

func TestLoad_RejectsNonTable(t *testing.T) {
	e := NewEngine(Policy{})
	defer e.Close()
	err := e.Load([]*luabins.Value{luabins.Int(1)})
	if !errors.Is(err, derrors.Caller) {
		t.Errorf("Load error = %v, want derrors.Caller", err)
	}
}

func TestExec_EditsState(t *testing.T) {
	e := newLoaded(t, PolicyFor(savefile.V17))

	script := `
GameState.Resources.Gems = GameState.Resources.Gems + 10
GameState.Half = 0.5
GameState.Whole = 4 / 2
CurrentRun = nil
`
	if err := e.Exec(script, "edit.lua"); err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	got, err := e.Extract()
	if err != nil {
		t.Fatal(err)
	}
	gs := got[0].GetString("GameState")
	if gems, _ := gs.GetString("Resources").GetString("Gems").AsInt(); gems != 50 {
		t.Errorf("Gems = %d, want 50", gems)
	}
	if typ := gs.GetString("Half").Type(); typ != luabins.TypeFloat {
		t.Errorf("Half type = %s, want float", typ)
	}
	if typ := gs.GetString("Whole").Type(); typ != luabins.TypeInt {
		t.Errorf("Whole type = %s, want int", typ)
	}
	if got[0].GetString("CurrentRun") != nil {
		t.Error("CurrentRun still extracted after being cleared")
	}
}

func TestExecFile(t *testing.T) {
	e := newLoaded(t, PolicyFor(savefile.V17))
	path := filepath.Join(t.TempDir(), "script.lua")
	if err := os.WriteFile(path, []byte("GameState.Resources.Darkness = 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := e.ExecFile(path); err != nil {
		t.Fatalf("ExecFile failed: %v", err)
	}
	v, _ := e.Lookup("GameState", "Resources", "Darkness")
	if n, _ := v.AsInt(); n != 0 {
		t.Errorf("Darkness = %v, want 0", v)
	}

	if err := e.ExecFile(filepath.Join(t.TempDir(), "missing.lua")); err == nil {
		t.Error("ExecFile(missing) succeeded")
	}
}

func TestExec_Errors(t *testing.T) {
	e := newLoaded(t, Policy{})

	err := e.Exec(`error("boom")`, "fail.lua")
	var se *ScriptError
	if !errors.As(err, &se) {
		t.Fatalf("expected ScriptError, got %T: %v", err, err)
	}
	if !strings.Contains(se.Message, "boom") {
		t.Errorf("Message = %q, want it to mention boom", se.Message)
	}

	if err := e.Exec(`this is not lua`, "syntax.lua"); !errors.As(err, &se) {
		t.Errorf("syntax error = %v, want ScriptError", err)
	}

	// The engine stays usable after a failure.
	if out, err := e.Eval("1 + 1"); err != nil || len(out) != 1 || out[0] != "2" {
		t.Errorf("Eval after error = %v, %v", out, err)
	}
}

func TestEval(t *testing.T) {
	e := newLoaded(t, PolicyFor(savefile.V17))

	tests := []struct {
		line string
		want []string
	}{
		{"1 + 1", []string{"2"}},
		{"x = 7", []string{}},
		{"x, x * 0.5", []string{"7", "3.5"}},
		{"GameState.Resources.Gems", []string{"40"}},
		{"CurrentRun", []string{"{Depth=3}"}},
		{`"a" .. "b"`, []string{`"ab"`}},
		{"undefinedName", []string{"nil"}},
	}
	for _, tt := range tests {
		got, err := e.Eval(tt.line)
		if err != nil {
			t.Errorf("Eval(%q) failed: %v", tt.line, err)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("Eval(%q) mismatch (-want +got):\n%s", tt.line, diff)
		}
	}

	out, err := e.Eval("print")
	if err != nil || len(out) != 1 || !strings.HasPrefix(out[0], "function") {
		t.Errorf("Eval(print) = %v, %v; want a function", out, err)
	}
}

func TestLookup(t *testing.T) {
	e := newLoaded(t, PolicyFor(savefile.V17))

	tests := []struct {
		path []string
		want *luabins.Value
	}{
		{[]string{"GameState", "Resources", "Gems"}, luabins.Int(40)},
		{[]string{"GameState", "Flags", "2"}, luabins.String("second")},
		{[]string{"GameState", "Ratio"}, luabins.Float(0.75)},
		{[]string{"GameState", "Missing", "Deeper"}, luabins.Nil()},
		{[]string{"Nope"}, luabins.Nil()},
	}
	for _, tt := range tests {
		got, err := e.Lookup(tt.path...)
		if err != nil {
			t.Errorf("Lookup(%v) failed: %v", tt.path, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("Lookup(%v) = %v, want %v", tt.path, got, tt.want)
		}
	}

	if _, err := e.Lookup("GameState", "Ratio", "x"); !errors.Is(err, derrors.Caller) {
		t.Errorf("Lookup through a number: error = %v, want derrors.Caller", err)
	}
	if _, err := e.Lookup(); !errors.Is(err, derrors.Caller) {
		t.Errorf("Lookup(): error = %v, want derrors.Caller", err)
	}
}

func TestExtract_Unrepresentable(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{"cycle", "Saved = {}; Saved.self = Saved"},
		{"nested function", "Saved = { f = print }"},
		{"table key", "Saved = { [{}] = 1 }"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(Policy{Whitelist: []string{"Saved"}})
			defer e.Close()
			if err := e.Exec(tt.script, tt.name); err != nil {
				t.Fatal(err)
			}
			if _, err := e.Extract(); !errors.Is(err, derrors.Caller) {
				t.Errorf("Extract error = %v, want derrors.Caller", err)
			}
		})
	}
}

func TestExtract_SharedTablesAreCopied(t *testing.T) {
	e := NewEngine(Policy{Whitelist: []string{"Saved"}})
	defer e.Close()
	if err := e.Exec("local s = {1, 2}; Saved = { a = s, b = s }", "shared"); err != nil {
		t.Fatal(err)
	}
	got, err := e.Extract()
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	saved := got[0].GetString("Saved")
	if !saved.GetString("a").Equal(saved.GetString("b")) {
		t.Errorf("shared table = %v", saved)
	}
}

func TestExtract_SkipsFunctionGlobals(t *testing.T) {
	e := NewEngine(Policy{Whitelist: []string{"Helper", "Value"}})
	defer e.Close()
	if err := e.Exec("function Helper() end; Value = 1", "globals"); err != nil {
		t.Fatal(err)
	}
	got, err := e.Extract()
	if err != nil {
		t.Fatal(err)
	}
	want := luabins.NewTable(luabins.Field("Value", luabins.Int(1)))
	if !got[0].Equal(want) {
		t.Errorf("Extract = %v, want %v", got[0], want)
	}
}
