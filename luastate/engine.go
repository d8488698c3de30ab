// Package luastate bridges decoded save state and a Lua interpreter, so
// saves can be inspected and edited with ordinary Lua scripts.
package luastate

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/Shopify/go-lua"

	"github.com/Neumenon/sgb/derrors"
	"github.com/Neumenon/sgb/luabins"
)

// Engine is a Lua interpreter holding one save's globals. It is not safe
// for concurrent use.
type Engine struct {
	l      *lua.State
	policy Policy
}

// NewEngine creates an interpreter with the standard libraries open.
func NewEngine(policy Policy) *Engine {
	l := lua.NewState()
	lua.OpenLibraries(l)
	return &Engine{l: l, policy: policy}
}

// Close releases the interpreter.
func (e *Engine) Close() {
	e.l = nil
}

// Load installs the entries of every top-level table as globals, except
// those the policy ignores.
func (e *Engine) Load(forest []*luabins.Value) error {
	l := e.l
	l.PushGlobalTable()
	defer l.Pop(1)
	g := l.Top()

	for i, v := range forest {
		if v.Type() != luabins.TypeTable {
			return fmt.Errorf("luastate: value[%d] is a %s, not a table: %w", i, v.Type(), derrors.Caller)
		}
		for _, entry := range v.Entries() {
			if name, err := entry.Key.AsString(); err == nil && !e.policy.loads(name) {
				continue
			}
			if err := Push(l, entry.Key); err != nil {
				return err
			}
			if err := Push(l, entry.Value); err != nil {
				l.Pop(1)
				return err
			}
			l.RawSet(g)
		}
	}
	return nil
}

// Extract collects the persisted globals into a forest of one table.
func (e *Engine) Extract() ([]*luabins.Value, error) {
	names := e.policy.Whitelist
	if len(names) == 0 {
		names = e.globalNames()
	}

	saved := luabins.NewTable()
	for _, name := range names {
		if !e.policy.Allow(name) {
			continue
		}
		v, err := e.global(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if v != nil {
			saved.Set(luabins.String(name), v)
		}
	}
	return []*luabins.Value{saved}, nil
}

// global converts one global, returning nil for absent globals and for
// functions, userdata and threads.
func (e *Engine) global(name string) (*luabins.Value, error) {
	l := e.l
	l.Global(name)
	defer l.Pop(1)
	switch l.TypeOf(-1) {
	case lua.TypeNil, lua.TypeFunction, lua.TypeUserData, lua.TypeLightUserData, lua.TypeThread:
		return nil, nil
	}
	return ToValue(l, -1)
}

// globalNames returns the string keys of the global table, sorted.
func (e *Engine) globalNames() []string {
	l := e.l
	l.PushGlobalTable()
	defer l.Pop(1)
	g := l.Top()

	var names []string
	l.PushNil()
	for l.Next(g) {
		if l.TypeOf(-2) == lua.TypeString {
			s, _ := l.ToString(-2)
			names = append(names, s)
		}
		l.Pop(1)
	}
	sort.Strings(names)
	return names
}

// Exec runs a chunk. name appears in error messages.
func (e *Engine) Exec(chunk, name string) error {
	_, err := e.run(chunk, "="+name, 0)
	return err
}

// ExecFile runs the Lua file at path.
func (e *Engine) ExecFile(path string) error {
	l := e.l
	top := l.Top()
	if err := lua.LoadFile(l, path, ""); err != nil {
		return e.scriptError(top, err)
	}
	if err := l.ProtectedCall(0, 0, 0); err != nil {
		return e.scriptError(top, err)
	}
	return nil
}

// Eval evaluates one line of input and renders each result. An
// expression is tried first, so "GameState.Resources" prints the table.
func (e *Engine) Eval(line string) ([]string, error) {
	results, err := e.run("return "+line, "=stdin", lua.MultipleReturns)
	if results < 0 {
		results, err = e.run(line, "=stdin", lua.MultipleReturns)
	}
	if err != nil {
		return nil, err
	}

	l := e.l
	top := l.Top()
	defer l.SetTop(top - results)
	out := make([]string, 0, results)
	for i := top - results + 1; i <= top; i++ {
		out = append(out, e.render(i))
	}
	return out, nil
}

// run loads and calls a chunk and returns the number of results left on
// the stack. A load failure reports -1 results.
func (e *Engine) run(chunk, name string, results int) (int, error) {
	l := e.l
	top := l.Top()
	if err := lua.LoadBuffer(l, chunk, name, ""); err != nil {
		return -1, e.scriptError(top, err)
	}
	if err := l.ProtectedCall(0, results, 0); err != nil {
		return 0, e.scriptError(top, err)
	}
	return l.Top() - top, nil
}

// ScriptError is a Lua load or runtime failure. Message is the error
// value Lua raised.
type ScriptError struct {
	Message string
	Err     error
}

func (e *ScriptError) Error() string { return "luastate: " + e.Message }

func (e *ScriptError) Unwrap() error { return e.Err }

// scriptError pops the error value Lua left above top.
func (e *Engine) scriptError(top int, err error) error {
	l := e.l
	msg := err.Error()
	if l.Top() > top {
		if s, ok := l.ToString(-1); ok {
			msg = s
		}
	}
	l.SetTop(top)
	return &ScriptError{Message: msg, Err: err}
}

func (e *Engine) render(index int) string {
	if v, err := ToValue(e.l, index); err == nil {
		return v.String()
	}
	s, _ := lua.ToStringMeta(e.l, index)
	e.l.Pop(1)
	return s
}

// Lookup returns the value at a path of keys below a global. A segment
// that names no string key is retried as a number. A missing value is
// Nil.
func (e *Engine) Lookup(path ...string) (*luabins.Value, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("luastate: empty path: %w", derrors.Caller)
	}
	l := e.l
	top := l.Top()
	defer l.SetTop(top)

	l.Global(path[0])
	for i, seg := range path[1:] {
		if l.TypeOf(-1) != lua.TypeTable {
			if l.IsNil(-1) {
				return luabins.Nil(), nil
			}
			return nil, fmt.Errorf("luastate: %v is a %s, not a table: %w", path[:i+1], lua.TypeNameOf(l, -1), derrors.Caller)
		}
		l.PushString(seg)
		l.RawGet(-2)
		if l.IsNil(-1) {
			if n, err := strconv.ParseFloat(seg, 64); err == nil {
				l.Pop(1)
				l.PushNumber(n)
				l.RawGet(-2)
			}
		}
		l.Remove(-2)
	}
	return ToValue(l, -1)
}
