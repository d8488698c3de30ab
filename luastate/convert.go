package luastate

import (
	"fmt"

	"github.com/Shopify/go-lua"

	"github.com/Neumenon/sgb/derrors"
	"github.com/Neumenon/sgb/luabins"
)

// Push pushes v onto the Lua stack. Tables become fresh Lua tables.
func Push(l *lua.State, v *luabins.Value) error {
	if !l.CheckStack(3) {
		return fmt.Errorf("luastate: Lua stack overflow: %w", derrors.Caller)
	}
	switch v.Type() {
	case luabins.TypeNil:
		l.PushNil()
	case luabins.TypeBool:
		b, _ := v.AsBool()
		l.PushBoolean(b)
	case luabins.TypeInt, luabins.TypeFloat:
		f, _ := v.Number()
		l.PushNumber(f)
	case luabins.TypeString:
		b, _ := v.AsBytes()
		l.PushString(string(b))
	case luabins.TypeTable:
		arraySize, hashSize := luabins.Split(v)
		l.CreateTable(arraySize, hashSize)
		for _, e := range v.Entries() {
			if err := Push(l, e.Key); err != nil {
				l.Pop(1)
				return err
			}
			if err := Push(l, e.Value); err != nil {
				l.Pop(2)
				return err
			}
			l.RawSet(-3)
		}
	}
	return nil
}

// ToValue converts the Lua value at index. Functions, userdata and
// threads cannot be represented; neither can a table that contains
// itself.
func ToValue(l *lua.State, index int) (*luabins.Value, error) {
	c := converter{l: l, open: make(map[any]bool)}
	return c.value(l.AbsIndex(index))
}

type converter struct {
	l    *lua.State
	open map[any]bool // tables on the current path
}

func (c *converter) value(index int) (*luabins.Value, error) {
	l := c.l
	switch t := l.TypeOf(index); t {
	case lua.TypeNil, lua.TypeNone:
		return luabins.Nil(), nil
	case lua.TypeBoolean:
		return luabins.Bool(l.ToBoolean(index)), nil
	case lua.TypeNumber:
		f, _ := l.ToNumber(index)
		return luabins.Number(f), nil
	case lua.TypeString:
		s, _ := l.ToString(index)
		return luabins.String(s), nil
	case lua.TypeTable:
		return c.table(index)
	default:
		return nil, fmt.Errorf("luastate: cannot save a %s: %w", lua.TypeNameOf(l, index), derrors.Caller)
	}
}

func (c *converter) table(index int) (*luabins.Value, error) {
	l := c.l
	id := l.ToValue(index)
	if c.open[id] {
		return nil, fmt.Errorf("luastate: table contains itself: %w", derrors.Caller)
	}
	if !l.CheckStack(3) {
		return nil, fmt.Errorf("luastate: Lua stack overflow: %w", derrors.Caller)
	}
	c.open[id] = true
	defer delete(c.open, id)

	t := luabins.NewTable()
	l.PushNil()
	for l.Next(index) {
		top := l.Top()
		if l.TypeOf(top-1) == lua.TypeTable {
			l.Pop(2)
			return nil, fmt.Errorf("luastate: table used as a key: %w", derrors.Caller)
		}
		k, err := c.value(top - 1)
		if err != nil {
			l.Pop(2)
			return nil, err
		}
		v, err := c.value(top)
		if err != nil {
			l.Pop(2)
			return nil, fmt.Errorf("[%s]: %w", k, err)
		}
		if err := t.Set(k, v); err != nil {
			l.Pop(2)
			return nil, err
		}
		l.Pop(1)
	}
	return t, nil
}
