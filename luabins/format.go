package luabins

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ============================================================
// Lua Literal Rendering
// ============================================================

// String renders v as a Lua literal. Tables list the 1..n prefix
// positionally and every other entry as [key]=value or name=value.
func (v *Value) String() string {
	var sb strings.Builder
	writeValue(&sb, v)
	return sb.String()
}

func writeValue(sb *strings.Builder, v *Value) {
	switch v.Type() {
	case TypeNil:
		sb.WriteString("nil")
	case TypeBool:
		sb.WriteString(strconv.FormatBool(v.boolVal))
	case TypeInt:
		sb.WriteString(strconv.FormatInt(v.intVal, 10))
	case TypeFloat:
		sb.WriteString(formatFloat(v.floatVal))
	case TypeString:
		sb.WriteString(quote(v.strVal))
	case TypeTable:
		writeTable(sb, v)
	}
}

func writeTable(sb *strings.Builder, v *Value) {
	if v.Len() == 0 {
		sb.WriteString("{}")
		return
	}
	n := v.SequenceLength()
	sb.WriteByte('{')
	first := true
	sep := func() {
		if !first {
			sb.WriteString(", ")
		}
		first = false
	}
	for i := 1; i <= n; i++ {
		sep()
		writeValue(sb, v.Get(Int(int64(i))))
	}
	for _, e := range v.table.entries {
		if inPrefix(e.Key, n) {
			continue
		}
		sep()
		if s, ok := identKey(e.Key); ok {
			sb.WriteString(s)
		} else {
			sb.WriteByte('[')
			writeValue(sb, e.Key)
			sb.WriteByte(']')
		}
		sb.WriteByte('=')
		writeValue(sb, e.Value)
	}
	sb.WriteByte('}')
}

// formatFloat uses shortest round-trip form and Lua's spellings of the
// non-finite values.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "0/0"
	case math.IsInf(f, 1):
		return "math.huge"
	case math.IsInf(f, -1):
		return "-math.huge"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

// identKey returns the bare form of a string key when it is a valid Lua
// identifier and not a reserved word.
func identKey(k *Value) (string, bool) {
	if k.Type() != TypeString || len(k.strVal) == 0 {
		return "", false
	}
	s := string(k.strVal)
	if luaKeywords[s] {
		return "", false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return "", false
		}
	}
	return s, true
}

var luaKeywords = map[string]bool{
	"and": true, "break": true, "do": true, "else": true, "elseif": true,
	"end": true, "false": true, "for": true, "function": true, "goto": true,
	"if": true, "in": true, "local": true, "nil": true, "not": true,
	"or": true, "repeat": true, "return": true, "then": true, "true": true,
	"until": true, "while": true,
}

// quote renders b as a double-quoted Lua string. Invalid UTF-8 and
// control bytes use decimal escapes.
func quote(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b) + 2)
	sb.WriteByte('"')
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		switch {
		case r == utf8.RuneError && size <= 1:
			writeByteEscape(&sb, b[0])
		case r == '"':
			sb.WriteString(`\"`)
		case r == '\\':
			sb.WriteString(`\\`)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\t':
			sb.WriteString(`\t`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r < 0x20 || r == 0x7f:
			writeByteEscape(&sb, byte(r))
		default:
			sb.Write(b[:size])
		}
		b = b[size:]
	}
	sb.WriteByte('"')
	return sb.String()
}

// writeByteEscape writes a three-digit decimal escape so a following
// digit cannot extend it.
func writeByteEscape(sb *strings.Builder, c byte) {
	sb.WriteByte('\\')
	sb.WriteByte('0' + c/100)
	sb.WriteByte('0' + c/10%10)
	sb.WriteByte('0' + c%10)
}
