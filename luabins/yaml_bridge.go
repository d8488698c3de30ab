package luabins

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Neumenon/sgb/derrors"
	"gopkg.in/yaml.v3"
)

// ============================================================
// YAML Bridge
// ============================================================
//
// Lossless conversion between a forest and a YAML document, for
// inspecting and hand-editing save state:
//   - the document is a sequence with one item per top-level value
//   - tables are mappings; every key carries its own tag, so 1, "1"
//     and true stay distinct keys
//   - strings that are not valid UTF-8 are written as !!binary

// ToYAML renders a forest as a YAML document.
func ToYAML(values []*Value) ([]byte, error) {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, v := range values {
		seq.Content = append(seq.Content, yamlNode(v))
	}
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{seq}}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("luabins: encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("luabins: encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

func yamlNode(v *Value) *yaml.Node {
	switch v.Type() {
	case TypeBool:
		return scalar("!!bool", strconv.FormatBool(v.boolVal))
	case TypeInt:
		return scalar("!!int", strconv.FormatInt(v.intVal, 10))
	case TypeFloat:
		return scalar("!!float", yamlFloat(v.floatVal))
	case TypeString:
		if utf8.Valid(v.strVal) {
			return scalar("!!str", string(v.strVal))
		}
		return scalar("!!binary", base64.StdEncoding.EncodeToString(v.strVal))
	case TypeTable:
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, e := range v.table.entries {
			m.Content = append(m.Content, yamlNode(e.Key), yamlNode(e.Value))
		}
		return m
	default:
		return scalar("!!null", "~")
	}
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func yamlFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// FromYAML parses a document produced by ToYAML (or written by hand in
// the same shape) back into a forest. Nested sequences are accepted as
// tables keyed 1..n.
func FromYAML(data []byte) ([]*Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("luabins: parse yaml: %v: %w", err, derrors.Format)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return nil, fmt.Errorf("luabins: yaml: expected a single document: %w", derrors.Format)
	}
	root := doc.Content[0]
	if root.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("luabins: yaml line %d: top level must be a sequence: %w", root.Line, derrors.Format)
	}
	if len(root.Content) > MaxTopLevel {
		return nil, fmt.Errorf("luabins: yaml: %d top-level values, at most %d fit: %w", len(root.Content), MaxTopLevel, derrors.Caller)
	}
	values := make([]*Value, 0, len(root.Content))
	for i, n := range root.Content {
		v, err := fromYAMLNode(n)
		if err != nil {
			return nil, fmt.Errorf("value[%d]: %w", i, err)
		}
		values = append(values, v)
	}
	return values, nil
}

func fromYAMLNode(n *yaml.Node) (*Value, error) {
	if n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	switch n.Kind {
	case yaml.ScalarNode:
		return fromYAMLScalar(n)

	case yaml.MappingNode:
		t := NewTable()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, err := fromYAMLNode(n.Content[i])
			if err != nil {
				return nil, err
			}
			v, err := fromYAMLNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			if err := t.Set(k, v); err != nil {
				return nil, fmt.Errorf("yaml line %d: %w", n.Content[i].Line, err)
			}
		}
		return t, nil

	case yaml.SequenceNode:
		items := make([]*Value, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromYAMLNode(c)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return List(items...), nil

	default:
		return nil, fmt.Errorf("luabins: yaml line %d: unsupported node: %w", n.Line, derrors.Format)
	}
}

func fromYAMLScalar(n *yaml.Node) (*Value, error) {
	bad := func(err error) error {
		return fmt.Errorf("luabins: yaml line %d: %s %q: %v: %w", n.Line, n.ShortTag(), n.Value, err, derrors.Format)
	}
	switch n.ShortTag() {
	case "!!null":
		return Nil(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, bad(err)
		}
		return Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, bad(err)
		}
		return Int(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, bad(err)
		}
		return Float(f), nil
	case "!!binary":
		b, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(n.Value), ""))
		if err != nil {
			return nil, bad(err)
		}
		return Bytes(b), nil
	default:
		return String(n.Value), nil
	}
}
