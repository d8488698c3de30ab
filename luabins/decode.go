package luabins

import (
	"errors"
	"fmt"
	"math"

	"github.com/Neumenon/sgb/wire"
)

// Decoder decodes luabins streams.
type Decoder struct {
	maxDepth int
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithMaxDepth bounds table nesting, for input from untrusted sources.
// Zero, the default, disables the limit.
func WithMaxDepth(n int) DecoderOption {
	return func(d *Decoder) {
		d.maxDepth = n
	}
}

// NewDecoder creates a Decoder.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode decodes a full stream: the count byte and that many values.
// Bytes after the last value are ignored. On error no values are
// returned.
func Decode(data []byte) ([]*Value, error) {
	return NewDecoder().Decode(data)
}

// Size walks a full stream without building values and returns the
// number of bytes it occupies.
func Size(data []byte) (int, error) {
	return NewDecoder().Size(data)
}

// Decode decodes a full stream.
func (d *Decoder) Decode(data []byte) ([]*Value, error) {
	s := &decodeState{r: wire.NewReader(data), maxDepth: d.maxDepth}
	return s.forest()
}

// Size returns the length of the stream at the start of data. It
// consumes exactly the bytes Decode would without building any tables
// or strings.
func (d *Decoder) Size(data []byte) (int, error) {
	s := &decodeState{r: wire.NewReader(data), maxDepth: d.maxDepth, discard: true}
	if _, err := s.forest(); err != nil {
		return 0, err
	}
	return s.r.Offset(), nil
}

// ============================================================
// Grammar Walk
// ============================================================

// decodeState walks the grammar. With discard set it only advances the
// cursor; values come back nil except the markers below, which are
// enough to validate table keys.
type decodeState struct {
	r        *wire.Reader
	maxDepth int
	discard  bool
}

var (
	discardedNil   = Nil()
	discardedNaN   = Float(math.NaN())
	discardedTable = &Value{typ: TypeTable}
)

// pairError carries the position of a failure inside a table. Only the
// innermost table adds one, so the message does not grow with depth.
type pairError struct {
	part string
	err  error
}

func (e *pairError) Error() string { return "ctable: " + e.part + ": " + e.err.Error() }

func (e *pairError) Unwrap() error { return e.err }

func (s *decodeState) forest() ([]*Value, error) {
	n, err := s.r.Byte("num_items")
	if err != nil {
		return nil, err
	}
	var values []*Value
	if !s.discard {
		values = make([]*Value, 0, n)
	}
	for i := 0; i < int(n); i++ {
		v, err := s.value(0)
		if err != nil {
			return nil, fmt.Errorf("value[%d]: %w", i, err)
		}
		if !s.discard {
			values = append(values, v)
		}
	}
	return values, nil
}

func (s *decodeState) value(depth int) (*Value, error) {
	off := s.r.Offset()
	tag, err := s.r.Byte("type")
	if err != nil {
		return nil, err
	}

	switch tag {
	case TagNil:
		if s.discard {
			return discardedNil, nil
		}
		return Nil(), nil
	case TagFalse:
		return s.keep(Bool(false)), nil
	case TagTrue:
		return s.keep(Bool(true)), nil

	case TagNumber:
		f, err := s.r.F64("number")
		if err != nil {
			return nil, fmt.Errorf("cnumber: %w", err)
		}
		if s.discard {
			if math.IsNaN(f) {
				return discardedNaN, nil
			}
			return nil, nil
		}
		return Number(f), nil

	case TagString:
		n, err := s.r.U32("string size")
		if err != nil {
			return nil, fmt.Errorf("cstring: %w", err)
		}
		b, err := s.r.Bytes(int(n), "string")
		if err != nil {
			return nil, fmt.Errorf("cstring: %w", err)
		}
		if s.discard {
			return nil, nil
		}
		return Bytes(append([]byte(nil), b...)), nil

	case TagTable:
		if s.maxDepth > 0 && depth >= s.maxDepth {
			return nil, &FormatError{Reason: fmt.Sprintf("tables nested deeper than %d", s.maxDepth), Offset: off}
		}
		t, err := s.table(depth + 1)
		if err != nil {
			return nil, err
		}
		if s.discard {
			return discardedTable, nil
		}
		return t, nil

	default:
		return nil, &FormatError{Reason: fmt.Sprintf("unknown type 0x%02x", tag), Offset: off}
	}
}

func (s *decodeState) keep(v *Value) *Value {
	if s.discard {
		return nil
	}
	return v
}

func (s *decodeState) table(depth int) (*Value, error) {
	off := s.r.Offset()
	arraySize, err := s.r.I32("array_size")
	if err != nil {
		return nil, err
	}
	hashSize, err := s.r.I32("hash_size")
	if err != nil {
		return nil, err
	}
	if arraySize < 0 || hashSize < 0 {
		return nil, &FormatError{Reason: fmt.Sprintf("negative table size (array %d, hash %d)", arraySize, hashSize), Offset: off}
	}
	total := int64(arraySize) + int64(hashSize)

	var t *Value
	if !s.discard {
		// Every pair takes at least two bytes; don't trust the header
		// beyond what the input can hold.
		hint := total
		if limit := int64(s.r.Remaining() / 2); hint > limit {
			hint = limit
		}
		t = &Value{typ: TypeTable, table: &table{
			entries: make([]Entry, 0, hint),
			index:   make(map[tableKey]int, hint),
		}}
	}

	for i := int64(0); i < total; i++ {
		keyOff := s.r.Offset()
		key, err := s.value(depth)
		if err != nil {
			return nil, inPair("key", err)
		}
		if key != nil {
			if _, err := keyOf(key); err != nil {
				return nil, &pairError{part: "key", err: &FormatError{Reason: fmt.Sprintf("invalid table key (%s)", key.Type()), Offset: keyOff}}
			}
		}
		val, err := s.value(depth)
		if err != nil {
			return nil, inPair("value", err)
		}
		if s.discard {
			continue
		}
		t.Set(key, val)
	}
	return t, nil
}

func inPair(part string, err error) error {
	var pe *pairError
	if errors.As(err, &pe) {
		return err
	}
	return &pairError{part: part, err: err}
}

