// Package sink defines the token-level output side of the encoders.
//
// A Sink receives semantic JSON tokens: container boundaries, field names and
// scalar values. Separators are the sink's business, so tokens can be recorded
// into a TokenBuffer and replayed later without breaking the output.
//
// Sinks keep the first write error and ignore every later write. Callers check
// Err after a batch of writes instead of after every token.
package sink

import (
	"fmt"
	"math"
	"strconv"
)

// Sink is the output side of an encoder.
type Sink interface {
	WriteStartObject()
	WriteEndObject()
	WriteStartArray()
	WriteEndArray()
	WriteFieldName(name string)
	WriteString(s string)
	WriteInt(n int64)
	WriteFloat(f float64)
	WriteBool(b bool)
	WriteNull()
	// WriteRaw writes an already encoded JSON value.
	WriteRaw(s string)

	// Depth returns the number of open containers.
	Depth() int
	// Err returns the first write error, if any.
	Err() error
	// Flush pushes written tokens towards the underlying writer.
	Flush() error
}

// Savepointer is implemented by sinks that can discard everything written after
// a mark. Marks nest; Release keeps the written tokens and drops the mark.
type Savepointer interface {
	Mark()
	Rollback() error
	Release() error
}

// TokenKind identifies a token written to a Sink.
type TokenKind uint8

const (
	TokenStartObject TokenKind = iota + 1
	TokenEndObject
	TokenStartArray
	TokenEndArray
	TokenFieldName
	TokenString
	TokenInt
	TokenFloat
	TokenBool
	TokenNull
	TokenRaw
)

func (k TokenKind) String() string {
	switch k {
	case TokenStartObject:
		return "StartObject"
	case TokenEndObject:
		return "EndObject"
	case TokenStartArray:
		return "StartArray"
	case TokenEndArray:
		return "EndArray"
	case TokenFieldName:
		return "FieldName"
	case TokenString:
		return "String"
	case TokenInt:
		return "Int"
	case TokenFloat:
		return "Float"
	case TokenBool:
		return "Bool"
	case TokenNull:
		return "Null"
	case TokenRaw:
		return "Raw"
	default:
		return fmt.Sprintf("TokenKind(%d)", uint8(k))
	}
}

// Token is one recorded write.
type Token struct {
	Kind  TokenKind
	Text  string
	Int   int64
	Float float64
	Bool  bool
}

func (t Token) String() string {
	switch t.Kind {
	case TokenStartObject:
		return "{"
	case TokenEndObject:
		return "}"
	case TokenStartArray:
		return "["
	case TokenEndArray:
		return "]"
	case TokenFieldName:
		return strconv.Quote(t.Text) + ":"
	case TokenString:
		return strconv.Quote(t.Text)
	case TokenInt:
		return strconv.FormatInt(t.Int, 10)
	case TokenFloat:
		return strconv.FormatFloat(t.Float, 'f', -1, 64)
	case TokenBool:
		return strconv.FormatBool(t.Bool)
	case TokenNull:
		return "null"
	default:
		return t.Text
	}
}

// WriteToken writes t to s.
func WriteToken(s Sink, t Token) {
	switch t.Kind {
	case TokenStartObject:
		s.WriteStartObject()
	case TokenEndObject:
		s.WriteEndObject()
	case TokenStartArray:
		s.WriteStartArray()
	case TokenEndArray:
		s.WriteEndArray()
	case TokenFieldName:
		s.WriteFieldName(t.Text)
	case TokenString:
		s.WriteString(t.Text)
	case TokenInt:
		s.WriteInt(t.Int)
	case TokenFloat:
		s.WriteFloat(t.Float)
	case TokenBool:
		s.WriteBool(t.Bool)
	case TokenNull:
		s.WriteNull()
	case TokenRaw:
		s.WriteRaw(t.Text)
	}
}

func isFinite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}
