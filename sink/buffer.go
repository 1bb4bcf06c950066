package sink

import (
	"math"

	"github.com/arloliu/geostream/internal/pool"
)

type bufferedToken struct {
	kind  TokenKind
	start int
	end   int
	bits  uint64
}

// TokenBuffer is a Sink recording tokens for a later Replay.
//
// Text payloads are stored back to back in one pooled byte buffer; numbers are
// stored inline. A TokenBuffer never fails to write.
type TokenBuffer struct {
	tokens []bufferedToken
	data   *pool.ByteBuffer
	depth  int
}

var _ Sink = (*TokenBuffer)(nil)

// NewTokenBuffer returns an empty buffer. Call Release when it is no longer used.
func NewTokenBuffer() *TokenBuffer {
	return &TokenBuffer{data: pool.GetTokenBuffer()}
}

func (b *TokenBuffer) add(kind TokenKind, bits uint64) {
	b.tokens = append(b.tokens, bufferedToken{kind: kind, bits: bits})
}

func (b *TokenBuffer) addText(kind TokenKind, s string) {
	start := b.data.Len()
	_, _ = b.data.WriteString(s)
	b.tokens = append(b.tokens, bufferedToken{kind: kind, start: start, end: b.data.Len()})
}

func (b *TokenBuffer) WriteStartObject() {
	b.depth++
	b.add(TokenStartObject, 0)
}

func (b *TokenBuffer) WriteEndObject() {
	b.depth--
	b.add(TokenEndObject, 0)
}

func (b *TokenBuffer) WriteStartArray() {
	b.depth++
	b.add(TokenStartArray, 0)
}

func (b *TokenBuffer) WriteEndArray() {
	b.depth--
	b.add(TokenEndArray, 0)
}

func (b *TokenBuffer) WriteFieldName(name string) { b.addText(TokenFieldName, name) }
func (b *TokenBuffer) WriteString(s string)       { b.addText(TokenString, s) }
func (b *TokenBuffer) WriteRaw(s string)          { b.addText(TokenRaw, s) }
func (b *TokenBuffer) WriteInt(n int64)           { b.add(TokenInt, uint64(n)) }
func (b *TokenBuffer) WriteFloat(f float64)       { b.add(TokenFloat, math.Float64bits(f)) }
func (b *TokenBuffer) WriteNull()                 { b.add(TokenNull, 0) }

func (b *TokenBuffer) WriteBool(v bool) {
	var bits uint64
	if v {
		bits = 1
	}
	b.add(TokenBool, bits)
}

// Depth returns the number of containers opened and not closed inside the buffer.
func (b *TokenBuffer) Depth() int { return b.depth }

func (b *TokenBuffer) Err() error { return nil }

func (b *TokenBuffer) Flush() error { return nil }

// Len returns the number of buffered tokens.
func (b *TokenBuffer) Len() int {
	return len(b.tokens)
}

// Token returns the i-th buffered token.
func (b *TokenBuffer) Token(i int) Token {
	t := b.tokens[i]
	tok := Token{Kind: t.kind}
	switch t.kind {
	case TokenFieldName, TokenString, TokenRaw:
		tok.Text = string(b.data.B[t.start:t.end])
	case TokenInt:
		tok.Int = int64(t.bits)
	case TokenFloat:
		tok.Float = math.Float64frombits(t.bits)
	case TokenBool:
		tok.Bool = t.bits == 1
	}

	return tok
}

// Replay writes all buffered tokens to dst in the order they were recorded.
// The buffer is left unchanged.
func (b *TokenBuffer) Replay(dst Sink) {
	for i := range b.tokens {
		WriteToken(dst, b.Token(i))
	}
}

// Reset drops all buffered tokens.
func (b *TokenBuffer) Reset() {
	b.tokens = b.tokens[:0]
	b.depth = 0
	if b.data != nil {
		b.data.Reset()
	}
}

// Release returns the payload memory to the pool. The buffer must not be used afterwards.
func (b *TokenBuffer) Release() {
	pool.PutTokenBuffer(b.data)
	b.data = nil
	b.tokens = nil
}
