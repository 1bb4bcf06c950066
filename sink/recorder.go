package sink

import "strings"

// Recorder is a Sink that keeps every token. It is used in tests and as a
// capture target for field names.
type Recorder struct {
	Tokens []Token
	depth  int
}

var _ Sink = (*Recorder)(nil)

func (r *Recorder) add(t Token) { r.Tokens = append(r.Tokens, t) }

func (r *Recorder) WriteStartObject() {
	r.depth++
	r.add(Token{Kind: TokenStartObject})
}

func (r *Recorder) WriteEndObject() {
	r.depth--
	r.add(Token{Kind: TokenEndObject})
}

func (r *Recorder) WriteStartArray() {
	r.depth++
	r.add(Token{Kind: TokenStartArray})
}

func (r *Recorder) WriteEndArray() {
	r.depth--
	r.add(Token{Kind: TokenEndArray})
}

func (r *Recorder) WriteFieldName(name string) { r.add(Token{Kind: TokenFieldName, Text: name}) }
func (r *Recorder) WriteString(s string)       { r.add(Token{Kind: TokenString, Text: s}) }
func (r *Recorder) WriteInt(n int64)           { r.add(Token{Kind: TokenInt, Int: n}) }
func (r *Recorder) WriteFloat(f float64)       { r.add(Token{Kind: TokenFloat, Float: f}) }
func (r *Recorder) WriteBool(b bool)           { r.add(Token{Kind: TokenBool, Bool: b}) }
func (r *Recorder) WriteNull()                 { r.add(Token{Kind: TokenNull}) }
func (r *Recorder) WriteRaw(s string)          { r.add(Token{Kind: TokenRaw, Text: s}) }

func (r *Recorder) Depth() int   { return r.depth }
func (r *Recorder) Err() error   { return nil }
func (r *Recorder) Flush() error { return nil }

// Count returns the number of recorded tokens of the given kind.
func (r *Recorder) Count(kind TokenKind) int {
	n := 0
	for _, t := range r.Tokens {
		if t.Kind == kind {
			n++
		}
	}

	return n
}

// FieldNames returns the recorded field names in order.
func (r *Recorder) FieldNames() []string {
	var names []string
	for _, t := range r.Tokens {
		if t.Kind == TokenFieldName {
			names = append(names, t.Text)
		}
	}

	return names
}

// String renders the tokens separated by spaces, e.g. `{ "a": 1 }`.
func (r *Recorder) String() string {
	parts := make([]string, len(r.Tokens))
	for i, t := range r.Tokens {
		parts[i] = t.String()
	}

	return strings.Join(parts, " ")
}

// Reset drops all recorded tokens.
func (r *Recorder) Reset() {
	r.Tokens = r.Tokens[:0]
	r.depth = 0
}
