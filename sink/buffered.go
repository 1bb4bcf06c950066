package sink

import "github.com/arloliu/geostream/errs"

type bufferMode uint8

const (
	modeDirect bufferMode = iota
	modeBuffering
	modeStopped
)

// Buffered switches writes between a direct sink and a token buffer.
//
// The lifecycle of one buffer session is
//
//	StartBuffering -> (writes go to the buffer)
//	StopBuffering  -> (writes go to the direct sink, buffer is kept)
//	FlushBuffer    -> (buffer replayed onto the direct sink, session ends)
//
// FlushBuffer may also be called while buffering. Calling it without a session
// is a protocol error.
//
// Buffered is NOT thread-safe and belongs to one encoding session.
type Buffered struct {
	direct Sink
	buffer *TokenBuffer
	mode   bufferMode
}

// NewBuffered creates a switch in direct mode.
func NewBuffered(direct Sink) *Buffered {
	return &Buffered{direct: direct, buffer: NewTokenBuffer()}
}

// Active returns the sink currently receiving writes.
func (b *Buffered) Active() Sink {
	if b.mode == modeBuffering {
		return b.buffer
	}

	return b.direct
}

// Direct returns the underlying real sink.
func (b *Buffered) Direct() Sink {
	return b.direct
}

// IsBuffering reports whether writes currently go to the buffer.
func (b *Buffered) IsBuffering() bool {
	return b.mode == modeBuffering
}

// HasBuffer reports whether a buffer session is open, buffering or stopped.
func (b *Buffered) HasBuffer() bool {
	return b.mode != modeDirect
}

// StartBuffering redirects writes to the buffer. The direct sink is flushed
// first. Calling it while already buffering does nothing.
func (b *Buffered) StartBuffering() error {
	switch b.mode {
	case modeBuffering:
		return nil
	case modeStopped:
		b.mode = modeBuffering
		return nil
	}

	if err := b.direct.Flush(); err != nil {
		return err
	}
	b.buffer.Reset()
	b.mode = modeBuffering

	return nil
}

// StopBuffering sends writes to the direct sink again. Buffered tokens stay
// until FlushBuffer.
func (b *Buffered) StopBuffering() {
	if b.mode == modeBuffering {
		b.mode = modeStopped
	}
}

// FlushBuffer replays the buffered tokens onto the direct sink and ends the session.
func (b *Buffered) FlushBuffer() error {
	if b.mode == modeDirect {
		return errs.ErrNotBuffering
	}

	b.buffer.Replay(b.direct)
	b.buffer.Reset()
	b.mode = modeDirect

	return b.direct.Err()
}

// Discard drops the buffered tokens and returns to direct mode.
func (b *Buffered) Discard() {
	b.buffer.Reset()
	b.mode = modeDirect
}

// Close releases the buffer memory.
func (b *Buffered) Close() {
	b.buffer.Release()
}
