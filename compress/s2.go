package compress

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/s2"
)

// S2Compressor writes tiles as single S2 blocks at the better level. A block
// carries its decoded length, so Decompress allocates the output once.
//
// The block format has no stream framing; NewWriter uses the S2 stream writer
// for that.
type S2Compressor struct{}

var _ Codec = (*S2Compressor)(nil)

// NewS2Compressor creates a new S2 block compressor.
func NewS2Compressor() S2Compressor {
	return S2Compressor{}
}

// Compress encodes data as one S2 block.
func (c S2Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	n := s2.MaxEncodedLen(len(data))
	if n < 0 {
		return nil, errors.New("s2 compression failed: block too large")
	}

	return s2.EncodeBetter(make([]byte, n), data), nil
}

// Decompress decodes one S2 block.
func (c S2Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	n, err := s2.DecodedLen(data)
	if err != nil {
		return nil, fmt.Errorf("s2 decompression failed: %w", err)
	}
	out, err := s2.Decode(make([]byte, n), data)
	if err != nil {
		return nil, fmt.Errorf("s2 decompression failed: %w", err)
	}

	return out, nil
}
