package compress

// ZstdCompressor provides Zstandard compression.
//
// The default build uses klauspost/compress/zstd. Building with the gozstd tag
// (and cgo) switches to the libzstd bindings of valyala/gozstd. Both produce
// standard zstd frames and can decode each other's output.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd compressor with default settings.
//
// Example:
//
//	compressor := NewZstdCompressor()
//	compressed, err := compressor.Compress(tile)
//	if err != nil {
//		return err
//	}
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
