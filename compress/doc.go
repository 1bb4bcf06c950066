// Package compress provides the compression codecs applied to encoded output.
//
// Vector tiles are compressed as a whole after encoding; MBTiles and most tile
// servers expect gzip. GeoJSON documents are written incrementally, so they are
// compressed with a streaming writer from NewWriter instead.
//
// Supported algorithms:
//   - None: No compression
//   - Gzip: The common tile and HTTP encoding
//   - Zstd: Best compression ratio, klauspost/compress by default or
//     valyala/gozstd when built with the gozstd tag
//   - S2: Balanced compression and speed
//   - LZ4: Fast decompression, frame format
//
// # Architecture
//
//	type Codec interface {
//	    Compress(data []byte) ([]byte, error)
//	    Decompress(data []byte) ([]byte, error)
//	}
//
// Codecs are obtained by compression type:
//
//	codec, err := compress.CreateCodec(format.CompressionGzip, "tile")
//	if err != nil {
//	    return err
//	}
//	payload, err := codec.Compress(tile)
//
// # Thread Safety
//
// All codec implementations are thread-safe. Encoders and decoders are pooled
// internally.
package compress
