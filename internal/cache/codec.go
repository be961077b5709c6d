package cache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/evigo/internal/bitmap"
	"github.com/hupe1980/evigo/internal/hash"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// ErrCorruptPayload is returned when a cached payload cannot be decoded.
var ErrCorruptPayload = errors.New("cache: corrupt payload")

// Compression defines the algorithm used for cached bitmaps.
type Compression uint8

const (
	// CompressionNone stores the roaring serialization as is.
	CompressionNone Compression = 0
	// CompressionLZ4 indicates LZ4 block compression (fast, good for hot data).
	CompressionLZ4 Compression = 1
	// CompressionZSTD indicates ZSTD block compression (better ratio, more CPU).
	CompressionZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return "unknown"
	}
}

// ParseCompression parses the names produced by Compression.String,
// ignoring case.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", s)
	}
}

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// Payload format: [Compression uint8][UncompressedSize uint32][CRC32C uint32][Data...]
// The compression byte records what was actually applied, which is
// CompressionNone whenever compression did not pay off. The checksum covers
// the uncompressed roaring serialization.
const payloadHeaderSize = 9

// encodePayload serializes bm and compresses it with c.
func encodePayload(bm bitmap.Bitmap, c Compression) ([]byte, error) {
	raw, err := bitmap.Marshal(bm)
	if err != nil {
		return nil, err
	}

	var compressed []byte
	switch c {
	case CompressionLZ4:
		compressed, err = compressLZ4(raw)
	case CompressionZSTD:
		compressed = compressZSTD(raw)
	}
	if err != nil {
		return nil, err
	}

	// If compression doesn't help (ratio > 0.9), store uncompressed
	applied, data := c, compressed
	if len(compressed) == 0 || float64(len(compressed)) > float64(len(raw))*0.9 {
		applied, data = CompressionNone, raw
	}

	out := make([]byte, payloadHeaderSize+len(data))
	out[0] = byte(applied)
	binary.LittleEndian.PutUint32(out[1:], uint32(len(raw)))
	binary.LittleEndian.PutUint32(out[5:], hash.CRC32C(raw))
	copy(out[payloadHeaderSize:], data)
	return out, nil
}

// decodePayload reverses encodePayload.
func decodePayload(payload []byte) (bitmap.Bitmap, error) {
	if len(payload) < payloadHeaderSize {
		return nil, fmt.Errorf("%w: payload too small for header", ErrCorruptPayload)
	}
	size := binary.LittleEndian.Uint32(payload[1:])
	data := payload[payloadHeaderSize:]

	var raw []byte
	switch Compression(payload[0]) {
	case CompressionNone:
		raw = data
	case CompressionLZ4:
		raw = make([]byte, size)
		n, err := lz4.UncompressBlock(data, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptPayload, err)
		}
		raw = raw[:n]
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer putZstdDecoder(dec)

		decoded, err := dec.DecodeAll(data, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptPayload, err)
		}
		raw = decoded
	default:
		return nil, fmt.Errorf("%w: unknown compression %d", ErrCorruptPayload, payload[0])
	}

	if uint32(len(raw)) != size {
		return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorruptPayload)
	}
	if hash.CRC32C(raw) != binary.LittleEndian.Uint32(payload[5:]) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptPayload)
	}
	return bitmap.Unmarshal(raw)
}

func compressLZ4(data []byte) ([]byte, error) {
	compressed := make([]byte, lz4.CompressBlockBound(len(data)))

	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, err
	}
	return compressed[:n], nil
}

func compressZSTD(data []byte) []byte {
	enc := getZstdEncoder()
	defer putZstdEncoder(enc)

	return enc.EncodeAll(data, nil)
}
