package cache

import (
	"testing"

	"github.com/hupe1980/evigo/internal/bitmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayload_RoundTrip(t *testing.T) {
	dense := make([]uint32, 0, 20_000)
	for i := uint32(0); i < 20_000; i++ {
		dense = append(dense, i*3)
	}
	sparse := []uint32{1, 1 << 20, 1 << 30}

	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			for _, pks := range [][]uint32{dense, sparse, nil} {
				payload, err := encodePayload(bitmap.FromSlice(pks), c)
				require.NoError(t, err)

				bm, err := decodePayload(payload)
				require.NoError(t, err)
				assert.Equal(t, len(pks), bm.Cardinality())
				assert.True(t, bitmap.Equal(bitmap.FromSlice(pks), bm))
				assert.Zero(t, bm.TransactionalID())
			}
		})
	}
}

func TestPayload_CompressesRepetitiveBitmaps(t *testing.T) {
	pks := make([]uint32, 0, 20_000)
	for i := uint32(0); i < 20_000; i++ {
		pks = append(pks, i*3)
	}
	bm := bitmap.FromSlice(pks)

	plain, err := encodePayload(bm, CompressionNone)
	require.NoError(t, err)
	zstd, err := encodePayload(bm, CompressionZSTD)
	require.NoError(t, err)

	assert.Equal(t, byte(CompressionZSTD), zstd[0])
	assert.Less(t, len(zstd), len(plain)/2)
}

func TestPayload_Corrupt(t *testing.T) {
	_, err := decodePayload([]byte{1, 2})
	assert.ErrorIs(t, err, ErrCorruptPayload)

	_, err = decodePayload([]byte{9, 0, 0, 0, 0, 0, 0, 0, 0})
	assert.ErrorIs(t, err, ErrCorruptPayload)

	payload, err := encodePayload(bitmap.FromSlice([]uint32{1, 2, 3}), CompressionNone)
	require.NoError(t, err)
	payload[1]++ // size mismatch
	_, err = decodePayload(payload)
	assert.ErrorIs(t, err, ErrCorruptPayload)

	payload, err = encodePayload(bitmap.FromSlice([]uint32{1, 2, 3}), CompressionNone)
	require.NoError(t, err)
	payload[len(payload)-1] ^= 0xff
	_, err = decodePayload(payload)
	assert.ErrorIs(t, err, ErrCorruptPayload)
}

func TestParseCompression(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		got, err := ParseCompression(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	got, err := ParseCompression("LZ4")
	require.NoError(t, err)
	assert.Equal(t, CompressionLZ4, got)

	_, err = ParseCompression("snappy")
	assert.Error(t, err)
}
