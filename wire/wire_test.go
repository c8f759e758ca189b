package wire

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/seqcheck/errors"
)

func TestNewCodec_RejectsBadVLen(t *testing.T) {
	for _, vlen := range []int{0, -4} {
		_, err := NewCodec(vlen)
		assert.Error(t, err, "vlen=%d", vlen)
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	codec, err := NewCodec(4)
	require.NoError(t, err)
	assert.Equal(t, 32, codec.Size())

	vec := []uint64{7, 7, 7, 7}
	buf := make([]byte, codec.Size())

	n, err := codec.Encode(buf, vec)
	require.NoError(t, err)
	assert.Equal(t, 32, n)

	got, err := codec.Decode(buf, nil)
	require.NoError(t, err)
	assert.Equal(t, vec, got)
}

func TestCodec_DecodeReusesVector(t *testing.T) {
	codec, err := NewCodec(2)
	require.NoError(t, err)

	buf := make([]byte, codec.Size())
	_, err = codec.Encode(buf, []uint64{9, 9})
	require.NoError(t, err)

	scratch := make([]uint64, 2)
	got, err := codec.Decode(buf, scratch)
	require.NoError(t, err)
	assert.Equal(t, &scratch[0], &got[0], "correctly sized vector must be reused")
}

func TestCodec_EncodeValidation(t *testing.T) {
	codec, err := NewCodec(4)
	require.NoError(t, err)

	buf := make([]byte, codec.Size())

	_, err = codec.Encode(buf, []uint64{1, 2})
	assert.Error(t, err, "wrong vector length")

	_, err = codec.Encode(make([]byte, 8), []uint64{1, 2, 3, 4})
	assert.Error(t, err, "short buffer")
}

func TestCodec_DecodeShortRecord(t *testing.T) {
	codec, err := NewCodec(4)
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"truncated", make([]byte, 31)},
		{"oversized", make([]byte, 33)},
		{"empty", nil},
		{"wrong vlen entirely", make([]byte, 16)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode(tt.data, nil)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errors.ErrShortRecord))
		})
	}
}

func TestCodec_BatchRoundTrip(t *testing.T) {
	codec, err := NewCodec(3)
	require.NoError(t, err)

	batch := [][]uint64{
		{10, 10, 10},
		{11, 11, 11},
		{12, 12, 12},
	}

	buf, err := codec.EncodeBatch(nil, batch)
	require.NoError(t, err)
	assert.Len(t, buf, 3*codec.Size())

	got, err := codec.DecodeBatch(buf)
	require.NoError(t, err)
	assert.Equal(t, batch, got)
}

func TestCodec_EncodeBatchReusesBuffer(t *testing.T) {
	codec, err := NewCodec(1)
	require.NoError(t, err)

	dst := make([]byte, 0, 64)
	out, err := codec.EncodeBatch(dst, [][]uint64{{1}, {2}})
	require.NoError(t, err)
	assert.Equal(t, &dst[:1][0], &out[0], "capacity permitting, dst must be reused")
}

func TestCodec_DecodeBatchRejectsPartialRecord(t *testing.T) {
	codec, err := NewCodec(2)
	require.NoError(t, err)

	_, err = codec.DecodeBatch(make([]byte, 24)) // 1.5 records
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrShortRecord))
}
