// Package wire implements the binary record format carried on the stream.
//
// A record is vlen consecutive uint64 values in native byte order with no
// framing, header, or checksum. Both endpoints must agree on vlen; a
// record whose length is not exactly vlen*8 bytes is rejected.
package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/c360/seqcheck/errors"
)

// Codec encodes and decodes fixed-size uint64 vector records.
type Codec struct {
	vlen int
}

// NewCodec creates a codec for vectors of the given length.
func NewCodec(vlen int) (*Codec, error) {
	if vlen < 1 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("vlen %d out of range", vlen),
			"Codec", "NewCodec", "vector length must be at least 1")
	}
	return &Codec{vlen: vlen}, nil
}

// VLen returns the vector length in elements.
func (c *Codec) VLen() int {
	return c.vlen
}

// Size returns the record size in bytes.
func (c *Codec) Size() int {
	return c.vlen * 8
}

// Encode writes vec into buf and returns the bytes written. buf must hold
// at least Size() bytes and vec must be exactly vlen elements.
func (c *Codec) Encode(buf []byte, vec []uint64) (int, error) {
	if len(vec) != c.vlen {
		return 0, errors.WrapInvalid(
			fmt.Errorf("vector has %d elements, want %d", len(vec), c.vlen),
			"Codec", "Encode", "vector length mismatch")
	}
	if len(buf) < c.Size() {
		return 0, errors.WrapInvalid(
			fmt.Errorf("buffer holds %d bytes, need %d", len(buf), c.Size()),
			"Codec", "Encode", "buffer too small")
	}
	for i, v := range vec {
		binary.NativeEndian.PutUint64(buf[i*8:], v)
	}
	return c.Size(), nil
}

// EncodeBatch packs a batch of vectors into a single contiguous buffer,
// reusing dst when it has the capacity.
func (c *Codec) EncodeBatch(dst []byte, batch [][]uint64) ([]byte, error) {
	need := len(batch) * c.Size()
	if cap(dst) < need {
		dst = make([]byte, need)
	}
	dst = dst[:need]
	for i, vec := range batch {
		if _, err := c.Encode(dst[i*c.Size():], vec); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

// Decode reads one record from data into vec, which is allocated when nil
// or wrongly sized. A record of any other length is corrupt: the sender
// and receiver disagree on vlen, or the transport truncated the payload.
func (c *Codec) Decode(data []byte, vec []uint64) ([]uint64, error) {
	if len(data) != c.Size() {
		return nil, errors.Wrap(errors.ErrShortRecord, "Codec", "Decode",
			fmt.Sprintf("record is %d bytes, want %d", len(data), c.Size()))
	}
	if len(vec) != c.vlen {
		vec = make([]uint64, c.vlen)
	}
	for i := range vec {
		vec[i] = binary.NativeEndian.Uint64(data[i*8:])
	}
	return vec, nil
}

// DecodeBatch splits a contiguous buffer into records and decodes each.
// The buffer length must be a whole number of records.
func (c *Codec) DecodeBatch(data []byte) ([][]uint64, error) {
	if len(data)%c.Size() != 0 {
		return nil, errors.Wrap(errors.ErrShortRecord, "Codec", "DecodeBatch",
			fmt.Sprintf("buffer is %d bytes, not a multiple of %d", len(data), c.Size()))
	}
	n := len(data) / c.Size()
	batch := make([][]uint64, n)
	for i := range batch {
		vec, err := c.Decode(data[i*c.Size():(i+1)*c.Size()], nil)
		if err != nil {
			return nil, err
		}
		batch[i] = vec
	}
	return batch, nil
}
