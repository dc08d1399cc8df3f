package wire

import "testing"

import "github.com/stretchr/testify/assert"

func TestAppendU32(t *testing.T) {
	cases := []struct {
		v    uint32
		want []byte
	}{
		{1, []byte{0, 0, 0, 1}},
		{256, []byte{0, 0, 1, 0}},
		{^uint32(0), []byte{255, 255, 255, 255}},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, appendU32(nil, c.v))
	}
}

func TestAppendU64(t *testing.T) {
	got := appendU64(nil, 1)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 1}, got)
}

func TestBufferShortReads(t *testing.T) {
	b := newBuffer(nil)
	_, err := b.u8()
	assert.ErrorIs(t, err, ErrBadMessage)

	b = newBuffer([]byte{0, 0, 1})
	_, err = b.u32()
	assert.ErrorIs(t, err, ErrBadMessage)

	b = newBuffer([]byte{0})
	_, err = b.u64()
	assert.ErrorIs(t, err, ErrBadMessage)
}

func TestBufferStringOverrun(t *testing.T) {
	// length says 8 bytes follow but only 4 are present
	b := newBuffer([]byte{0, 0, 0, 8, 'T', 'E', 'S', 'T'})
	_, err := b.str()
	assert.ErrorIs(t, err, ErrBadMessage)
}

func TestBufferStringInvalidUTF8(t *testing.T) {
	b := newBuffer([]byte{0, 0, 0, 1, 0xFF})
	_, err := b.str()
	assert.ErrorIs(t, err, ErrBadMessage)
}

func TestBufferStringRoundTrip(t *testing.T) {
	encoded := appendString(nil, "TEST")
	b := newBuffer(encoded)
	s, err := b.str()
	assert.NoError(t, err)
	assert.Equal(t, "TEST", s)
	assert.Equal(t, 0, b.remaining())
}
