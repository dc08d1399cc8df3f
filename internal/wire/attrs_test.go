package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileAttributesRoundTrip(t *testing.T) {
	cases := []FileAttributes{
		EmptyAttributes,
		NewFileSizeAttributes(ModeFile, 12345, 1700000000),
		NewDirAttributes(ModeDir),
		{flags: attrFlagUIDGID, uid: 1000, gid: 1000},
	}

	for _, a := range cases {
		encoded := marshalAttrs(nil, a)
		decoded, err := unmarshalAttrs(newBuffer(encoded))
		require.NoError(t, err)
		assert.Equal(t, a, decoded)
	}
}

func TestFileAttributesIsDir(t *testing.T) {
	dir := NewDirAttributes(ModeDir)
	assert.True(t, dir.IsDir())

	file := NewFileSizeAttributes(ModeFile, 0, 0)
	assert.False(t, file.IsDir())

	assert.False(t, EmptyAttributes.IsDir())
}

func TestMarshalAttrsOnlyWritesSelectedFields(t *testing.T) {
	// Only size set: encoded length must be mask(4) + size(8), nothing else.
	a := FileAttributes{flags: attrFlagSize, size: 42}
	encoded := marshalAttrs(nil, a)
	assert.Len(t, encoded, 4+8)
}

func TestUnmarshalAttrsShortRead(t *testing.T) {
	// mask says size present but no bytes follow
	_, err := unmarshalAttrs(newBuffer(appendU32(nil, attrFlagSize)))
	assert.ErrorIs(t, err, ErrBadMessage)
}
