package directory

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGUIDFromBytes(t *testing.T) {
	// AD mixed-endian encoding of 01020304-0506-0708-090a-0b0c0d0e0f10
	raw := []byte{
		0x04, 0x03, 0x02, 0x01,
		0x06, 0x05,
		0x08, 0x07,
		0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10,
	}

	guid, err := GUIDFromBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, "01020304-0506-0708-090a-0b0c0d0e0f10", guid.String())
}

func TestGUIDFromBytesInvalidLength(t *testing.T) {
	_, err := GUIDFromBytes([]byte{0x01, 0x02})
	assert.Error(t, err)
}

func TestGUIDRoundTrip(t *testing.T) {
	id := uuid.New()

	raw := GUIDToBytes(id)
	require.Len(t, raw, 16)

	back, err := GUIDFromBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, id, back)
}

func TestGUIDFilterValue(t *testing.T) {
	id := uuid.MustParse("01020304-0506-0708-090a-0b0c0d0e0f10")

	value := GUIDFilterValue(id)
	assert.Equal(t, `\04\03\02\01\06\05\08\07\09\0a\0b\0c\0d\0e\0f\10`, value)
}
