package directory

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// guidBytesLength is the fixed size of an objectGUID value.
const guidBytesLength = 16

// GUIDFromBytes converts a raw objectGUID attribute value into a uuid.UUID.
//
// Active Directory stores GUIDs in mixed-endian order: the first three fields
// are little-endian while the final eight bytes are big-endian. The returned
// UUID is in standard byte order.
func GUIDFromBytes(raw []byte) (uuid.UUID, error) {
	if len(raw) != guidBytesLength {
		return uuid.Nil, fmt.Errorf("invalid objectGUID length: expected %d bytes, got %d", guidBytesLength, len(raw))
	}

	var b [guidBytesLength]byte

	// Data1 (bytes 0-3): little-endian
	b[0] = raw[3]
	b[1] = raw[2]
	b[2] = raw[1]
	b[3] = raw[0]

	// Data2 (bytes 4-5): little-endian
	b[4] = raw[5]
	b[5] = raw[4]

	// Data3 (bytes 6-7): little-endian
	b[6] = raw[7]
	b[7] = raw[6]

	// Data4 (bytes 8-15): big-endian
	copy(b[8:], raw[8:])

	return uuid.FromBytes(b[:])
}

// GUIDToBytes converts a uuid.UUID into Active Directory's mixed-endian
// objectGUID byte order.
func GUIDToBytes(id uuid.UUID) []byte {
	raw := make([]byte, guidBytesLength)

	raw[0] = id[3]
	raw[1] = id[2]
	raw[2] = id[1]
	raw[3] = id[0]

	raw[4] = id[5]
	raw[5] = id[4]

	raw[6] = id[7]
	raw[7] = id[6]

	copy(raw[8:], id[8:])

	return raw
}

// GUIDFilterValue renders a GUID as the backslash-escaped octet string
// required when searching by objectGUID.
func GUIDFilterValue(id uuid.UUID) string {
	raw := GUIDToBytes(id)
	var sb strings.Builder
	for _, b := range raw {
		fmt.Fprintf(&sb, `\%02x`, b)
	}
	return sb.String()
}
