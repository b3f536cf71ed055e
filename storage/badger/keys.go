package badger

import (
	"encoding/binary"
)

// Key prefixes for different data types
const (
	entityPrefix  = "ent:"
	inversePrefix = "inv:"
)

// makeEntityKey generates a key for an entity by label.
// Format: prefix:label, big endian so iteration follows label order.
func makeEntityKey(label uint64) []byte {
	buf := make([]byte, len(entityPrefix)+8)
	offset := copy(buf, entityPrefix)
	binary.BigEndian.PutUint64(buf[offset:], label)
	return buf
}

// labelFromEntityKey extracts the label from an entity key.
func labelFromEntityKey(key []byte) uint64 {
	return binary.BigEndian.Uint64(key[len(entityPrefix):])
}

// makeInverseKey generates a composite key for the inverse reference index.
// Format: prefix:target:source
func makeInverseKey(target, source uint64) []byte {
	buf := make([]byte, len(inversePrefix)+16)
	offset := copy(buf, inversePrefix)
	binary.BigEndian.PutUint64(buf[offset:], target)
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], source)
	return buf
}

// makePartialInverseKey generates a partial key for referrer queries.
// Format: prefix:target
func makePartialInverseKey(target uint64) []byte {
	buf := make([]byte, len(inversePrefix)+8)
	offset := copy(buf, inversePrefix)
	binary.BigEndian.PutUint64(buf[offset:], target)
	return buf
}

// sourceFromInverseKey extracts the referring label from an inverse key.
func sourceFromInverseKey(key []byte) uint64 {
	return binary.BigEndian.Uint64(key[len(inversePrefix)+8:])
}
