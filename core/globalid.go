package core

import (
	"strings"

	"github.com/google/uuid"
)

// globalIDAlphabet is the base-64 digit set used by IFC to compress GUIDs.
const globalIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz_$"

// GlobalIDLength is the length of a compressed IFC GlobalId.
const GlobalIDLength = 22

// NewGlobalID returns a fresh random GlobalId.
func NewGlobalID() ElementID {
	return GlobalIDFromUUID(uuid.New())
}

// GlobalIDFromUUID compresses a 128-bit GUID into its 22 character IFC form.
func GlobalIDFromUUID(u uuid.UUID) ElementID {
	out := make([]byte, 0, GlobalIDLength)
	out = appendBase64(out, uint32(u[0]), 2)
	for i := 1; i < len(u); i += 3 {
		n := uint32(u[i])<<16 | uint32(u[i+1])<<8 | uint32(u[i+2])
		out = appendBase64(out, n, 4)
	}
	return ElementID(out)
}

func appendBase64(dst []byte, n uint32, digits int) []byte {
	var buf [4]byte
	for i := digits - 1; i >= 0; i-- {
		buf[i] = globalIDAlphabet[n%64]
		n /= 64
	}
	return append(dst, buf[:digits]...)
}

// IsValidGlobalID reports whether s is a well-formed compressed GlobalId.
func IsValidGlobalID(s string) bool {
	if len(s) != GlobalIDLength {
		return false
	}
	// The first digit carries only the top two bits of the GUID.
	if strings.IndexByte("0123", s[0]) < 0 {
		return false
	}
	for i := 1; i < len(s); i++ {
		if strings.IndexByte(globalIDAlphabet, s[i]) < 0 {
			return false
		}
	}
	return true
}
