package core

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-crypt/x/blake2b"
)

// Fingerprint identifies one observed state of a source file.
// Two fingerprints are equal when path, size and modification time match.
type Fingerprint string

// FingerprintFile derives a BLAKE2b fingerprint from the absolute path, size and
// modification time of the file at path. The content itself is not read.
func FingerprintFile(path string) (Fingerprint, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	h, _ := blake2b.New(16, nil) // 16 bytes = 128 bits
	h.Write([]byte(abs))
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(info.Size()))
	binary.LittleEndian.PutUint64(buf[8:], uint64(info.ModTime().UnixNano()))
	h.Write(buf[:])
	return Fingerprint(hex.EncodeToString(h.Sum(nil))), nil
}
