package record

import "github.com/zeebo/xxh3"

// Checksum computes the 64-bit xxh3 hash of data.
func Checksum(data []byte) uint64 {
	return xxh3.Hash(data)
}

// ValidateChecksum returns true if the provided checksum matches the computed hash of data
func ValidateChecksum(data []byte, checksum uint64) bool {
	return Checksum(data) == checksum
}
