// checksum.go computes the collector's grouping checksum.

package raven

import (
	"hash/crc32"
	"strconv"
	"strings"
)

// Checksum returns the CRC-32 (IEEE) of s's UTF-8 bytes as uppercase hex.
// Leading zeros are not padded, matching the checksums other Sentry clients
// send for the same input.
func Checksum(s string) string {
	sum := crc32.ChecksumIEEE([]byte(s))
	return strings.ToUpper(strconv.FormatUint(uint64(sum), 16))
}
