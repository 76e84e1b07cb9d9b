// fingerprint.go normalizes culprits so visually identical crashes share a
// checksum.

package raven

import (
	"regexp"
	"strings"
)

var (
	// Match line numbers like ":42"
	lineNumPattern = regexp.MustCompile(`:\d+`)

	// Match memory addresses like "0x1234abcd" and offsets like "+0x1f"
	memAddrPattern = regexp.MustCompile(`\+?0x[0-9a-fA-F]+`)

	// Match closure suffixes like ".func1" or ".func2.3"
	closurePattern = regexp.MustCompile(`\.func\d+(\.\d+)*`)

	// Match generic instantiation arguments like "[...]"
	genericPattern = regexp.MustCompile(`\[[^\]]*\]`)
)

// NormalizeCulprit strips the parts of a culprit that change between builds
// or runs without changing the failure: line numbers, addresses, closure
// numbering and generic type arguments.
//
//	NormalizeCulprit("example.com/app.(*Server).handle.func2(server.go:87)")
//	// "example.com/app.(*Server).handle(server.go)"
func NormalizeCulprit(culprit string) string {
	out := memAddrPattern.ReplaceAllString(culprit, "")
	out = lineNumPattern.ReplaceAllString(out, "")
	out = closurePattern.ReplaceAllString(out, "")
	out = genericPattern.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}
