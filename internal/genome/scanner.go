package genome

import (
	"encoding/hex"
	"strings"
)

// ScanGenes normalizes a genome's whitespace-insensitive hexadecimal
// text encoding and splits it on the literal "GN" gene separator,
// returning the decoded bytes of each gene fragment in positional order
// (spec §4.G "Genome scanner", §6 "Genome text format": "Positional
// index within the split array is the gene id").
//
// Normalization: strip whitespace, upper-case, split on "GN". Splitting
// always produces one structural artifact — the empty fragment before
// the genome's leading "GN" — which is not itself a gene and is
// dropped, along with a genuine trailing "GN" with nothing after it
// ("Trailing GN is ignored"). Any other empty fragment is an
// intentionally empty gene (e.g. a deliberately no-op system hook) and
// must keep its positional slot, since gene id is read off that
// position (spec §4.G: "An empty gene that is a system gene ... is
// tagged as such; empty user genes are dropped" — that distinction is
// made later, by BuildAST, not here). Each non-empty fragment has
// non-hex characters filtered out before decoding; odd-length fragments
// are left-padded with '0'.
func ScanGenes(source string) [][]byte {
	normalized := strings.ToUpper(stripWhitespace(source))
	parts := strings.Split(normalized, "GN")

	if len(parts) > 0 {
		parts = parts[1:] // drop the always-present leading artifact
	}
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1] // drop a genuine trailing "GN"
	}

	genes := make([][]byte, len(parts))
	for i, part := range parts {
		if part == "" {
			continue // nil gene, positional slot preserved
		}
		genes[i] = decodeGeneFragment(part)
	}
	return genes
}

func stripWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func decodeGeneFragment(fragment string) []byte {
	filtered := filterHex(fragment)
	if len(filtered)%2 != 0 {
		filtered = "0" + filtered
	}
	decoded, err := hex.DecodeString(filtered)
	if err != nil {
		// hex.DecodeString only fails on odd length (already handled) or
		// non-hex runes (already filtered); this path is unreachable in
		// practice, but return an empty gene rather than propagate a
		// decode error out of a scanner spec defines as never-failing.
		return nil
	}
	return decoded
}

func filterHex(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= '0' && r <= '9') || (r >= 'A' && r <= 'F') || (r >= 'a' && r <= 'f') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
