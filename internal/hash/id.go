// Package hash derives stable 64-bit keys for feature ids and merge groups.
package hash

import "github.com/cespare/xxhash/v2"

// ID computes the xxHash64 of the given string.
func ID(data string) uint64 {
	return xxhash.Sum64String(data)
}

// Key hashes an ordered list of parts into one key. Parts are separated by a
// zero byte, so ("ab", "c") and ("a", "bc") yield different keys.
func Key(parts ...string) uint64 {
	d := xxhash.New()
	for i, p := range parts {
		if i > 0 {
			_, _ = d.Write([]byte{0})
		}
		_, _ = d.WriteString(p)
	}

	return d.Sum64()
}
