// Package rng wraps the entropy source this module seeds once at entry
// (spec.md §2's control flow: "entry -> seed RNG -> ..."), grounded on
// internal/crypto.CryptoService.SecureRandom's crypto/rand.Read use in the
// teacher repo. crypto/rand needs no explicit seeding on any platform Go
// supports, but the entry point still performs one read up front so a
// dead entropy source is reported as OutOfResources before any staging
// variable is touched, rather than failing deep inside a positional
// challenge.
package rng

import (
	"crypto/rand"

	"mokctl/internal/mokerr"
)

// Seed verifies the entropy source is alive. Call once at process start.
func Seed() error {
	probe := make([]byte, 32)
	if _, err := rand.Read(probe); err != nil {
		return mokerr.Wrap(mokerr.OutOfResources, "seed RNG", err)
	}
	return nil
}

// DistinctPositions returns count distinct positions in [0, n), sampled
// uniformly without replacement. Used by authengine's positional
// Secure-Boot challenge to pick p1, p2, p3.
func DistinctPositions(n, count int) ([]int, error) {
	if count > n {
		return nil, mokerr.New(mokerr.Crypto, "not enough positions to sample distinctly")
	}

	seen := make(map[int]bool, count)
	positions := make([]int, 0, count)
	for len(positions) < count {
		i, err := intn(n)
		if err != nil {
			return nil, err
		}
		if seen[i] {
			continue
		}
		seen[i] = true
		positions = append(positions, i)
	}
	return positions, nil
}

// intn returns a random integer in [0, n) from crypto/rand. For n <= 256 it
// uses rejection sampling over one byte, so the result is uniform with no
// modulo bias; for n > 256 it reduces a 4-byte read modulo n, which is not
// bias-free.
func intn(n int) (int, error) {
	if n <= 0 {
		return 0, mokerr.New(mokerr.Crypto, "invalid sample range")
	}

	limit := 256 - (256 % n)
	for {
		var b [1]byte
		if _, err := rand.Read(b[:]); err != nil {
			return 0, mokerr.Wrap(mokerr.OutOfResources, "sample random byte", err)
		}
		if n <= 256 && int(b[0]) < limit {
			return int(b[0]) % n, nil
		}
		if n > 256 {
			// pw_len never realistically exceeds 256 in this domain
			// (MokSB.Password is 16 code units), but fall back to a
			// wider read rather than silently truncating the range.
			var wide [4]byte
			if _, err := rand.Read(wide[:]); err != nil {
				return 0, mokerr.Wrap(mokerr.OutOfResources, "sample random bytes", err)
			}
			v := int(wide[0])<<24 | int(wide[1])<<16 | int(wide[2])<<8 | int(wide[3])
			if v < 0 {
				v = -v
			}
			return v % n, nil
		}
	}
}
