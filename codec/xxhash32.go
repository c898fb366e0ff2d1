package codec

// xxHash32 implements the 32-bit xxHash algorithm used by the envelope
// checksum and KV block trailers. github.com/cespare/xxhash/v2 only
// implements the 64-bit variant — a different algorithm, not a truncation
// of it — so there is no third-party implementation of the 32-bit variant
// to wire in here; this is a direct, by-the-book port of the published
// algorithm using only arithmetic.
const (
	xxPrime32_1 uint32 = 2654435761
	xxPrime32_2 uint32 = 2246822519
	xxPrime32_3 uint32 = 3266489917
	xxPrime32_4 uint32 = 668265263
	xxPrime32_5 uint32 = 374761393
)

// XXHash32 computes the 32-bit xxHash of data using seed 0.
func XXHash32(data []byte) uint32 {
	return xxHash32Seed(data, 0)
}

func xxHash32Seed(data []byte, seed uint32) uint32 {
	n := len(data)
	var h uint32

	i := 0
	if n >= 16 {
		v1 := seed + xxPrime32_1 + xxPrime32_2
		v2 := seed + xxPrime32_2
		v3 := seed
		v4 := seed - xxPrime32_1

		for ; i+16 <= n; i += 16 {
			v1 = xxRound32(v1, le32(data[i:]))
			v2 = xxRound32(v2, le32(data[i+4:]))
			v3 = xxRound32(v3, le32(data[i+8:]))
			v4 = xxRound32(v4, le32(data[i+12:]))
		}
		h = rotl32(v1, 1) + rotl32(v2, 7) + rotl32(v3, 12) + rotl32(v4, 18)
	} else {
		h = seed + xxPrime32_5
	}

	h += uint32(n)

	for ; i+4 <= n; i += 4 {
		h += le32(data[i:]) * xxPrime32_3
		h = rotl32(h, 17) * xxPrime32_4
	}
	for ; i < n; i++ {
		h += uint32(data[i]) * xxPrime32_5
		h = rotl32(h, 11) * xxPrime32_1
	}

	h ^= h >> 15
	h *= xxPrime32_2
	h ^= h >> 13
	h *= xxPrime32_3
	h ^= h >> 16
	return h
}

func xxRound32(acc, input uint32) uint32 {
	acc += input * xxPrime32_2
	acc = rotl32(acc, 13)
	acc *= xxPrime32_1
	return acc
}

func rotl32(x uint32, r uint) uint32 {
	return (x << r) | (x >> (32 - r))
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
