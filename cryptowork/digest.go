package cryptowork

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Algorithm names a digest.
type Algorithm string

const (
	SHA256     Algorithm = "sha256"
	SHA384     Algorithm = "sha384"
	SHA512     Algorithm = "sha512"
	SHA3_256   Algorithm = "sha3-256"
	SHA3_512   Algorithm = "sha3-512"
	BLAKE2b256 Algorithm = "blake2b-256"
)

var digests = map[Algorithm]func() hash.Hash{
	SHA256:   sha256.New,
	SHA384:   sha512.New384,
	SHA512:   sha512.New,
	SHA3_256: sha3.New256,
	SHA3_512: sha3.New512,
	BLAKE2b256: func() hash.Hash {
		// only fails for keys longer than 64 bytes
		h, _ := blake2b.New256(nil)
		return h
	},
}

// Sum computes the digest of data synchronously.
func Sum(alg Algorithm, data []byte) ([]byte, error) {
	newHash, ok := digests[alg]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedHash, alg)
	}
	h := newHash()
	h.Write(data)
	return h.Sum(nil), nil
}

// SHA2Algorithm maps a SHA-2 output size in bits to its Algorithm.
func SHA2Algorithm(bits int) (Algorithm, error) {
	switch bits {
	case 256:
		return SHA256, nil
	case 384:
		return SHA384, nil
	case 512:
		return SHA512, nil
	}
	return "", fmt.Errorf("%w: got %d", ErrUnsupportedHash, bits)
}
