package cryptowork

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const seedInfo = "go-threadobject-ed25519-seed-v1"

// Keypair is an ed25519 key pair.
type Keypair struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// MakeKeypair derives a key pair from a 32 byte seed.
func MakeKeypair(seed []byte) (Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return Keypair{}, ErrSeedSize
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return Keypair{
		PublicKey:  priv.Public().(ed25519.PublicKey),
		PrivateKey: priv,
	}, nil
}

// DeriveSeed stretches secret into a 32 byte seed with HKDF-SHA256.
// The same secret and salt always yield the same seed.
func DeriveSeed(secret, salt []byte) ([]byte, error) {
	r := hkdf.New(sha256.New, secret, salt, []byte(seedInfo))
	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(r, seed); err != nil {
		return nil, errors.Join(ErrKeyDerivation, err)
	}
	return seed, nil
}

// SignSync signs msg. key is either a 32 byte seed or a 64 byte private key.
func SignSync(msg, key []byte) ([]byte, error) {
	var priv ed25519.PrivateKey
	switch len(key) {
	case ed25519.SeedSize:
		priv = ed25519.NewKeyFromSeed(key)
	case ed25519.PrivateKeySize:
		priv = ed25519.PrivateKey(key)
	default:
		return nil, ErrKeySize
	}
	return ed25519.Sign(priv, msg), nil
}

// VerifySync reports whether sig is a valid signature of msg by pub.
func VerifySync(msg, sig, pub []byte) (bool, error) {
	if len(pub) != ed25519.PublicKeySize {
		return false, ErrPublicKeySize
	}
	if len(sig) != ed25519.SignatureSize {
		return false, ErrSignatureSize
	}
	return ed25519.Verify(ed25519.PublicKey(pub), msg, sig), nil
}
