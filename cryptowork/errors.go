package cryptowork

import "errors"

var (
	ErrUnsupportedHash = errors.New("cryptowork: unsupported hash, type should be 256/384/512")
	ErrSeedSize        = errors.New("cryptowork: seed must be 32 bytes")
	ErrKeySize         = errors.New("cryptowork: key must be a 32 byte seed or a 64 byte private key")
	ErrPublicKeySize   = errors.New("cryptowork: public key must be 32 bytes")
	ErrSignatureSize   = errors.New("cryptowork: signature must be 64 bytes")
	ErrNilCallback     = errors.New("cryptowork: nil callback")
	ErrKeyDerivation   = errors.New("cryptowork: key derivation failed")
)
