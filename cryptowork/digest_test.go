package cryptowork

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSum_KnownVectors(t *testing.T) {
	tests := []struct {
		alg  Algorithm
		want string
	}{
		{SHA256, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{SHA384, "cb00753f45a35e8bb5a03d699ac65007272c32ab0eded1631a8b605a43ff5bed8086072ba1e7cc2358baeca134c825a7"},
		{SHA512, "ddaf35a193617abacc417349ae20413112e6fa4e89a97ea20a9eeee64b55d39a2192992a274fc1a836ba3c23a3feebbd454d4423643ce80e2a9ac94fa54ca49f"},
		{SHA3_256, "3a985da74fe225b2045c172d6bd390bd855f086e3e9d525b46bfe24511431532"},
		{SHA3_512, "b751850b1a57168a5693cd924b6b096e08f621827444f70d884f5d0240d2712e10e116e9192af3c91a7ec57647e3934057340b4cf408d5a56592f8274eec53f0"},
		{BLAKE2b256, "bddd813c634239723171ef3fee98579b94964e3bb1cb3e427262c8c068d52319"},
	}
	for _, tt := range tests {
		t.Run(string(tt.alg), func(t *testing.T) {
			sum, err := Sum(tt.alg, []byte("abc"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, hex.EncodeToString(sum))
		})
	}
}

func TestSum_Unsupported(t *testing.T) {
	_, err := Sum("md5", []byte("abc"))
	assert.ErrorIs(t, err, ErrUnsupportedHash)
}

func TestSHA2Algorithm(t *testing.T) {
	for bits, want := range map[int]Algorithm{256: SHA256, 384: SHA384, 512: SHA512} {
		got, err := SHA2Algorithm(bits)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := SHA2Algorithm(224)
	assert.ErrorIs(t, err, ErrUnsupportedHash)
}
