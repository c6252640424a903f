package qrbank

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHmac256(t *testing.T) {
	// Published HMAC-SHA256 test vector.
	got := Hmac256([]byte("The quick brown fox jumps over the lazy dog"), []byte("key"))
	assert.Equal(t, "f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8", got)
}

func TestVerifySignedRef(t *testing.T) {
	const key = "shared-hmac-key"
	const ref = "PAY-4F21A0"

	signature := Hmac256([]byte(ref), []byte(key))

	got, ok := VerifySignedRef(key, ref, signature)
	assert.True(t, ok)
	assert.Equal(t, ref, got)

	_, ok = VerifySignedRef(key, ref, signature+"00")
	assert.False(t, ok)

	_, ok = VerifySignedRef("other-key", ref, signature)
	assert.False(t, ok)
}

func TestBcryptHashRoundTrip(t *testing.T) {
	hash, err := GenerateHash([]byte("callback-secret"))
	require.NoError(t, err)

	assert.True(t, CompareHash([]byte(hash), []byte("callback-secret")))
	assert.False(t, CompareHash([]byte(hash), []byte("wrong-secret")))
}

func TestRandomNumber(t *testing.T) {
	a, err := randomNumber()
	require.NoError(t, err)
	b, err := randomNumber()
	require.NoError(t, err)

	assert.Len(t, a, 18)
	assert.NotEqual(t, a, b)

	_, err = strconv.ParseUint(a, 10, 64)
	assert.NoError(t, err)
}
