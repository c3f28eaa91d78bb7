package credential

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeKnownValue(t *testing.T) {
	// RFC 7617 example.
	assert.Equal(t, "Basic QWxhZGRpbjpvcGVuIHNlc2FtZQ==", Encode("Aladdin", "open sesame"))
}

func TestEncodeIsDeterministic(t *testing.T) {
	assert.Equal(t, Encode("alice", "secret1"), Encode("alice", "secret1"))
	assert.NotEqual(t, Encode("alice", "secret1"), Encode("alice", "secret2"))
}

func TestEncodeRoundTrip(t *testing.T) {
	pairs := [][2]string{
		{"alice", "secret1"},
		{"", ""},
		{"user", "pa:ss:word"},
		{"юзер", "пароль"},
		{"a b", " \t"},
	}
	for _, p := range pairs {
		cred := Encode(p[0], p[1])
		require.True(t, strings.HasPrefix(cred, Scheme+" "))

		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(cred, Scheme+" "))
		require.NoError(t, err)
		assert.Equal(t, p[0]+":"+p[1], string(raw))

		u, pw, ok := Decode(cred)
		require.True(t, ok)
		assert.Equal(t, p[0], u)
		assert.Equal(t, p[1], pw)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "Bearer abc", "Basic !!!", "Basic " + base64.StdEncoding.EncodeToString([]byte("nocolon"))} {
		_, _, ok := Decode(in)
		assert.False(t, ok, "input %q", in)
	}
}

func TestDecodeSchemeCaseInsensitive(t *testing.T) {
	u, p, ok := Decode("basic " + base64.StdEncoding.EncodeToString([]byte("bob:pw")))
	require.True(t, ok)
	assert.Equal(t, "bob", u)
	assert.Equal(t, "pw", p)
}
