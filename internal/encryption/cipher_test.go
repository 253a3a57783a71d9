package encryption

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "assura/pkg/domain-errors"
)

const (
	testKey = "AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8="
	testIV  = "AAECAwQFBgcICQoLDA0ODw=="
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngineFromBase64(testKey, testIV)
	require.NoError(t, err)
	return e
}

func TestEngine_RoundTrip(t *testing.T) {
	e := newTestEngine(t)

	for _, plain := range []string{
		"Jan",
		"Novák",
		"jan.novak@example.com",
		"exactly16bytes!!",
		strings.Repeat("long address line ", 20),
	} {
		ct, err := e.Encrypt(plain)
		require.NoError(t, err)
		assert.NotEqual(t, plain, ct)

		got, err := e.Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, plain, got)
	}
}

func TestEngine_EmptyPassesThrough(t *testing.T) {
	e := newTestEngine(t)

	ct, err := e.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, ct)

	pt, err := e.Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, pt)
}

func TestEngine_Deterministic(t *testing.T) {
	e := newTestEngine(t)

	a, err := e.Encrypt("8005150123")
	require.NoError(t, err)
	b, err := e.Encrypt("8005150123")
	require.NoError(t, err)
	assert.Equal(t, a, b, "fixed IV yields equal ciphertexts")

	raw, err := base64.StdEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, 16)
}

func TestEngine_DecryptErrors(t *testing.T) {
	e := newTestEngine(t)

	t.Run("invalid base64", func(t *testing.T) {
		_, err := e.Decrypt("not base64 at all!")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeCrypto))
	})

	t.Run("partial block", func(t *testing.T) {
		_, err := e.Decrypt(base64.StdEncoding.EncodeToString([]byte("short")))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeCrypto))
	})

	t.Run("wrong key", func(t *testing.T) {
		ct, err := e.Encrypt("Jan Novák")
		require.NoError(t, err)

		otherKey := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", KeySize)))
		other, err := NewEngineFromBase64(otherKey, testIV)
		require.NoError(t, err)

		// A wrong key almost always surfaces as a padding error; if the
		// garbage happens to unpad cleanly it still must not match.
		got, err := other.Decrypt(ct)
		if err == nil {
			assert.NotEqual(t, "Jan Novák", got)
			return
		}
		assert.True(t, dErrors.HasCode(err, dErrors.CodeCrypto))
	})
}

func TestNewEngine_KeyMaterialValidation(t *testing.T) {
	cases := []struct {
		name string
		key  string
		iv   string
	}{
		{"missing key", "", testIV},
		{"missing iv", testKey, ""},
		{"key not base64", "%%%", testIV},
		{"short key", base64.StdEncoding.EncodeToString(make([]byte, 16)), testIV},
		{"long iv", testKey, base64.StdEncoding.EncodeToString(make([]byte, 32))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewEngineFromBase64(tc.key, tc.iv)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
		})
	}
}

func TestCreateHash(t *testing.T) {
	assert.Equal(t, "AjXb33pwY+oq4AiBjroFekePo07gpM0lgZe9pQ77po8=", CreateHash("8005150123"))
	assert.Equal(t, "VXviJXJCj/cWPxeil7/rvWfxHndIz5mwZp6PuF2ONoE=", CreateHash("novák"))
	assert.Equal(t, CreateHash("novák"), CreateHash("NOVÁK"), "hash ignores case, including non-ASCII")
	assert.Equal(t, CreateHash("Jan.Novak@Example.com"), CreateHash("jan.novak@example.com"))
	assert.Empty(t, CreateHash(""))
}

func TestEngine_VerifyHash(t *testing.T) {
	e := newTestEngine(t)
	h := e.CreateHash("Jan")

	assert.True(t, e.VerifyHash("jan", h))
	assert.True(t, e.VerifyHash("JAN", h))
	assert.False(t, e.VerifyHash("Jana", h))
	assert.False(t, e.VerifyHash("", h))
	assert.False(t, e.VerifyHash("Jan", ""))
}

func TestLooksEncrypted(t *testing.T) {
	e := newTestEngine(t)

	long, err := e.Encrypt(strings.Repeat("Vinohradská 12, Praha ", 5))
	require.NoError(t, err)
	require.Greater(t, len(long), 100)
	assert.True(t, LooksEncrypted(long))

	short, err := e.Encrypt("Jan")
	require.NoError(t, err)
	assert.False(t, LooksEncrypted(short), "short ciphertexts are below the length threshold")

	assert.False(t, LooksEncrypted(strings.Repeat("a", 150)), "no base64 marker")

	// 121 bytes but 61 UTF-16 code units.
	czech := strings.Repeat("š", 60) + "="
	require.Greater(t, len(czech), 100)
	assert.False(t, LooksEncrypted(czech), "length counts characters, not bytes")
	assert.True(t, LooksEncrypted(strings.Repeat("š", 100)+"="))
}

func TestGenerateKeyMaterial(t *testing.T) {
	key, iv, err := GenerateKeyMaterial()
	require.NoError(t, err)

	e, err := NewEngineFromBase64(key, iv)
	require.NoError(t, err)
	require.NoError(t, e.SelfTest())

	key2, _, err := GenerateKeyMaterial()
	require.NoError(t, err)
	assert.NotEqual(t, key, key2)
}
