package crypto

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := NewCipher(bytes.Repeat([]byte{0xAA}, 32), bytes.Repeat([]byte{0xBB}, 32))
	require.NoError(t, err)
	return c
}

func TestDecodeKey(t *testing.T) {
	raw := bytes.Repeat([]byte{0x42}, 32)

	got, err := DecodeKey(hex.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	got, err = DecodeKey(base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	got, err = DecodeKey(strings.Repeat("x", 32))
	require.NoError(t, err)
	assert.Equal(t, []byte(strings.Repeat("x", 32)), got)

	_, err = DecodeKey("too short")
	assert.Error(t, err)
}

func TestNewCipherKeyLength(t *testing.T) {
	_, err := NewCipher([]byte("short"), bytes.Repeat([]byte{1}, 32))
	assert.Error(t, err)
	_, err = NewCipher(bytes.Repeat([]byte{1}, 32), []byte("short"))
	assert.Error(t, err)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c := testCipher(t)

	plaintext := "today I walked by the river and felt at peace"
	ciphertext, err := c.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	got, err := c.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestEncryptIsNondeterministic(t *testing.T) {
	c := testCipher(t)
	a, err := c.Encrypt("same input")
	require.NoError(t, err)
	b, err := c.Encrypt("same input")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestEmptyStringPassthrough(t *testing.T) {
	c := testCipher(t)
	ct, err := c.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, ct)

	pt, err := c.Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, pt)
	assert.Empty(t, c.BlindIndex(""))
}

func TestDecryptRejectsTampering(t *testing.T) {
	c := testCipher(t)
	ciphertext, err := c.Encrypt("secret")
	require.NoError(t, err)

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF
	_, err = c.Decrypt(base64.StdEncoding.EncodeToString(data))
	assert.Error(t, err)

	_, err = c.Decrypt("not base64!!")
	assert.Error(t, err)
}

func TestBlindIndexDeterministic(t *testing.T) {
	c := testCipher(t)
	assert.Equal(t, c.BlindIndex("user@example.com"), c.BlindIndex("user@example.com"))
	assert.NotEqual(t, c.BlindIndex("user@example.com"), c.BlindIndex("other@example.com"))

	// A different index key produces a different index.
	other, err := NewCipher(bytes.Repeat([]byte{0xAA}, 32), bytes.Repeat([]byte{0xCC}, 32))
	require.NoError(t, err)
	assert.NotEqual(t, c.BlindIndex("user@example.com"), other.BlindIndex("user@example.com"))
}
