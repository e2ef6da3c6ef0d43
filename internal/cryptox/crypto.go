// Package cryptox implements the payload encoding the identity provider
// expects for phone numbers, verification codes and request signatures:
// AES-128-CBC with PKCS#7 padding under a fixed key and IV.
package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"strconv"
	"strings"
	"time"
)

var (
	defaultKey = []byte("ebupt_1234567890")
	defaultIV  = []byte("1234567890123456")
)

// SignSuffix is appended to a payload before it is signed.
const SignSuffix = "91Bmzn$0$#brkNYX"

// Encoder turns plain values into the ciphertexts sent on the wire.
type Encoder interface {
	// EncryptPhone encodes "value$<unix millis>" as URL-safe base64. It is
	// used for phone numbers and for verification codes.
	EncryptPhone(value string) (string, error)

	// EncryptSign encodes payload+SignSuffix as standard base64.
	EncryptSign(payload string) (string, error)
}

// AESEncoder is the Encoder used against the real service.
type AESEncoder struct {
	key []byte
	iv  []byte
	now func() time.Time
}

// NewAESEncoder returns an encoder with the service key and IV. A nil now
// means time.Now.
func NewAESEncoder(now func() time.Time) *AESEncoder {
	if now == nil {
		now = time.Now
	}
	return &AESEncoder{key: defaultKey, iv: defaultIV, now: now}
}

func (e *AESEncoder) EncryptPhone(value string) (string, error) {
	payload := value + "$" + strconv.FormatInt(e.now().UnixMilli(), 10)
	ct, err := encryptCBC([]byte(payload), e.key, e.iv)
	if err != nil {
		return "", err
	}
	enc := base64.StdEncoding.EncodeToString(ct)
	return strings.NewReplacer("/", "_", "+", "-").Replace(enc), nil
}

func (e *AESEncoder) EncryptSign(payload string) (string, error) {
	ct, err := encryptCBC([]byte(payload+SignSuffix), e.key, e.iv)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ct), nil
}

func encryptCBC(plaintext, key, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	padded := pkcs7Pad(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(append([]byte{}, b...), bytes.Repeat([]byte{byte(n)}, n)...)
}
