package keying

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Undecryptable replaces the text of any message that cannot be decrypted.
const Undecryptable = "[undecryptable encrypted message]"

const separator = ":"

// Encrypt seals plaintext under key (a derived 32-byte key) with AES-CBC and
// PKCS#7 padding. Every call draws a fresh IV. The result is
// base64(iv) ":" base64(ciphertext).
//
// CBC gives confidentiality only: a modified ciphertext is not detected, it
// either fails to unpad or decrypts to different bytes.
func Encrypt(key []byte, plaintext string) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	padded := pad([]byte(plaintext), aes.BlockSize)
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)

	return base64.StdEncoding.EncodeToString(iv) + separator + base64.StdEncoding.EncodeToString(ct), nil
}

// Decrypt reverses Encrypt. It fails closed: on a malformed encoding, a wrong
// key, bad padding or non UTF-8 output it returns (Undecryptable, false).
func Decrypt(key []byte, encoded string) (string, bool) {
	plaintext, err := decrypt(key, encoded)
	if err != nil {
		return Undecryptable, false
	}
	return plaintext, true
}

func decrypt(key []byte, encoded string) (string, error) {
	parts := strings.Split(encoded, separator)
	if len(parts) != 2 {
		return "", fmt.Errorf("expected iv%sciphertext", separator)
	}

	iv, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("decode iv: %w", err)
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return "", fmt.Errorf("iv length %d", len(iv))
	}
	if len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return "", fmt.Errorf("ciphertext length %d", len(ct))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	out := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ct)

	out, err = unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(out) {
		return "", fmt.Errorf("plaintext is not utf-8")
	}
	return string(out), nil
}

func pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, fmt.Errorf("padded length %d", len(b))
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize {
		return nil, fmt.Errorf("invalid padding")
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return b[:len(b)-n], nil
}
