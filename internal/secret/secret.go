// Package secret decrypts values encrypted by the web app with CryptoJS
// passphrase AES (OpenSSL "Salted__" format, MD5 key derivation, AES-256-CBC).
package secret

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"unicode/utf8"
)

const (
	saltHeader = "Salted__"
	saltLen    = 8
	keyLen     = 32
)

var ErrCiphertext = errors.New("invalid ciphertext")

// Decrypt returns the plaintext of a base64 OpenSSL-salted ciphertext.
// A wrong passphrase normally surfaces as a padding or UTF-8 error.
func Decrypt(ciphertext, passphrase string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCiphertext, err)
	}
	if len(raw) < len(saltHeader)+saltLen+aes.BlockSize || string(raw[:len(saltHeader)]) != saltHeader {
		return "", fmt.Errorf("%w: missing salt header", ErrCiphertext)
	}
	salt := raw[len(saltHeader) : len(saltHeader)+saltLen]
	body := raw[len(saltHeader)+saltLen:]
	if len(body)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: length %d not a block multiple", ErrCiphertext, len(body))
	}

	key, iv := deriveKey([]byte(passphrase), salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)

	plain, err = unpad(plain)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plain) {
		return "", fmt.Errorf("%w: plaintext is not utf-8", ErrCiphertext)
	}
	return string(plain), nil
}

// Encrypt produces the same format as CryptoJS.AES.encrypt(text, passphrase).toString().
func Encrypt(plaintext, passphrase string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key, iv := deriveKey([]byte(passphrase), salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	padded := pad([]byte(plaintext))
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)

	buf := bytes.NewBufferString(saltHeader)
	buf.Write(salt)
	buf.Write(out)
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// deriveKey is OpenSSL EVP_BytesToKey with MD5 and one iteration.
func deriveKey(pass, salt []byte) (key, iv []byte) {
	var derived, prev []byte
	for len(derived) < keyLen+aes.BlockSize {
		h := md5.New()
		h.Write(prev)
		h.Write(pass)
		h.Write(salt)
		prev = h.Sum(nil)
		derived = append(derived, prev...)
	}
	return derived[:keyLen], derived[keyLen : keyLen+aes.BlockSize]
}

func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", ErrCiphertext)
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, fmt.Errorf("%w: bad padding", ErrCiphertext)
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, fmt.Errorf("%w: bad padding", ErrCiphertext)
		}
	}
	return b[:len(b)-n], nil
}
