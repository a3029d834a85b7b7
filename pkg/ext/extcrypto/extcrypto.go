// Package extcrypto provides hashing methods on strings.
//
// Security note: MD5 and SHA-1 are provided for compatibility/fingerprinting
// only and should NOT be used for cryptographic security purposes.
package extcrypto

import (
	"crypto/hmac"
	"crypto/md5"  //nolint:gosec // intentional: provided for non-security fingerprinting
	"crypto/sha1" //nolint:gosec // intentional
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"github.com/sandrolain/govel/pkg/ext/extutil"
)

// Definitions returns all hashing and encoding methods.
func Definitions() []extutil.Def {
	return []extutil.Def{
		{Name: "hash", Kinds: extutil.StringKinds, Fn: Hash},
		{Name: "hmac", Kinds: extutil.StringKinds, Fn: HMAC},
		{Name: "base64", Kinds: extutil.StringKinds, Fn: Base64},
		{Name: "fromBase64", Kinds: extutil.StringKinds, Fn: FromBase64},
	}
}

// Register installs the methods on r.
func Register(r extutil.Registrar) error {
	return extutil.Register(r, Definitions())
}

// Hash returns the lowercase hex digest of s. Supported algorithms: md5,
// sha1, sha256, sha384, sha512.
func Hash(s, algorithm string) (string, error) {
	h, err := hasher(algorithm)
	if err != nil {
		return "", err
	}
	mac := h()
	mac.Write([]byte(s))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// HMAC returns the lowercase hex HMAC of s under key.
func HMAC(s, key, algorithm string) (string, error) {
	h, err := hasher(algorithm)
	if err != nil {
		return "", err
	}
	mac := hmac.New(h, []byte(key))
	mac.Write([]byte(s))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Base64 encodes s with standard padding.
func Base64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// FromBase64 decodes a standard base64 string.
func FromBase64(s string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ── helpers ────────────────────────────────────────────────────────────────

func hasher(algorithm string) (func() hash.Hash, error) {
	switch strings.ToLower(algorithm) {
	case "md5":
		return md5.New, nil //nolint:gosec
	case "sha1":
		return sha1.New, nil //nolint:gosec
	case "sha256":
		return sha256.New, nil
	case "sha384":
		return sha512.New384, nil
	case "sha512":
		return sha512.New, nil
	}
	return nil, fmt.Errorf("unsupported algorithm %q; use md5, sha1, sha256, sha384, or sha512", algorithm)
}
