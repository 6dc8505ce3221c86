// Package userpassword hashes and validates user passwords with PBKDF2.
package userpassword

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/xerrors"
)

const (
	// hashIter is the number of PBKDF2 iterations. Tuned for interactive
	// login latency rather than offline resistance.
	hashIter = 65535

	saltSize = 16
	keySize  = 32
)

// Compare checks the equality of passwords from a hashed pbkdf2 string.
// This uses pbkdf2 to ensure FIPS 140-2 compliance. A constant time
// compare is used to mitigate timing attacks.
func Compare(hashed string, password string) (bool, error) {
	if !strings.HasPrefix(hashed, "$") {
		return false, xerrors.Errorf("hash format not supported")
	}
	parts := strings.SplitN(hashed[1:], "$", 4)
	if len(parts) != 4 {
		return false, xerrors.Errorf("hash has %d parts instead of 4", len(parts))
	}
	if parts[0] != "pbkdf2-sha256" {
		return false, xerrors.Errorf("hash isn't pbkdf2-sha256, got %q", parts[0])
	}
	iter, err := strconv.Atoi(parts[1])
	if err != nil {
		return false, xerrors.Errorf("parse iterations: %w", err)
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return false, xerrors.Errorf("decode salt: %w", err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return false, xerrors.Errorf("decode hash: %w", err)
	}

	hash := pbkdf2.Key([]byte(password), salt, iter, len(expected), sha256.New)
	return subtle.ConstantTimeCompare(hash, expected) == 1, nil
}

// Hash generates a hash using pbkdf2.
func Hash(password string) (string, error) {
	salt := make([]byte, saltSize)
	_, err := rand.Read(salt)
	if err != nil {
		return "", xerrors.Errorf("read random bytes for salt: %w", err)
	}
	return hashWithSaltAndIter(password, salt, hashIter), nil
}

func hashWithSaltAndIter(password string, salt []byte, iter int) string {
	hash := pbkdf2.Key([]byte(password), salt, iter, keySize, sha256.New)
	return "$pbkdf2-sha256$" + strconv.Itoa(iter) + "$" +
		base64.RawStdEncoding.EncodeToString(salt) + "$" +
		base64.RawStdEncoding.EncodeToString(hash)
}
