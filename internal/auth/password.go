package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/GehirnInc/crypt"
	"github.com/GehirnInc/crypt/md5_crypt"
	"github.com/GehirnInc/crypt/sha256_crypt"
	"github.com/GehirnInc/crypt/sha512_crypt"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const argon2idPrefix = "$argon2id$"

const (
	argonMemory      = 64 * 1024
	argonIterations  = 2
	argonParallelism = 1
	argonKeyLength   = 32
	argonSaltLength  = 16
)

// HashPassword produces the stored secret reference for plain using argon2id.
func HashPassword(plain []byte) (string, error) {
	if len(plain) == 0 {
		return "", fmt.Errorf("%w: password is empty", ErrInvalidInput)
	}
	salt := make([]byte, argonSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	hash := argon2.IDKey(plain, salt, argonIterations, argonMemory, argonParallelism, argonKeyLength)
	defer clear(hash)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory,
		argonIterations,
		argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// DomainMatcher understands the hash formats this application writes (argon2id) or imported
// from host account databases (sha512/sha256/md5 crypt).
type DomainMatcher struct{}

func (DomainMatcher) Matches(plain []byte, stored string) bool {
	if strings.HasPrefix(stored, argon2idPrefix) {
		ok, err := verifyArgon2id(stored, plain)
		return err == nil && ok
	}
	if c := legacyCrypter(stored); c != nil {
		return c.Verify(stored, plain) == nil
	}
	return false
}

// BcryptMatcher is the library default comparator.
type BcryptMatcher struct{}

func (BcryptMatcher) Matches(plain []byte, stored string) bool {
	if stored == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), plain) == nil
}

func legacyCrypter(stored string) crypt.Crypter {
	switch {
	case strings.HasPrefix(stored, "$6$"):
		return sha512_crypt.New()
	case strings.HasPrefix(stored, "$5$"):
		return sha256_crypt.New()
	case strings.HasPrefix(stored, "$1$"):
		return md5_crypt.New()
	}
	return nil
}

var errMalformedHash = errors.New("malformed argon2id hash")

func verifyArgon2id(encoded string, plain []byte) (bool, error) {
	// $argon2id$v=19$m=65536,t=2,p=1$<salt>$<hash>
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return false, errMalformedHash
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, errMalformedHash
	}
	if version != argon2.Version {
		return false, fmt.Errorf("unsupported argon2 version %d", version)
	}
	var (
		memory      uint32
		iterations  uint32
		parallelism uint8
	)
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false, errMalformedHash
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, errMalformedHash
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return false, errMalformedHash
	}
	got := argon2.IDKey(plain, salt, iterations, memory, parallelism, uint32(len(want)))
	defer clear(got)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
