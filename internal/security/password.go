package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/quietpages/quietpages-server/internal/model"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 6

// Argon2id parameters. Changing them only affects newly hashed passwords;
// stored hashes carry their own parameters.
const (
	argonTime    = 1
	argonMemKiB  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

// ValidatePassword checks the password against the minimum policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return model.ErrWeakPassword
	}
	return nil
}

// HashPassword derives an argon2id hash in PHC string format.
func HashPassword(password string) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemKiB, argonThreads, argonKeyLen)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemKiB, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return []byte(encoded), nil
}

// VerifyPassword reports whether the password matches the stored hash.
func VerifyPassword(stored []byte, password string) bool {
	var (
		version               int
		mem, iterations       uint32
		threads               uint8
		saltB64, keyB64, kind string
	)

	parts := strings.Split(string(stored), "$")
	if len(parts) != 6 {
		return false
	}
	kind = parts[1]
	if kind != "argon2id" {
		return false
	}
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iterations, &threads); err != nil {
		return false
	}
	saltB64, keyB64 = parts[4], parts[5]

	salt, err := base64.RawStdEncoding.DecodeString(saltB64)
	if err != nil {
		return false
	}
	key, err := base64.RawStdEncoding.DecodeString(keyB64)
	if err != nil {
		return false
	}

	derived := argon2.IDKey([]byte(password), salt, iterations, mem, threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, derived) == 1
}
