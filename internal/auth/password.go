package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id cost parameters for newly hashed passwords.
const (
	argonTime    = 3
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 1
	argonKeyLen  = 32
	argonSaltLen = 16
)

const phcAlgorithm = "argon2id"

var errInvalidHash = errors.New("invalid PHC hash format")

// phcHash is a decoded $argon2id$v=19$m=..,t=..,p=..$salt$key string, the
// form the users dataset keeps in its "password" field.
type phcHash struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

func (h phcHash) String() string {
	b64 := base64.RawStdEncoding.EncodeToString
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		phcAlgorithm, argon2.Version, h.memory, h.time, h.threads, b64(h.salt), b64(h.key))
}

// derive computes the key for password under h's salt and cost.
func (h phcHash) derive(password string) []byte {
	return argon2.IDKey([]byte(password), h.salt, h.time, h.memory, h.threads, uint32(len(h.key))) //nolint:gosec // key length fits uint32
}

func parsePHC(s string) (phcHash, error) {
	var h phcHash

	fields := strings.Split(s, "$")
	if len(fields) != 6 || fields[0] != "" { //nolint:mnd // leading empty field plus five sections
		return h, errInvalidHash
	}
	if fields[1] != phcAlgorithm {
		return h, fmt.Errorf("unsupported algorithm %q", fields[1])
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return h, fmt.Errorf("parsing version: %w", err)
	}
	if version != argon2.Version {
		return h, fmt.Errorf("unsupported argon2 version %d", version)
	}
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &h.memory, &h.time, &h.threads); err != nil {
		return h, fmt.Errorf("parsing cost: %w", err)
	}

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(fields[4]); err != nil {
		return h, fmt.Errorf("decoding salt: %w", err)
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(fields[5]); err != nil {
		return h, fmt.Errorf("decoding key: %w", err)
	}
	return h, nil
}

// HashPassword hashes password with Argon2id under a fresh salt and
// returns the PHC string.
func HashPassword(password string) (string, error) {
	h := phcHash{
		memory:  argonMemory,
		time:    argonTime,
		threads: argonThreads,
		salt:    make([]byte, argonSaltLen),
		key:     make([]byte, argonKeyLen),
	}
	if _, err := rand.Read(h.salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	h.key = h.derive(password)
	return h.String(), nil
}

// VerifyPassword reports whether password matches the stored PHC string.
// A value that does not parse, such as plaintext left in a hand-edited
// users file, is an error and never a match.
func VerifyPassword(password, stored string) (bool, error) {
	h, err := parsePHC(stored)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(h.key, h.derive(password)) == 1, nil
}

// GeneratePassword returns 24 random hex characters for a seeded account.
func GeneratePassword() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}
	return hex.EncodeToString(b), nil
}
