package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2idParams mirror the defaults of the node argon2 package so hashes
// written by either implementation verify in the other.
type Argon2idParams struct {
	Time        uint32
	MemoryKiB   uint32
	Parallelism uint8
	KeyLen      uint32
	SaltLen     int
}

func DefaultArgon2idParams() Argon2idParams {
	return Argon2idParams{
		Time:        3,
		MemoryKiB:   64 * 1024,
		Parallelism: 4,
		KeyLen:      32,
		SaltLen:     16,
	}
}

var ErrMalformedHash = errors.New("malformed argon2id hash")

const credentialAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%^&()-_=+[{]};,."

// HashPassword returns a PHC formatted argon2id hash:
// $argon2id$v=19$m=65536,t=3,p=4$<salt>$<key>
func HashPassword(password string) (string, error) {
	return hashPassword(password, DefaultArgon2idParams())
}

func hashPassword(password string, params Argon2idParams) (string, error) {
	salt := make([]byte, params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, params.Time, params.MemoryKiB, params.Parallelism, params.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		params.MemoryKiB, params.Time, params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// DummyHash is a well-formed argon2id hash with the default parameters that
// no password is known to match. Verifying against it when a login does not
// exist costs the same as verifying a real admin.
const DummyHash = "$argon2id$v=19$m=65536,t=3,p=4$w3PO2sDWNX2CdmzW0ZxIGw$C2kss19ON+6zZtA5MICx7hHwaa3UC7T6ttmz0zmwUgM"

// VerifyPassword compares password against a PHC argon2id hash.
func VerifyPassword(encoded, password string) (bool, error) {
	params, salt, expected, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}
	key := argon2.IDKey([]byte(password), salt, params.Time, params.MemoryKiB, params.Parallelism, uint32(len(expected)))
	return subtle.ConstantTimeCompare(key, expected) == 1, nil
}

func decodeHash(encoded string) (Argon2idParams, []byte, []byte, error) {
	var params Argon2idParams

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return params, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return params, nil, nil, ErrMalformedHash
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.MemoryKiB, &params.Time, &params.Parallelism); err != nil {
		return params, nil, nil, ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params, nil, nil, ErrMalformedHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return params, nil, nil, ErrMalformedHash
	}
	params.SaltLen = len(salt)
	params.KeyLen = uint32(len(key))
	return params, salt, key, nil
}

// RandomCredential returns a random string of length n drawn from letters,
// digits and punctuation. Used for generated admin logins and passwords.
func RandomCredential(n int) (string, error) {
	return RandomString(n, credentialAlphabet)
}

// RandomString draws n characters uniformly from alphabet using crypto/rand.
func RandomString(n int, alphabet string) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("random string: %w", err)
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String(), nil
}

// Credentials is a generated admin login/password pair.
type Credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// NewCredentials generates a 12-character login and password and returns
// them together with the password hash to store.
func NewCredentials() (Credentials, string, error) {
	login, err := RandomCredential(12)
	if err != nil {
		return Credentials{}, "", err
	}
	password, err := RandomCredential(12)
	if err != nil {
		return Credentials{}, "", err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return Credentials{}, "", err
	}
	return Credentials{Login: login, Password: password}, hash, nil
}
