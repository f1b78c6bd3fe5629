package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Supported password hashing algorithms.
const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

var ErrUnknownAlgorithm = errors.New("unknown password hashing algorithm")

// PasswordHasher produces salted one-way digests and checks plaintexts
// against them. Verify never errors: a malformed digest simply does not match.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
}

// digestHasher is a PasswordHasher that can tell whether it produced a digest.
type digestHasher interface {
	PasswordHasher
	Recognizes(digest string) bool
}

// BcryptHasher hashes with bcrypt at a tunable cost.
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher clamps cost into bcrypt's accepted range; zero selects
// bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	switch {
	case cost == 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{Cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h *BcryptHasher) Verify(password, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

func (h *BcryptHasher) Recognizes(digest string) bool {
	return strings.HasPrefix(digest, "$2a$") ||
		strings.HasPrefix(digest, "$2b$") ||
		strings.HasPrefix(digest, "$2y$")
}

// ArgonParams are the argon2id tuning knobs.
type ArgonParams struct {
	Memory      uint32 // in KiB
	Time        uint32 // iterations
	Parallelism uint8
	SaltLen     int
	KeyLen      uint32
}

var DefaultArgon = ArgonParams{
	Memory:      64 * 1024,
	Time:        3,
	Parallelism: 1,
	SaltLen:     16,
	KeyLen:      32,
}

// Argon2Hasher hashes with argon2id and encodes digests as
// $argon2id$v=19$m=<M>,t=<T>,p=<P>$<b64 salt>$<b64 key>.
type Argon2Hasher struct {
	Params ArgonParams
}

func NewArgon2Hasher(p ArgonParams) *Argon2Hasher {
	return &Argon2Hasher{Params: p}
}

const argonPrefix = "$argon2id$"

func (h *Argon2Hasher) Hash(password string) (string, error) {
	p := h.Params
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argonPrefix, argon2.Version,
		p.Memory, p.Time, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (h *Argon2Hasher) Verify(password, digest string) bool {
	if !h.Recognizes(digest) {
		return false
	}
	parts := strings.Split(digest[len(argonPrefix):], "$")
	if len(parts) != 4 {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[0], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var m, t uint32
	var p uint8
	if _, err := fmt.Sscanf(parts[1], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil || p == 0 {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil || len(want) == 0 {
		return false
	}

	got := argon2.IDKey([]byte(password), salt, t, m, p, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}

func (h *Argon2Hasher) Recognizes(digest string) bool {
	return strings.HasPrefix(digest, argonPrefix)
}

// MultiHasher hashes new passwords with its primary algorithm and verifies
// digests produced by any supported algorithm, so switching the configured
// algorithm keeps existing accounts working.
type MultiHasher struct {
	primary digestHasher
	all     []digestHasher
}

// NewPasswordHasher returns a MultiHasher whose primary algorithm is
// algorithm ("bcrypt" or "argon2id"). bcryptCost tunes bcrypt.
func NewPasswordHasher(algorithm string, bcryptCost int) (*MultiHasher, error) {
	b := NewBcryptHasher(bcryptCost)
	a := NewArgon2Hasher(DefaultArgon)

	var primary digestHasher
	switch strings.ToLower(strings.TrimSpace(algorithm)) {
	case "", AlgorithmBcrypt:
		primary = b
	case AlgorithmArgon2id:
		primary = a
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}

	return &MultiHasher{primary: primary, all: []digestHasher{b, a}}, nil
}

func (m *MultiHasher) Hash(password string) (string, error) {
	return m.primary.Hash(password)
}

func (m *MultiHasher) Verify(password, digest string) bool {
	for _, h := range m.all {
		if h.Recognizes(digest) {
			return h.Verify(password, digest)
		}
	}
	return false
}
