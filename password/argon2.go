package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// DefaultMaxPasswordBytes caps password input when Config.MaxPasswordBytes is zero.
const DefaultMaxPasswordBytes = 1024

// MinPasswordBytes is the shortest password Hash accepts.
const MinPasswordBytes = 10

const phcPrefix = "$argon2id$"

var (
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d bytes", MinPasswordBytes)
	// ErrPasswordTooLong is returned before any key derivation runs.
	ErrPasswordTooLong = errors.New("password exceeds maximum length")
	// ErrMalformedHash covers every stored hash that does not parse as
	// Argon2id PHC with acceptable parameters.
	ErrMalformedHash       = errors.New("malformed argon2id hash")
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
)

// floor is the weakest parameter set accepted for new hashes and for
// stored ones.
var floor = params{memory: 8 * 1024, time: 1, threads: 1}

const (
	minSaltLength uint32 = 16
	minKeyLength  uint32 = 16
)

// Config holds Argon2id cost parameters.
type Config struct {
	Memory           uint32 // KiB
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
}

// DefaultConfig returns the parameters used when none are configured.
func DefaultConfig() Config {
	return Config{
		Memory:           64 * 1024,
		Time:             3,
		Parallelism:      2,
		SaltLength:       16,
		KeyLength:        32,
		MaxPasswordBytes: DefaultMaxPasswordBytes,
	}
}

func (c Config) validate() error {
	switch {
	case c.Memory < floor.memory:
		return fmt.Errorf("argon2 memory must be >= %d KiB", floor.memory)
	case c.Time < floor.time:
		return errors.New("argon2 time must be >= 1")
	case c.Parallelism < floor.threads:
		return errors.New("argon2 parallelism must be >= 1")
	case c.SaltLength < minSaltLength:
		return fmt.Errorf("argon2 salt length must be >= %d", minSaltLength)
	case c.KeyLength < minKeyLength:
		return fmt.Errorf("argon2 key length must be >= %d", minKeyLength)
	}
	return nil
}

type params struct {
	memory  uint32
	time    uint32
	threads uint8
}

// phc is a decoded $argon2id$ string.
type phc struct {
	params
	salt []byte
	key  []byte
}

func (p phc) String() string {
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		phcPrefix, argon2.Version,
		p.memory, p.time, p.threads,
		base64.RawStdEncoding.EncodeToString(p.salt),
		base64.RawStdEncoding.EncodeToString(p.key),
	)
}

func decodePHC(encoded string) (phc, error) {
	var out phc

	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return out, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return out, ErrMalformedHash
	}
	if version != argon2.Version {
		return out, ErrIncompatibleVersion
	}

	if n, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &out.memory, &out.time, &out.threads); err != nil || n != 3 {
		return out, ErrMalformedHash
	}
	if fmt.Sprintf("m=%d,t=%d,p=%d", out.memory, out.time, out.threads) != fields[3] {
		// trailing garbage or reordered parameters
		return out, ErrMalformedHash
	}
	if out.memory < floor.memory || out.time < floor.time || out.threads < floor.threads {
		return out, ErrMalformedHash
	}

	var err error
	if out.salt, err = decodeB64(fields[4]); err != nil || uint32(len(out.salt)) < minSaltLength {
		return out, ErrMalformedHash
	}
	if out.key, err = decodeB64(fields[5]); err != nil || len(out.key) == 0 {
		return out, ErrMalformedHash
	}
	return out, nil
}

// decodeB64 accepts padded and unpadded standard base64.
func decodeB64(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

// Argon2 hashes and verifies passwords with Argon2id in PHC format.
type Argon2 struct {
	config Config
}

// NewArgon2 validates cfg and returns a hasher.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.MaxPasswordBytes <= 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	return &Argon2{config: cfg}, nil
}

// Hash returns a PHC-encoded Argon2id hash of password. Input bytes are
// used as given, without Unicode normalization.
func (a *Argon2) Hash(password string) (string, error) {
	switch {
	case len(password) < MinPasswordBytes:
		return "", ErrPasswordTooShort
	case len(password) > a.config.MaxPasswordBytes:
		return "", ErrPasswordTooLong
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	h := phc{
		params: params{memory: a.config.Memory, time: a.config.Time, threads: a.config.Parallelism},
		salt:   salt,
	}
	h.key = derive(password, h, a.config.KeyLength)
	return h.String(), nil
}

// Verify reports whether password matches encodedHash, using the cost
// parameters stored in the hash.
func (a *Argon2) Verify(password, encodedHash string) (bool, error) {
	if len(password) > a.config.MaxPasswordBytes {
		return false, ErrPasswordTooLong
	}
	return verifyArgon2(password, encodedHash)
}

func verifyArgon2(password, encodedHash string) (bool, error) {
	h, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}
	got := derive(password, h, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(got, h.key) == 1, nil
}

func derive(password string, h phc, keyLen uint32) []byte {
	return argon2.IDKey([]byte(password), h.salt, h.time, h.memory, h.threads, keyLen)
}

// NeedsUpgrade reports whether encodedHash was produced with weaker
// parameters than the hasher's, or with a different key length.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	h, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}
	weaker := h.memory < a.config.Memory ||
		h.time < a.config.Time ||
		h.threads < a.config.Parallelism
	return weaker || uint32(len(h.key)) != a.config.KeyLength, nil
}
