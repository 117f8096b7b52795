package digest

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/zeebo/blake3"
)

// Algorithm names a supported digest function.
type Algorithm string

const (
	MD5    Algorithm = "md5"
	SHA256 Algorithm = "sha256"
	BLAKE3 Algorithm = "blake3"
)

// Default is the algorithm used when configuration leaves it unset.
const Default = MD5

// Hasher computes hex-encoded digests of files.
type Hasher interface {
	Algorithm() Algorithm
	HashFile(path string) (string, error)
}

// ParseAlgorithm resolves a configured algorithm name. Empty input yields Default.
func ParseAlgorithm(value string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(value))) {
	case "":
		return Default, nil
	case MD5:
		return MD5, nil
	case SHA256, "sha-256":
		return SHA256, nil
	case BLAKE3:
		return BLAKE3, nil
	default:
		return "", fmt.Errorf("unsupported digest algorithm %q (want md5, sha256 or blake3)", value)
	}
}

// New returns a Hasher for the given algorithm.
func New(alg Algorithm) (Hasher, error) {
	switch alg {
	case MD5, "":
		return streamHasher{alg: MD5, newHash: md5.New}, nil
	case SHA256:
		return streamHasher{alg: SHA256, newHash: sha256.New}, nil
	case BLAKE3:
		return streamHasher{alg: BLAKE3, newHash: func() hash.Hash { return blake3.New() }}, nil
	default:
		return nil, fmt.Errorf("unsupported digest algorithm %q", alg)
	}
}

type streamHasher struct {
	alg     Algorithm
	newHash func() hash.Hash
}

func (h streamHasher) Algorithm() Algorithm { return h.alg }

// HashFile streams the file at path through the hash function.
func (h streamHasher) HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	hasher := h.newHash()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
