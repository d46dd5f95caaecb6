package common

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
)

type Hasher struct {
	h hash.Hash
}

func NewHasher() *Hasher {
	return &Hasher{h: sha256.New()}
}

func (h *Hasher) Write(p []byte) (int, error) {
	return h.h.Write(p)
}

func (h *Hasher) Sum() string {
	return hex.EncodeToString(h.h.Sum(nil))
}

// Digest is the hex SHA-256 of a channel list blob. Two lists with the same
// digest are byte-identical.
func Digest(b []byte) string {
	h := NewHasher()
	_, _ = h.Write(b)
	return h.Sum()
}

// ReadBlob loads a saved channel list and returns it with its digest.
func ReadBlob(path string) ([]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	h := NewHasher()
	data, err := io.ReadAll(io.TeeReader(f, h))
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	return data, h.Sum(), nil
}

// WriteBlob stores b at path with mode 0644.
func WriteBlob(path string, b []byte) error {
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
