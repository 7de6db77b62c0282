package identity

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

// Device ids are 12-byte object ids rendered as 24 hex chars: a 4-byte
// unix timestamp followed by 8 random bytes.

var idPattern = regexp.MustCompile(`^[0-9a-f]{24}$`)

// Generate returns a fresh device id.
func Generate() (string, error) {
	var raw [12]byte
	binary.BigEndian.PutUint32(raw[:4], uint32(time.Now().Unix()))
	if _, err := rand.Read(raw[4:]); err != nil {
		return "", fmt.Errorf("generate device id: %w", err)
	}
	return hex.EncodeToString(raw[:]), nil
}

// Valid reports whether s looks like a generated device id.
func Valid(s string) bool {
	return idPattern.MatchString(s)
}

// LoadOrCreate reads the durable device id from path, generating and
// persisting one when the file is missing or empty.
func LoadOrCreate(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("read device id: %w", err)
	}
	id := strings.TrimSpace(string(raw))
	if Valid(id) {
		return id, nil
	}

	id, err = Generate()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("persist device id: %w", err)
	}
	return id, nil
}
