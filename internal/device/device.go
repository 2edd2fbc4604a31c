// Package device manages the stable per-installation identity that stamps
// every local write. The id lives in a plain file outside the quote store
// so wiping or replacing the database does not change the device's identity
// on the server.
package device

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Load returns the device id stored at path, generating and persisting a
// new one on first run. Parent directories are created as needed.
func Load(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err == nil {
		id := strings.TrimSpace(string(b))
		if _, parseErr := uuid.Parse(id); parseErr != nil {
			return "", fmt.Errorf("malformed device id in %s: %w", path, parseErr)
		}
		return id, nil
	}
	if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read device id: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("failed to create device id dir: %w", err)
	}

	id := uuid.NewString()
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("failed to persist device id: %w", err)
	}
	return id, nil
}
