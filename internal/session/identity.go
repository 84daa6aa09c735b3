package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const identityFile = "identity"

// IdentityPath returns the location of the persistent participant id.
// ~/.config/livecap/identity
func IdentityPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "livecap", identityFile), nil
}

// LoadIdentity returns the participant id for this device, generating and
// persisting one on first use so the id survives restarts.
func LoadIdentity() (string, error) {
	path, err := IdentityPath()
	if err != nil {
		return "", err
	}
	return loadIdentityFrom(path)
}

func loadIdentityFrom(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		id := strings.TrimSpace(string(data))
		if id != "" {
			return id, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read identity: %w", err)
	}

	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("create identity dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write identity: %w", err)
	}
	return id, nil
}
