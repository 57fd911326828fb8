package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/dmitrijs2005/taskkeeper/internal/filex"
)

// loadToken returns the token saved in path. A missing file or an empty
// path yields an empty token.
func loadToken(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	path, err := filex.ExpandHome(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func saveToken(path, token string) error {
	if path == "" {
		return nil
	}
	path, err := filex.EnsureParentDir(path)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	return os.Chmod(path, 0o600)
}

func removeToken(path string) error {
	if path == "" {
		return nil
	}
	path, err := filex.ExpandHome(path)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}
