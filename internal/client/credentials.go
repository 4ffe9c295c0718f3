package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// DefaultStorageFile is the fixed key the dashboard persists its auth state
// under.
const DefaultStorageFile = "auth-storage.json"

// ErrNoToken means no usable token is persisted; the caller must log in.
var ErrNoToken = errors.New("no auth token present")

// Credentials is the single accessor for the persisted bearer token. The blob
// has the shape {"state":{"token": string|null}}; it is read synchronously on
// every call and never written by this package.
type Credentials struct {
	path string
}

// NewCredentials points the accessor at a persisted auth blob.
func NewCredentials(path string) *Credentials {
	if path == "" {
		path = DefaultStorageFile
	}
	return &Credentials{path: path}
}

// Token returns the current bearer token or ErrNoToken.
func (c *Credentials) Token() (string, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNoToken
		}
		return "", err
	}

	var blob struct {
		State struct {
			Token *string `json:"token"`
		} `json:"state"`
	}
	if err := json.Unmarshal(data, &blob); err != nil {
		return "", fmt.Errorf("malformed auth storage: %w", err)
	}
	if blob.State.Token == nil || *blob.State.Token == "" {
		return "", ErrNoToken
	}
	return *blob.State.Token, nil
}
