// Package secret stores playat's tokens in the OS keyring, falling back to
// a 0600 file in the config dir when no keyring service is reachable
// (headless hosts, the OS scheduler's session).
package secret

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/playat/playat/common"
	"github.com/spf13/afero"
	"github.com/zalando/go-keyring"
)

const (
	Service       = "playat"
	RPCTokenKey   = "rpc-token"
	SpotifyKey    = "spotify-token"
	secretFileExt = ".secret"
	secretMode    = 0o600
)

var ErrNoSecret = errors.New("secret not set")

var (
	keyringSet    = keyring.Set
	keyringGet    = keyring.Get
	keyringDelete = keyring.Delete
	randRead      = rand.Read
	getenv        = os.Getenv
)

// Store reads and writes named secrets.
type Store struct {
	fs  afero.Fs
	dir string
}

// New returns a Store whose file fallback lives in dir.
func New(fsys afero.Fs, dir string) *Store {
	return &Store{fs: fsys, dir: dir}
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+secretFileExt)
}

// Get returns the secret for key, or ErrNoSecret.
func (s *Store) Get(key string) (string, error) {
	v, err := keyringGet(Service, key)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, keyring.ErrNotFound) {
		// keyring unusable; try the file
		return s.readFile(key)
	}
	// the value may have been saved while the keyring was down
	v, ferr := s.readFile(key)
	if ferr == nil {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNoSecret, key)
}

// Set stores value under key, in the keyring if possible.
func (s *Store) Set(key, value string) error {
	if err := keyringSet(Service, key, value); err == nil {
		_ = s.fs.Remove(s.path(key))
		return nil
	}
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return afero.WriteFile(s.fs, s.path(key), []byte(value), secretMode)
}

// Delete removes key from both the keyring and the fallback file.
func (s *Store) Delete(key string) error {
	kerr := keyringDelete(Service, key)
	ferr := s.fs.Remove(s.path(key))
	if kerr == nil || ferr == nil {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNoSecret, key)
}

func (s *Store) readFile(key string) (string, error) {
	data, err := afero.ReadFile(s.fs, s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNoSecret, key)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// RPCToken returns the bearer token guarding the JSON-RPC endpoints:
// $PLAYAT_RPC_SECRET, else the stored token, else a new random one that is
// stored for later runs.
func (s *Store) RPCToken() (string, error) {
	if tok := strings.TrimSpace(getenv(common.RPCSecretEnv)); tok != "" {
		return tok, nil
	}
	tok, err := s.Get(RPCTokenKey)
	if err == nil {
		return tok, nil
	}
	if !errors.Is(err, ErrNoSecret) {
		return "", err
	}
	b := make([]byte, 32)
	if _, err := randRead(b); err != nil {
		return "", fmt.Errorf("generating rpc token: %w", err)
	}
	tok = hex.EncodeToString(b)
	if err := s.Set(RPCTokenKey, tok); err != nil {
		return "", fmt.Errorf("storing rpc token: %w", err)
	}
	return tok, nil
}

// SpotifyToken returns $PLAYAT_SPOTIFY_TOKEN or the stored access token.
// It has the shape of spotify.TokenSource.
func (s *Store) SpotifyToken(context.Context) (string, error) {
	if tok := strings.TrimSpace(getenv(common.SpotifyTokenEnv)); tok != "" {
		return tok, nil
	}
	return s.Get(SpotifyKey)
}
