package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Storage keys match the keys the web client used in localStorage.
const (
	accessTokenKey  = "accessToken"
	refreshTokenKey = "refreshToken"
)

// TokenPair is the bearer token pair issued by the auth endpoints
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenStore persists the bearer token pair as a JSON file. All mutation
// happens under one mutex; there is no cross-process coordination.
type TokenStore struct {
	mu       sync.Mutex
	filePath string
	tokens   map[string]string
}

// NewTokenStore creates a token store backed by the default config directory
func NewTokenStore(pm *PathManager) (*TokenStore, error) {
	filePath, err := pm.TokensPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve token path: %w", err)
	}

	ts := &TokenStore{
		filePath: filePath,
		tokens:   map[string]string{},
	}

	if err := ts.load(); err != nil {
		// Missing file is fine - we'll create it on first save
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load tokens: %w", err)
		}
	}

	return ts, nil
}

func (ts *TokenStore) load() error {
	data, err := os.ReadFile(ts.filePath)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &ts.tokens)
}

func (ts *TokenStore) save() error {
	data, err := json.MarshalIndent(ts.tokens, "", "  ")
	if err != nil {
		return err
	}
	// Credentials file, keep it private
	return os.WriteFile(ts.filePath, data, 0600)
}

// Get returns the stored token pair. Empty fields mean no session.
func (ts *TokenStore) Get() TokenPair {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return TokenPair{
		AccessToken:  ts.tokens[accessTokenKey],
		RefreshToken: ts.tokens[refreshTokenKey],
	}
}

// Set stores a new token pair and persists it immediately
func (ts *TokenStore) Set(pair TokenPair) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.tokens[accessTokenKey] = pair.AccessToken
	ts.tokens[refreshTokenKey] = pair.RefreshToken
	return ts.save()
}

// SetAccessToken replaces only the access token, keeping the refresh token
func (ts *TokenStore) SetAccessToken(token string) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.tokens[accessTokenKey] = token
	return ts.save()
}

// Clear destroys the persisted session. Used on 401 and failed refresh.
func (ts *TokenStore) Clear() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	delete(ts.tokens, accessTokenKey)
	delete(ts.tokens, refreshTokenKey)
	return ts.save()
}
