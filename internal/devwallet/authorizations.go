package devwallet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	authFileName = "authorizations.json"
	filePerms    = 0600 // Owner read/write only
)

// Authorization records that a dev wallet approved this application.
type Authorization struct {
	Account   string    `json:"account"`
	ChainID   uint64    `json:"chain_id,omitempty"`
	GrantedAt time.Time `json:"granted_at"`
}

type authData struct {
	Version int                      `json:"version"`
	Wallets map[string]Authorization `json:"wallets"`
}

// AuthorizationStore persists dev wallet approvals between CLI runs, the way
// a browser wallet remembers which sites it is connected to.
type AuthorizationStore struct {
	mu       sync.RWMutex
	filePath string
	data     *authData
}

// OpenAuthorizationStore loads <dataDir>/authorizations.json if present.
func OpenAuthorizationStore(dataDir string) (*AuthorizationStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	s := &AuthorizationStore{
		filePath: filepath.Join(dataDir, authFileName),
		data:     &authData{Version: 1, Wallets: make(map[string]Authorization)},
	}
	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load authorizations: %w", err)
	}
	return s, nil
}

func (s *AuthorizationStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}
	var data authData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to parse %s: %w", authFileName, err)
	}
	// Wallets is never nil, even for a hand-edited file.
	if data.Wallets == nil {
		data.Wallets = make(map[string]Authorization)
	}
	s.data = &data
	return nil
}

// save writes atomically through a temp file. Callers hold mu.
func (s *AuthorizationStore) save() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal authorizations: %w", err)
	}
	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, raw, filePerms); err != nil {
		return fmt.Errorf("failed to write authorizations: %w", err)
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save authorizations: %w", err)
	}
	return nil
}

func (s *AuthorizationStore) Get(walletKey string) (Authorization, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.data.Wallets[walletKey]
	return a, ok
}

func (s *AuthorizationStore) Grant(walletKey string, a Authorization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.GrantedAt.IsZero() {
		a.GrantedAt = time.Now().UTC()
	}
	s.data.Wallets[walletKey] = a
	return s.save()
}

// SetChain remembers the chain an authorized wallet was last switched to.
func (s *AuthorizationStore) SetChain(walletKey string, chainID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.data.Wallets[walletKey]
	if !ok {
		return nil
	}
	a.ChainID = chainID
	s.data.Wallets[walletKey] = a
	return s.save()
}

func (s *AuthorizationStore) Revoke(walletKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.Wallets[walletKey]; !ok {
		return nil
	}
	delete(s.data.Wallets, walletKey)
	return s.save()
}

// Wallets returns the authorized wallet keys, sorted.
func (s *AuthorizationStore) Wallets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data.Wallets))
	for k := range s.data.Wallets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
