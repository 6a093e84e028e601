package devwallet

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	solana "github.com/gagliardetto/solana-go"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountLocked   = errors.New("account is locked")
	ErrInvalidKey      = errors.New("invalid private key")
)

// Keystore is the encrypted EVM key directory backing the dev EVM wallets.
type Keystore struct {
	ks  *keystore.KeyStore
	dir string
}

// OpenKeystore opens (creating if needed) <dataDir>/keystore.
func OpenKeystore(dataDir string) (*Keystore, error) {
	dir := filepath.Join(dataDir, "keystore")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create keystore directory: %w", err)
	}
	return &Keystore{
		ks:  keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP),
		dir: dir,
	}, nil
}

// openLightKeystore uses cheap scrypt parameters; tests only.
func openLightKeystore(dataDir string) (*Keystore, error) {
	dir := filepath.Join(dataDir, "keystore")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	return &Keystore{
		ks:  keystore.NewKeyStore(dir, keystore.LightScryptN, keystore.LightScryptP),
		dir: dir,
	}, nil
}

func (k *Keystore) Dir() string { return k.dir }

// Create generates a new account encrypted with password.
func (k *Keystore) Create(password string) (accounts.Account, error) {
	return k.ks.NewAccount(password)
}

// Import encrypts a hex private key (with or without 0x) with password.
func (k *Keystore) Import(privateKeyHex, password string) (accounts.Account, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return accounts.Account{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return k.ks.ImportECDSA(privateKey, password)
}

func (k *Keystore) Accounts() []accounts.Account {
	return k.ks.Accounts()
}

// Unlock decrypts the key for address.
func (k *Keystore) Unlock(address common.Address, password string) (*Key, error) {
	account, err := k.ks.Find(accounts.Account{Address: address})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, address.Hex())
	}
	keyJSON, err := k.ks.Export(account, password, password)
	if err != nil {
		return nil, fmt.Errorf("failed to unlock account: %w", err)
	}
	key, err := keystore.DecryptKey(keyJSON, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt key: %w", err)
	}
	return &Key{address: account.Address, key: key.PrivateKey}, nil
}

// Open returns the key for address without decrypting it. password is asked
// for the first time the key signs; a failed attempt can be retried.
func (k *Keystore) Open(address common.Address, password func() (string, error)) (*Key, error) {
	account, err := k.ks.Find(accounts.Account{Address: address})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, address.Hex())
	}
	return &Key{
		address: account.Address,
		unlock: func() (*ecdsa.PrivateKey, error) {
			pw, err := password()
			if err != nil {
				return nil, err
			}
			key, err := k.Unlock(account.Address, pw)
			if err != nil {
				return nil, err
			}
			return key.key, nil
		},
	}, nil
}

// Key is an EVM signing key.
type Key struct {
	// mu keeps signing from racing with Lock, which zeros the key.
	mu      sync.Mutex
	address common.Address
	key     *ecdsa.PrivateKey // nil when locked or not yet decrypted
	unlock  func() (*ecdsa.PrivateKey, error)
}

// NewKey wraps an in-memory private key.
func NewKey(pk *ecdsa.PrivateKey) *Key {
	return &Key{address: crypto.PubkeyToAddress(pk.PublicKey), key: pk}
}

func (k *Key) Address() common.Address { return k.address }

// privateKey must be called with mu held.
func (k *Key) privateKey() (*ecdsa.PrivateKey, error) {
	if k.key == nil && k.unlock != nil {
		pk, err := k.unlock()
		if err != nil {
			return nil, err
		}
		k.key, k.unlock = pk, nil
	}
	if k.key == nil {
		return nil, ErrAccountLocked
	}
	return k.key, nil
}

// SignTx signs tx for chainID.
func (k *Key) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	pk, err := k.privateKey()
	if err != nil {
		return nil, err
	}
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), pk)
}

// SignPersonal produces an EIP-191 personal_sign signature with V in {27, 28}.
func (k *Key) SignPersonal(message []byte) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	pk, err := k.privateKey()
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(accounts.TextHash(message), pk)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// Lock zeros the key material. Signing afterwards returns ErrAccountLocked.
func (k *Key) Lock() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.unlock = nil
	if k.key != nil {
		k.key.D.SetInt64(0)
		k.key = nil
	}
}

// NewSolanaKeyFile generates a keypair and writes it in solana-keygen's JSON
// format. An existing file is never overwritten.
func NewSolanaKeyFile(path string) (solana.PublicKey, error) {
	if _, err := os.Stat(path); err == nil {
		return solana.PublicKey{}, fmt.Errorf("keypair file %s already exists", path)
	}
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return solana.PublicKey{}, err
	}
	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	data, err := json.Marshal(ints)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return solana.PublicKey{}, err
	}
	if err := os.WriteFile(path, data, filePerms); err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to write keypair: %w", err)
	}
	return key.PublicKey(), nil
}

// LoadSolanaKey reads a solana-keygen keypair file.
func LoadSolanaKey(path string) (solana.PrivateKey, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair %s: %w", path, err)
	}
	return key, nil
}
