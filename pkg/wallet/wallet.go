package wallet

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// AuthMessagePrefix is prepended to challenges before signing.
const AuthMessagePrefix = "AdForge auth: "

// Credential is the serialized wallet secret persisted between runs. The
// blob is written once after initialization and read once at startup;
// nothing else inspects it.
type Credential struct {
	PrivateKey string    `json:"private_key"`
	Address    string    `json:"address"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store handles the on-disk credential blob.
type Store struct {
	filePath string
	mu       sync.RWMutex
}

// NewStore creates a credential store at the given path.
func NewStore(filePath string) *Store {
	if filePath == "" {
		filePath = "wallet_data.json"
	}

	dir := filepath.Dir(filePath)
	if dir != "" && dir != "." {
		os.MkdirAll(dir, 0700)
	}

	return &Store{filePath: filePath}
}

// Load reads the credential from disk. Returns (nil, nil) when no file
// exists yet.
func (s *Store) Load() (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read wallet data: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("failed to parse wallet data: %w", err)
	}
	return &cred, nil
}

// Save writes the credential to disk atomically.
func (s *Store) Save(cred *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal wallet data: %w", err)
	}

	// Write to temp file first for atomic operation
	tempPath := s.filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp wallet file: %w", err)
	}

	if err := os.Rename(tempPath, s.filePath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save wallet file: %w", err)
	}

	return nil
}

// GetFilePath returns the path to the credential file.
func (s *Store) GetFilePath() string {
	return s.filePath
}

// Wallet holds the signing key for contract submissions and runtime auth.
type Wallet struct {
	privateKey *ecdsa.PrivateKey
	address    string
}

// LoadOrCreate reloads the persisted wallet, or generates a fresh key and
// persists it when none exists. The returned bool reports whether a new
// wallet was created.
func LoadOrCreate(store *Store) (*Wallet, bool, error) {
	cred, err := store.Load()
	if err != nil {
		return nil, false, err
	}

	if cred != nil {
		w, err := FromHex(cred.PrivateKey)
		if err != nil {
			return nil, false, fmt.Errorf("persisted wallet data is invalid: %w", err)
		}
		return w, false, nil
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, false, fmt.Errorf("failed to generate wallet key: %w", err)
	}
	w := fromKey(key)

	cred = &Credential{
		PrivateKey: hexutil.Encode(crypto.FromECDSA(key)),
		Address:    w.address,
		CreatedAt:  time.Now().UTC(),
	}
	if err := store.Save(cred); err != nil {
		return nil, false, err
	}

	return w, true, nil
}

// FromHex builds a wallet from a hex-encoded private key.
func FromHex(privateKeyHex string) (*Wallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return fromKey(key), nil
}

func fromKey(key *ecdsa.PrivateKey) *Wallet {
	publicKey := key.Public().(*ecdsa.PublicKey)
	return &Wallet{
		privateKey: key,
		address:    crypto.PubkeyToAddress(*publicKey).Hex(),
	}
}

// Address returns the wallet's hex address.
func (w *Wallet) Address() string {
	return w.address
}

// Key returns the signing key.
func (w *Wallet) Key() *ecdsa.PrivateKey {
	return w.privateKey
}

// SignChallenge signs an auth challenge with the Ethereum signed-message
// prefix, adjusting the recovery byte to 27/28.
func (w *Wallet) SignChallenge(challenge string) (string, error) {
	message := AuthMessagePrefix + challenge
	hash := hashMessage([]byte(message))

	signature, err := crypto.Sign(hash, w.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign challenge: %w", err)
	}
	signature[64] += 27

	return hexutil.Encode(signature), nil
}

// hashMessage hashes a message with the Ethereum signed message prefix
func hashMessage(data []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(data))
	return crypto.Keccak256([]byte(prefix), data)
}
