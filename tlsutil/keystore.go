// Package tlsutil provides the cloud protocol's TLS client configuration:
// loading the PEM certificates the client trusts from a bundled resource or
// a filesystem path, and an on-disk keystore that protects a PEM file at
// rest with a passphrase. No client certificate is presented to the server.
package tlsutil

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
)

const (
	argon2Time      = 3
	argon2Memory    = 65536
	argon2Threads   = 4
	argon2KeyLen    = 32
	saltSize        = 32
	keystoreVersion = 1
)

var ErrInvalidPassphrase = errors.New("tlsutil: invalid passphrase or corrupted keystore")

// KeystoreEntry is the on-disk representation of a passphrase-encrypted
// private key.
type KeystoreEntry struct {
	Version       int    `json:"version"`
	KDF           string `json:"kdf"`
	Argon2Time    int    `json:"argon2_time"`
	Argon2Memory  int    `json:"argon2_memory"`
	Argon2Threads int    `json:"argon2_threads"`
	Salt          []byte `json:"salt"`
	Nonce         []byte `json:"nonce"`
	Ciphertext    []byte `json:"ciphertext"`
}

// SaveKey encrypts and saves a PEM-encoded private key to disk. An empty
// passphrase stores the key unencrypted (".insecure" suffix), for local
// development only.
func SaveKey(pemKey []byte, keystorePath string, passphrase string) error {
	dir := filepath.Dir(keystorePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("tlsutil: creating keystore directory: %w", err)
	}

	var data []byte
	if passphrase == "" {
		data = pemKey
		keystorePath += ".insecure"
	} else {
		entry, err := encryptKey(pemKey, passphrase)
		if err != nil {
			return fmt.Errorf("tlsutil: encrypting key: %w", err)
		}
		data, err = json.MarshalIndent(entry, "", "  ")
		if err != nil {
			return fmt.Errorf("tlsutil: marshaling keystore entry: %w", err)
		}
	}

	return os.WriteFile(keystorePath, data, 0600)
}

// LoadKey loads and, unless the file ends in ".insecure", decrypts a
// PEM-encoded private key from disk.
func LoadKey(keystorePath string, passphrase string) ([]byte, error) {
	data, err := os.ReadFile(keystorePath)
	if err != nil {
		return nil, fmt.Errorf("tlsutil: reading keystore file: %w", err)
	}

	if filepath.Ext(keystorePath) == ".insecure" {
		return data, nil
	}

	var entry KeystoreEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("tlsutil: unmarshaling keystore entry: %w", err)
	}
	return decryptKey(&entry, passphrase)
}

func encryptKey(pemKey []byte, passphrase string) (*KeystoreEntry, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	derivedKey := argon2.IDKey([]byte(passphrase), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	nonce := make([]byte, 12)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	ciphertext, err := seal(derivedKey, nonce, nil, pemKey)
	if err != nil {
		return nil, err
	}

	return &KeystoreEntry{
		Version:       keystoreVersion,
		KDF:           "argon2id",
		Argon2Time:    argon2Time,
		Argon2Memory:  argon2Memory,
		Argon2Threads: argon2Threads,
		Salt:          salt,
		Nonce:         nonce,
		Ciphertext:    ciphertext,
	}, nil
}

func decryptKey(entry *KeystoreEntry, passphrase string) ([]byte, error) {
	if entry.Version != keystoreVersion {
		return nil, fmt.Errorf("tlsutil: unsupported keystore version %d", entry.Version)
	}
	if entry.KDF != "argon2id" {
		return nil, fmt.Errorf("tlsutil: unsupported KDF %q", entry.KDF)
	}
	derivedKey := argon2.IDKey([]byte(passphrase), entry.Salt,
		uint32(entry.Argon2Time), uint32(entry.Argon2Memory), uint8(entry.Argon2Threads), argon2KeyLen)

	plaintext, err := open(derivedKey, entry.Nonce, nil, entry.Ciphertext)
	if err != nil {
		return nil, ErrInvalidPassphrase
	}
	return plaintext, nil
}
