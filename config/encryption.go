package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/ssh"
)

// keyDerivationMessage is signed with the user's SSH key to derive the
// credential file's AES key. Changing it invalidates existing files.
const keyDerivationMessage = "chathub-credential-key-v1"

// CredentialCipher seals the credential file with AES-256-GCM. The key is
// the SHA-256 of a signature over a fixed message, made with a local SSH
// private key. Signing is deterministic for the key types we accept, so
// the same SSH key always opens the same file and no key material is
// stored anywhere.
//
// The SSH key is not touched until the first Seal or Open, so a store
// configured for plain-text storage can carry a cipher without ever
// requiring the key to exist.
type CredentialCipher struct {
	sshKeyPath string
	passphrase string
	aesKey     []byte
}

func NewCredentialCipher(sshKeyPath string) *CredentialCipher {
	return &CredentialCipher{sshKeyPath: sshKeyPath}
}

// SetPassphrase supplies the passphrase for a passphrase-protected SSH
// key. It clears any cached AES key so the next operation re-derives.
func (c *CredentialCipher) SetPassphrase(passphrase string) {
	c.passphrase = passphrase
	c.aesKey = nil
}

// Seal encrypts plaintext as [nonce (12 bytes)][ciphertext + tag].
func (c *CredentialCipher) Seal(plaintext []byte) ([]byte, error) {
	if err := c.deriveKey(); err != nil {
		return nil, err
	}
	return encryptAESGCM(plaintext, c.aesKey)
}

// Open decrypts data produced by Seal.
func (c *CredentialCipher) Open(ciphertext []byte) ([]byte, error) {
	if err := c.deriveKey(); err != nil {
		return nil, err
	}
	return decryptAESGCM(ciphertext, c.aesKey)
}

func (c *CredentialCipher) deriveKey() error {
	if c.aesKey != nil {
		return nil
	}

	encrypted, err := IsSSHKeyEncrypted(c.sshKeyPath)
	if err != nil {
		return fmt.Errorf("failed to check SSH key: %w", err)
	}
	if encrypted && c.passphrase == "" {
		return fmt.Errorf("SSH key is encrypted - passphrase required")
	}

	var signer ssh.Signer
	if encrypted {
		signer, err = LoadSSHPrivateKeyWithPassphrase(c.sshKeyPath, c.passphrase)
	} else {
		signer, err = LoadSSHPrivateKey(c.sshKeyPath)
	}
	if err != nil {
		return fmt.Errorf("failed to load SSH key: %w", err)
	}

	signature, err := signer.Sign(rand.Reader, []byte(keyDerivationMessage))
	if err != nil {
		return fmt.Errorf("failed to sign derivation message: %w", err)
	}

	hash := sha256.Sum256(signature.Blob)
	c.aesKey = hash[:]

	if Debug && DebugLog != nil {
		DebugLog.Printf("[credentials] derived cipher key from %s (passphrase-protected=%v)", c.sshKeyPath, encrypted)
	}
	return nil
}

func encryptAESGCM(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptAESGCM(ciphertext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	plaintext, err := gcm.Open(nil, ciphertext[:nonceSize], ciphertext[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plaintext, nil
}
