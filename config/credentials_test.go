package config

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/ssh"
)

func TestCredentialStorePlainTextRoundTrip(t *testing.T) {
	dataDir := t.TempDir()

	store := NewCredentialStore(SecurityPlainText, "")
	if err := store.Set("anthropic", "sk-ant-test"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set("openai", "sk-test"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Save(dataDir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(dataDir, "credentials.toml"))
	if err != nil {
		t.Fatalf("stat credentials.toml: %v", err)
	}
	if perms := info.Mode().Perm(); perms != 0600 {
		t.Errorf("credentials.toml permissions = %o, want 0600", perms)
	}

	reloaded := NewCredentialStore(SecurityPlainText, "")
	if err := reloaded.Load(dataDir); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := reloaded.Get("anthropic"); got != "sk-ant-test" {
		t.Errorf("Get(anthropic) = %q, want sk-ant-test", got)
	}
	if got := reloaded.Get("openai"); got != "sk-test" {
		t.Errorf("Get(openai) = %q, want sk-test", got)
	}
}

func TestCredentialStoreLoadMissingFile(t *testing.T) {
	store := NewCredentialStore(SecurityPlainText, "")
	if err := store.Load(t.TempDir()); err != nil {
		t.Fatalf("Load of missing file should succeed: %v", err)
	}
	if got := store.Get("anthropic"); got != "" {
		t.Errorf("Get on empty store = %q, want empty", got)
	}
}

func TestCredentialStoreDelete(t *testing.T) {
	store := NewCredentialStore(SecurityPlainText, "")
	store.Set("openai", "sk-test")
	if err := store.Delete("openai"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got := store.Get("openai"); got != "" {
		t.Errorf("Get after Delete = %q, want empty", got)
	}
}

func TestCredentialStoreUnknownMethod(t *testing.T) {
	store := NewCredentialStore(SecurityMethod("keychain"), "")
	if err := store.Load(t.TempDir()); err == nil {
		t.Error("Load with unknown method should fail")
	}
	if err := store.Save(t.TempDir()); err == nil {
		t.Error("Save with unknown method should fail")
	}
}

func TestAESGCMRoundTrip(t *testing.T) {
	key := sha256.Sum256([]byte("test key material"))
	plaintext := []byte(`{"anthropic":"sk-ant-test"}`)

	ciphertext, err := encryptAESGCM(plaintext, key[:])
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if bytes.Contains(ciphertext, []byte("sk-ant-test")) {
		t.Error("ciphertext contains plaintext credential")
	}

	decrypted, err := decryptAESGCM(ciphertext, key[:])
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("round trip mismatch: got %q", decrypted)
	}
}

func TestAESGCMTamperDetection(t *testing.T) {
	key := sha256.Sum256([]byte("test key material"))

	ciphertext, err := encryptAESGCM([]byte("secret"), key[:])
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	// Flip a byte in the ciphertext body
	ciphertext[len(ciphertext)-1] ^= 0xFF
	if _, err := decryptAESGCM(ciphertext, key[:]); err == nil {
		t.Error("decrypt of tampered ciphertext should fail")
	}
}

func TestDecryptAESGCMShortCiphertext(t *testing.T) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("rand: %v", err)
	}
	if _, err := decryptAESGCM([]byte{0x01, 0x02}, key); err == nil {
		t.Error("decrypt of truncated ciphertext should fail")
	}
}

// writeTestSSHKey generates an unprotected ed25519 key in OpenSSH format
// and returns its path.
func writeTestSSHKey(t *testing.T) string {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	block, err := ssh.MarshalPrivateKey(priv, "test key")
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}

	path := filepath.Join(t.TempDir(), "id_ed25519")
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	return path
}

func TestCredentialCipherRoundTrip(t *testing.T) {
	keyPath := writeTestSSHKey(t)
	plaintext := []byte(`{"anthropic":"sk-ant-test"}`)

	sealed, err := NewCredentialCipher(keyPath).Seal(plaintext)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if bytes.Contains(sealed, []byte("sk-ant-test")) {
		t.Error("sealed output contains plaintext credential")
	}

	// A fresh cipher over the same key must derive the same AES key.
	opened, err := NewCredentialCipher(keyPath).Open(sealed)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Errorf("round trip mismatch: got %q", opened)
	}
}

func TestCredentialCipherMissingKey(t *testing.T) {
	cipher := NewCredentialCipher("/nonexistent/key")
	if _, err := cipher.Seal([]byte("data")); err == nil {
		t.Error("Seal without an SSH key on disk should fail")
	}
}

func TestCredentialStoreSSHKeyRoundTrip(t *testing.T) {
	dataDir := t.TempDir()
	keyPath := writeTestSSHKey(t)

	store := NewCredentialStore(SecuritySSHKey, keyPath)
	store.Set("anthropic", "sk-ant-test")
	if err := store.Save(dataDir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dataDir, "credentials.enc"))
	if err != nil {
		t.Fatalf("read credentials.enc: %v", err)
	}
	if bytes.Contains(raw, []byte("sk-ant-test")) {
		t.Error("encrypted credential file contains plaintext credential")
	}

	reloaded := NewCredentialStore(SecuritySSHKey, keyPath)
	if err := reloaded.Load(dataDir); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := reloaded.Get("anthropic"); got != "sk-ant-test" {
		t.Errorf("Get(anthropic) = %q, want sk-ant-test", got)
	}
}
