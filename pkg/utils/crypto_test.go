package utils

import (
	"errors"
	"testing"
)

func withEncryptionKey(t *testing.T, secret string) {
	t.Helper()
	original := encryptionKey
	t.Cleanup(func() { encryptionKey = original })
	encryptionKey = nil
	ConfigureEncryption(secret)
}

func TestConfigureEncryption(t *testing.T) {
	withEncryptionKey(t, "")
	if encryptionKey != nil {
		t.Fatal("expected empty secret to leave encryption unconfigured")
	}
	if _, err := EncryptAESGCM("x"); !errors.Is(err, ErrEncryptionNotConfigured) {
		t.Fatalf("expected ErrEncryptionNotConfigured, got %v", err)
	}

	ConfigureEncryption("linked-account-secret")
	if len(encryptionKey) != 32 {
		t.Fatalf("expected a 32 byte key, got %d bytes", len(encryptionKey))
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	withEncryptionKey(t, "linked-account-secret")

	for _, plaintext := range []string{"", "access-token", "ünïcödé 🌍", string([]byte{0, 1, 255})} {
		sealed, err := EncryptAESGCM(plaintext)
		if err != nil {
			t.Fatalf("EncryptAESGCM(%q) error = %v", plaintext, err)
		}
		if sealed == plaintext && plaintext != "" {
			t.Fatalf("expected ciphertext to differ from %q", plaintext)
		}
		opened, err := DecryptAESGCM(sealed)
		if err != nil {
			t.Fatalf("DecryptAESGCM() error = %v", err)
		}
		if opened != plaintext {
			t.Fatalf("round trip got %q, want %q", opened, plaintext)
		}
	}
}

func TestDecryptAESGCMFailures(t *testing.T) {
	withEncryptionKey(t, "linked-account-secret")
	sealed, err := EncryptAESGCM("refresh-token")
	if err != nil {
		t.Fatalf("EncryptAESGCM() error = %v", err)
	}

	if _, err := DecryptAESGCM("not-valid-base64!!!"); err == nil {
		t.Error("expected invalid base64 to fail")
	}
	if _, err := DecryptAESGCM("YWJj"); !errors.Is(err, ErrCiphertextTooShort) {
		t.Errorf("expected ErrCiphertextTooShort, got %v", err)
	}

	ConfigureEncryption("another-secret")
	if _, err := DecryptAESGCM(sealed); err == nil {
		t.Error("expected decryption with a different key to fail")
	}
}

func TestDecryptOrPlaintext(t *testing.T) {
	withEncryptionKey(t, "linked-account-secret")
	sealed, err := EncryptAESGCM("secret")
	if err != nil {
		t.Fatalf("EncryptAESGCM() error = %v", err)
	}

	cases := map[string]string{
		"":          "",
		sealed:      "secret",
		"plaintext": "plaintext",
	}
	for input, want := range cases {
		if got := DecryptOrPlaintext(input); got != want {
			t.Errorf("DecryptOrPlaintext(%q) = %q, want %q", input, got, want)
		}
	}
}
