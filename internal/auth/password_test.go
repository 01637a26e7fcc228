package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"minimum length with digit", "abcde1", nil},
		{"too short", "abc1", ErrPasswordTooShort},
		{"no digit", "abcdefgh", ErrPasswordNoDigit},
		{"exactly 72 bytes", strings.Repeat("a", 71) + "1", nil},
		{"73 bytes", strings.Repeat("a", 72) + "1", ErrPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidatePassword(%q) = %v, want %v", tt.password, err, tt.wantErr)
			}
		})
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword(testPassword, 4)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == testPassword {
		t.Error("hash must differ from the password")
	}

	if _, err := HashPassword("short", 4); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("HashPassword(short) error = %v, want %v", err, ErrPasswordTooShort)
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword(testPassword, 4)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if err := CheckPassword(testPassword, hash); err != nil {
		t.Errorf("CheckPassword(correct) = %v", err)
	}
	if err := CheckPassword("wrong123", hash); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("CheckPassword(wrong) = %v, want %v", err, ErrInvalidPassword)
	}
	if err := CheckPassword(testPassword, ""); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("CheckPassword(empty hash) = %v, want %v", err, ErrInvalidPassword)
	}
}

func TestGenerateAPIToken(t *testing.T) {
	plain, hash, err := GenerateAPIToken()
	if err != nil {
		t.Fatalf("GenerateAPIToken() error = %v", err)
	}
	if len(plain) != 64 {
		t.Errorf("token length = %d, want 64", len(plain))
	}
	if hash != HashToken(plain) {
		t.Error("hash does not match HashToken(plaintext)")
	}

	other, _, _ := GenerateAPIToken()
	if other == plain {
		t.Error("two generated tokens are equal")
	}
}

func TestGenerateSessionSecret(t *testing.T) {
	secret, err := GenerateSessionSecret()
	if err != nil {
		t.Fatalf("GenerateSessionSecret() error = %v", err)
	}
	if len(secret) != 64 {
		t.Errorf("secret length = %d, want 64", len(secret))
	}
}
