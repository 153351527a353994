package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "correct horse" || !strings.HasPrefix(hash, "$2") {
		t.Errorf("Hash() = %q, want a bcrypt hash", hash)
	}

	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{name: "correct", password: "correct horse", want: true},
		{name: "wrong", password: "battery staple", want: false},
		{name: "empty", password: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasher.Verify(tt.password, hash); got != tt.want {
				t.Errorf("Verify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewPasswordHasher_CostFallback(t *testing.T) {
	if h := NewPasswordHasher(0); h.cost != DefaultBcryptCost {
		t.Errorf("cost = %d, want %d", h.cost, DefaultBcryptCost)
	}
	if h := NewPasswordHasher(bcrypt.MinCost); h.cost != bcrypt.MinCost {
		t.Errorf("cost = %d, want %d", h.cost, bcrypt.MinCost)
	}
}
