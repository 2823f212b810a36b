package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	t.Parallel()

	h := NewBcryptHasher(MinBcryptCost)
	hash, err := h.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	if hash == "secret1" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !strings.HasPrefix(hash, "$2a$10$") {
		t.Errorf("unexpected bcrypt prefix: %s", hash)
	}

	ok, err := h.Verify("secret1", hash)
	if err != nil || !ok {
		t.Errorf("Verify(correct) = %v, %v; want true, nil", ok, err)
	}

	ok, err = h.Verify("wrong", hash)
	if err != nil || ok {
		t.Errorf("Verify(wrong) = %v, %v; want false, nil", ok, err)
	}
}

func TestBcryptHasher_CostFloor(t *testing.T) {
	t.Parallel()

	if got := NewBcryptHasher(4).cost; got != MinBcryptCost {
		t.Errorf("cost = %d, want %d", got, MinBcryptCost)
	}
	if got := NewBcryptHasher(12).cost; got != 12 {
		t.Errorf("cost = %d, want 12", got)
	}
}

func TestBcryptHasher_Uniqueness(t *testing.T) {
	t.Parallel()

	h := NewBcryptHasher(MinBcryptCost)
	a, _ := h.Hash("same-password")
	b, _ := h.Hash("same-password")
	if a == b {
		t.Error("same password should produce different hashes due to random salt")
	}
}

func TestBcryptHasher_TooLong(t *testing.T) {
	t.Parallel()

	_, err := NewBcryptHasher(MinBcryptCost).Hash(strings.Repeat("a", 73))
	if !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("err = %v, want ErrPasswordTooLong", err)
	}
}

func TestHashPasswordArgon2_Format(t *testing.T) {
	t.Parallel()

	hash, err := HashPasswordArgon2("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPasswordArgon2 failed: %v", err)
	}

	parts := strings.Split(hash, "$")
	if len(parts) != 6 {
		t.Fatalf("hash should have 6 parts, got %d", len(parts))
	}
	if parts[1] != "argon2id" || parts[2] != "v=19" || parts[3] != "m=65536,t=3,p=4" {
		t.Errorf("unexpected PHC header: %s", hash)
	}
}

func TestVerifyPassword_DispatchesOnPrefix(t *testing.T) {
	t.Parallel()

	argonHash, err := Argon2Hasher{}.Hash("pa55word")
	if err != nil {
		t.Fatalf("argon2 hash: %v", err)
	}
	bcryptHash, err := NewBcryptHasher(MinBcryptCost).Hash("pa55word")
	if err != nil {
		t.Fatalf("bcrypt hash: %v", err)
	}

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
		wantErr  error
	}{
		{"argon2 match", "pa55word", argonHash, true, nil},
		{"argon2 mismatch", "nope", argonHash, false, nil},
		{"bcrypt match", "pa55word", bcryptHash, true, nil},
		{"bcrypt mismatch", "nope", bcryptHash, false, nil},
		{"unknown format", "pa55word", "plaintext", false, ErrInvalidHash},
		{"truncated argon2", "pa55word", "$argon2id$v=19$m=65536", false, ErrInvalidHash},
		{"wrong argon2 version", "pa55word", "$argon2id$v=16$m=65536,t=3,p=4$c2FsdA$aGFzaA", false, ErrIncompatibleVersion},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := VerifyPassword(tt.password, tt.hash)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("VerifyPassword() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewHasher(t *testing.T) {
	t.Parallel()

	if h, err := NewHasher("", 10); err != nil {
		t.Errorf("default hasher: %v", err)
	} else if _, ok := h.(*BcryptHasher); !ok {
		t.Errorf("default hasher = %T, want *BcryptHasher", h)
	}

	if h, err := NewHasher(HasherArgon2id, 10); err != nil {
		t.Errorf("argon2id hasher: %v", err)
	} else if _, ok := h.(Argon2Hasher); !ok {
		t.Errorf("argon2id hasher = %T, want Argon2Hasher", h)
	}

	if _, err := NewHasher("md5", 10); err == nil {
		t.Error("expected error for unknown hasher")
	}
}
