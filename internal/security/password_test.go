package security

import "testing"

func TestHashPassword_NotPlaintext(t *testing.T) {
	hash, err := HashPassword("secret1")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	if hash == "secret1" {
		t.Fatalf("hash must not equal plaintext")
	}

	other, err := HashPassword("secret1")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if hash == other {
		t.Fatalf("hashes of the same password should be salted differently")
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("secret1")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	tests := []struct {
		name  string
		hash  string
		plain string
		want  bool
	}{
		{name: "match", hash: hash, plain: "secret1", want: true},
		{name: "mismatch", hash: hash, plain: "wrong", want: false},
		{name: "malformed_hash", hash: "not-a-bcrypt-hash", plain: "secret1", want: false},
		{name: "empty_hash", hash: "", plain: "secret1", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckPassword(tt.hash, tt.plain); got != tt.want {
				t.Fatalf("CheckPassword() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHashPassword_Empty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Fatalf("expected error for empty password")
	}
}
