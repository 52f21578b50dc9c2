package auth

import (
	"strings"
	"testing"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("changeme")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if hash == "" {
		t.Fatal("HashPassword returned empty hash")
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("hash should be argon2id encoded, got %s", hash)
	}
}

func TestHashPassword_Salted(t *testing.T) {
	first, err := HashPassword("changeme")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	second, err := HashPassword("changeme")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if first == second {
		t.Fatal("two hashes of the same password should differ (random salt)")
	}
}

func TestCheckPassword_Correct(t *testing.T) {
	hash, err := HashPassword("changeme")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	valid, err := CheckPassword("changeme", hash)
	if err != nil {
		t.Fatalf("CheckPassword error: %v", err)
	}
	if !valid {
		t.Fatal("Correct password was rejected")
	}
}

func TestCheckPassword_Wrong(t *testing.T) {
	hash, err := HashPassword("changeme")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	valid, err := CheckPassword("wrongpassword", hash)
	if err != nil {
		t.Fatalf("CheckPassword error: %v", err)
	}
	if valid {
		t.Fatal("Wrong password was accepted")
	}
}

func TestCheckPassword_MalformedHash(t *testing.T) {
	if _, err := CheckPassword("changeme", "not-a-hash"); err == nil {
		t.Fatal("malformed hash should return an error")
	}
	if _, err := CheckPassword("changeme", "$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA"); err == nil {
		t.Fatal("non-argon2id hash should return an error")
	}
}

func TestNeedsRehash(t *testing.T) {
	hash, err := HashPassword("changeme")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if NeedsRehash(hash) {
		t.Fatal("freshly created hash should not need a rehash")
	}

	// Old parameters (64MB memory) should trigger a rehash
	oldHash := "$argon2id$v=19$m=65536,t=1,p=4$mucMvOaS6lZ2LWNS1OEFKw$UYEWv8cvCOO6l2zGeqv3JPVe1nyy0x9GXBfYEuDM544"
	if !NeedsRehash(oldHash) {
		t.Fatal("hash with old parameters should need a rehash")
	}

	if !NeedsRehash("garbage") {
		t.Fatal("malformed hash should need a rehash")
	}
}
