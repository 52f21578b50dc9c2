package auth

import (
	"strings"
	"testing"
)

func TestGravatarURL(t *testing.T) {
	// Known digest for "user@example.com" from the gravatar documentation convention
	got := GravatarURL("user@example.com")
	want := "https://www.gravatar.com/avatar/b58996c504c5638798eb6b511e6f49af?s=80&d=retro"
	if got != want {
		t.Errorf("GravatarURL() = %q, want %q", got, want)
	}
}

func TestGravatarURL_Normalizes(t *testing.T) {
	a := GravatarURL("user@example.com")
	b := GravatarURL("  USER@Example.COM ")
	if a != b {
		t.Errorf("gravatar URLs should match after normalization: %q != %q", a, b)
	}
	if !strings.Contains(a, "s=80") {
		t.Errorf("gravatar URL should request the avatar size, got %q", a)
	}
}
