package bookalope

import (
	"errors"
	"strings"
	"testing"
)

const testToken = "0123456789abcdef0123456789abcdef"

func TestIsToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"valid token", testToken, true},
		{"empty", "", false},
		{"too short", "0123456789abcdef", false},
		{"too long", testToken + "0", false},
		{"uppercase hex", strings.ToUpper(testToken), false},
		{"non-hex characters", "0123456789abcdefg123456789abcdef", false},
		{"embedded whitespace", "0123456789abcdef 123456789abcdef", false},
		{"surrounding text", "x" + testToken + "x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsToken(tt.token); got != tt.want {
				t.Errorf("IsToken(%q) = %v, want %v", tt.token, got, tt.want)
			}
		})
	}
}

func TestSetToken(t *testing.T) {
	c := New("")

	if err := c.SetToken("not-a-token"); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("SetToken error = %v, want ErrMalformedToken", err)
	}
	if c.Token() != "" {
		t.Fatalf("Token() = %q after rejected SetToken, want empty", c.Token())
	}

	if err := c.SetToken(testToken); err != nil {
		t.Fatalf("SetToken returned error: %v", err)
	}
	if c.Token() != testToken {
		t.Fatalf("Token() = %q, want %q", c.Token(), testToken)
	}
}

func TestHostSelection(t *testing.T) {
	if host := New(testToken).Host(); host != ProductionHost {
		t.Errorf("default host = %q, want %q", host, ProductionHost)
	}
	if host := New(testToken, WithBetaHost(true)).Host(); host != BetaHost {
		t.Errorf("beta host = %q, want %q", host, BetaHost)
	}
	if !New(testToken, WithBetaHost(true)).Beta() {
		t.Error("Beta() = false with WithBetaHost(true)")
	}
}
