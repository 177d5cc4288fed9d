package cursorauth_test

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/zsprackett/cursor-usage/internal/cursorauth"
)

func mintToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestUserID_SplitsOnPipe(t *testing.T) {
	tok := mintToken(t, jwt.MapClaims{"sub": "abc|def"})
	got, err := cursorauth.UserID(tok)
	if err != nil {
		t.Fatal(err)
	}
	if got != "def" {
		t.Errorf("got %q want def", got)
	}
}

func TestUserID_NoPipe(t *testing.T) {
	tok := mintToken(t, jwt.MapClaims{"sub": "xyz"})
	got, err := cursorauth.UserID(tok)
	if err != nil {
		t.Fatal(err)
	}
	if got != "xyz" {
		t.Errorf("got %q want xyz", got)
	}
}

func TestUserID_KeepsEverythingAfterFirstPipe(t *testing.T) {
	tok := mintToken(t, jwt.MapClaims{"sub": "auth0|user|01"})
	got, _ := cursorauth.UserID(tok)
	if got != "user|01" {
		t.Errorf("got %q want user|01", got)
	}
}

func TestUserID_WrongSegmentCount(t *testing.T) {
	for _, tok := range []string{"", "abc", "a.b", "a.b.c.d"} {
		_, err := cursorauth.UserID(tok)
		if !errors.Is(err, cursorauth.ErrTokenSegments) {
			t.Errorf("UserID(%q): expected ErrTokenSegments, got %v", tok, err)
		}
		if !errors.Is(err, cursorauth.ErrMalformedToken) {
			t.Errorf("UserID(%q): expected ErrMalformedToken, got %v", tok, err)
		}
	}
}

func TestUserID_PaddedPayload(t *testing.T) {
	payload := base64.URLEncoding.EncodeToString([]byte(`{"sub":"github|42"}`))
	got, err := cursorauth.UserID("e30." + payload + ".sig")
	if err != nil {
		t.Fatal(err)
	}
	if got != "42" {
		t.Errorf("got %q want 42", got)
	}
}

func TestUserID_InvalidPayload(t *testing.T) {
	cases := map[string]string{
		"not base64":  "e30.!!!.sig",
		"not json":    "e30." + base64.RawURLEncoding.EncodeToString([]byte("hello")) + ".sig",
		"missing sub": "e30." + base64.RawURLEncoding.EncodeToString([]byte(`{"iss":"x"}`)) + ".sig",
		"empty sub":   "e30." + base64.RawURLEncoding.EncodeToString([]byte(`{"sub":""}`)) + ".sig",
		"numeric sub": "e30." + base64.RawURLEncoding.EncodeToString([]byte(`{"sub":7}`)) + ".sig",
	}
	for name, tok := range cases {
		_, err := cursorauth.UserID(tok)
		if !errors.Is(err, cursorauth.ErrTokenPayload) {
			t.Errorf("%s: expected ErrTokenPayload, got %v", name, err)
		}
	}
}

func TestNewSession(t *testing.T) {
	if _, ok := cursorauth.NewSession("", "user"); ok {
		t.Error("expected no session without token")
	}
	if _, ok := cursorauth.NewSession("tok", ""); ok {
		t.Error("expected no session without user id")
	}
	s, ok := cursorauth.NewSession("a.b.c", "user_01")
	if !ok {
		t.Fatal("expected session")
	}
	want := "NEXT_LOCALE=cn; WorkosCursorSessionToken=user_01%3A%3Aa.b.c"
	if got := s.Cookie(); got != want {
		t.Errorf("cookie:\n got %q\nwant %q", got, want)
	}
}
