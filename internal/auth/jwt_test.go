package auth

import (
	"testing"
	"time"
)

func TestGenerateAndParsePair(t *testing.T) {
	tm := NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, time.Hour)

	access, refresh, exp, err := tm.GeneratePair("u1", "admin")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if access == refresh {
		t.Fatal("access and refresh tokens identical")
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("access expiry in the past: %v", exp)
	}

	claims, isRefresh, err := tm.ParseAny(access)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if isRefresh {
		t.Fatal("access token parsed as refresh")
	}
	if claims.UserID != "u1" || claims.Role != "admin" {
		t.Fatalf("claims = %+v", claims)
	}

	claims, isRefresh, err = tm.ParseAny(refresh)
	if err != nil {
		t.Fatalf("parse refresh: %v", err)
	}
	if !isRefresh {
		t.Fatal("refresh token parsed as access")
	}
	if claims.UserID != "u1" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseRejectsForeignSignature(t *testing.T) {
	tm := NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, time.Hour)
	other := NewTokenManager("different", "also-different", 15*time.Minute, time.Hour)

	access, _, _, err := other.GeneratePair("u1", "user")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, _, err := tm.ParseAny(access); err == nil {
		t.Fatal("token signed with a different secret was accepted")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	tm := NewTokenManager("access-secret", "refresh-secret", -time.Minute, -time.Minute)

	access, _, _, err := tm.GeneratePair("u1", "user")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, _, err := tm.ParseAny(access); err == nil {
		t.Fatal("expired token was accepted")
	}
}
