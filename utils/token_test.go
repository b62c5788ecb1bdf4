package utils

import "testing"

func TestJwtRoundTrip(t *testing.T) {
	token, err := JwtGenerate(42, "analyst", "U")
	if err != nil {
		t.Fatalf("JwtGenerate: %v", err)
	}

	parsed, err := JwtValidate(token)
	if err != nil {
		t.Fatalf("JwtValidate: %v", err)
	}
	claims, ok := parsed.Claims.(*JwtCustomClaim)
	if !ok || !parsed.Valid {
		t.Fatalf("token did not parse into JwtCustomClaim")
	}
	if claims.ID != 42 || claims.Username != "analyst" || claims.Role != "U" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Subject == "refresh" {
		t.Fatalf("access token must not carry the refresh subject")
	}
}

func TestJwtValidateRefresh_RejectsAccessToken(t *testing.T) {
	access, err := JwtGenerate(1, "analyst", "U")
	if err != nil {
		t.Fatalf("JwtGenerate: %v", err)
	}
	if _, err := JwtValidateRefresh(access); err == nil {
		t.Fatalf("access token accepted as refresh token")
	}
}

func TestJwtValidateRefresh_AcceptsRefreshToken(t *testing.T) {
	refresh, err := JwtGenerateRefresh(7, "admin", "A")
	if err != nil {
		t.Fatalf("JwtGenerateRefresh: %v", err)
	}
	claims, err := JwtValidateRefresh(refresh)
	if err != nil {
		t.Fatalf("JwtValidateRefresh: %v", err)
	}
	if claims.ID != 7 || claims.Username != "admin" || claims.Role != "A" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestJwtValidate_RejectsGarbage(t *testing.T) {
	if _, err := JwtValidate("not-a-token"); err == nil {
		t.Fatalf("garbage token validated")
	}
}
