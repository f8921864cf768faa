package utils

import (
	"strings"
	"testing"
)

func TestGenerateInviteCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code := GenerateInviteCode()
		if len(code) != 8 {
			t.Fatalf("invite code %q has length %d, want 8", code, len(code))
		}
		if code != strings.ToUpper(code) {
			t.Fatalf("invite code %q is not uppercase", code)
		}
		seen[code] = true
	}
	if len(seen) < 90 {
		t.Errorf("only %d distinct codes out of 100", len(seen))
	}
}

func TestIsValidHexColor(t *testing.T) {
	valid := []string{"#3B82F6", "#fff", "#000000", "#AbCdEf"}
	for _, c := range valid {
		if !IsValidHexColor(c) {
			t.Errorf("%q should be valid", c)
		}
	}
	invalid := []string{"", "3B82F6", "#3B82F", "#GGGGGG", "#12345678", "red"}
	for _, c := range invalid {
		if IsValidHexColor(c) {
			t.Errorf("%q should be invalid", c)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"my file (1).txt", "my_file_1_.txt"},
		{"../../etc/passwd", ".._.._etc_passwd"},
		{"___x___", "x"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGenerateFileName(t *testing.T) {
	name := GenerateFileName("quarterly report.pdf")
	if !strings.HasSuffix(name, ".pdf") {
		t.Errorf("generated name %q lost its extension", name)
	}
	if !strings.HasPrefix(name, "quarterly_report-") {
		t.Errorf("generated name %q lost its base", name)
	}
	if name == GenerateFileName("quarterly report.pdf") {
		t.Error("two generated names should differ")
	}
}

func TestGetPagination(t *testing.T) {
	tests := []struct {
		page, limit string
		wantPage    int
		wantLimit   int
		wantSkip    int
	}{
		{"", "", 1, 50, 0},
		{"1", "20", 1, 20, 0},
		{"3", "10", 3, 10, 20},
		{"0", "10", 1, 10, 0},
		{"-5", "10", 1, 10, 0},
		{"2", "0", 2, 50, 50},
		{"2", "500", 2, 50, 50},
		{"abc", "xyz", 1, 50, 0},
	}
	for _, tt := range tests {
		p := GetPagination(tt.page, tt.limit, 50)
		if p.Page != tt.wantPage || p.Limit != tt.wantLimit || p.Skip != tt.wantSkip {
			t.Errorf("GetPagination(%q, %q) = %+v, want page=%d limit=%d skip=%d",
				tt.page, tt.limit, p, tt.wantPage, tt.wantLimit, tt.wantSkip)
		}
	}
}

func TestTokenRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := GenerateToken("64f1c0ffee0000000000abcd")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != "64f1c0ffee0000000000abcd" {
		t.Errorf("claims.UserID = %q", claims.UserID)
	}
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := GenerateToken("64f1c0ffee0000000000abcd")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := ValidateToken(token + "x"); err == nil {
		t.Error("tampered token should fail validation")
	}
	if _, err := ValidateToken("not-a-token"); err == nil {
		t.Error("garbage token should fail validation")
	}

	t.Setenv("JWT_SECRET", "different-secret")
	if _, err := ValidateToken(token); err == nil {
		t.Error("token signed with another secret should fail")
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pw")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "s3cret-pw" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !CheckPassword(hash, "s3cret-pw") {
		t.Error("correct password should verify")
	}
	if CheckPassword(hash, "wrong-pw") {
		t.Error("wrong password should not verify")
	}
}
