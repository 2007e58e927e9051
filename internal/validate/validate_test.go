package validate

import (
	"errors"
	"testing"
)

type signup struct {
	FirstName string `json:"firstName" validate:"required,personname"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"omitempty,ngphone"`
	Password  string `json:"password" validate:"required,strongpassword"`
	Confirm   string `json:"confirmPassword" validate:"required,eqfield=Password"`
	Terms     bool   `json:"terms" validate:"accepted"`
}

func TestStructReportsFieldsByJSONName(t *testing.T) {
	err := Struct(signup{
		FirstName: "A",
		Email:     "not-an-email",
		Phone:     "12345",
		Password:  "weak",
		Confirm:   "different",
	})
	var verrs Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("err = %v, want Errors", err)
	}
	for _, field := range []string{"firstName", "email", "phone", "password", "confirmPassword", "terms"} {
		if verrs[field] == "" {
			t.Errorf("missing error for %s (got %v)", field, verrs)
		}
	}
	if verrs["confirmPassword"] != "Passwords do not match" {
		t.Errorf("confirm message = %q", verrs["confirmPassword"])
	}
}

func TestStructAcceptsValidInput(t *testing.T) {
	err := Struct(signup{
		FirstName: "Ada-Mary",
		Email:     "ada@example.com",
		Phone:     "+2348012345678",
		Password:  "Secure@123",
		Confirm:   "Secure@123",
		Terms:     true,
	})
	if err != nil {
		t.Fatalf("Struct = %v", err)
	}
}

func TestNigerianPhone(t *testing.T) {
	tests := map[string]bool{
		"08012345678":    true,
		"+2348012345678": true,
		"0801 234 5678":  true,
		"0012345678":     false,
		"+23480123456":   false,
		"8012345678":     false,
		"":               false,
	}
	for in, want := range tests {
		if got := IsNigerianPhone(in); got != want {
			t.Errorf("IsNigerianPhone(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestStrongPassword(t *testing.T) {
	tests := map[string]bool{
		"Secure@123": true,
		"secure@123": false,
		"Secure1234": false,
		"Sec@1":      false,
		"Secure@12#": false,
		"SECURE@123": true,
	}
	for in, want := range tests {
		if got := IsStrongPassword(in); got != want {
			t.Errorf("IsStrongPassword(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestPasswordStrength(t *testing.T) {
	if PasswordStrength("abc") != 0 {
		t.Error("weak password scored")
	}
	if PasswordStrength("Secure@123") != 4 {
		t.Errorf("strong password scored %d", PasswordStrength("Secure@123"))
	}
}
