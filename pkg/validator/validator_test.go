package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

type testPayload struct {
	Key  string `json:"key" validate:"required,orgkey,max=32"`
	Name string `json:"name" validate:"required,max=64"`
	URL  string `json:"url" validate:"omitempty,url"`
}

func TestValidateStructSuccess(t *testing.T) {
	payload := testPayload{
		Key:  "acme-corp",
		Name: "ACME Corp",
		URL:  "https://acme.example.com",
	}

	if err := ValidateStruct(payload); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateStructFailures(t *testing.T) {
	payload := testPayload{
		Key:  "",
		Name: "",
		URL:  "not a url",
	}

	err := ValidateStruct(payload)
	if err == nil {
		t.Fatal("expected validation error")
	}

	vErrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}

	if len(vErrs) != 3 {
		t.Fatalf("expected 3 validation errors, got %d", len(vErrs))
	}

	foundURL := false
	for _, v := range vErrs {
		if v.Field == "url" {
			foundURL = true
		}
	}

	if !foundURL {
		t.Fatal("expected url field to be present in validation errors")
	}
}

func TestOrgKeyRule(t *testing.T) {
	type keyed struct {
		Key string `validate:"orgkey"`
	}

	valid := []string{"acme", "acme-corp", "a1", "team_ops", "0day"}
	for _, key := range valid {
		if err := ValidateStruct(keyed{Key: key}); err != nil {
			t.Fatalf("expected key %q to validate, got %v", key, err)
		}
	}

	invalid := []string{"Acme", "-acme", "_acme", "acme corp", "acmé", ""}
	for _, key := range invalid {
		if err := ValidateStruct(keyed{Key: key}); err == nil {
			t.Fatalf("expected key %q to fail validation", key)
		}
	}
}

func TestRegisterValidation(t *testing.T) {
	err := RegisterValidation("guarded", func(fl validator.FieldLevel) bool {
		return fl.Field().String() == "guarded"
	})
	if err != nil {
		t.Fatalf("register validation: %v", err)
	}

	type custom struct {
		Value string `validate:"guarded"`
	}

	if err := ValidateStruct(custom{Value: "guarded"}); err != nil {
		t.Fatalf("expected validation to pass, got %v", err)
	}
	if err := ValidateStruct(custom{Value: "other"}); err == nil {
		t.Fatal("expected validation to fail for non-matching value")
	}
}
