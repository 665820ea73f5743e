package db

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateKey(t *testing.T) {
	cases := []struct {
		key  string
		want error
	}{
		{"key", nil},
		{"with.dots", nil},
		{"...", nil},
		{"UPPER_lower-123", nil},
		{strings.Repeat("k", NameMax), nil},
		{strings.Repeat("k", NameMax+1), ErrKeyTooLong},
		{"", ErrInvalidKey},
		{".", ErrInvalidKey},
		{"..", ErrInvalidKey},
		{"a/b", ErrInvalidKey},
		{"/abs", ErrInvalidKey},
		{"nul\x00", ErrInvalidKey},
	}

	for _, c := range cases {
		err := ValidateKey(c.key)
		if !errors.Is(err, c.want) || (c.want == nil && err != nil) {
			t.Errorf("ValidateKey(%q) = %v, want %v", c.key, err, c.want)
		}
	}
}

func TestFeatures(t *testing.T) {
	mask := FeatureInsert | FeatureSelect | FeatureCapacitySignal
	got := mask.Features()
	if len(got) != 3 || got[0] != FeatureInsert || got[1] != FeatureSelect || got[2] != FeatureCapacitySignal {
		t.Errorf("Features() = %v", got)
	}
	if FeatureExist.String() != "Exist" || Feature(1<<40).String() != "Unknown" {
		t.Error("unexpected feature names")
	}
}

func TestWriteResultShort(t *testing.T) {
	if (WriteResult{Requested: 4, Written: 4}).Short() {
		t.Error("complete write reported as short")
	}
	if !(WriteResult{Requested: 4, Written: 3}).Short() {
		t.Error("short write not detected")
	}
}

func TestResultLabel(t *testing.T) {
	if got := resultLabel(nil); got != "ok" {
		t.Errorf("resultLabel(nil) = %s", got)
	}
	if got := resultLabel(ValidateKey("..")); got != "invalid" {
		t.Errorf("resultLabel(invalid) = %s", got)
	}
	if got := resultLabel(errors.New("boom")); got != "error" {
		t.Errorf("resultLabel(other) = %s", got)
	}
}
