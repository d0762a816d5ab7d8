package decoder

import (
	"reflect"
	"testing"
)

func TestFilter_Accept(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		payload  string
		want     bool
	}{
		{name: "no patterns accepts anything", payload: "anything", want: true},
		{name: "empty payload is never accepted", payload: "", want: false},
		{name: "empty payload with patterns", patterns: []string{"*"}, payload: "", want: false},
		{name: "prefix match", patterns: []string{"SKU-*"}, payload: "SKU-1042", want: true},
		{name: "prefix miss", patterns: []string{"SKU-*"}, payload: "LOT-1042", want: false},
		{name: "any of several", patterns: []string{"SKU-*", "LOT-*"}, payload: "LOT-7", want: true},
		{name: "character class", patterns: []string{"BIN-[0-9][0-9]"}, payload: "BIN-07", want: true},
		{name: "character class miss", patterns: []string{"BIN-[0-9][0-9]"}, payload: "BIN-7A", want: false},
		{name: "alternation", patterns: []string{"{SKU,LOT}-?"}, payload: "SKU-9", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFilter(tt.patterns)
			if err != nil {
				t.Fatalf("NewFilter() error = %v", err)
			}
			if got := f.Accept(tt.payload); got != tt.want {
				t.Errorf("Accept(%q) = %v, want %v", tt.payload, got, tt.want)
			}
		})
	}
}

func TestFilter_NilAcceptsNonEmpty(t *testing.T) {
	var f *Filter
	if !f.Accept("SKU-1") {
		t.Error("nil filter should accept a non-empty payload")
	}
	if f.Accept("") {
		t.Error("nil filter should reject an empty payload")
	}
	if f.Patterns() != nil {
		t.Error("nil filter should have no patterns")
	}
}

func TestNewFilter_InvalidPattern(t *testing.T) {
	if _, err := NewFilter([]string{"SKU-[unterminated"}); err == nil {
		t.Error("NewFilter() should reject an unterminated character class")
	}
}

func TestFilter_Patterns(t *testing.T) {
	patterns := []string{"SKU-*", "LOT-*"}
	f, err := NewFilter(patterns)
	if err != nil {
		t.Fatalf("NewFilter() error = %v", err)
	}
	if !reflect.DeepEqual(f.Patterns(), patterns) {
		t.Errorf("Patterns() = %v, want %v", f.Patterns(), patterns)
	}
}
