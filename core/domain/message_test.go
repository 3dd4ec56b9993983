package domain

import (
	"reflect"
	"testing"
)

func TestParseReferences(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", []string{}},
		{"single", "<a@x>", []string{"<a@x>"}},
		{"space separated", "<a@x> <b@y>", []string{"<a@x>", "<b@y>"}},
		{"folded header", "<a@x>\r\n <b@y>\n\t<c@z>", []string{"<a@x>", "<b@y>", "<c@z>"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseReferences(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestReferencedIDs(t *testing.T) {
	h := &HeaderBundle{
		InReplyTo:  "<last@x>",
		References: []string{"<first@x>", "", "<mid@x>"},
	}

	got := h.ReferencedIDs()
	want := []string{"<last@x>", "<first@x>", "<mid@x>"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	empty := &HeaderBundle{}
	if ids := empty.ReferencedIDs(); len(ids) != 0 {
		t.Errorf("expected no IDs for empty bundle, got %v", ids)
	}
}

func TestIsForwardSubject(t *testing.T) {
	tests := []struct {
		subject string
		want    bool
	}{
		{"Fwd: Quote request", true},
		{"FW: urgent", true},
		{"forward: old thread", true},
		{"  fwd: padded", true},
		{"Re: Fwd: nested reply", false},
		{"Quote request", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsForwardSubject(tt.subject); got != tt.want {
			t.Errorf("IsForwardSubject(%q) = %v, want %v", tt.subject, got, tt.want)
		}
	}
}

func TestStripForwardPrefix(t *testing.T) {
	tests := []struct {
		subject string
		want    string
	}{
		{"Fwd: Quote request", "Quote request"},
		{"FW: urgent", "urgent"},
		{"Fwd: Fwd: twice", "Fwd: twice"},
		{"Quote request", "Quote request"},
	}

	for _, tt := range tests {
		if got := StripForwardPrefix(tt.subject); got != tt.want {
			t.Errorf("StripForwardPrefix(%q) = %q, want %q", tt.subject, got, tt.want)
		}
	}
}
