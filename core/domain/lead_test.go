package domain

import "testing"

func TestValidateLinkage(t *testing.T) {
	sourceID := int64(5)

	tests := []struct {
		name    string
		lead    *Lead
		wantErr error
	}{
		{"plain lead", &Lead{}, nil},
		{"linked duplicate", &Lead{IsDuplicate: true, DuplicateOfID: &sourceID}, nil},
		{"dangling duplicate", &Lead{IsDuplicate: true}, ErrDuplicateWithoutSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.lead.ValidateLinkage(); err != tt.wantErr {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCanBeLinkTarget(t *testing.T) {
	if (&Lead{IsDuplicate: true}).CanBeLinkTarget() {
		t.Error("duplicate leads must be link leaves")
	}
	if !(&Lead{}).CanBeLinkTarget() {
		t.Error("regular leads can be link targets")
	}
}
