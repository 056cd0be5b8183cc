package naming

import (
	"strings"
	"testing"
)

func TestValidateAcronym(t *testing.T) {
	cases := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "upper case", value: "ABC", wantErr: false},
		{name: "mixed with digits", value: "Dh01", wantErr: false},
		{name: "hyphen and underscore", value: "ab-c_d", wantErr: false},
		{name: "max length", value: strings.Repeat("A", acronymMaxLength), wantErr: false},
		{name: "empty", value: "", wantErr: true},
		{name: "too long", value: strings.Repeat("A", acronymMaxLength+1), wantErr: true},
		{name: "leading hyphen", value: "-ABC", wantErr: true},
		{name: "slash", value: "A/B", wantErr: true},
		{name: "dot dot", value: "..", wantErr: true},
		{name: "space", value: "A B", wantErr: true},
		{name: "HEAD", value: "HEAD", wantErr: true},
		{name: "head lower case", value: "head", wantErr: true},
		{name: "main is a branch name", value: "main", wantErr: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateAcronym(tc.value)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error but got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
