package azdevops

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
)

type fakeCredential struct {
	scopes []string
	err    error
}

func (f *fakeCredential) GetToken(_ context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	f.scopes = opts.Scopes
	if f.err != nil {
		return azcore.AccessToken{}, f.err
	}
	return azcore.AccessToken{Token: "secret-token"}, nil
}

func TestCredentialAccessToken(t *testing.T) {
	fc := &fakeCredential{}
	c := &Credential{TokenCredential: fc, Scopes: []string{Scope}}
	tok, err := c.AccessToken(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if tok != "secret-token" {
		t.Errorf("token = %q", tok)
	}
	if len(fc.scopes) != 1 || fc.scopes[0] != Scope {
		t.Errorf("scopes = %v", fc.scopes)
	}

	fc.err = errors.New("expired")
	if _, err := c.AccessToken(context.Background()); err == nil || !strings.Contains(err.Error(), "expired") {
		t.Errorf("err = %v", err)
	}
}

func TestNewTokenProvider(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]string
		wantNil  bool
		wantErr  string
	}{
		{name: "missing method", settings: map[string]string{}, wantErr: "AZURE_AUTH_METHOD must be specified"},
		{name: "none", settings: map[string]string{"AZURE_AUTH_METHOD": "none"}, wantNil: true},
		{name: "unsupported", settings: map[string]string{"AZURE_AUTH_METHOD": "kerberos"}, wantErr: "unsupported AZURE_AUTH_METHOD"},
		{name: "client secret incomplete", settings: map[string]string{"AZURE_AUTH_METHOD": "client_secret", "AZURE_TENANT_ID": "t"}, wantErr: "client_secret auth requires"},
		{name: "workload identity incomplete", settings: map[string]string{"AZURE_AUTH_METHOD": "workload_identity"}, wantErr: "workload_identity auth requires"},
		{
			name: "client secret",
			settings: map[string]string{
				"AZURE_AUTH_METHOD":   "client_secret",
				"AZURE_TENANT_ID":     "00000000-0000-0000-0000-000000000001",
				"AZURE_CLIENT_ID":     "00000000-0000-0000-0000-000000000002",
				"AZURE_CLIENT_SECRET": "s3cr3t",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp, err := NewTokenProvider(tt.settings)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantNil != (tp == nil) {
				t.Errorf("provider = %v, wantNil %v", tp, tt.wantNil)
			}
		})
	}
}

func TestGitUsername(t *testing.T) {
	if got := GitUsername(map[string]string{"AZURE_CLIENT_ID": "cid"}); got != "cid" {
		t.Errorf("GitUsername = %q", got)
	}
	if got := GitUsername(nil); got != "provisioner" {
		t.Errorf("GitUsername(nil) = %q", got)
	}
}
