package azdevops

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/yaegashi/resourceprovisioner/domain/model"
)

// Scope is the Entra ID resource scope of Azure DevOps.
const Scope = "499b84ac-1321-427f-aa17-267ca6975798/.default"

// AuthMethodNone disables authentication (local or anonymous remotes).
const AuthMethodNone = "none"

// Credential adapts an azcore.TokenCredential to model.TokenProvider. A
// fresh token is requested on every call; azidentity caches internally.
type Credential struct {
	TokenCredential azcore.TokenCredential
	Scopes          []string
}

// AccessToken returns a bearer token for Azure DevOps.
func (c *Credential) AccessToken(ctx context.Context) (string, error) {
	tok, err := c.TokenCredential.GetToken(ctx, policy.TokenRequestOptions{Scopes: c.Scopes})
	if err != nil {
		return "", fmt.Errorf("get Azure DevOps token: %w", err)
	}
	return tok.Token, nil
}

// NewTokenProvider builds a token provider from settings keyed like the Azure
// SDK environment. AZURE_AUTH_METHOD selects the credential type; "none"
// returns a nil provider.
func NewTokenProvider(settings map[string]string) (model.TokenProvider, error) {
	get := func(k string) string { return settings[k] }

	authMethod := get("AZURE_AUTH_METHOD")
	if authMethod == "" {
		return nil, fmt.Errorf("AZURE_AUTH_METHOD must be specified")
	}

	var cred azcore.TokenCredential
	var err error
	switch authMethod {
	case AuthMethodNone:
		return nil, nil
	case "client_secret":
		tenantID := get("AZURE_TENANT_ID")
		clientID := get("AZURE_CLIENT_ID")
		clientSecret := get("AZURE_CLIENT_SECRET")
		if tenantID == "" || clientID == "" || clientSecret == "" {
			return nil, fmt.Errorf("client_secret auth requires AZURE_TENANT_ID, AZURE_CLIENT_ID, AZURE_CLIENT_SECRET")
		}
		cred, err = azidentity.NewClientSecretCredential(tenantID, clientID, clientSecret, nil)
	case "managed_identity":
		opts := &azidentity.ManagedIdentityCredentialOptions{}
		if clientID := get("AZURE_CLIENT_ID"); clientID != "" {
			opts.ID = azidentity.ClientID(clientID)
		}
		cred, err = azidentity.NewManagedIdentityCredential(opts)
	case "workload_identity":
		tenantID := get("AZURE_TENANT_ID")
		clientID := get("AZURE_CLIENT_ID")
		tokenFile := get("AZURE_FEDERATED_TOKEN_FILE")
		if tenantID == "" || clientID == "" || tokenFile == "" {
			return nil, fmt.Errorf("workload_identity auth requires AZURE_TENANT_ID, AZURE_CLIENT_ID, AZURE_FEDERATED_TOKEN_FILE")
		}
		cred, err = azidentity.NewWorkloadIdentityCredential(&azidentity.WorkloadIdentityCredentialOptions{
			TenantID:      tenantID,
			ClientID:      clientID,
			TokenFilePath: tokenFile,
		})
	case "azure_cli":
		cred, err = azidentity.NewAzureCLICredential(nil)
	case "azure_developer_cli":
		cred, err = azidentity.NewAzureDeveloperCLICredential(nil)
	default:
		return nil, fmt.Errorf("unsupported AZURE_AUTH_METHOD: %s", authMethod)
	}
	if err != nil {
		return nil, fmt.Errorf("create Azure credential: %w", err)
	}
	return &Credential{TokenCredential: cred, Scopes: []string{Scope}}, nil
}

// GitUsername returns the user name paired with the token for git basic
// auth. Azure DevOps ignores it, but it must be non-empty.
func GitUsername(settings map[string]string) string {
	if id := settings["AZURE_CLIENT_ID"]; id != "" {
		return id
	}
	return "provisioner"
}
