package system

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	inkyprovd "github.com/inkylabs/inkyprovd/pkg"
)

var _ inkyprovd.OAuthApplier = &GoogleExchanger{}

const googleTokenEndpoint = "https://oauth2.googleapis.com/token"

// googleToken is the token endpoint response, persisted verbatim for the
// renderer to refresh against.
type googleToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}

// GoogleExchanger redeems an authorization code for tokens at Google's
// token endpoint using the PKCE verifier, then persists the grant to a
// restricted file. No token field is ever logged.
type GoogleExchanger struct {
	ClientID  string
	TokenPath string

	client *resty.Client
	log    *logrus.Entry
}

func NewGoogleExchanger(clientID, tokenPath string, log *logrus.Entry) *GoogleExchanger {
	client := resty.New()
	client.SetBaseURL(googleTokenEndpoint)
	client.SetHeader("Accept", "application/json")
	return &GoogleExchanger{
		ClientID:  clientID,
		TokenPath: tokenPath,
		client:    client,
		log:       log,
	}
}

func (t *GoogleExchanger) Exchange(ctx context.Context, code inkyprovd.GoogleAuthCode, verifier string) error {
	var token googleToken
	var failure struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "authorization_code",
			"code":          code.Code,
			"client_id":     t.ClientID,
			"redirect_uri":  code.RedirectURI,
			"code_verifier": verifier,
		}).
		SetResult(&token).
		SetError(&failure).
		Post("")
	if err != nil {
		return fmt.Errorf("token endpoint unreachable: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		if failure.Error != "" {
			return fmt.Errorf("token exchange rejected: %s", failure.Error)
		}
		return fmt.Errorf("token exchange rejected: status %d", resp.StatusCode())
	}
	if token.RefreshToken == "" {
		return fmt.Errorf("token exchange returned no refresh token")
	}

	if err := t.persist(token); err != nil {
		return err
	}
	t.log.Info("google account linked")
	return nil
}

func (t *GoogleExchanger) persist(token googleToken) error {
	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encoding token grant: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(t.TokenPath), 0o755); err != nil {
		return fmt.Errorf("creating token dir: %w", err)
	}
	tmp := t.TokenPath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("writing token grant: %w", err)
	}
	if err := os.Rename(tmp, t.TokenPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing token grant: %w", err)
	}
	return nil
}
