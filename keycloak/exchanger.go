package keycloak

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

var (
	// ErrCredentialsRejected is returned when the token endpoint answers with a non-2xx status
	ErrCredentialsRejected = errors.New("credentials rejected by provider")

	// ErrTokenRequestFailed is returned on transport failures or unusable token responses
	ErrTokenRequestFailed = errors.New("token request failed")
)

// TokenPair holds the two signed tokens returned by a login
type TokenPair struct {
	AccessToken string
	IDToken     string
}

// PasswordExchanger trades a username and password for tokens using the
// resource owner password grant. Each call makes a single attempt.
type PasswordExchanger struct {
	oauth      *oauth2.Config
	realm      string
	httpClient *http.Client
}

// NewPasswordExchanger creates an exchanger for the configured realm and client
func NewPasswordExchanger(cfg Config, httpClient *http.Client) *PasswordExchanger {
	if httpClient == nil {
		httpClient = NewHTTPClient(cfg)
	}
	return &PasswordExchanger{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL(cfg.Realm),
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: []string{"openid"},
		},
		realm:      cfg.Realm,
		httpClient: httpClient,
	}
}

// Realm returns the realm tokens are requested from
func (e *PasswordExchanger) Realm() string {
	return e.realm
}

// Exchange posts the credentials to the token endpoint
func (e *PasswordExchanger) Exchange(ctx context.Context, username, password string) (TokenPair, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)

	tok, err := e.oauth.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response != nil {
			return TokenPair{}, fmt.Errorf("%w: status %d", ErrCredentialsRejected, rerr.Response.StatusCode)
		}
		return TokenPair{}, fmt.Errorf("%w: %v", ErrTokenRequestFailed, err)
	}

	idToken, _ := tok.Extra("id_token").(string)
	if tok.AccessToken == "" || idToken == "" {
		return TokenPair{}, fmt.Errorf("%w: response missing access_token or id_token", ErrTokenRequestFailed)
	}

	return TokenPair{AccessToken: tok.AccessToken, IDToken: idToken}, nil
}
