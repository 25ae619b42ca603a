package api

import (
	"context"

	"github.com/lapmarkt/lapcli/internal/httpclient"
	"github.com/lapmarkt/lapcli/internal/model"
)

// Auth binds the authentication endpoints.
type Auth struct {
	client *httpclient.Client
}

// NewAuth constructs the auth bindings.
func NewAuth(client *httpclient.Client) *Auth {
	return &Auth{client: client}
}

// Login exchanges credentials for an identity and bearer token.
func (a *Auth) Login(ctx context.Context, creds model.Credentials) (model.LoginResponse, error) {
	if err := checkValid(creds); err != nil {
		return model.LoginResponse{}, err
	}
	var resp model.LoginResponse
	if err := a.client.PostJSON(ctx, "/auth/login", creds, &resp); err != nil {
		return model.LoginResponse{}, err
	}
	return resp, nil
}

// Register creates a new account. It does not log in; the session manager
// chains a login only after registration succeeds.
func (a *Auth) Register(ctx context.Context, reg model.Registration) error {
	if err := checkValid(reg); err != nil {
		return err
	}
	return a.client.PostJSON(ctx, "/auth/register", reg, nil)
}

// Me returns the account behind the current token.
func (a *Auth) Me(ctx context.Context) (model.User, error) {
	var u model.User
	if err := a.client.GetJSON(ctx, "/auth/me", nil, &u); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// Logout notifies the backend that the session is ending. Callers treat
// failures as non-fatal; local cleanup happens regardless.
func (a *Auth) Logout(ctx context.Context) error {
	return a.client.Post(ctx, "/auth/logout", nil)
}
