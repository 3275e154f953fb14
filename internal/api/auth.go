package api

import (
	"context"
	"encoding/json"

	"github.com/foliotalk/foliotalk/internal/storage"
)

// RegisterRequest is the sign-up payload
type RegisterRequest struct {
	Email                string `json:"email"`
	Password             string `json:"password"`
	ConfirmationPassword string `json:"confirmation_password"`
}

// RegisterResponse describes the newly created account
type RegisterResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	CreatedAt   int64  `json:"created_at"`
	IsConfirmed bool   `json:"is_confirmed"`
}

// LoginRequest is the sign-in payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is the bearer token pair issued by the auth endpoints
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

type googleLoginRequest struct {
	AccessToken string `json:"access_token"`
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// SignUp registers a new account
func (c *Client) SignUp(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var out RegisterResponse
	if _, err := c.postJSON(ctx, "/v1/auth/sign-up", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SignIn authenticates with email and password and stores the token pair
func (c *Client) SignIn(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	var out TokenResponse
	if _, err := c.postJSON(ctx, "/v1/auth/sign-in", req, &out); err != nil {
		return nil, err
	}
	if err := c.storeTokens(out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SignInWithGoogle exchanges a Google access token for a session
func (c *Client) SignInWithGoogle(ctx context.Context, googleToken string) (*TokenResponse, error) {
	var out TokenResponse
	if _, err := c.postJSON(ctx, "/v1/auth/google", googleLoginRequest{AccessToken: googleToken}, &out); err != nil {
		return nil, err
	}
	if err := c.storeTokens(out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh forces a token refresh outside the automatic 403 path
func (c *Client) Refresh(ctx context.Context) error {
	_, err := c.refresher.refresh(ctx)
	return err
}

func (c *Client) storeTokens(tokens TokenResponse) error {
	return c.tokens.Set(storage.TokenPair{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

// mustJSON marshals values whose encoding cannot fail (plain structs of
// strings and numbers)
func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
