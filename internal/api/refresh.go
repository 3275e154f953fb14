package api

import (
	"context"
	"net/http"
	"sync"
)

// refresher coordinates token refreshes so that any number of requests
// hitting a token-expired 403 at once share a single refresh call. Waiters
// queue behind the in-flight attempt and all observe its outcome; each
// original request then retries exactly once with the new token.
type refresher struct {
	client *Client

	mu       sync.Mutex
	inflight chan struct{} // closed when the current attempt finishes
	token    string
	err      error
}

func newRefresher(c *Client) *refresher {
	return &refresher{client: c}
}

// refresh returns the new access token, either by performing the refresh
// call itself or by waiting on the one already in flight.
func (r *refresher) refresh(ctx context.Context) (string, error) {
	r.mu.Lock()
	if r.inflight != nil {
		ch := r.inflight
		r.mu.Unlock()
		select {
		case <-ch:
			r.mu.Lock()
			token, err := r.token, r.err
			r.mu.Unlock()
			return token, err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	ch := make(chan struct{})
	r.inflight = ch
	r.mu.Unlock()

	token, err := r.doRefresh(ctx)

	r.mu.Lock()
	r.token, r.err = token, err
	r.inflight = nil
	r.mu.Unlock()
	close(ch)

	return token, err
}

// doRefresh exchanges the stored refresh token for a new access token.
// Any failure tears down the session: tokens are cleared and callers get
// ErrSessionExpired.
func (r *refresher) doRefresh(ctx context.Context) (string, error) {
	refreshToken := r.client.tokens.Get().RefreshToken
	if refreshToken == "" {
		_ = r.client.tokens.Clear()
		return "", ErrSessionExpired
	}

	body := refreshTokenRequest{RefreshToken: refreshToken}
	var tokens TokenResponse
	// send, not do: a failing refresh must never recurse into refresh
	_, retry, err := r.client.send(ctx, http.MethodPost, "/v1/auth/refresh-token", mustJSON(body), "application/json", &tokens)
	if err != nil || retry || tokens.AccessToken == "" {
		_ = r.client.tokens.Clear()
		return "", &Error{Message: "token refresh failed", err: ErrSessionExpired}
	}

	if err := r.client.tokens.SetAccessToken(tokens.AccessToken); err != nil {
		return "", err
	}
	return tokens.AccessToken, nil
}
