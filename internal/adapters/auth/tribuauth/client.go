package tribuauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tribu-ledger/internal/platform/httpclient"
	"tribu-ledger/internal/ports/auth"
)

var (
	ErrNotConfigured = errors.New("auth client not configured")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrUpstream      = errors.New("auth upstream error")
)

// Config del cliente de sesiones del API comunitario.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	http *httpclient.Client
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ErrNotConfigured
	}
	hc, err := httpclient.New(cfg.BaseURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	hc.SetHeader("X-Api-Key", strings.TrimSpace(cfg.APIKey))
	return &Client{http: hc}, nil
}

// VerifyToken valida un token de sesión contra el API comunitario y
// devuelve los claims del miembro.
func (c *Client) VerifyToken(ctx context.Context, token string) (auth.Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrUnauthorized
	}

	headers := map[string]string{
		"Authorization": "Bearer " + token,
	}

	var out struct {
		UserID string `json:"user_id"`
		Email  string `json:"email"`
	}
	err := c.http.DoJSON(ctx, http.MethodPost, "/sessions/verify", headers, map[string]string{"token": token}, &out)
	if err != nil {
		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) &&
			(httpErr.StatusCode == http.StatusUnauthorized || httpErr.StatusCode == http.StatusForbidden) {
			return auth.Claims{}, ErrUnauthorized
		}
		return auth.Claims{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	out.UserID = strings.TrimSpace(out.UserID)
	if out.UserID == "" {
		return auth.Claims{}, errors.New("auth response missing user_id")
	}

	return auth.Claims{
		UserID: out.UserID,
		Email:  strings.TrimSpace(out.Email),
	}, nil
}
