package tribuauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tribu-ledger/internal/ports/auth"
)

var ErrTokenEmpty = errors.New("token is empty")

// Verifier implementa auth.AuthVerifier contra el API comunitario.
// Se instancia desde el router solo cuando hay BaseURL configurado;
// sin él, el middleware queda en modo dev.
type Verifier struct {
	client *Client
}

func NewVerifier(client *Client) *Verifier {
	return &Verifier{client: client}
}

func (v *Verifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	if v == nil || v.client == nil {
		return auth.Claims{}, ErrNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrTokenEmpty
	}

	claims, err := v.client.VerifyToken(ctx, token)
	if err != nil {
		return auth.Claims{}, fmt.Errorf("session verify failed: %w", err)
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return auth.Claims{}, errors.New("claims missing user id")
	}
	return claims, nil
}
