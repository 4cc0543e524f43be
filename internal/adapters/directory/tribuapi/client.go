package tribuapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tribu-ledger/internal/domain/directory"
	"tribu-ledger/internal/platform/httpclient"
)

var (
	ErrNotConfigured = errors.New("tribu api client not configured")
	ErrUpstream      = errors.New("tribu api upstream error")
)

// Config del cliente del API comunitario.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client consulta el padrón de miembros del API comunitario. Implementa
// directory.RemoteAPI.
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

// memberPayload tolera las dos formas de respuesta del API: un arreglo
// de miembros, o un objeto {"error": "..."} con status 200.
type memberPayload struct {
	ID        int64  `json:"id"`
	Nombre    string `json:"nombre"`
	Apellido1 string `json:"apellido1"`
	Apellido2 string `json:"apellido2"`
	Cedula    string `json:"cedula"`
	Movil     string `json:"movil"`
	Telefono  string `json:"telefono"`
	Email     string `json:"email"`
	Estado    string `json:"estado"`
}

func (c *Client) FetchMembers(ctx context.Context) ([]directory.User, error) {
	var raw json.RawMessage
	if err := c.http.DoJSON(ctx, http.MethodGet, "/ranking", nil, nil, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	// El API responde 200 con {"error": ...} cuando algo falla del lado
	// del sheet; hay que detectarlo antes de intentar el arreglo.
	var apiErr struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrUpstream, apiErr.Error)
	}

	var members []memberPayload
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, fmt.Errorf("%w: invalid payload: %v", ErrUpstream, err)
	}

	out := make([]directory.User, 0, len(members))
	for _, m := range members {
		out = append(out, directory.User{
			ID:        m.ID,
			Nombre:    m.Nombre,
			Apellido1: m.Apellido1,
			Apellido2: m.Apellido2,
			Cedula:    m.Cedula,
			Movil:     m.Movil,
			Telefono:  m.Telefono,
			Email:     m.Email,
			Estado:    m.Estado,
		})
	}
	return out, nil
}
