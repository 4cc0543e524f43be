package directory

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"tribu-ledger/internal/middleware"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/directory", func(dr chi.Router) {
		dr.Get("/", listUsersHandler(svc))
		dr.Post("/", createUserHandler(svc))
		dr.Post("/sync", syncHandler(svc))

		dr.Patch("/{userID}", updateUserHandler(svc))
		dr.Delete("/{userID}", deleteUserHandler(svc))
	})
}

type userRequest struct {
	Nombre    string `json:"nombre"`
	Apellido1 string `json:"apellido1"`
	Apellido2 string `json:"apellido2"`
	Cedula    string `json:"cedula"`
	Movil     string `json:"movil"`
	Telefono  string `json:"telefono"`
	Email     string `json:"email"`
	Estado    string `json:"estado"`
}

func (req userRequest) toInput() CreateInput {
	return CreateInput{
		Nombre:    req.Nombre,
		Apellido1: req.Apellido1,
		Apellido2: req.Apellido2,
		Cedula:    req.Cedula,
		Movil:     req.Movil,
		Telefono:  req.Telefono,
		Email:     req.Email,
		Estado:    req.Estado,
	}
}

func listUsersHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		// ?q= busca por nombre, primer apellido o cédula
		if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
			writeJSON(w, http.StatusOK, svc.Search(q))
			return
		}
		writeJSON(w, http.StatusOK, svc.List())
	}
}

func createUserHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req userRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		u, err := svc.Create(r.Context(), req.toInput())
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, u)
	}
}

func updateUserHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
		if err != nil {
			http.Error(w, "invalid user id", http.StatusBadRequest)
			return
		}

		var req userRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		u, err := svc.Update(r.Context(), id, req.toInput())
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrNotFound):
				http.Error(w, "user not found", http.StatusNotFound)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

func deleteUserHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
		if err != nil {
			http.Error(w, "invalid user id", http.StatusBadRequest)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			if errors.Is(err, ErrNotFound) {
				http.Error(w, "user not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func syncHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		added, err := svc.SyncRemote(r.Context())
		if err != nil {
			http.Error(w, "sync failed", http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"added": added})
	}
}

// writeJSON está duplicado a propósito entre los handlers de ledger y
// directory, para no crear helpers compartidos antes de tiempo.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
