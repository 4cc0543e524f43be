package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"tribu-ledger/internal/domain/directory"
	"tribu-ledger/internal/middleware"
)

func RegisterRoutes(r chi.Router, ctrl *Controller) {
	r.Route("/events", func(er chi.Router) {
		er.Get("/", listEventsHandler(ctrl))
		er.Post("/", createEventHandler(ctrl))
		er.Post("/{eventID}/open", openEventHandler(ctrl))
		er.Post("/{eventID}/delete-request", requestDeleteEventHandler(ctrl))
		er.Post("/close", closeEventHandler(ctrl))

		// Todo lo de "current" opera sobre el evento seleccionado.
		er.Route("/current", func(cr chi.Router) {
			cr.Get("/config", configViewHandler(ctrl))
			cr.Patch("/config", updateConfigHandler(ctrl))
			cr.Post("/config/collapse", toggleConfigCollapsedHandler(ctrl))
			cr.Post("/includes/toggle", toggleIncludeHandler(ctrl))

			cr.Post("/payment-methods", addPaymentMethodHandler(ctrl))
			cr.Patch("/payment-methods/{index}", updatePaymentMethodHandler(ctrl))
			cr.Delete("/payment-methods/{index}", removePaymentMethodHandler(ctrl))

			cr.Get("/walkers", listWalkersHandler(ctrl))
			cr.Post("/walkers", addWalkerHandler(ctrl))
			cr.Post("/walkers/collapse", toggleWalkersCollapsedHandler(ctrl))
			cr.Post("/walkers/from-directory", addFromDirectoryHandler(ctrl))

			cr.Get("/directory", directoryRowsHandler(ctrl))
		})
	})

	r.Route("/walkers/{walkerID}", func(wr chi.Router) {
		wr.Patch("/", updateWalkerHandler(ctrl))
		wr.Post("/collapse", toggleWalkerCollapsedHandler(ctrl))
		wr.Post("/delete-request", requestDeleteWalkerHandler(ctrl))
		wr.Get("/detail", walkerDetailHandler(ctrl))
		wr.Get("/receipt", receiptHandler(ctrl))
		wr.Get("/invoice", invoiceHandler(ctrl))

		wr.Route("/payments", func(pr chi.Router) {
			pr.Post("/", addPaymentHandler(ctrl))
			pr.Route("/{paymentID}", func(ppr chi.Router) {
				ppr.Patch("/", updatePaymentHandler(ctrl))
				ppr.Post("/toggle", togglePaymentHandler(ctrl))

				ppr.Post("/edit-request", paymentEditRequestHandler(ctrl))
				ppr.Post("/edit-confirm", paymentEditConfirmHandler(ctrl))
				ppr.Post("/finish-request", paymentFinishRequestHandler(ctrl))
				ppr.Post("/finish-confirm", paymentFinishConfirmHandler(ctrl))
				ppr.Post("/edit-cancel", paymentEditCancelHandler(ctrl))

				ppr.Post("/delete-request", paymentDeleteRequestHandler(ctrl))
				ppr.Post("/delete-confirm", paymentDeleteConfirmHandler(ctrl))
				ppr.Post("/delete-cancel", paymentDeleteCancelHandler(ctrl))
			})
		})
	})

	// Flujos de confirmación de borrado (eventos y caminantes).
	r.Route("/confirmations/{token}", func(fr chi.Router) {
		fr.Get("/", flowStateHandler(ctrl))
		fr.Post("/advance", flowAdvanceHandler(ctrl))
		fr.Delete("/", flowCancelHandler(ctrl))
	})

	r.Get("/backup", exportBackupHandler(ctrl))
	r.Post("/backup", importBackupHandler(ctrl))
}

// fieldUpdateRequest es el body genérico de edición campo por campo,
// el mismo contrato para config, caminantes y pagos.
type fieldUpdateRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type flowResponse struct {
	Token string       `json:"token"`
	State ConfirmState `json:"state"`
	Done  bool         `json:"done"`
}

// requireUser corta con 401 si el request no trae claims válidos.
// A diferencia de otros módulos, aquí todos los endpoints exigen auth,
// así que el check vive en un helper.
func requireUser(w http.ResponseWriter, r *http.Request) bool {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}

// writeErr traduce los sentinelas del dominio a códigos HTTP.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNoCurrentEvent),
		errors.Is(err, ErrEventNotFound),
		errors.Is(err, ErrWalkerNotFound),
		errors.Is(err, ErrPaymentNotFound),
		errors.Is(err, ErrMethodNotFound),
		errors.Is(err, ErrFlowNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrBadState):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrAlreadyInList):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrShortQuery), errors.Is(err, ErrInvalidBackup):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func urlID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id != 0
}

// --- eventos ---

func listEventsHandler(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		writeJSON(w, http.StatusOK, ctrl.MainList())
	}
}

func createEventHandler(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		ev := ctrl.CreateEvent(r.Context())
		writeJSON(w, http.StatusCreated, ev)
	}
}

func openEventHandler(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		id, ok := urlID(r, "eventID")
		if !ok {
			http.Error(w, "invalid event id", http.StatusBadRequest)
			return
		}
		ev, err := ctrl.OpenEvent(id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ev)
	}
}

func closeEventHandler(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		ctrl.CloseEvent()
		w.WriteHeader(http.StatusNoContent)
	}
}

func requestDeleteEventHandler(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		id, ok := urlID(r, "eventID")
		if !ok {
			http.Error(w, "invalid event id", http.StatusBadRequest)
			return
		}
		token, err := ctrl.RequestDeleteEvent(id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, flowResponse{Token: token, State: ConfirmStep1})
	}
}

// --- configuración ---

func configViewHandler(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		view, err := ctrl.ConfigView()
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func updateConfigHandler(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		var req fieldUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		reshaped, err := ctrl.UpdateConfig(r.Context(), req.Field, req.Value)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"reshaped": reshaped})
	}
}

func toggleConfigCollapsedHandler(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		if err := ctrl.ToggleConfigCollapsed(r.Context()); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func toggleIncludeHandler(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		var req struct {
			Item string `json:"item"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Item) == "" {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := ctrl.ToggleInclude(r.Context(), req.Item); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func addPaymentMethodHandler(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		if err := ctrl.AddPaymentMethod(r.Context()); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}
}

func updatePaymentMethodHandler(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			http.Error(w, "invalid index", http.StatusBadRequest)
			return
		}
		var req fieldUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := ctrl.UpdatePaymentMethod(r.Context(), index, req.Field, req.Value); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func removePaymentMethodHandler(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			http.Error(w, "invalid index", http.StatusBadRequest)
			return
		}
		if err := ctrl.RemovePaymentMethod(r.Context(), index); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// --- caminantes ---

func listWalkersHandler(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		view, err := ctrl.Walkers()
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func addWalkerHandler(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		walker, err := ctrl.AddWalker(r.Context())
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, walker)
	}
}

func toggleWalkersCollapsedHandler(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		if err := ctrl.ToggleWalkersCollapsed(r.Context()); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func updateWalkerHandler(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		id, ok := urlID(r, "walkerID")
		if !ok {
			http.Error(w, "invalid walker id", http.StatusBadRequest)
			return
		}
		var req fieldUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := ctrl.UpdateWalkerField(r.Context(), id, req.Field, req.Value); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func toggleWalkerCollapsedHandler(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		id, ok := urlID(r, "walkerID")
		if !ok {
			http.Error(w, "invalid walker id", http.StatusBadRequest)
			return
		}
		if err := ctrl.ToggleWalkerCollapsed(r.Context(), id); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func requestDeleteWalkerHandler(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		id, ok := urlID(r, "walkerID")
		if !ok {
			http.Error(w, "invalid walker id", http.StatusBadRequest)
			return
		}
		token, err := ctrl.RequestDeleteWalker(id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, flowResponse{Token: token, State: ConfirmStep1})
	}
}

func walkerDetailHandler(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		id, ok := urlID(r, "walkerID")
		if !ok {
			http.Error(w, "invalid walker id", http.StatusBadRequest)
			return
		}
		view, err := ctrl.WalkerDetail(id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// --- pagos ---

func addPaymentHandler(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		id, ok := urlID(r, "walkerID")
		if !ok {
			http.Error(w, "invalid walker id", http.StatusBadRequest)
			return
		}
		p, err := ctrl.AddPayment(r.Context(), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

func paymentIDs(r *http.Request) (walkerID, paymentID int64, ok bool) {
	walkerID, wok := urlID(r, "walkerID")
	paymentID, pok := urlID(r, "paymentID")
	return walkerID, paymentID, wok && pok
}

func updatePaymentHandler(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		walkerID, paymentID, ok := paymentIDs(r)
		if !ok {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}
		var req fieldUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := ctrl.UpdatePayment(r.Context(), walkerID, paymentID, req.Field, req.Value); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func togglePaymentHandler(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		walkerID, paymentID, ok := paymentIDs(r)
		if !ok {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}
		if err := ctrl.manager.TogglePayment(r.Context(), walkerID, paymentID); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// paymentFSMHandler fabrica los handlers del ciclo de edición, que solo
// difieren en la transición que disparan.
func paymentFSMHandler(ctrl *Controller, do func(r *http.Request, walkerID, paymentID int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		walkerID, paymentID, ok := paymentIDs(r)
		if !ok {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}
		if err := do(r, walkerID, paymentID); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]EditState{"state": ctrl.manager.PaymentState(paymentID)})
	}
}

func paymentEditRequestHandler(ctrl *Controller) http.HandlerFunc {
	return paymentFSMHandler(ctrl, func(_ *http.Request, _, paymentID int64) error {
		return ctrl.manager.RequestEdit(paymentID)
	})
}

func paymentEditConfirmHandler(ctrl *Controller) http.HandlerFunc {
	return paymentFSMHandler(ctrl, func(r *http.Request, walkerID, paymentID int64) error {
		return ctrl.manager.ConfirmEdit(r.Context(), walkerID, paymentID)
	})
}

func paymentFinishRequestHandler(ctrl *Controller) http.HandlerFunc {
	return paymentFSMHandler(ctrl, func(_ *http.Request, _, paymentID int64) error {
		return ctrl.manager.RequestFinish(paymentID)
	})
}

func paymentFinishConfirmHandler(ctrl *Controller) http.HandlerFunc {
	return paymentFSMHandler(ctrl, func(r *http.Request, walkerID, paymentID int64) error {
		return ctrl.manager.ConfirmFinish(r.Context(), walkerID, paymentID)
	})
}

func paymentEditCancelHandler(ctrl *Controller) http.HandlerFunc {
	return paymentFSMHandler(ctrl, func(_ *http.Request, _, paymentID int64) error {
		ctrl.manager.CancelEdit(paymentID)
		return nil
	})
}

func paymentDeleteRequestHandler(ctrl *Controller) http.HandlerFunc {
	return paymentFSMHandler(ctrl, func(_ *http.Request, _, paymentID int64) error {
		ctrl.manager.RequestDeletePayment(paymentID)
		return nil
	})
}

func paymentDeleteConfirmHandler(ctrl *Controller) http.HandlerFunc {
	return paymentFSMHandler(ctrl, func(r *http.Request, walkerID, paymentID int64) error {
		return ctrl.manager.ConfirmDeletePayment(r.Context(), walkerID, paymentID)
	})
}

func paymentDeleteCancelHandler(ctrl *Controller) http.HandlerFunc {
	return paymentFSMHandler(ctrl, func(_ *http.Request, _, paymentID int64) error {
		ctrl.manager.CancelDeletePayment(paymentID)
		return nil
	})
}

// --- flujos de confirmación ---

func flowStateHandler(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		token := chi.URLParam(r, "token")
		state, err := ctrl.FlowState(token)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, flowResponse{Token: token, State: state})
	}
}

func flowAdvanceHandler(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		token := chi.URLParam(r, "token")
		done, state, err := ctrl.ConfirmStep(r.Context(), token)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, flowResponse{Token: token, State: state, Done: done})
	}
}

func flowCancelHandler(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		ctrl.CancelFlow(chi.URLParam(r, "token"))
		w.WriteHeader(http.StatusNoContent)
	}
}

// --- respaldos y reportes ---

func exportBackupHandler(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		filename, data, err := ctrl.ExportBackup()
		if err != nil {
			writeErr(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

func importBackupHandler(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		data, err := io.ReadAll(io.LimitReader(r.Body, 8<<20))
		if err != nil {
			http.Error(w, "cannot read body", http.StatusBadRequest)
			return
		}
		if err := ctrl.ImportBackup(r.Context(), data); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func receiptHandler(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		id, ok := urlID(r, "walkerID")
		if !ok {
			http.Error(w, "invalid walker id", http.StatusBadRequest)
			return
		}
		filename, content, err := ctrl.Receipt(id)
		if err != nil {
			writeErr(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, content)
	}
}

func invoiceHandler(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		id, ok := urlID(r, "walkerID")
		if !ok {
			http.Error(w, "invalid walker id", http.StatusBadRequest)
			return
		}
		inv, err := ctrl.WalkerInvoice(id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, inv)
	}
}

// --- integración con el directorio ---

func directoryRowsHandler(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		// ?q= filtra por autocompletado; sin query lista todo el padrón
		if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
			users, err := ctrl.Autocomplete(q)
			if err != nil {
				writeErr(w, err)
				return
			}
			ev, ok := ctrl.store.GetCurrentEvent()
			if !ok {
				writeErr(w, ErrNoCurrentEvent)
				return
			}
			writeJSON(w, http.StatusOK, DirectoryRowsView(users, ev))
			return
		}

		rows, err := ctrl.DirectoryRows()
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

func addFromDirectoryHandler(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		var req struct {
			UserID int64 `json:"userId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == 0 {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		walker, err := ctrl.AddWalkerFromDirectory(r.Context(), req.UserID)
		if err != nil {
			if errors.Is(err, directory.ErrNotFound) {
				http.Error(w, "member not found", http.StatusNotFound)
				return
			}
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, walker)
	}
}

// writeJSON está duplicado a propósito entre los handlers de ledger y
// directory, para no crear helpers compartidos antes de tiempo.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
