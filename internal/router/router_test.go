package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"tribu-ledger/internal/router"
)

func TestHTTP_EndToEnd_EventLifecycle(t *testing.T) {
	h, err := router.NewRouter(router.Options{})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	ts := httptest.NewServer(h)
	defer ts.Close()

	userID := "admin-1"

	// 1) Sin usuario => 401 en todo
	{
		st, _ := doReq(t, ts.URL, "GET", "/events", "", nil)
		if st != http.StatusUnauthorized {
			t.Fatalf("expected 401 without user, got %d", st)
		}
	}

	// 2) Health no exige auth
	{
		st, body := doReq(t, ts.URL, "GET", "/health", "", nil)
		if st != http.StatusOK || string(body) != "ok" {
			t.Fatalf("health: %d %s", st, string(body))
		}
	}

	// 3) Crear evento: nace con los valores por defecto y queda seleccionado
	eventID := createEvent(t, ts.URL, userID)

	{
		st, body := doReq(t, ts.URL, "GET", "/events", userID, nil)
		if st != http.StatusOK {
			t.Fatalf("list events: %d body=%s", st, string(body))
		}
		var cards []struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		}
		mustUnmarshal(t, body, &cards)
		if len(cards) != 1 || cards[0].ID != eventID || cards[0].Name != "Nuevo Evento" {
			t.Fatalf("cards = %+v", cards)
		}
	}

	// 4) Configuración campo por campo; days cambia la forma del formulario
	{
		st, body := doReq(t, ts.URL, "PATCH", "/events/current/config", userID, map[string]any{
			"field": "price", "value": "100000",
		})
		if st != http.StatusOK {
			t.Fatalf("patch price: %d body=%s", st, string(body))
		}
		var resp struct {
			Reshaped bool `json:"reshaped"`
		}
		mustUnmarshal(t, body, &resp)
		if resp.Reshaped {
			t.Fatal("price no reconfigura el formulario")
		}

		st, body = doReq(t, ts.URL, "PATCH", "/events/current/config", userID, map[string]any{
			"field": "days", "value": "3",
		})
		if st != http.StatusOK {
			t.Fatalf("patch days: %d body=%s", st, string(body))
		}
		mustUnmarshal(t, body, &resp)
		if !resp.Reshaped {
			t.Fatal("days debería reconfigurar el formulario")
		}
	}

	{
		st, body := doReq(t, ts.URL, "GET", "/events/current/config", userID, nil)
		if st != http.StatusOK {
			t.Fatalf("get config: %d body=%s", st, string(body))
		}
		var view struct {
			MultiDay bool `json:"multiDay"`
			Event    struct {
				Price float64 `json:"price"`
			} `json:"event"`
		}
		mustUnmarshal(t, body, &view)
		if !view.MultiDay || view.Event.Price != 100000 {
			t.Fatalf("view = %+v", view)
		}
	}

	// 5) Agregar caminante; el nombre se normaliza a TitleCase
	walkerID := addWalker(t, ts.URL, userID)
	{
		st, body := doReq(t, ts.URL, "PATCH", "/walkers/"+itoa(walkerID), userID, map[string]any{
			"field": "nombre", "value": "ana MORA",
		})
		if st != http.StatusNoContent {
			t.Fatalf("patch walker: %d body=%s", st, string(body))
		}
	}

	// Los IDs salen del reloj en milisegundos
	time.Sleep(2 * time.Millisecond)

	// 6) Primer pago: siempre Reserva, nace abierto y en edición
	paymentID := addPayment(t, ts.URL, userID, walkerID, "Reserva")
	{
		st, body := doReq(t, ts.URL, "PATCH", paymentPath(walkerID, paymentID), userID, map[string]any{
			"field": "monto", "value": "50000",
		})
		if st != http.StatusNoContent {
			t.Fatalf("patch payment: %d body=%s", st, string(body))
		}
	}

	// 7) Ficha del caminante: montos formateados y fila desbloqueada
	{
		st, body := doReq(t, ts.URL, "GET", "/walkers/"+itoa(walkerID)+"/detail", userID, nil)
		if st != http.StatusOK {
			t.Fatalf("detail: %d body=%s", st, string(body))
		}
		var view struct {
			Nombre  string `json:"nombre"`
			Abonado string `json:"abonado"`
			Deuda   string `json:"deuda"`
			Rows    []struct {
				State  string `json:"state"`
				Locked bool   `json:"locked"`
			} `json:"rows"`
		}
		mustUnmarshal(t, body, &view)
		if view.Nombre != "Ana Mora" {
			t.Fatalf("nombre = %q", view.Nombre)
		}
		if view.Abonado != "50,000" || view.Deuda != "50,000" {
			t.Fatalf("montos = %q / %q", view.Abonado, view.Deuda)
		}
		if len(view.Rows) != 1 || view.Rows[0].Locked || view.Rows[0].State != "editing" {
			t.Fatalf("rows = %+v", view.Rows)
		}
	}

	// 8) Cerrar la edición exige confirmación; al terminar, el pago queda
	// bloqueado
	{
		st, body := doReq(t, ts.URL, "POST", paymentPath(walkerID, paymentID)+"/finish-request", userID, nil)
		if st != http.StatusOK {
			t.Fatalf("finish-request: %d body=%s", st, string(body))
		}
		if got := fsmState(t, body); got != "confirming_finish" {
			t.Fatalf("state = %q", got)
		}

		st, body = doReq(t, ts.URL, "POST", paymentPath(walkerID, paymentID)+"/finish-confirm", userID, nil)
		if st != http.StatusOK {
			t.Fatalf("finish-confirm: %d body=%s", st, string(body))
		}
		if got := fsmState(t, body); got != "locked" {
			t.Fatalf("state = %q", got)
		}

		// Editar sin pedir permiso => 409
		st, _ = doReq(t, ts.URL, "POST", paymentPath(walkerID, paymentID)+"/edit-confirm", userID, nil)
		if st != http.StatusConflict {
			t.Fatalf("expected 409 edit without request, got %d", st)
		}
	}

	// 9) Recibo en texto plano
	{
		st, body, headers := doReqHeaders(t, ts.URL, "GET", "/walkers/"+itoa(walkerID)+"/receipt", userID)
		if st != http.StatusOK {
			t.Fatalf("receipt: %d body=%s", st, string(body))
		}
		if !strings.Contains(string(body), "TRIBUPLAY - REPORTE DE PAGOS") {
			t.Fatalf("receipt body=%s", string(body))
		}
		if cd := headers.Get("Content-Disposition"); !strings.Contains(cd, "pago_Ana_Mora.txt") {
			t.Fatalf("content-disposition = %q", cd)
		}
	}

	// 10) Respaldo: exportar, rechazar basura, reimportar
	{
		st, body, headers := doReqHeaders(t, ts.URL, "GET", "/backup", userID)
		if st != http.StatusOK {
			t.Fatalf("export: %d", st)
		}
		if !bytes.HasPrefix(bytes.TrimSpace(body), []byte("[")) {
			t.Fatalf("backup no es un arreglo: %.40s", string(body))
		}
		if cd := headers.Get("Content-Disposition"); !strings.Contains(cd, "backup_tribuplay_") {
			t.Fatalf("content-disposition = %q", cd)
		}

		st, _ = doReq(t, ts.URL, "POST", "/backup", userID, map[string]any{"not": "an array"})
		if st != http.StatusBadRequest {
			t.Fatalf("expected 400 for bad backup, got %d", st)
		}

		st, _ = doReqRaw(t, ts.URL, "POST", "/backup", userID, body)
		if st != http.StatusNoContent {
			t.Fatalf("import: %d", st)
		}
	}

	// 11) Borrar el evento: tres confirmaciones explícitas
	{
		st, body := doReq(t, ts.URL, "POST", "/events/"+itoa(eventID)+"/delete-request", userID, nil)
		if st != http.StatusCreated {
			t.Fatalf("delete-request: %d body=%s", st, string(body))
		}
		var flow struct {
			Token string `json:"token"`
			State string `json:"state"`
			Done  bool   `json:"done"`
		}
		mustUnmarshal(t, body, &flow)
		if flow.Token == "" || flow.State != "confirm_1" {
			t.Fatalf("flow = %+v", flow)
		}

		advance := func() (string, bool) {
			st, body := doReq(t, ts.URL, "POST", "/confirmations/"+flow.Token+"/advance", userID, nil)
			if st != http.StatusOK {
				t.Fatalf("advance: %d body=%s", st, string(body))
			}
			mustUnmarshal(t, body, &flow)
			return flow.State, flow.Done
		}

		if state, done := advance(); done || state != "confirm_2" {
			t.Fatalf("paso 1: %q done=%v", state, done)
		}
		if state, done := advance(); done || state != "confirm_3" {
			t.Fatalf("paso 2: %q done=%v", state, done)
		}
		if _, done := advance(); !done {
			t.Fatal("paso 3 debería ejecutar el borrado")
		}

		// El flujo ya no existe
		st, _ = doReq(t, ts.URL, "GET", "/confirmations/"+flow.Token, userID, nil)
		if st != http.StatusNotFound {
			t.Fatalf("expected 404 after executed flow, got %d", st)
		}
	}

	// 12) Lista vacía otra vez; operar sin evento actual => 404
	{
		st, body := doReq(t, ts.URL, "GET", "/events", userID, nil)
		var cards []json.RawMessage
		mustUnmarshal(t, body, &cards)
		if st != http.StatusOK || len(cards) != 0 {
			t.Fatalf("list after delete: %d %s", st, string(body))
		}

		st, _ = doReq(t, ts.URL, "POST", "/events/current/walkers", userID, nil)
		if st != http.StatusNotFound {
			t.Fatalf("expected 404 without current event, got %d", st)
		}
	}
}

func TestHTTP_DirectoryIntegration(t *testing.T) {
	h, err := router.NewRouter(router.Options{})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	ts := httptest.NewServer(h)
	defer ts.Close()

	userID := "admin-1"

	// Miembro del directorio
	var member struct {
		ID int64 `json:"id"`
	}
	{
		st, body := doReq(t, ts.URL, "POST", "/directory", userID, map[string]any{
			"nombre":    "ana",
			"apellido1": "mora",
			"movil":     "8888-7777",
		})
		if st != http.StatusCreated {
			t.Fatalf("create member: %d body=%s", st, string(body))
		}
		mustUnmarshal(t, body, &member)
	}

	createEvent(t, ts.URL, userID)

	// Pre-llenar caminante desde el directorio
	{
		st, body := doReq(t, ts.URL, "POST", "/events/current/walkers/from-directory", userID, map[string]any{
			"userId": member.ID,
		})
		if st != http.StatusCreated {
			t.Fatalf("from-directory: %d body=%s", st, string(body))
		}
		var walker struct {
			Nombre   string `json:"nombre"`
			Telefono string `json:"telefono"`
		}
		mustUnmarshal(t, body, &walker)
		if walker.Nombre != "Ana Mora" || walker.Telefono != "88887777" {
			t.Fatalf("walker = %+v", walker)
		}

		// Repetir al mismo miembro => 409
		st, _ = doReq(t, ts.URL, "POST", "/events/current/walkers/from-directory", userID, map[string]any{
			"userId": member.ID,
		})
		if st != http.StatusConflict {
			t.Fatalf("expected 409 for duplicate member, got %d", st)
		}
	}

	// El selector marca al miembro ya agregado
	{
		st, body := doReq(t, ts.URL, "GET", "/events/current/directory", userID, nil)
		if st != http.StatusOK {
			t.Fatalf("directory rows: %d body=%s", st, string(body))
		}
		var rows []struct {
			Added bool   `json:"added"`
			Badge string `json:"badge"`
		}
		mustUnmarshal(t, body, &rows)
		if len(rows) != 1 || !rows[0].Added || rows[0].Badge != "EN LISTA" {
			t.Fatalf("rows = %+v", rows)
		}
	}

	// Autocompletado exige al menos dos caracteres
	{
		st, _ := doReq(t, ts.URL, "GET", "/events/current/directory?q=a", userID, nil)
		if st != http.StatusBadRequest {
			t.Fatalf("expected 400 for short query, got %d", st)
		}
		st, body := doReq(t, ts.URL, "GET", "/events/current/directory?q=ana", userID, nil)
		if st != http.StatusOK {
			t.Fatalf("autocomplete: %d body=%s", st, string(body))
		}
	}
}

func createEvent(t *testing.T, baseURL, userID string) int64 {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/events", userID, nil)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 create event, got %d body=%s", st, string(body))
	}
	var resp struct {
		ID int64 `json:"id"`
	}
	mustUnmarshal(t, body, &resp)
	if resp.ID == 0 {
		t.Fatalf("create event: missing id body=%s", string(body))
	}
	return resp.ID
}

func addWalker(t *testing.T, baseURL, userID string) int64 {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/events/current/walkers", userID, nil)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 add walker, got %d body=%s", st, string(body))
	}
	var resp struct {
		ID int64 `json:"id"`
	}
	mustUnmarshal(t, body, &resp)
	if resp.ID == 0 {
		t.Fatalf("add walker: missing id body=%s", string(body))
	}
	return resp.ID
}

func addPayment(t *testing.T, baseURL, userID string, walkerID int64, wantTipo string) int64 {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/walkers/"+itoa(walkerID)+"/payments", userID, nil)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 add payment, got %d body=%s", st, string(body))
	}
	var resp struct {
		ID   int64  `json:"id"`
		Tipo string `json:"tipo"`
	}
	mustUnmarshal(t, body, &resp)
	if resp.ID == 0 || resp.Tipo != wantTipo {
		t.Fatalf("add payment: %+v body=%s", resp, string(body))
	}
	return resp.ID
}

func paymentPath(walkerID, paymentID int64) string {
	return "/walkers/" + itoa(walkerID) + "/payments/" + itoa(paymentID)
}

func fsmState(t *testing.T, body []byte) string {
	t.Helper()
	var resp struct {
		State string `json:"state"`
	}
	mustUnmarshal(t, body, &resp)
	return resp.State
}

func mustUnmarshal(t *testing.T, body []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("unmarshal %s: %v", string(body), err)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func doReq(t *testing.T, baseURL, method, path, debugUserID string, body any) (int, []byte) {
	t.Helper()

	var raw []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		raw = b
	}
	return doReqRaw(t, baseURL, method, path, debugUserID, raw)
}

func doReqRaw(t *testing.T, baseURL, method, path, debugUserID string, body []byte) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if debugUserID != "" {
		req.Header.Set("X-Debug-User-ID", debugUserID)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, respBody
}

func doReqHeaders(t *testing.T, baseURL, method, path, debugUserID string) (int, []byte, http.Header) {
	t.Helper()

	req, err := http.NewRequest(method, baseURL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("X-Debug-User-ID", debugUserID)

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, respBody, res.Header
}
