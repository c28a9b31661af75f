package facturapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient apunta el cliente al servidor httptest.
func newTestClient(serverURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    serverURL,
		apiKey:     "sk_test_xxx",
	}
}

func TestCreateInvoice_Exitoso(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/invoices", r.URL.Path)
		require.Equal(t, "Bearer sk_test_xxx", r.Header.Get("Authorization"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{
			"id": "63dcb8a0f",
			"uuid": "AAA-BBB-CCC",
			"folio_number": "FFM-00042",
			"series": "F",
			"total": 1160.00,
			"stamp_date": "2026-01-15T10:00:00"
		}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 5*time.Second)
	result, err := c.CreateInvoice(context.Background(), map[string]any{"customer": "x"})
	require.NoError(t, err)

	assert.Equal(t, "63dcb8a0f", result.ID)
	assert.Equal(t, "AAA-BBB-CCC", result.UUID)
	assert.Equal(t, "FFM-00042", result.Folio)
	assert.Equal(t, "1160", result.Total.String())
	assert.Contains(t, result.Raw, `"uuid"`, "la respuesta cruda se preserva completa")
}

func TestCreateInvoice_ErrorConMensajeJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message": "El RFC del receptor no es válido"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 5*time.Second)
	_, err := c.CreateInvoice(context.Background(), map[string]any{})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "El RFC del receptor no es válido", apiErr.Message)
	assert.Contains(t, apiErr.RawBody, "RFC", "el cuerpo crudo se preserva para el Response Log")
}

func TestCreateInvoice_ErrorTextoPlano(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`gateway exploded`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 5*time.Second)
	_, err := c.CreateInvoice(context.Background(), map[string]any{})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "gateway exploded", apiErr.Message)
}

func TestCancelInvoice_QueryParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/invoices/fake123", r.URL.Path)
		assert.Equal(t, "01", r.URL.Query().Get("motive"))
		assert.Equal(t, "NEW-UUID", r.URL.Query().Get("substitution"))
		_, _ = w.Write([]byte(`{"id":"fake123","status":"canceled","canceled_at":"2026-01-15T11:00:00"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 5*time.Second)
	result, err := c.CancelInvoice(context.Background(), "fake123", "01", "NEW-UUID")
	require.NoError(t, err)
	assert.Equal(t, "canceled", result.Status)
	assert.True(t, result.AckAvailable)
}

func TestCancelInvoice_SinSubstitutionOmiteParam(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasSub := r.URL.Query()["substitution"]
		assert.False(t, hasSub)
		assert.Equal(t, "02", r.URL.Query().Get("motive"))
		_, _ = w.Write([]byte(`{"id":"fake123","status":"pending"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 5*time.Second)
	result, err := c.CancelInvoice(context.Background(), "fake123", "02", "")
	require.NoError(t, err)
	assert.False(t, result.AckAvailable, "status pending no tiene acuse disponible")
}

func TestDo_TimeoutSeDistingueDeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 20*time.Millisecond)
	_, err := c.CreateInvoice(context.Background(), map[string]any{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr), "un timeout nunca debe verse como APIError")
}

func TestDownloadXML_Ruta(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/invoices/abc/xml", r.URL.Path)
		_, _ = w.Write([]byte(`<cfdi:Comprobante/>`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 5*time.Second)
	data, err := c.DownloadXML(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, `<cfdi:Comprobante/>`, string(data))
}
