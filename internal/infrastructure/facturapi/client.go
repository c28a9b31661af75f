// Package facturapi implementa el cliente HTTP del PAC (FacturAPI).
// Es frontera de I/O pura: traduce peticiones de dominio a llamadas REST y
// normaliza errores de transporte; cero lógica de negocio y cero reintentos
// (la política de reintento pertenece al caller).
package facturapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/facturacion-mx/pkg/config"
)

const (
	baseURLLive    = "https://www.facturapi.io/v2"
	baseURLSandbox = "https://www.facturapi.io/v2" // mismo host; el ambiente lo decide la llave

	maxResponseBytes = 1 << 20 // 1 MB
)

// ErrTimeout timeout o cancelación de la llamada HTTP al PAC.
// Se distingue del APIError: el PAC nunca respondió.
var ErrTimeout = errors.New("facturapi: timeout o cancelación de la llamada")

// ErrConnection fallo de red antes de obtener respuesta.
var ErrConnection = errors.New("facturapi: error de conexión con el PAC")

// APIError respuesta no-2xx del PAC con el cuerpo crudo preservado.
type APIError struct {
	StatusCode int
	Message    string // extraído de "message"/"error" del JSON, o texto plano
	RawBody    string // cuerpo crudo, siempre preservado para el Response Log
}

func (e *APIError) Error() string {
	return fmt.Sprintf("facturapi: HTTP %d: %s", e.StatusCode, e.Message)
}

// StampResult respuesta de timbrado parseada + cruda.
type StampResult struct {
	ID        string          `json:"id"`   // id interno del PAC; necesario para cancelar
	UUID      string          `json:"uuid"` // folio fiscal SAT
	Folio     string          `json:"folio_number"`
	Series    string          `json:"series"`
	Total     decimal.Decimal `json:"total"`
	StampDate string          `json:"stamp_date"`
	Raw       string          `json:"-"` // JSON crudo completo
}

// CancelResult respuesta de cancelación parseada + cruda.
type CancelResult struct {
	ID           string `json:"id"`
	Status       string `json:"status"` // "canceled" cuando el SAT ya confirmó
	CancelledAt  string `json:"canceled_at"`
	AckAvailable bool   `json:"-"` // hay acuse descargable
	Raw          string `json:"-"`
}

// Client cliente REST de FacturAPI. Bearer token; la llave (sandbox o live)
// y el timeout vienen de la configuración, nunca de estado ambiente.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient construye el cliente con la llave del ambiente configurado.
func NewClient(cfg config.PACConfig) *Client {
	base := baseURLLive
	if cfg.Sandbox {
		base = baseURLSandbox
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		baseURL:    base,
		apiKey:     cfg.APIKey(),
	}
}

// CreateInvoice envía el payload de timbrado. POST /invoices.
func (c *Client) CreateInvoice(ctx context.Context, payload map[string]any) (*StampResult, error) {
	raw, err := c.do(ctx, http.MethodPost, "/invoices", payload)
	if err != nil {
		return nil, err
	}
	var result StampResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("facturapi: parsear respuesta de timbrado: %w", err)
	}
	result.Raw = string(raw)
	return &result, nil
}

// CancelInvoice solicita la cancelación. DELETE /invoices/{id}?motive=XX[&substitution=UUID].
// motive "01" exige substitutionUUID; el guard vive en el orquestador, aquí
// solo se serializa lo recibido.
func (c *Client) CancelInvoice(ctx context.Context, pacInvoiceID, motive, substitutionUUID string) (*CancelResult, error) {
	q := url.Values{}
	q.Set("motive", motive)
	if substitutionUUID != "" {
		q.Set("substitution", substitutionUUID)
	}
	path := fmt.Sprintf("/invoices/%s?%s", url.PathEscape(pacInvoiceID), q.Encode())

	raw, err := c.do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return nil, err
	}
	var result CancelResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("facturapi: parsear respuesta de cancelación: %w", err)
	}
	result.Raw = string(raw)
	result.AckAvailable = result.Status == "canceled"
	return &result, nil
}

// DownloadPDF descarga la representación impresa emitida por el PAC.
func (c *Client) DownloadPDF(ctx context.Context, pacInvoiceID string) ([]byte, error) {
	return c.download(ctx, pacInvoiceID, "pdf")
}

// DownloadXML descarga el CFDI timbrado (XML con TimbreFiscalDigital).
func (c *Client) DownloadXML(ctx context.Context, pacInvoiceID string) ([]byte, error) {
	return c.download(ctx, pacInvoiceID, "xml")
}

// DownloadCancellationReceipt descarga el acuse de cancelación del SAT.
func (c *Client) DownloadCancellationReceipt(ctx context.Context, pacInvoiceID string) ([]byte, error) {
	return c.download(ctx, pacInvoiceID, "cancellation_receipt/xml")
}

func (c *Client) download(ctx context.Context, pacInvoiceID, kind string) ([]byte, error) {
	path := fmt.Sprintf("/invoices/%s/%s", url.PathEscape(pacInvoiceID), kind)
	return c.do(ctx, http.MethodGet, path, nil)
}

// do ejecuta la llamada y normaliza los tres modos de fallo:
// timeout/cancelación (ErrTimeout), error de red (ErrConnection) y
// respuesta no-2xx (*APIError con el cuerpo crudo).
func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("facturapi: serializar payload: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("facturapi: crear request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w tras %s: %v", ErrTimeout, time.Since(start).Round(time.Millisecond), err)
		}
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("%w tras %s: %v", ErrTimeout, time.Since(start).Round(time.Millisecond), err)
		}
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("facturapi: leer respuesta: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseAPIError(resp.StatusCode, rawBody)
	}
	return rawBody, nil
}

// parseAPIError extrae el mensaje del cuerpo JSON ("message" o "error") con
// fallback a texto plano. El cuerpo crudo se preserva siempre.
func parseAPIError(statusCode int, rawBody []byte) *APIError {
	apiErr := &APIError{
		StatusCode: statusCode,
		RawBody:    string(rawBody),
	}

	var parsed struct {
		Message string `json:"message"`
		ErrMsg  string `json:"error"`
	}
	if err := json.Unmarshal(rawBody, &parsed); err == nil {
		switch {
		case parsed.Message != "":
			apiErr.Message = parsed.Message
		case parsed.ErrMsg != "":
			apiErr.Message = parsed.ErrMsg
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = string(rawBody)
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(statusCode)
	}
	return apiErr
}
