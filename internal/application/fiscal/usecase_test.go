package fiscal

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tu-usuario/facturacion-mx/internal/application/dto"
	"github.com/tu-usuario/facturacion-mx/internal/domain"
	"github.com/tu-usuario/facturacion-mx/internal/domain/entity"
	"github.com/tu-usuario/facturacion-mx/pkg/config"
	"github.com/tu-usuario/facturacion-mx/pkg/logger"
	"github.com/tu-usuario/facturacion-mx/pkg/sat"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes mínimos del paquete: aquí no hay protocolo PAC, solo lecturas y
// escrituras simples, así que los dobles guardan punteros directos.
// ─────────────────────────────────────────────────────────────────────────────

type memFFMRepo struct {
	docs         map[string]*entity.FacturaFiscalMexico
	seq          int
	statusWrites []string // "<id>:<status>"
}

func newMemFFMRepo() *memFFMRepo {
	return &memFFMRepo{docs: map[string]*entity.FacturaFiscalMexico{}}
}

func (r *memFFMRepo) Create(_ context.Context, ffm *entity.FacturaFiscalMexico) error {
	if ffm.ID == "" {
		r.seq++
		ffm.ID = fmt.Sprintf("FFM-%03d", r.seq)
	}
	r.docs[ffm.ID] = ffm
	return nil
}

func (r *memFFMRepo) GetByID(_ context.Context, id string) (*entity.FacturaFiscalMexico, error) {
	d, ok := r.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: ffm %s", domain.ErrNotFound, id)
	}
	return d, nil
}

func (r *memFFMRepo) GetActiveBySalesInvoice(_ context.Context, salesInvoiceID string) (*entity.FacturaFiscalMexico, error) {
	for _, d := range r.docs {
		if d.SalesInvoice == salesInvoiceID && d.FiscalStatus != entity.StatusCancelada {
			return d, nil
		}
	}
	return nil, nil
}

func (r *memFFMRepo) GetStampedBySalesInvoice(_ context.Context, salesInvoiceID string) (*entity.FacturaFiscalMexico, error) {
	for _, d := range r.docs {
		if d.SalesInvoice == salesInvoiceID && d.FiscalStatus == entity.StatusTimbrada {
			return d, nil
		}
	}
	return nil, nil
}

func (r *memFFMRepo) GetByUUID(_ context.Context, uuid string) (*entity.FacturaFiscalMexico, error) {
	for _, d := range r.docs {
		if d.UUID == uuid {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: uuid %s", domain.ErrNotFound, uuid)
}

func (r *memFFMRepo) ListBySalesInvoice(_ context.Context, salesInvoiceID string) ([]*entity.FacturaFiscalMexico, error) {
	var out []*entity.FacturaFiscalMexico
	for _, d := range r.docs {
		if d.SalesInvoice == salesInvoiceID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *memFFMRepo) Update(_ context.Context, ffm *entity.FacturaFiscalMexico) error {
	r.docs[ffm.ID] = ffm
	return nil
}

func (r *memFFMRepo) UpdateStatus(_ context.Context, id, status string) error {
	r.statusWrites = append(r.statusWrites, id+":"+status)
	if d, ok := r.docs[id]; ok {
		d.FiscalStatus = status
	}
	return nil
}

func (r *memFFMRepo) ClearSalesInvoiceLink(_ context.Context, id string) error {
	if d, ok := r.docs[id]; ok {
		d.SalesInvoice = ""
	}
	return nil
}

type memSIRepo struct {
	invoices map[string]*entity.SalesInvoice
	items    map[string][]*entity.SalesInvoiceItem
}

func newMemSIRepo() *memSIRepo {
	return &memSIRepo{
		invoices: map[string]*entity.SalesInvoice{},
		items:    map[string][]*entity.SalesInvoiceItem{},
	}
}

func (r *memSIRepo) Create(_ context.Context, inv *entity.SalesInvoice) error {
	r.invoices[inv.ID] = inv
	return nil
}

func (r *memSIRepo) CreateItem(_ context.Context, item *entity.SalesInvoiceItem) error {
	r.items[item.InvoiceID] = append(r.items[item.InvoiceID], item)
	return nil
}

func (r *memSIRepo) GetByID(_ context.Context, id string) (*entity.SalesInvoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return nil, fmt.Errorf("%w: factura %s", domain.ErrNotFound, id)
	}
	return inv, nil
}

func (r *memSIRepo) GetItems(_ context.Context, invoiceID string) ([]*entity.SalesInvoiceItem, error) {
	return r.items[invoiceID], nil
}

func (r *memSIRepo) Update(_ context.Context, inv *entity.SalesInvoice) error {
	r.invoices[inv.ID] = inv
	return nil
}

func (r *memSIRepo) SetDocstatus(_ context.Context, id string, docstatus int) error {
	if inv, ok := r.invoices[id]; ok {
		inv.Docstatus = docstatus
	}
	return nil
}

func (r *memSIRepo) ClearFiscalLink(_ context.Context, id string) error {
	if inv, ok := r.invoices[id]; ok {
		inv.FacturaFiscalMX = ""
	}
	return nil
}

type memCustomerRepo struct {
	customers map[string]*entity.Customer
}

func (r *memCustomerRepo) Create(_ context.Context, c *entity.Customer) error {
	r.customers[c.ID] = c
	return nil
}

func (r *memCustomerRepo) GetByID(_ context.Context, id string) (*entity.Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return nil, fmt.Errorf("%w: cliente %s", domain.ErrNotFound, id)
	}
	return c, nil
}

func (r *memCustomerRepo) Update(_ context.Context, c *entity.Customer) error {
	r.customers[c.ID] = c
	return nil
}

type memLogRepo struct {
	rows []*entity.PACResponseLog
}

func (r *memLogRepo) Create(_ context.Context, row *entity.PACResponseLog) error {
	r.rows = append(r.rows, row)
	return nil
}

func (r *memLogRepo) ListByFiscalDocument(_ context.Context, ffmID string) ([]*entity.PACResponseLog, error) {
	var out []*entity.PACResponseLog
	for _, row := range r.rows {
		if row.FacturaFiscalMexico == ffmID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memLogRepo) LatestStampingRequest(_ context.Context, ffmID string) (*entity.PACResponseLog, error) {
	for i := len(r.rows) - 1; i >= 0; i-- {
		row := r.rows[i]
		if row.FacturaFiscalMexico == ffmID && row.OperationType == entity.OperationTimbrado && row.Success {
			return row, nil
		}
	}
	return nil, nil
}

type memEventRepo struct {
	events []*entity.FiscalEventMX
}

func (r *memEventRepo) Create(_ context.Context, event *entity.FiscalEventMX) error {
	r.events = append(r.events, event)
	return nil
}

func (r *memEventRepo) Update(_ context.Context, _ *entity.FiscalEventMX) error { return nil }

func (r *memEventRepo) ListByReference(_ context.Context, _, refName string) ([]*entity.FiscalEventMX, error) {
	var out []*entity.FiscalEventMX
	for _, e := range r.events {
		if e.ReferenceName == refName {
			out = append(out, e)
		}
	}
	return out, nil
}

type fiscalEnv struct {
	uc       *UseCase
	ffmRepo  *memFFMRepo
	siRepo   *memSIRepo
	custRepo *memCustomerRepo
	logRepo  *memLogRepo
	evRepo   *memEventRepo
}

func newFiscalEnv() *fiscalEnv {
	ffmRepo := newMemFFMRepo()
	siRepo := newMemSIRepo()
	custRepo := &memCustomerRepo{customers: map[string]*entity.Customer{}}
	logRepo := &memLogRepo{}
	evRepo := &memEventRepo{}

	uc := NewUseCase(
		ffmRepo, siRepo, custRepo, logRepo, evRepo,
		config.FiscalConfig{RoundingTolerance: 0.01, DiscrepancyThreshold: 1.00, RecentErrorHours: 24},
		logger.New(logger.Config{Env: "production", Level: "error"}),
	)

	custRepo.customers["CUST-001"] = &entity.Customer{
		ID:        "CUST-001",
		Name:      "Ejemplo Comercial, S.A. de C.V.",
		RFC:       "EKU9003173C9",
		TaxRegime: "601",
		ZipCode:   "03810",
		Country:   "México",
		RFCValid:  true,
	}
	siRepo.invoices["SI-001"] = &entity.SalesInvoice{
		ID:           "SI-001",
		CustomerID:   "CUST-001",
		CompanyID:    "CO-001",
		Currency:     "MXN",
		ExchangeRate: decimal.NewFromInt(1),
		Subtotal:     decimal.NewFromInt(100),
		TotalIVA:     decimal.NewFromInt(16),
		GrandTotal:   decimal.NewFromInt(116),
		Docstatus:    entity.DocstatusSubmitted,
	}

	return &fiscalEnv{uc: uc, ffmRepo: ffmRepo, siRepo: siRepo, custRepo: custRepo, logRepo: logRepo, evRepo: evRepo}
}

func createReq() dto.CreateFacturaFiscalRequest {
	return dto.CreateFacturaFiscalRequest{
		SalesInvoiceID:   "SI-001",
		CFDIUse:          sat.CFDIUseGastosGenerales,
		PaymentMethodSAT: sat.PaymentMethodPUE,
		FormaPago:        "03",
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// CreateFacturaFiscal
// ─────────────────────────────────────────────────────────────────────────────

func TestCreateFacturaFiscal_HappyPath(t *testing.T) {
	env := newFiscalEnv()

	ffm, err := env.uc.CreateFacturaFiscal(context.Background(), createReq())
	require.NoError(t, err)

	assert.Equal(t, entity.StatusPendiente, ffm.FiscalStatus)
	assert.Equal(t, "SI-001", ffm.SalesInvoice)
	assert.Equal(t, "CUST-001", ffm.CustomerID)
	assert.Equal(t, "CO-001", ffm.CompanyID)

	// Snapshot de totales congelado al momento de crear el documento.
	assert.True(t, ffm.SITotalAntesIVA.Equal(decimal.NewFromInt(100)))
	assert.True(t, ffm.SIIVA.Equal(decimal.NewFromInt(16)))
	assert.True(t, ffm.SITotalNeto.Equal(decimal.NewFromInt(116)))

	// Back-reference en la factura y evento de auditoría.
	assert.Equal(t, ffm.ID, env.siRepo.invoices["SI-001"].FacturaFiscalMX)
	require.Len(t, env.evRepo.events, 1)
	assert.Equal(t, entity.EventDocumentCreated, env.evRepo.events[0].EventType)
}

func TestCreateFacturaFiscal_FacturaNoSubmitted(t *testing.T) {
	env := newFiscalEnv()
	env.siRepo.invoices["SI-001"].Docstatus = 0

	_, err := env.uc.CreateFacturaFiscal(context.Background(), createReq())
	assert.ErrorIs(t, err, domain.ErrInvoiceNotSubmitted)
}

func TestCreateFacturaFiscal_DocumentoActivoDuplicado(t *testing.T) {
	env := newFiscalEnv()
	_, err := env.uc.CreateFacturaFiscal(context.Background(), createReq())
	require.NoError(t, err)

	_, err = env.uc.CreateFacturaFiscal(context.Background(), createReq())
	assert.ErrorIs(t, err, domain.ErrDuplicateActiveDocument)
}

func TestCreateFacturaFiscal_TimbradaTambienCuentaComoActiva(t *testing.T) {
	env := newFiscalEnv()
	ffm, err := env.uc.CreateFacturaFiscal(context.Background(), createReq())
	require.NoError(t, err)
	require.NoError(t, ffm.TransitionTo(entity.StatusTimbrada))

	_, err = env.uc.CreateFacturaFiscal(context.Background(), createReq())
	assert.ErrorIs(t, err, domain.ErrDuplicateActiveDocument)
}

func TestCreateFacturaFiscal_ReceptorSinRFC(t *testing.T) {
	env := newFiscalEnv()
	env.custRepo.customers["CUST-001"].RFC = "   "

	_, err := env.uc.CreateFacturaFiscal(context.Background(), createReq())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateFacturaFiscal_PUENoAdmiteForma99(t *testing.T) {
	env := newFiscalEnv()
	req := createReq()
	req.FormaPago = sat.PaymentFormPorDefinir

	_, err := env.uc.CreateFacturaFiscal(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, env.ffmRepo.docs, "el guard corre antes de persistir")
}

func TestCreateFacturaFiscal_OverrideDeReceptor(t *testing.T) {
	env := newFiscalEnv()
	env.custRepo.customers["CUST-002"] = &entity.Customer{
		ID: "CUST-002", Name: "Otro Receptor", RFC: "XAXX010101000",
		TaxRegime: "616", ZipCode: "06600", Country: "México",
	}
	req := createReq()
	req.CustomerID = "CUST-002"

	ffm, err := env.uc.CreateFacturaFiscal(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "CUST-002", ffm.CustomerID)
}

// ─────────────────────────────────────────────────────────────────────────────
// GetEstado
// ─────────────────────────────────────────────────────────────────────────────

func TestGetEstado_DerivaYReparaDesdeLaBitacora(t *testing.T) {
	env := newFiscalEnv()
	ffm, err := env.uc.CreateFacturaFiscal(context.Background(), createReq())
	require.NoError(t, err)

	// La bitácora dice Timbrada pero el estado vivo se quedó en Pendiente
	// (por ejemplo, un timbrado cuya fase 3 falló a medias).
	env.logRepo.rows = append(env.logRepo.rows, &entity.PACResponseLog{
		FacturaFiscalMexico: ffm.ID,
		OperationType:       entity.OperationTimbrado,
		Success:             true,
		StatusCode:          201,
		FacturapiResponse:   `{"uuid":"AAAA"}`,
		Timestamp:           time.Now().Add(-time.Minute),
	})

	estado, err := env.uc.GetEstado(context.Background(), "SI-001")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusTimbrada, estado.FiscalStatus)
	assert.Contains(t, env.ffmRepo.statusWrites, ffm.ID+":"+entity.StatusTimbrada,
		"el estado vivo se repara con la escritura re-afirmante")
	assert.Equal(t, entity.ValidationGreen, estado.ValidationColor)
}

func TestGetEstado_SemaforoAmarilloSinDomicilio(t *testing.T) {
	env := newFiscalEnv()
	_, err := env.uc.CreateFacturaFiscal(context.Background(), createReq())
	require.NoError(t, err)
	env.custRepo.customers["CUST-001"].ZipCode = ""

	estado, err := env.uc.GetEstado(context.Background(), "SI-001")
	require.NoError(t, err)
	assert.Equal(t, entity.ValidationYellow, estado.ValidationColor)
}

func TestGetEstado_SinDocumentoActivo(t *testing.T) {
	env := newFiscalEnv()
	_, err := env.uc.GetEstado(context.Background(), "SI-001")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetEstado_SinLogsSeQuedaPendiente(t *testing.T) {
	env := newFiscalEnv()
	_, err := env.uc.CreateFacturaFiscal(context.Background(), createReq())
	require.NoError(t, err)

	estado, err := env.uc.GetEstado(context.Background(), "SI-001")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPendiente, estado.FiscalStatus)
	assert.Empty(t, env.ffmRepo.statusWrites, "sin divergencia no hay escritura")
}

// ─────────────────────────────────────────────────────────────────────────────
// ListLogs
// ─────────────────────────────────────────────────────────────────────────────

func TestListLogs_MapeaLaBitacora(t *testing.T) {
	env := newFiscalEnv()
	ffm, err := env.uc.CreateFacturaFiscal(context.Background(), createReq())
	require.NoError(t, err)

	ts := time.Date(2025, 8, 20, 14, 5, 0, 0, time.UTC)
	env.logRepo.rows = append(env.logRepo.rows,
		&entity.PACResponseLog{
			ID: "LOG-1", FacturaFiscalMexico: ffm.ID,
			OperationType: entity.OperationTimbrado, Success: false,
			StatusCode: 400, ErrorMessage: "tax_id inválido", Timestamp: ts,
		},
		&entity.PACResponseLog{
			ID: "LOG-2", FacturaFiscalMexico: ffm.ID,
			OperationType: entity.OperationTimbrado, Success: true,
			StatusCode: 201, FacturapiResponse: `{}`, Timestamp: ts.Add(time.Minute),
		},
	)

	logs, err := env.uc.ListLogs(context.Background(), "SI-001")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "LOG-1", logs[0].ID)
	assert.False(t, logs[0].Success)
	assert.Equal(t, "tax_id inválido", logs[0].ErrorMessage)
	assert.Equal(t, ts.Format(time.RFC3339), logs[0].Timestamp)
	assert.True(t, logs[1].Success)
}

func TestListLogs_SinDocumentoActivo(t *testing.T) {
	env := newFiscalEnv()
	_, err := env.uc.ListLogs(context.Background(), "SI-001")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
