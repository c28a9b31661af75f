package timbrado

// Fakes en memoria para el orquestador. El journal registra el orden de los
// efectos laterales; varios tests afirman sobre él (en particular, que el
// renglón del Response Log precede a la reconciliación).

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/facturacion-mx/internal/domain"
	"github.com/tu-usuario/facturacion-mx/internal/domain/entity"
	"github.com/tu-usuario/facturacion-mx/internal/domain/repository"
	"github.com/tu-usuario/facturacion-mx/internal/infrastructure/facturapi"
	"github.com/tu-usuario/facturacion-mx/pkg/config"
	"github.com/tu-usuario/facturacion-mx/pkg/logger"
	"github.com/tu-usuario/facturacion-mx/pkg/sat"
)

type journal struct {
	entries []string
}

func (j *journal) add(entry string) { j.entries = append(j.entries, entry) }

func (j *journal) indexOf(entry string) int {
	for i, e := range j.entries {
		if e == entry {
			return i
		}
	}
	return -1
}

// ── FacturaFiscalRepository ──────────────────────────────────────────────────

// Las lecturas regresan copias, como una base de datos real: lo que el
// servicio mute en memoria no toca el almacén hasta Update.

type fakeFFMRepo struct {
	docs map[string]*entity.FacturaFiscalMexico
	j    *journal
	seq  int
}

func newFakeFFMRepo(j *journal) *fakeFFMRepo {
	return &fakeFFMRepo{docs: map[string]*entity.FacturaFiscalMexico{}, j: j}
}

func copyFFM(d *entity.FacturaFiscalMexico) *entity.FacturaFiscalMexico {
	c := *d
	return &c
}

func (r *fakeFFMRepo) Create(_ context.Context, ffm *entity.FacturaFiscalMexico) error {
	if ffm.ID == "" {
		r.seq++
		ffm.ID = fmt.Sprintf("FFM-%03d", r.seq)
	}
	r.docs[ffm.ID] = copyFFM(ffm)
	return nil
}

func (r *fakeFFMRepo) GetByID(_ context.Context, id string) (*entity.FacturaFiscalMexico, error) {
	if d, ok := r.docs[id]; ok {
		return copyFFM(d), nil
	}
	return nil, fmt.Errorf("%w: ffm %s", domain.ErrNotFound, id)
}

func (r *fakeFFMRepo) GetActiveBySalesInvoice(_ context.Context, salesInvoiceID string) (*entity.FacturaFiscalMexico, error) {
	for _, d := range r.docs {
		if d.SalesInvoice == salesInvoiceID && d.IsActive() {
			return copyFFM(d), nil
		}
	}
	return nil, nil
}

func (r *fakeFFMRepo) GetStampedBySalesInvoice(_ context.Context, salesInvoiceID string) (*entity.FacturaFiscalMexico, error) {
	for _, d := range r.docs {
		if d.SalesInvoice == salesInvoiceID && d.FiscalStatus == entity.StatusTimbrada {
			return copyFFM(d), nil
		}
	}
	return nil, nil
}

func (r *fakeFFMRepo) GetByUUID(_ context.Context, uuid string) (*entity.FacturaFiscalMexico, error) {
	for _, d := range r.docs {
		if d.UUID == uuid {
			return copyFFM(d), nil
		}
	}
	return nil, fmt.Errorf("%w: uuid %s", domain.ErrNotFound, uuid)
}

func (r *fakeFFMRepo) ListBySalesInvoice(_ context.Context, salesInvoiceID string) ([]*entity.FacturaFiscalMexico, error) {
	var out []*entity.FacturaFiscalMexico
	for _, d := range r.docs {
		if d.SalesInvoice == salesInvoiceID {
			out = append(out, copyFFM(d))
		}
	}
	return out, nil
}

func (r *fakeFFMRepo) Update(_ context.Context, ffm *entity.FacturaFiscalMexico) error {
	r.j.add("ffm.update:" + ffm.ID)
	r.docs[ffm.ID] = copyFFM(ffm)
	return nil
}

func (r *fakeFFMRepo) UpdateStatus(_ context.Context, id, status string) error {
	d, ok := r.docs[id]
	if !ok {
		return fmt.Errorf("%w: ffm %s", domain.ErrNotFound, id)
	}
	d.ForceSetStatus(status)
	r.j.add("ffm.status:" + id + ":" + status)
	return nil
}

func (r *fakeFFMRepo) ClearSalesInvoiceLink(_ context.Context, id string) error {
	d, ok := r.docs[id]
	if !ok {
		return fmt.Errorf("%w: ffm %s", domain.ErrNotFound, id)
	}
	d.SalesInvoice = ""
	r.j.add("ffm.clearlink:" + id)
	return nil
}

// ── SalesInvoiceRepository ───────────────────────────────────────────────────

type fakeSIRepo struct {
	invoices map[string]*entity.SalesInvoice
	items    map[string][]*entity.SalesInvoiceItem
	j        *journal
	seq      int
}

func newFakeSIRepo(j *journal) *fakeSIRepo {
	return &fakeSIRepo{
		invoices: map[string]*entity.SalesInvoice{},
		items:    map[string][]*entity.SalesInvoiceItem{},
		j:        j,
	}
}

func copySI(inv *entity.SalesInvoice) *entity.SalesInvoice {
	c := *inv
	return &c
}

func (r *fakeSIRepo) Create(_ context.Context, inv *entity.SalesInvoice) error {
	if inv.ID == "" {
		r.seq++
		inv.ID = fmt.Sprintf("SI-%03d", r.seq)
	}
	r.invoices[inv.ID] = copySI(inv)
	return nil
}

func (r *fakeSIRepo) CreateItem(_ context.Context, item *entity.SalesInvoiceItem) error {
	r.items[item.InvoiceID] = append(r.items[item.InvoiceID], item)
	return nil
}

func (r *fakeSIRepo) GetByID(_ context.Context, id string) (*entity.SalesInvoice, error) {
	if inv, ok := r.invoices[id]; ok {
		return copySI(inv), nil
	}
	return nil, fmt.Errorf("%w: factura %s", domain.ErrNotFound, id)
}

func (r *fakeSIRepo) GetItems(_ context.Context, invoiceID string) ([]*entity.SalesInvoiceItem, error) {
	return r.items[invoiceID], nil
}

func (r *fakeSIRepo) Update(_ context.Context, inv *entity.SalesInvoice) error {
	r.j.add("si.update:" + inv.ID)
	r.invoices[inv.ID] = copySI(inv)
	return nil
}

func (r *fakeSIRepo) SetDocstatus(_ context.Context, id string, docstatus int) error {
	inv, ok := r.invoices[id]
	if !ok {
		return fmt.Errorf("%w: factura %s", domain.ErrNotFound, id)
	}
	inv.Docstatus = docstatus
	r.j.add(fmt.Sprintf("si.docstatus:%s:%d", id, docstatus))
	return nil
}

func (r *fakeSIRepo) ClearFiscalLink(_ context.Context, id string) error {
	inv, ok := r.invoices[id]
	if !ok {
		return fmt.Errorf("%w: factura %s", domain.ErrNotFound, id)
	}
	inv.FacturaFiscalMX = ""
	r.j.add("si.clearlink:" + id)
	return nil
}

// ── CustomerRepository ───────────────────────────────────────────────────────

type fakeCustomerRepo struct {
	customers map[string]*entity.Customer
}

func (r *fakeCustomerRepo) Create(_ context.Context, c *entity.Customer) error {
	r.customers[c.ID] = c
	return nil
}

func (r *fakeCustomerRepo) GetByID(_ context.Context, id string) (*entity.Customer, error) {
	if c, ok := r.customers[id]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: cliente %s", domain.ErrNotFound, id)
}

func (r *fakeCustomerRepo) Update(_ context.Context, c *entity.Customer) error {
	r.customers[c.ID] = c
	return nil
}

// ── ResponseLogRepository ────────────────────────────────────────────────────

type fakeLogRepo struct {
	rows       []*entity.PACResponseLog
	j          *journal
	failCreate error
}

func (r *fakeLogRepo) Create(_ context.Context, row *entity.PACResponseLog) error {
	if r.failCreate != nil {
		return r.failCreate
	}
	if err := row.Validate(); err != nil {
		return err
	}
	row.ID = fmt.Sprintf("LOG-%03d", len(r.rows)+1)
	r.rows = append(r.rows, row)
	r.j.add(fmt.Sprintf("log:%s:%t", row.OperationType, row.Success))
	return nil
}

func (r *fakeLogRepo) ListByFiscalDocument(_ context.Context, ffmID string) ([]*entity.PACResponseLog, error) {
	var out []*entity.PACResponseLog
	for _, row := range r.rows {
		if row.FacturaFiscalMexico == ffmID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *fakeLogRepo) LatestStampingRequest(_ context.Context, ffmID string) (*entity.PACResponseLog, error) {
	for i := len(r.rows) - 1; i >= 0; i-- {
		row := r.rows[i]
		if row.FacturaFiscalMexico == ffmID && row.OperationType == entity.OperationTimbrado && row.Success {
			return row, nil
		}
	}
	return nil, nil
}

func (r *fakeLogRepo) rowsFor(ffmID string) []*entity.PACResponseLog {
	out, _ := r.ListByFiscalDocument(context.Background(), ffmID)
	return out
}

// ── FiscalEventRepository / RecoveryTaskRepository ───────────────────────────

type fakeEventRepo struct {
	events []*entity.FiscalEventMX
}

func (r *fakeEventRepo) Create(_ context.Context, e *entity.FiscalEventMX) error {
	r.events = append(r.events, e)
	return nil
}

func (r *fakeEventRepo) Update(_ context.Context, _ *entity.FiscalEventMX) error { return nil }

func (r *fakeEventRepo) ListByReference(_ context.Context, _, refName string) ([]*entity.FiscalEventMX, error) {
	var out []*entity.FiscalEventMX
	for _, e := range r.events {
		if e.ReferenceName == refName {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeRecoveryRepo struct {
	tasks []*entity.RecoveryTask
}

func (r *fakeRecoveryRepo) Create(_ context.Context, t *entity.RecoveryTask) error {
	r.tasks = append(r.tasks, t)
	return nil
}

func (r *fakeRecoveryRepo) Update(_ context.Context, _ *entity.RecoveryTask) error { return nil }

func (r *fakeRecoveryRepo) ListPending(_ context.Context, _ int) ([]*entity.RecoveryTask, error) {
	return r.tasks, nil
}

// ── PACClient ────────────────────────────────────────────────────────────────

type fakePAC struct {
	stampResult *facturapi.StampResult
	stampErr    error
	stampCalls  int

	cancelResult     *facturapi.CancelResult
	cancelErr        error
	cancelCalls      int
	lastCancelID     string
	lastCancelMotive string
	lastCancelSubst  string

	pdfData, xmlData, ackData []byte
	pdfErr, xmlErr, ackErr    error
}

func (p *fakePAC) CreateInvoice(_ context.Context, _ map[string]any) (*facturapi.StampResult, error) {
	p.stampCalls++
	if p.stampErr != nil {
		return nil, p.stampErr
	}
	return p.stampResult, nil
}

func (p *fakePAC) CancelInvoice(_ context.Context, pacInvoiceID, motive, substitutionUUID string) (*facturapi.CancelResult, error) {
	p.cancelCalls++
	p.lastCancelID = pacInvoiceID
	p.lastCancelMotive = motive
	p.lastCancelSubst = substitutionUUID
	if p.cancelErr != nil {
		return nil, p.cancelErr
	}
	return p.cancelResult, nil
}

func (p *fakePAC) DownloadPDF(_ context.Context, _ string) ([]byte, error) {
	return p.pdfData, p.pdfErr
}

func (p *fakePAC) DownloadXML(_ context.Context, _ string) ([]byte, error) {
	return p.xmlData, p.xmlErr
}

func (p *fakePAC) DownloadCancellationReceipt(_ context.Context, _ string) ([]byte, error) {
	return p.ackData, p.ackErr
}

// ── FiscalTxRunner / DocumentLocker / FileStore ──────────────────────────────

type fakeTxRunner struct {
	ffm  *fakeFFMRepo
	si   *fakeSIRepo
	ev   *fakeEventRepo
	rec  *fakeRecoveryRepo
	j    *journal
	fail error
}

func (t *fakeTxRunner) Run(ctx context.Context, fn func(
	ffmRepo repository.FacturaFiscalRepository,
	siRepo repository.SalesInvoiceRepository,
	eventRepo repository.FiscalEventRepository,
	recoveryRepo repository.RecoveryTaskRepository,
) error) error {
	if t.fail != nil {
		// Rollback simulado: nada del callback se aplica.
		t.j.add("tx.rollback")
		return t.fail
	}
	t.j.add("tx.begin")
	if err := fn(t.ffm, t.si, t.ev, t.rec); err != nil {
		t.j.add("tx.rollback")
		return err
	}
	t.j.add("tx.commit")
	return nil
}

type fakeLocker struct {
	locks    int
	releases int
	err      error
}

func (l *fakeLocker) Lock(_ context.Context, _ string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.locks++
	return func() { l.releases++ }, nil
}

type fakeFiles struct {
	files map[string][]byte
}

func (f *fakeFiles) Attach(_ context.Context, ffmID, filename string, data []byte) error {
	if f.files == nil {
		f.files = map[string][]byte{}
	}
	f.files[ffmID+"/"+filename] = data
	return nil
}

// ── Armado del escenario base ────────────────────────────────────────────────

type testEnv struct {
	svc      *Service
	j        *journal
	ffmRepo  *fakeFFMRepo
	siRepo   *fakeSIRepo
	custRepo *fakeCustomerRepo
	logRepo  *fakeLogRepo
	evRepo   *fakeEventRepo
	recRepo  *fakeRecoveryRepo
	pac      *fakePAC
	tx       *fakeTxRunner
	locker   *fakeLocker
	files    *fakeFiles
}

// newTestEnv arma el servicio con una factura submitted lista para timbrar:
// SI-001 (MXN, subtotal 100, total 116) con documento fiscal FFM-001 Pendiente.
func newTestEnv() *testEnv {
	j := &journal{}
	ffmRepo := newFakeFFMRepo(j)
	siRepo := newFakeSIRepo(j)
	custRepo := &fakeCustomerRepo{customers: map[string]*entity.Customer{}}
	logRepo := &fakeLogRepo{j: j}
	evRepo := &fakeEventRepo{}
	recRepo := &fakeRecoveryRepo{}
	pac := &fakePAC{
		stampResult: &facturapi.StampResult{
			ID:        "fapi-abc123",
			UUID:      "AAAAAAAA-BBBB-CCCC-DDDD-EEEEEEEEEEEE",
			Folio:     "F-2025-00123",
			Series:    "F",
			Total:     decimal.NewFromFloat(116),
			StampDate: "2025-08-20T14:05:00",
			Raw:       `{"id":"fapi-abc123","uuid":"AAAAAAAA-BBBB-CCCC-DDDD-EEEEEEEEEEEE"}`,
		},
		cancelResult: &facturapi.CancelResult{
			ID:           "fapi-abc123",
			Status:       "canceled",
			AckAvailable: true,
			Raw:          `{"id":"fapi-abc123","status":"canceled"}`,
		},
		pdfData: []byte("%PDF-fake"),
		xmlData: []byte(`<cfdi:Comprobante xmlns:cfdi="http://www.sat.gob.mx/cfd/4" Version="4.0">` +
			`<cfdi:Complemento>` +
			`<tfd:TimbreFiscalDigital xmlns:tfd="http://www.sat.gob.mx/TimbreFiscalDigital" Version="1.1" ` +
			`UUID="AAAAAAAA-BBBB-CCCC-DDDD-EEEEEEEEEEEE" FechaTimbrado="2025-08-20T14:05:00"/>` +
			`</cfdi:Complemento></cfdi:Comprobante>`),
		ackData: []byte("<acuse/>"),
	}
	tx := &fakeTxRunner{ffm: ffmRepo, si: siRepo, ev: evRepo, rec: recRepo, j: j}
	locker := &fakeLocker{}
	files := &fakeFiles{}

	log := logger.New(logger.Config{Env: "production", Level: "error"})
	svc := NewService(
		ffmRepo, siRepo, custRepo, logRepo, evRepo, recRepo,
		pac, tx, locker, files,
		config.PACConfig{Sandbox: true, DownloadFiles: true, TimeoutSeconds: 5},
		config.FiscalConfig{RoundingTolerance: 0.01, DiscrepancyThreshold: 1.00, RecentErrorHours: 24},
		log,
	)

	env := &testEnv{
		svc: svc, j: j,
		ffmRepo: ffmRepo, siRepo: siRepo, custRepo: custRepo,
		logRepo: logRepo, evRepo: evRepo, recRepo: recRepo,
		pac: pac, tx: tx, locker: locker, files: files,
	}
	env.seedInvoice()
	return env
}

func (e *testEnv) seedInvoice() {
	// Los seeds se insertan directo al almacén; las secuencias arrancan después.
	e.siRepo.seq = 1
	e.ffmRepo.seq = 1
	e.custRepo.customers["CUST-001"] = &entity.Customer{
		ID:        "CUST-001",
		Name:      "Ejemplo Comercial, S.A. de C.V.",
		RFC:       "EKU9003173C9",
		TaxRegime: "601",
		Email:     "facturas@ejemplo.mx",
		ZipCode:   "03810",
		Country:   "México",
		RFCValid:  true,
	}
	inv := &entity.SalesInvoice{
		ID:           "SI-001",
		CompanyID:    "CO-001",
		CustomerID:   "CUST-001",
		Currency:     "MXN",
		ExchangeRate: decimal.NewFromInt(1),
		Subtotal:     decimal.NewFromInt(100),
		TotalIVA:     decimal.NewFromInt(16),
		GrandTotal:   decimal.NewFromInt(116),
		Docstatus:    entity.DocstatusSubmitted,
	}
	e.siRepo.invoices[inv.ID] = inv
	e.siRepo.items[inv.ID] = []*entity.SalesInvoiceItem{{
		ID:          "ITEM-001",
		InvoiceID:   inv.ID,
		Description: "Servicio de consultoría",
		UOM:         "E48 - Unidad de servicio",
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   decimal.NewFromInt(100),
		TaxRate:     decimal.NewFromFloat(0.16),
		Amount:      decimal.NewFromInt(100),
	}}

	ffm := &entity.FacturaFiscalMexico{
		ID:                "FFM-001",
		SalesInvoice:      inv.ID,
		CustomerID:        "CUST-001",
		CompanyID:         "CO-001",
		FiscalStatus:      entity.StatusPendiente,
		CFDIUse:           sat.CFDIUseGastosGenerales,
		PaymentMethodSAT:  sat.PaymentMethodPUE,
		FormaPagoTimbrado: "03",
		SITotalAntesIVA:   decimal.NewFromInt(100),
		SIIVA:             decimal.NewFromInt(16),
		SITotalNeto:       decimal.NewFromInt(116),
		Docstatus:         entity.DocstatusSubmitted,
	}
	e.ffmRepo.docs[ffm.ID] = ffm
	inv.FacturaFiscalMX = ffm.ID
}

// stamp deja FFM-001 como timbrado consumado (estado directo, sin pasar por el
// orquestador) para los tests de cancelación.
func (e *testEnv) stampDirect() *entity.FacturaFiscalMexico {
	ffm := e.ffmRepo.docs["FFM-001"]
	ffm.ForceSetStatus(entity.StatusTimbrada)
	ffm.UUID = "11111111-2222-3333-4444-555555555555"
	ffm.FacturapiID = "fapi-abc123"
	ffm.Serie = "F"
	ffm.Folio = "00123"
	ffm.TotalFiscal = decimal.NewFromInt(116)
	return ffm
}
