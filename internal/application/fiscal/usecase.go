// Ciclo de vida del documento fiscal fuera del protocolo PAC: creación con
// guards de unicidad, consulta de estado derivado y bitácora.

package fiscal

import (
	"context"
	"fmt"
	"time"

	"github.com/tu-usuario/facturacion-mx/internal/application/dto"
	"github.com/tu-usuario/facturacion-mx/internal/domain"
	"github.com/tu-usuario/facturacion-mx/internal/domain/entity"
	"github.com/tu-usuario/facturacion-mx/internal/domain/repository"
	"github.com/tu-usuario/facturacion-mx/pkg/config"
	"github.com/tu-usuario/facturacion-mx/pkg/logger"
	"github.com/tu-usuario/facturacion-mx/pkg/sat"
)

// UseCase operaciones del documento fiscal que no hablan con el PAC.
type UseCase struct {
	ffmRepo   repository.FacturaFiscalRepository
	siRepo    repository.SalesInvoiceRepository
	custRepo  repository.CustomerRepository
	logRepo   repository.ResponseLogRepository
	eventRepo repository.FiscalEventRepository
	fiscal    config.FiscalConfig
	log       *logger.Logger
}

// NewUseCase construye el caso de uso.
func NewUseCase(
	ffmRepo repository.FacturaFiscalRepository,
	siRepo repository.SalesInvoiceRepository,
	custRepo repository.CustomerRepository,
	logRepo repository.ResponseLogRepository,
	eventRepo repository.FiscalEventRepository,
	fiscal config.FiscalConfig,
	log *logger.Logger,
) *UseCase {
	return &UseCase{
		ffmRepo:   ffmRepo,
		siRepo:    siRepo,
		custRepo:  custRepo,
		logRepo:   logRepo,
		eventRepo: eventRepo,
		fiscal:    fiscal,
		log:       log,
	}
}

// CreateFacturaFiscal crea el documento fiscal de una factura submitted.
// Guards: factura existente y submitted, receptor con RFC presente, a lo más
// un documento activo y a lo más uno Timbrada por factura.
func (u *UseCase) CreateFacturaFiscal(ctx context.Context, req dto.CreateFacturaFiscalRequest) (*entity.FacturaFiscalMexico, error) {
	inv, err := u.siRepo.GetByID(ctx, req.SalesInvoiceID)
	if err != nil {
		return nil, err
	}
	if !inv.IsSubmitted() {
		return nil, fmt.Errorf("%w: la factura %s no está submitted", domain.ErrInvoiceNotSubmitted, inv.ID)
	}

	if active, err := u.ffmRepo.GetActiveBySalesInvoice(ctx, inv.ID); err != nil {
		return nil, err
	} else if active != nil {
		return nil, fmt.Errorf("%w: ya existe el documento %s", domain.ErrDuplicateActiveDocument, active.ID)
	}
	if stamped, err := u.ffmRepo.GetStampedBySalesInvoice(ctx, inv.ID); err != nil {
		return nil, err
	} else if stamped != nil {
		return nil, fmt.Errorf("%w: UUID %s", domain.ErrDuplicateStamped, stamped.UUID)
	}

	customerID := req.CustomerID
	if customerID == "" {
		customerID = inv.CustomerID
	}
	customer, err := u.custRepo.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if sat.NormalizeRFC(customer.RFC) == "" {
		return nil, fmt.Errorf("%w: el receptor %s no tiene RFC", domain.ErrInvalidInput, customerID)
	}

	ffm := &entity.FacturaFiscalMexico{
		SalesInvoice:           inv.ID,
		CustomerID:             customerID,
		CompanyID:              inv.CompanyID,
		CFDIUse:                req.CFDIUse,
		PaymentMethodSAT:       req.PaymentMethodSAT,
		FormaPagoTimbrado:      req.FormaPago,
		SITotalAntesIVA:        inv.Subtotal,
		SIIVA:                  inv.TotalIVA,
		SIOtrosImpuestos:       inv.OtherTaxes,
		SITotalNeto:            inv.GrandTotal,
		SubstitutionSourceUUID: inv.SubstitutionSourceUUID,
		Docstatus:              entity.DocstatusSubmitted,
	}
	if err := ffm.TransitionTo(entity.StatusPendiente); err != nil {
		return nil, err
	}
	if err := ffm.ValidatePaymentConsistency(); err != nil {
		return nil, err
	}
	if err := u.ffmRepo.Create(ctx, ffm); err != nil {
		return nil, err
	}

	inv.FacturaFiscalMX = ffm.ID
	if err := u.siRepo.Update(ctx, inv); err != nil {
		u.log.Warn().Err(err).Str("ffm", ffm.ID).Msg("no se pudo escribir la back-reference en la factura")
	}

	event := entity.NewFiscalEvent("Factura Fiscal Mexico", ffm.ID, entity.EventDocumentCreated,
		fmt.Sprintf(`{"sales_invoice":%q}`, inv.ID))
	event.MarkSuccess(0)
	if err := u.eventRepo.Create(ctx, event); err != nil {
		u.log.Warn().Err(err).Str("ffm", ffm.ID).Msg("no se pudo registrar el evento de creación")
	}

	return ffm, nil
}

// GetEstado devuelve el estado fiscal derivado del Response Log junto con el
// semáforo de validación. Recalcula siempre desde el log; si el estado vivo
// difiere lo repara con la escritura re-afirmante.
func (u *UseCase) GetEstado(ctx context.Context, salesInvoiceID string) (*dto.EstadoFiscalResponse, error) {
	ffm, err := u.ffmRepo.GetActiveBySalesInvoice(ctx, salesInvoiceID)
	if err != nil {
		return nil, err
	}
	if ffm == nil {
		return nil, fmt.Errorf("%w: la factura %s no tiene documento fiscal activo", domain.ErrNotFound, salesInvoiceID)
	}

	logs, err := u.logRepo.ListByFiscalDocument(ctx, ffm.ID)
	if err != nil {
		return nil, err
	}
	derived := entity.DeriveFiscalStatus(logs, time.Now(), u.fiscal.RecentErrorWindow())
	if derived != ffm.FiscalStatus {
		u.log.Info().Str("ffm", ffm.ID).Str("live", ffm.FiscalStatus).Str("derived", derived).
			Msg("estado vivo difiere del derivado; reparando desde la bitácora")
		ffm.ForceSetStatus(derived)
		if err := u.ffmRepo.UpdateStatus(ctx, ffm.ID, derived); err != nil {
			return nil, err
		}
	}

	color := entity.ValidationRed
	if customer, err := u.custRepo.GetByID(ctx, ffm.CustomerID); err == nil {
		color = entity.ValidationColor(customer.RFCValid, customer.HasCompleteAddress())
	}

	resp := &dto.EstadoFiscalResponse{
		FFM:             ffm.ID,
		SalesInvoice:    salesInvoiceID,
		FiscalStatus:    derived,
		UUID:            ffm.UUID,
		Serie:           ffm.Serie,
		Folio:           ffm.Folio,
		ValidationColor: color,
	}
	if ffm.FechaTimbrado != nil {
		resp.FechaTimbrado = ffm.FechaTimbrado.Format(time.RFC3339)
	}
	return resp, nil
}

// ListLogs devuelve la bitácora del documento fiscal de la factura.
func (u *UseCase) ListLogs(ctx context.Context, salesInvoiceID string) ([]dto.ResponseLogDTO, error) {
	ffm, err := u.ffmRepo.GetActiveBySalesInvoice(ctx, salesInvoiceID)
	if err != nil {
		return nil, err
	}
	if ffm == nil {
		return nil, fmt.Errorf("%w: la factura %s no tiene documento fiscal activo", domain.ErrNotFound, salesInvoiceID)
	}
	logs, err := u.logRepo.ListByFiscalDocument(ctx, ffm.ID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ResponseLogDTO, 0, len(logs))
	for _, l := range logs {
		out = append(out, dto.ResponseLogDTO{
			ID:            l.ID,
			OperationType: l.OperationType,
			Success:       l.Success,
			StatusCode:    l.StatusCode,
			ErrorMessage:  l.ErrorMessage,
			Timestamp:     l.Timestamp.Format(time.RFC3339),
		})
	}
	return out, nil
}
