// Workflow de sustitución CFDI: reemplazar un comprobante timbrado por uno
// corregido. El borrador nuevo lleva el UUID del comprobante que sustituye;
// tras timbrarlo corre la cascada que cancela el original con motivo 01.

package timbrado

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tu-usuario/facturacion-mx/internal/application/dto"
	"github.com/tu-usuario/facturacion-mx/internal/domain"
	"github.com/tu-usuario/facturacion-mx/internal/domain/entity"
	"github.com/tu-usuario/facturacion-mx/pkg/sat"
)

// Resultados de la cascada.
const (
	CascadeCompleted        = "completed"
	CascadeSkippedCancelled = "skipped: already_cancelled"
)

// CreateSubstitutionInvoice clona la factura como borrador nuevo, limpia su
// vínculo fiscal y le estampa el UUID del comprobante que va a sustituir.
func (s *Service) CreateSubstitutionInvoice(ctx context.Context, salesInvoiceID string) (*dto.SustitucionResponse, error) {
	ffm, err := s.ffmRepo.GetActiveBySalesInvoice(ctx, salesInvoiceID)
	if err != nil {
		return nil, err
	}
	if ffm == nil || ffm.FiscalStatus != entity.StatusTimbrada {
		return nil, fmt.Errorf("%w: la sustitución requiere un documento fiscal Timbrada", domain.ErrNotStamped)
	}
	if ffm.UUID == "" {
		return nil, fmt.Errorf("%w: el documento timbrado no tiene UUID", domain.ErrInvalidInput)
	}

	original, err := s.siRepo.GetByID(ctx, salesInvoiceID)
	if err != nil {
		return nil, err
	}
	items, err := s.siRepo.GetItems(ctx, salesInvoiceID)
	if err != nil {
		return nil, err
	}

	clone := &entity.SalesInvoice{
		CompanyID:              original.CompanyID,
		CustomerID:             original.CustomerID,
		Currency:               original.Currency,
		ExchangeRate:           original.ExchangeRate,
		Subtotal:               original.Subtotal,
		TotalIVA:               original.TotalIVA,
		OtherTaxes:             original.OtherTaxes,
		GrandTotal:             original.GrandTotal,
		Docstatus:              entity.DocstatusDraft,
		SubstitutionSourceUUID: ffm.UUID,
	}
	if err := s.siRepo.Create(ctx, clone); err != nil {
		return nil, err
	}
	for _, it := range items {
		itemClone := &entity.SalesInvoiceItem{
			InvoiceID:   clone.ID,
			ProductKey:  it.ProductKey,
			Description: it.Description,
			UOM:         it.UOM,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Discount:    it.Discount,
			TaxRate:     it.TaxRate,
			Amount:      it.Amount,
		}
		if err := s.siRepo.CreateItem(ctx, itemClone); err != nil {
			return nil, err
		}
	}

	event := entity.NewFiscalEvent("Sales Invoice", clone.ID, entity.EventCascadeStarted,
		fmt.Sprintf(`{"substitutes_uuid":%q,"original_invoice":%q}`, ffm.UUID, salesInvoiceID))
	event.MarkSuccess(0)
	if err := s.eventRepo.Create(ctx, event); err != nil {
		s.log.Warn().Err(err).Msg("no se pudo registrar el evento de sustitución")
	}

	return &dto.SustitucionResponse{
		Success:          true,
		NewInvoiceID:     clone.ID,
		SubstitutionUUID: ffm.UUID,
		Message:          "Borrador de sustitución creado; al timbrarlo se cancelará el comprobante original.",
	}, nil
}

// runSubstitutionCascade cancela el comprobante original después de que el
// sustituto timbró. Idempotente: si el original ya está cancelado, no-op.
// Todos sus errores los absorbe el caller; el timbre nuevo nunca se deshace.
func (s *Service) runSubstitutionCascade(ctx context.Context, newInv *entity.SalesInvoice, newFFM *entity.FacturaFiscalMexico) (string, error) {
	original, err := s.ffmRepo.GetByUUID(ctx, newInv.SubstitutionSourceUUID)
	if err != nil {
		return "", fmt.Errorf("resolver original por UUID: %w", err)
	}
	if original.FiscalStatus == entity.StatusCancelada {
		return CascadeSkippedCancelled, nil
	}

	// Lock por documento: dos cascadas concurrentes sobre el mismo original se
	// serializan aquí. El release cubre todos los caminos de salida.
	release, err := s.locker.Lock(ctx, "cascade:"+original.ID)
	if err != nil {
		return "", fmt.Errorf("lock de cascada: %w", err)
	}
	defer release()

	// Re-verificar bajo el lock: otra cascada pudo habernos ganado.
	original, err = s.ffmRepo.GetByID(ctx, original.ID)
	if err != nil {
		return "", err
	}
	if original.FiscalStatus == entity.StatusCancelada {
		return CascadeSkippedCancelled, nil
	}

	reason, err := sat.ResolveCancellationReason(sat.MotiveSubstitution)
	if err != nil {
		return "", err
	}

	// Cancelación ante el PAC con motivo 01. Un fallo aquí se registra y la
	// cascada continúa: la cancelación local procede de cualquier forma y la
	// discrepancia queda visible en la bitácora.
	if original.FacturapiID != "" {
		requestJSON, _ := json.Marshal(map[string]string{
			"facturapi_id": original.FacturapiID,
			"motive":       sat.MotiveSubstitution,
			"substitution": newFFM.UUID,
		})
		result, pacErr := s.pac.CancelInvoice(ctx, original.FacturapiID, sat.MotiveSubstitution, newFFM.UUID)

		logRow := &entity.PACResponseLog{
			FacturaFiscalMexico: original.ID,
			OperationType:       entity.OperationSolicitudCancelacion,
			Success:             pacErr == nil,
			RequestPayload:      string(requestJSON),
			Timestamp:           time.Now(),
		}
		if pacErr == nil {
			logRow.FacturapiResponse = result.Raw
			logRow.StatusCode = 200
		} else {
			classified := ClassifyPACError(pacErr)
			logRow.StatusCode = classified.StatusCode
			logRow.ErrorMessage = classified.Technical
		}
		s.recordPACResult(ctx, logRow)

		if pacErr != nil {
			s.log.Error().Err(pacErr).Str("original", original.ID).
				Msg("cancelación PAC del original falló; la cascada continúa")
		} else if result.Status == "canceled" {
			s.recordPACResult(ctx, &entity.PACResponseLog{
				FacturaFiscalMexico: original.ID,
				OperationType:       entity.OperationConfirmacionCancelacion,
				Success:             true,
				StatusCode:          200,
				FacturapiResponse:   result.Raw,
				Timestamp:           time.Now(),
			})
			original.AckPending = !result.AckAvailable
		}
	}

	originalInvoiceID := original.SalesInvoice

	// Limpiar ambos cross-links y confirmarlo ANTES de los cancel a nivel
	// documento: cancelar un documento aún cross-referenciado dispara error de
	// integridad de vínculos.
	if originalInvoiceID != "" {
		if err := s.siRepo.ClearFiscalLink(ctx, originalInvoiceID); err != nil {
			return "", fmt.Errorf("limpiar vínculo factura→documento: %w", err)
		}
	}
	if err := s.ffmRepo.ClearSalesInvoiceLink(ctx, original.ID); err != nil {
		return "", fmt.Errorf("limpiar vínculo documento→factura: %w", err)
	}
	original.SalesInvoice = ""

	// Cancelar la factura original en el sentido ERP y el documento fiscal.
	if originalInvoiceID != "" {
		if err := s.siRepo.SetDocstatus(ctx, originalInvoiceID, entity.DocstatusCancelled); err != nil {
			return "", fmt.Errorf("cancelar factura original: %w", err)
		}
	}

	now := time.Now()
	original.CancellationReason = reason
	original.CancellationDate = &now
	original.Docstatus = entity.DocstatusCancelled
	original.ForceSetStatus(entity.StatusCancelada)
	if err := s.ffmRepo.Update(ctx, original); err != nil {
		return "", fmt.Errorf("cancelar documento fiscal original: %w", err)
	}

	event := entity.NewFiscalEvent("Factura Fiscal Mexico", original.ID, entity.EventCascadeStarted,
		fmt.Sprintf(`{"replaced_by":%q}`, newFFM.UUID))
	event.MarkSuccess(0)
	if err := s.eventRepo.Create(ctx, event); err != nil {
		s.log.Warn().Err(err).Msg("no se pudo registrar el evento de cascada")
	}

	// Acuse best-effort; si aún no está disponible queda ack_pending.
	if original.FacturapiID != "" && s.pacCfg.DownloadFiles && s.files != nil {
		if ack, err := s.pac.DownloadCancellationReceipt(ctx, original.FacturapiID); err != nil {
			s.log.Warn().Err(err).Str("ffm", original.ID).Msg("acuse no disponible; ack_pending")
			original.AckPending = true
			_ = s.ffmRepo.Update(ctx, original)
		} else if err := s.files.Attach(ctx, original.ID, "acuse-"+original.UUID+".xml", ack); err != nil {
			s.log.Warn().Err(err).Str("ffm", original.ID).Msg("adjuntar acuse falló")
		}
	}

	return CascadeCompleted, nil
}
