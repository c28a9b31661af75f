// Orquestador del protocolo de 3 fases de timbrado y cancelación CFDI:
//
//	1. Preparación   → validaciones locales, nada externo se toca todavía
//	2. Llamada PAC   → la frontera irreversible; el Response Log se escribe
//	                   SIEMPRE, inmediatamente, antes de cualquier otro efecto
//	3. Reconciliación → actualización local, puede fallar independiente del PAC
//
// La regla de oro: el renglón del Response Log precede estrictamente a la
// actualización del documento fiscal. Es el único invariante de orden del
// sistema y lo que hace confiable la bitácora ante fallas parciales.

package timbrado

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/facturacion-mx/internal/application/dto"
	"github.com/tu-usuario/facturacion-mx/internal/domain"
	"github.com/tu-usuario/facturacion-mx/internal/domain/entity"
	"github.com/tu-usuario/facturacion-mx/internal/domain/repository"
	"github.com/tu-usuario/facturacion-mx/internal/infrastructure/cfdi"
	"github.com/tu-usuario/facturacion-mx/internal/infrastructure/facturapi"
	"github.com/tu-usuario/facturacion-mx/pkg/config"
	"github.com/tu-usuario/facturacion-mx/pkg/logger"
	"github.com/tu-usuario/facturacion-mx/pkg/sat"
)

// Service orquesta timbrado, cancelación, sustitución y re-facturación.
type Service struct {
	ffmRepo      repository.FacturaFiscalRepository
	siRepo       repository.SalesInvoiceRepository
	custRepo     repository.CustomerRepository
	logRepo      repository.ResponseLogRepository
	eventRepo    repository.FiscalEventRepository
	recoveryRepo repository.RecoveryTaskRepository

	pac      PACClient
	txRunner FiscalTxRunner
	locker   DocumentLocker
	files    FileStore // nil desactiva adjuntos

	pacCfg config.PACConfig
	fiscal config.FiscalConfig
	log    *logger.Logger
}

// NewService construye el orquestador con todas sus dependencias. Los repos
// recibidos van atados al pool; la fase 3 abre su propia transacción vía
// txRunner.
func NewService(
	ffmRepo repository.FacturaFiscalRepository,
	siRepo repository.SalesInvoiceRepository,
	custRepo repository.CustomerRepository,
	logRepo repository.ResponseLogRepository,
	eventRepo repository.FiscalEventRepository,
	recoveryRepo repository.RecoveryTaskRepository,
	pac PACClient,
	txRunner FiscalTxRunner,
	locker DocumentLocker,
	files FileStore,
	pacCfg config.PACConfig,
	fiscal config.FiscalConfig,
	log *logger.Logger,
) *Service {
	return &Service{
		ffmRepo:      ffmRepo,
		siRepo:       siRepo,
		custRepo:     custRepo,
		logRepo:      logRepo,
		eventRepo:    eventRepo,
		recoveryRepo: recoveryRepo,
		pac:          pac,
		txRunner:     txRunner,
		locker:       locker,
		files:        files,
		pacCfg:       pacCfg,
		fiscal:       fiscal,
		log:          log,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Timbrado
// ─────────────────────────────────────────────────────────────────────────────

// TimbrarFactura timbra la factura de venta ante el PAC.
//
// Los errores de validación previos al PAC regresan como error (nunca tocan el
// Response Log). Los fallos del PAC regresan como respuesta estructurada con
// success=false, ya registrados en la bitácora. Un fallo de la fase 3 con PAC
// exitoso regresa éxito parcial: success=true, el UUID visible y un warning.
func (s *Service) TimbrarFactura(ctx context.Context, salesInvoiceID string) (*dto.TimbradoResponse, error) {
	// ── Fase 1: preparación ──────────────────────────────────────────────────
	inv, err := s.siRepo.GetByID(ctx, salesInvoiceID)
	if err != nil {
		return nil, err
	}
	if !inv.IsSubmitted() {
		return nil, fmt.Errorf("%w: la factura %s no está submitted (docstatus=%d)",
			domain.ErrInvoiceNotSubmitted, salesInvoiceID, inv.Docstatus)
	}

	if stamped, err := s.ffmRepo.GetStampedBySalesInvoice(ctx, salesInvoiceID); err != nil {
		return nil, err
	} else if stamped != nil {
		return nil, fmt.Errorf("%w: la factura %s ya tiene CFDI timbrado (UUID %s)",
			domain.ErrDuplicateStamped, salesInvoiceID, stamped.UUID)
	}

	ffm, err := s.ffmRepo.GetActiveBySalesInvoice(ctx, salesInvoiceID)
	if err != nil {
		return nil, err
	}
	if ffm == nil {
		return nil, fmt.Errorf("%w: la factura %s no tiene documento fiscal", domain.ErrNotFound, salesInvoiceID)
	}
	if ffm.Docstatus != entity.DocstatusSubmitted {
		return nil, fmt.Errorf("%w: el documento fiscal %s no está submitted", domain.ErrInvalidInput, ffm.ID)
	}
	if !sat.ValidCFDIUses[ffm.CFDIUse] {
		return nil, fmt.Errorf("%w: uso de CFDI no configurado o inválido: %q", domain.ErrInvalidInput, ffm.CFDIUse)
	}
	if err := ffm.ValidatePaymentConsistency(); err != nil {
		return nil, err
	}

	customerID := ffm.CustomerID
	if customerID == "" {
		customerID = inv.CustomerID
	}
	customer, err := s.custRepo.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	items, err := s.siRepo.GetItems(ctx, salesInvoiceID)
	if err != nil {
		return nil, err
	}

	payload, err := BuildStampPayload(inv, items, customer, ffm)
	if err != nil {
		return nil, err
	}
	payloadJSON, _ := json.Marshal(payload)

	// ── Fase 2: llamada al PAC + escritura incondicional del log ─────────────
	start := time.Now()
	result, pacErr := s.pac.CreateInvoice(ctx, payload)

	logRow := &entity.PACResponseLog{
		FacturaFiscalMexico: ffm.ID,
		OperationType:       entity.OperationTimbrado,
		Success:             pacErr == nil,
		RequestPayload:      string(payloadJSON),
		Timestamp:           time.Now(),
	}
	if pacErr == nil {
		logRow.FacturapiResponse = result.Raw
		logRow.StatusCode = 201
	} else {
		classified := ClassifyPACError(pacErr)
		logRow.StatusCode = classified.StatusCode
		logRow.ErrorMessage = classified.Technical
	}
	s.recordPACResult(ctx, logRow)

	if pacErr != nil {
		classified := ClassifyPACError(pacErr)
		msg, corrective := classified.Kind.UserMessage()
		s.log.Warn().Str("sales_invoice", salesInvoiceID).Int("status", classified.StatusCode).
			Str("detail", classified.Technical).Msg("timbrado rechazado por el PAC")
		return &dto.TimbradoResponse{
			Success:    false,
			Message:    "El timbrado falló; el detalle quedó en la bitácora de respuestas.",
			UserError:  msg,
			Corrective: corrective,
		}, nil
	}

	// ── Fase 3: reconciliación local ─────────────────────────────────────────
	warning := s.discrepancyWarning(result.Total, ffm)

	if err := s.reconcileStamp(ctx, ffm, inv, result, time.Since(start)); err != nil {
		// El PAC ya timbró: el UUID jamás se le oculta al operador.
		s.log.Error().Err(err).Str("ffm", ffm.ID).Str("uuid", result.UUID).
			Msg("fase 3 falló con timbrado exitoso; se requiere conciliación manual")
		_ = s.ffmRepo.UpdateStatus(ctx, ffm.ID, entity.StatusError)
		partial := "El PAC timbró correctamente pero la actualización local falló; concilie manualmente con el UUID."
		if warning != "" {
			partial = warning + " " + partial
		}
		return &dto.TimbradoResponse{
			Success:     true,
			UUID:        result.UUID,
			FacturapiID: result.ID,
			Message:     "Timbrado con conciliación local pendiente.",
			Warning:     partial,
		}, nil
	}

	s.downloadStampedFiles(ctx, ffm)

	// Cascada de sustitución: sus errores se absorben, nunca deshacen el timbre.
	if inv.SubstitutionSourceUUID != "" {
		if outcome, err := s.runSubstitutionCascade(ctx, inv, ffm); err != nil {
			s.log.Error().Err(err).Str("source_uuid", inv.SubstitutionSourceUUID).
				Msg("cascada de sustitución falló; el timbre nuevo se conserva")
		} else {
			s.log.Info().Str("outcome", outcome).Str("source_uuid", inv.SubstitutionSourceUUID).
				Msg("cascada de sustitución procesada")
		}
	}

	return &dto.TimbradoResponse{
		Success:     true,
		UUID:        ffm.UUID,
		FacturapiID: ffm.FacturapiID,
		Serie:       ffm.Serie,
		Folio:       ffm.Folio,
		Message:     "Factura timbrada correctamente.",
		Warning:     warning,
	}, nil
}

// reconcileStamp aplica el resultado del PAC al documento fiscal en una tx.
// elapsed viene medido desde la llamada al PAC; queda como duración del evento.
func (s *Service) reconcileStamp(ctx context.Context, ffm *entity.FacturaFiscalMexico, inv *entity.SalesInvoice, result *facturapi.StampResult, elapsed time.Duration) error {
	ffm.UUID = result.UUID
	ffm.FacturapiID = result.ID
	ffm.Serie = result.Series
	ffm.Folio = folioFromPAC(result.Folio)
	ffm.TotalFiscal = result.Total
	stampedAt := parsePACDate(result.StampDate)
	ffm.FechaTimbrado = &stampedAt

	if err := ffm.TransitionTo(entity.StatusTimbrada); err != nil {
		return err
	}

	return s.txRunner.Run(ctx, func(
		ffmRepo repository.FacturaFiscalRepository,
		siRepo repository.SalesInvoiceRepository,
		eventRepo repository.FiscalEventRepository,
		_ repository.RecoveryTaskRepository,
	) error {
		if err := ffmRepo.Update(ctx, ffm); err != nil {
			return err
		}
		inv.FacturaFiscalMX = ffm.ID
		if err := siRepo.Update(ctx, inv); err != nil {
			return err
		}
		event := entity.NewFiscalEvent("Factura Fiscal Mexico", ffm.ID, entity.EventStatusChanged,
			fmt.Sprintf(`{"to":%q,"uuid":%q}`, entity.StatusTimbrada, ffm.UUID))
		event.MarkSuccess(elapsed)
		return eventRepo.Create(ctx, event)
	})
}

// discrepancyWarning compara el total del PAC contra los snapshots pre-IVA y
// neto; toma la mínima diferencia absoluta. Nunca bloquea, solo advierte.
func (s *Service) discrepancyWarning(pacTotal decimal.Decimal, ffm *entity.FacturaFiscalMexico) string {
	diffPre := pacTotal.Sub(ffm.SITotalAntesIVA).Abs()
	diffNet := pacTotal.Sub(ffm.SITotalNeto).Abs()
	diff := decimal.Min(diffPre, diffNet)

	tolerance := decimal.NewFromFloat(s.fiscal.RoundingTolerance)
	strong := decimal.NewFromFloat(s.fiscal.DiscrepancyThreshold)

	switch {
	case diff.LessThanOrEqual(tolerance):
		return ""
	case diff.LessThanOrEqual(strong):
		return fmt.Sprintf("Diferencia de redondeo de %s entre el total del PAC y el total local.", diff.StringFixed(2))
	default:
		return fmt.Sprintf("DISCREPANCIA de %s entre el total del PAC (%s) y el total local; revise el documento.",
			diff.StringFixed(2), pacTotal.StringFixed(2))
	}
}

// downloadStampedFiles descarga y adjunta PDF/XML si el toggle está activo.
// Best effort: un fallo aquí nunca afecta el resultado del timbrado.
func (s *Service) downloadStampedFiles(ctx context.Context, ffm *entity.FacturaFiscalMexico) {
	if !s.pacCfg.DownloadFiles || s.files == nil {
		return
	}
	if pdf, err := s.pac.DownloadPDF(ctx, ffm.FacturapiID); err != nil {
		s.log.Warn().Err(err).Str("ffm", ffm.ID).Msg("descarga de PDF falló")
	} else if err := s.files.Attach(ctx, ffm.ID, ffm.UUID+".pdf", pdf); err != nil {
		s.log.Warn().Err(err).Str("ffm", ffm.ID).Msg("adjuntar PDF falló")
	}
	xmlData, err := s.pac.DownloadXML(ctx, ffm.FacturapiID)
	if err != nil {
		s.log.Warn().Err(err).Str("ffm", ffm.ID).Msg("descarga de XML falló")
		return
	}
	// Verificación cruzada contra el complemento TimbreFiscalDigital del XML.
	if timbre, err := cfdi.ParseTimbre(xmlData); err != nil {
		s.log.Warn().Err(err).Str("ffm", ffm.ID).Msg("el XML descargado no trae TimbreFiscalDigital legible")
	} else if !strings.EqualFold(timbre.UUID, ffm.UUID) {
		s.log.Error().Str("ffm", ffm.ID).Str("uuid_pac", ffm.UUID).Str("uuid_xml", timbre.UUID).
			Msg("el UUID del XML no coincide con el reportado por el PAC")
	}
	if digest, err := cfdi.CanonicalDigest(xmlData); err == nil {
		s.log.Info().Str("ffm", ffm.ID).Str("sha256", digest).Msg("XML timbrado archivado")
	}
	if err := s.files.Attach(ctx, ffm.ID, ffm.UUID+".xml", xmlData); err != nil {
		s.log.Warn().Err(err).Str("ffm", ffm.ID).Msg("adjuntar XML falló")
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Cancelación
// ─────────────────────────────────────────────────────────────────────────────

// CancelarFactura cancela un CFDI timbrado. ref acepta el id del documento
// fiscal, el id de la factura de venta o el UUID.
//
// El motivo "01" (sustitución) exige substitutionUUID y solo se alcanza por el
// workflow de sustitución; "02"/"03"/"04" lo prohíben.
func (s *Service) CancelarFactura(ctx context.Context, ref, motive, substitutionUUID string) (*dto.CancelacionResponse, error) {
	ffm, err := s.resolveFiscalDocument(ctx, ref)
	if err != nil {
		return nil, err
	}

	// ── Fase 1: guards ───────────────────────────────────────────────────────
	if ffm.FiscalStatus != entity.StatusTimbrada {
		return nil, fmt.Errorf("%w: solo documentos Timbrada pueden cancelarse, estado actual %q",
			domain.ErrNotStamped, ffm.FiscalStatus)
	}
	if err := ffm.RequirePACInvoiceID(); err != nil {
		return nil, err
	}
	if !sat.IsValidCancellationMotive(motive) {
		return nil, fmt.Errorf("%w: motivo de cancelación inválido %q", domain.ErrInvalidInput, motive)
	}
	if sat.RequiresSubstitutionUUID(motive) && substitutionUUID == "" {
		return nil, fmt.Errorf("%w: el motivo 01 exige UUID de sustitución; use el workflow de sustitución",
			domain.ErrInvalidInput)
	}
	if !sat.RequiresSubstitutionUUID(motive) && substitutionUUID != "" {
		return nil, fmt.Errorf("%w: el motivo %s no admite UUID de sustitución", domain.ErrInvalidInput, motive)
	}
	reason, err := sat.ResolveCancellationReason(motive)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	// ── Fase 2: llamada al PAC + log incondicional ───────────────────────────
	requestJSON, _ := json.Marshal(map[string]string{
		"facturapi_id": ffm.FacturapiID, "motive": motive, "substitution": substitutionUUID,
	})
	result, pacErr := s.pac.CancelInvoice(ctx, ffm.FacturapiID, motive, substitutionUUID)

	logRow := &entity.PACResponseLog{
		FacturaFiscalMexico: ffm.ID,
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
		classified := ClassifyPACError(pacErr)
		msg, _ := classified.Kind.UserMessage()
		return &dto.CancelacionResponse{
			Success: false,
			FFM:     ffm.ID,
			UUID:    ffm.UUID,
			Message: msg,
		}, nil
	}

	// El SAT puede confirmar de inmediato; en ese caso el log también recibe
	// la confirmación y la derivación de estado da Cancelada.
	confirmed := result.Status == "canceled"
	if confirmed {
		s.recordPACResult(ctx, &entity.PACResponseLog{
			FacturaFiscalMexico: ffm.ID,
			OperationType:       entity.OperationConfirmacionCancelacion,
			Success:             true,
			StatusCode:          200,
			FacturapiResponse:   result.Raw,
			Timestamp:           time.Now(),
		})
	}

	// ── Fase 3: reconciliación local ─────────────────────────────────────────
	finalStatus := entity.StatusSolicitudCancelacion
	if confirmed {
		finalStatus = entity.StatusCancelada
	}

	if err := s.reconcileCancellation(ctx, ffm, finalStatus, reason, result); err != nil {
		// El PAC ya canceló: agendar reparación automática en vez de perder la
		// inconsistencia. La tarea se crea fuera de la tx fallida.
		s.log.Error().Err(err).Str("ffm", ffm.ID).Msg("fase 3 de cancelación falló; creando recovery task")
		s.scheduleRecovery(ctx, ffm, motive, reason, substitutionUUID, err)
		// El estado reportado es el persistido, no el objetivo en memoria: la
		// escritura local falló y hasta que el worker la alcance el documento
		// sigue en lo que la base de datos diga.
		statusFFM := entity.StatusTimbrada
		if persisted, perr := s.ffmRepo.GetByID(ctx, ffm.ID); perr == nil {
			statusFFM = persisted.FiscalStatus
		}
		return &dto.CancelacionResponse{
			Success:   true,
			FFM:       ffm.ID,
			StatusFFM: statusFFM,
			UUID:      ffm.UUID,
			Message:   "El PAC canceló el CFDI; la sincronización local quedó agendada para reintento.",
		}, nil
	}

	s.downloadCancellationAck(ctx, ffm, result)

	inv, _ := s.siRepo.GetByID(ctx, ffm.SalesInvoice)
	statusSI := ""
	if inv != nil {
		statusSI = fmt.Sprintf("docstatus=%d", inv.Docstatus)
	}
	return &dto.CancelacionResponse{
		Success:   true,
		FFM:       ffm.ID,
		StatusFFM: ffm.FiscalStatus,
		StatusSI:  statusSI,
		UUID:      ffm.UUID,
		Message:   fmt.Sprintf("Cancelación procesada: %s.", reason),
	}, nil
}

func (s *Service) reconcileCancellation(ctx context.Context, ffm *entity.FacturaFiscalMexico, finalStatus, reason string, result *facturapi.CancelResult) error {
	if err := ffm.TransitionTo(finalStatus); err != nil {
		return err
	}
	now := time.Now()
	ffm.CancellationReason = reason
	if finalStatus == entity.StatusCancelada {
		ffm.CancellationDate = &now
	}
	ffm.AckPending = finalStatus == entity.StatusCancelada && !result.AckAvailable

	return s.txRunner.Run(ctx, func(
		ffmRepo repository.FacturaFiscalRepository,
		_ repository.SalesInvoiceRepository,
		eventRepo repository.FiscalEventRepository,
		_ repository.RecoveryTaskRepository,
	) error {
		if err := ffmRepo.Update(ctx, ffm); err != nil {
			return err
		}
		event := entity.NewFiscalEvent("Factura Fiscal Mexico", ffm.ID, entity.EventStatusChanged,
			fmt.Sprintf(`{"to":%q,"reason":%q}`, finalStatus, reason))
		event.MarkSuccess(0)
		return eventRepo.Create(ctx, event)
	})
}

// scheduleRecovery crea la tarea "el PAC tuvo éxito, lo local no".
func (s *Service) scheduleRecovery(ctx context.Context, ffm *entity.FacturaFiscalMexico, motive, reason, substitutionUUID string, cause error) {
	payload, _ := json.Marshal(map[string]string{
		"uuid":              ffm.UUID,
		"facturapi_id":      ffm.FacturapiID,
		"motive":            motive,
		"reason":            reason,
		"substitution_uuid": substitutionUUID,
	})
	task := &entity.RecoveryTask{
		FacturaFiscalMexico: ffm.ID,
		TaskType:            "sync_cancellation",
		Priority:            entity.RecoveryPriorityHigh,
		MaxAttempts:         5,
		LastError:           cause.Error(),
		Payload:             string(payload),
		Status:              entity.RecoveryPending,
	}
	if err := s.recoveryRepo.Create(ctx, task); err != nil {
		s.log.Error().Err(err).Str("ffm", ffm.ID).
			Msg("no se pudo crear la recovery task; inconsistencia requiere atención manual")
		return
	}
	event := entity.NewFiscalEvent("Factura Fiscal Mexico", ffm.ID, entity.EventRecoveryQueued,
		fmt.Sprintf(`{"task_type":%q,"uuid":%q}`, task.TaskType, ffm.UUID))
	event.MarkSuccess(0)
	if err := s.eventRepo.Create(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("ffm", ffm.ID).Msg("no se pudo registrar el evento de recovery")
	}
}

// downloadCancellationAck descarga el acuse si ya está disponible; si no, el
// documento queda con ack_pending para un reintento posterior.
func (s *Service) downloadCancellationAck(ctx context.Context, ffm *entity.FacturaFiscalMexico, result *facturapi.CancelResult) {
	if !result.AckAvailable || !s.pacCfg.DownloadFiles || s.files == nil {
		return
	}
	ack, err := s.pac.DownloadCancellationReceipt(ctx, ffm.FacturapiID)
	if err != nil {
		s.log.Warn().Err(err).Str("ffm", ffm.ID).Msg("descarga del acuse falló; queda pendiente")
		ffm.AckPending = true
		_ = s.ffmRepo.Update(ctx, ffm)
		return
	}
	if err := s.files.Attach(ctx, ffm.ID, "acuse-"+ffm.UUID+".xml", ack); err != nil {
		s.log.Warn().Err(err).Str("ffm", ffm.ID).Msg("adjuntar acuse falló")
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers compartidos
// ─────────────────────────────────────────────────────────────────────────────

// recordPACResult escribe el renglón del Response Log y dispara el side-channel
// de estado. La escritura jamás se omite; si la inserción misma falla se
// registra con severidad alta porque la bitácora es el contrato de auditoría.
func (s *Service) recordPACResult(ctx context.Context, row *entity.PACResponseLog) {
	if err := s.logRepo.Create(ctx, row); err != nil {
		s.log.Error().Err(err).Str("ffm", row.FacturaFiscalMexico).Str("op", row.OperationType).
			Msg("CRITICO: no se pudo persistir el Response Log")
		return
	}
	// Side-channel redundante: operación exitosa reconocida escribe el estado
	// directo, independiente del orquestador.
	if row.Success {
		if status := entity.StatusForOperation(row.OperationType); status != "" {
			if err := s.ffmRepo.UpdateStatus(ctx, row.FacturaFiscalMexico, status); err != nil {
				s.log.Warn().Err(err).Str("ffm", row.FacturaFiscalMexico).
					Msg("side-channel de estado falló; la derivación por log lo reparará")
			}
		}
	}
}

// resolveFiscalDocument acepta id de documento fiscal, id de factura o UUID.
func (s *Service) resolveFiscalDocument(ctx context.Context, ref string) (*entity.FacturaFiscalMexico, error) {
	if ffm, err := s.ffmRepo.GetByID(ctx, ref); err == nil {
		return ffm, nil
	}
	if ffm, err := s.ffmRepo.GetActiveBySalesInvoice(ctx, ref); err == nil && ffm != nil {
		return ffm, nil
	}
	if ffm, err := s.ffmRepo.GetByUUID(ctx, ref); err == nil {
		return ffm, nil
	}
	return nil, fmt.Errorf("%w: ninguna factura fiscal coincide con %q", domain.ErrNotFound, ref)
}

// folioFromPAC toma el segmento después del último "-" del folio del PAC.
func folioFromPAC(pacFolio string) string {
	if idx := strings.LastIndex(pacFolio, "-"); idx >= 0 {
		return pacFolio[idx+1:]
	}
	return pacFolio
}

// parsePACDate FacturAPI regresa fechas locales sin zona horaria.
func parsePACDate(s string) time.Time {
	for _, layout := range []string{"2006-01-02T15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now()
}
