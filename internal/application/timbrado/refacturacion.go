// Guard de re-facturación con la misma factura: permitir re-timbrar sobre la
// misma factura de venta solo cuando el documento previo se canceló con motivo
// 02/03/04 y el contenido actual es idéntico al snapshot del timbrado
// original. Cualquier diferencia en los invariantes obliga a factura nueva;
// sin snapshot reconstruible se falla cerrado.

package timbrado

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/facturacion-mx/internal/application/dto"
	"github.com/tu-usuario/facturacion-mx/internal/domain/entity"
	"github.com/tu-usuario/facturacion-mx/pkg/sat"
)

// ValidateRefacturacionMismaSI evalúa si la factura puede re-timbrarse tal
// cual. Los casos estructuralmente inválidos regresan valid=false con el
// motivo; error solo ante fallas de infraestructura.
func (s *Service) ValidateRefacturacionMismaSI(ctx context.Context, salesInvoiceID string) (*dto.RefacturacionValidationResponse, error) {
	prior, err := s.findPriorCancelledDocument(ctx, salesInvoiceID)
	if err != nil {
		return nil, err
	}
	if prior == nil {
		return &dto.RefacturacionValidationResponse{
			Valid:   false,
			Message: "No existe un documento fiscal cancelado previo para esta factura.",
		}, nil
	}

	motive := motiveFromReason(prior.CancellationReason)
	if motive == sat.MotiveSubstitution {
		return &dto.RefacturacionValidationResponse{
			Valid:   false,
			Message: "El documento previo se canceló por sustitución (01); use el workflow de sustitución, no la re-facturación.",
		}, nil
	}
	if !sat.IsValidCancellationMotive(motive) {
		return &dto.RefacturacionValidationResponse{
			Valid:   false,
			Message: "El motivo de cancelación del documento previo no es reconocible.",
		}, nil
	}

	// Snapshot del payload original desde el Response Log. Sin snapshot no hay
	// forma de probar que nada cambió: fallar cerrado.
	logRow, err := s.logRepo.LatestStampingRequest(ctx, prior.ID)
	if err != nil {
		return nil, err
	}
	if logRow == nil || logRow.RequestPayload == "" {
		return &dto.RefacturacionValidationResponse{
			Valid:   false,
			Message: "No se pudo reconstruir el snapshot del timbrado original; se requiere factura nueva.",
		}, nil
	}

	var snapshot stampSnapshot
	if err := json.Unmarshal([]byte(logRow.RequestPayload), &snapshot); err != nil {
		return &dto.RefacturacionValidationResponse{
			Valid:   false,
			Message: "El snapshot del timbrado original no es legible; se requiere factura nueva.",
		}, nil
	}

	inv, err := s.siRepo.GetByID(ctx, salesInvoiceID)
	if err != nil {
		return nil, err
	}
	items, err := s.siRepo.GetItems(ctx, salesInvoiceID)
	if err != nil {
		return nil, err
	}

	diffs := s.compareSnapshot(&snapshot, inv, items)
	if len(diffs) > 0 {
		return &dto.RefacturacionValidationResponse{
			Valid:   false,
			Diffs:   diffs,
			Message: fmt.Sprintf("La factura difiere del timbrado original en: %s. Se requiere factura nueva.", strings.Join(diffs, ", ")),
		}, nil
	}

	return &dto.RefacturacionValidationResponse{
		Valid:   true,
		Message: "La factura coincide con el timbrado original; puede re-timbrarse.",
	}, nil
}

// findPriorCancelledDocument busca el documento Cancelada más reciente de la factura.
func (s *Service) findPriorCancelledDocument(ctx context.Context, salesInvoiceID string) (*entity.FacturaFiscalMexico, error) {
	docs, err := s.ffmRepo.ListBySalesInvoice(ctx, salesInvoiceID)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if d.FiscalStatus == entity.StatusCancelada {
			return d, nil
		}
	}
	return nil, nil
}

// motiveFromReason extrae el código del string de motivo "02 - Comprobantes...".
func motiveFromReason(reason string) string {
	if idx := strings.Index(reason, " -"); idx > 0 {
		return strings.TrimSpace(reason[:idx])
	}
	return strings.TrimSpace(reason)
}

// stampSnapshot proyección del request_payload original para comparación.
// Solo régimen fiscal y uso de CFDI pueden haber cambiado; todo lo demás es
// invariante.
type stampSnapshot struct {
	Currency string          `json:"currency"`
	Exchange decimal.Decimal `json:"exchange"`
	Items    []snapshotItem  `json:"items"`
}

type snapshotItem struct {
	Quantity decimal.Decimal `json:"quantity"`
	Discount decimal.Decimal `json:"discount"`
	Product  struct {
		Description string          `json:"description"`
		ProductKey  string          `json:"product_key"`
		Price       decimal.Decimal `json:"price"`
		Taxes       []struct {
			Rate decimal.Decimal `json:"rate"`
		} `json:"taxes"`
	} `json:"product"`
}

// compareSnapshot regresa los campos con diferencia, vacío si todo coincide.
func (s *Service) compareSnapshot(snap *stampSnapshot, inv *entity.SalesInvoice, items []*entity.SalesInvoiceItem) []string {
	var diffs []string
	tolerance := decimal.NewFromFloat(s.fiscal.RoundingTolerance)

	if snap.Currency != inv.Currency {
		diffs = append(diffs, "currency")
	}
	if !snap.Exchange.Equal(inv.ExchangeRate) {
		diffs = append(diffs, "exchange_rate")
	}

	// Totales proyectados del snapshot contra los de la factura actual.
	snapSubtotal := decimal.Zero
	snapTotal := decimal.Zero
	for _, it := range snap.Items {
		line := it.Quantity.Mul(it.Product.Price).Sub(it.Discount)
		snapSubtotal = snapSubtotal.Add(line)
		lineTax := decimal.Zero
		for _, tax := range it.Product.Taxes {
			lineTax = lineTax.Add(line.Mul(tax.Rate))
		}
		snapTotal = snapTotal.Add(line).Add(lineTax)
	}
	if snapSubtotal.Sub(inv.Subtotal).Abs().GreaterThan(tolerance) {
		diffs = append(diffs, "subtotal")
	}
	if snapTotal.Sub(inv.GrandTotal).Abs().GreaterThan(tolerance) {
		diffs = append(diffs, "total")
	}

	if !sameItemSignature(snap.Items, items) {
		diffs = append(diffs, "items")
	}
	return diffs
}

// sameItemSignature compara firmas de línea insensibles al orden:
// (product_key, descripción, cantidad, precio, descuento, tasas).
func sameItemSignature(snapItems []snapshotItem, items []*entity.SalesInvoiceItem) bool {
	if len(snapItems) != len(items) {
		return false
	}

	sigA := make([]string, 0, len(snapItems))
	for _, it := range snapItems {
		rates := make([]string, 0, len(it.Product.Taxes))
		for _, tax := range it.Product.Taxes {
			rates = append(rates, tax.Rate.String())
		}
		sort.Strings(rates)
		sigA = append(sigA, itemSignature(
			it.Product.ProductKey, it.Product.Description,
			it.Quantity, it.Product.Price, it.Discount, rates,
		))
	}

	sigB := make([]string, 0, len(items))
	for _, it := range items {
		productKey := it.ProductKey
		if productKey == "" {
			productKey = sat.DefaultProductKey
		}
		sigB = append(sigB, itemSignature(
			productKey, it.Description,
			it.Quantity, it.UnitPrice, it.Discount, []string{it.TaxRate.String()},
		))
	}

	sort.Strings(sigA)
	sort.Strings(sigB)
	for i := range sigA {
		if sigA[i] != sigB[i] {
			return false
		}
	}
	return true
}

func itemSignature(productKey, description string, qty, price, discount decimal.Decimal, taxRates []string) string {
	return strings.Join([]string{
		productKey,
		description,
		qty.String(),
		price.String(),
		discount.String(),
		strings.Join(taxRates, "+"),
	}, "|")
}
