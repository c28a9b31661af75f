package timbrado

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/facturacion-mx/internal/domain"
	"github.com/tu-usuario/facturacion-mx/internal/domain/entity"
	"github.com/tu-usuario/facturacion-mx/pkg/sat"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// BuildStampPayload arma el payload de timbrado para FacturAPI a partir de la
// factura, sus líneas, el receptor y el documento fiscal. Es puro: cualquier
// dato faltante falla aquí, antes de tocar la red.
func BuildStampPayload(
	inv *entity.SalesInvoice,
	items []*entity.SalesInvoiceItem,
	customer *entity.Customer,
	ffm *entity.FacturaFiscalMexico,
) (map[string]any, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: la factura no tiene conceptos", domain.ErrInvalidInput)
	}

	customerBlock, err := buildCustomerBlock(customer)
	if err != nil {
		return nil, err
	}

	lineItems := make([]map[string]any, 0, len(items))
	for _, it := range items {
		line, err := buildItemBlock(it)
		if err != nil {
			return nil, err
		}
		lineItems = append(lineItems, line)
	}

	formaPago := ffm.ResolveFormaPago()
	if formaPago == "" {
		return nil, fmt.Errorf("%w: no se pudo resolver la forma de pago (capture forma explícita o use método PPD)", domain.ErrInvalidInput)
	}

	payload := map[string]any{
		"customer":       customerBlock,
		"items":          lineItems,
		"payment_form":   formaPago,
		"payment_method": ffm.PaymentMethodSAT,
		"use":            ffm.CFDIUse,
		"currency":       inv.Currency,
		"exchange":       inv.ExchangeRate,
	}

	// Bloque de relación CFDI cuando esta factura sustituye a otro comprobante.
	if ffm.SubstitutionSourceUUID != "" {
		payload["related_documents"] = []map[string]any{{
			"relationship": sat.RelationSubstitution,
			"documents":    []string{ffm.SubstitutionSourceUUID},
		}}
	}

	return payload, nil
}

func buildCustomerBlock(c *entity.Customer) (map[string]any, error) {
	rfc := sat.NormalizeRFC(c.RFC)
	if err := sat.ValidateRFC(rfc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if !c.HasCompleteAddress() {
		return nil, fmt.Errorf("%w: el receptor no tiene código postal de domicilio fiscal", domain.ErrInvalidInput)
	}
	iso3, err := sat.CountryToISO3(c.Country)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if c.TaxRegime == "" {
		return nil, fmt.Errorf("%w: el receptor no tiene régimen fiscal", domain.ErrInvalidInput)
	}

	block := map[string]any{
		"legal_name": NormalizeLegalName(c.Name),
		"tax_id":     rfc,
		"tax_system": c.TaxRegime,
		"address": map[string]any{
			"zip":     c.ZipCode,
			"country": iso3,
		},
	}
	if c.Email != "" {
		block["email"] = c.Email
	}
	return block, nil
}

func buildItemBlock(it *entity.SalesInvoiceItem) (map[string]any, error) {
	productKey := it.ProductKey
	if productKey == "" {
		productKey = sat.DefaultProductKey
	}
	unitKey, unitName, err := ParseUOM(it.UOM)
	if err != nil {
		return nil, err
	}

	product := map[string]any{
		"description": it.Description,
		"product_key": productKey,
		"unit_key":    unitKey,
		"unit_name":   unitName,
		"price":       it.UnitPrice,
		"taxes": []map[string]any{{
			"type": "IVA",
			"rate": it.TaxRate,
		}},
	}
	line := map[string]any{
		"quantity": it.Quantity,
		"product":  product,
	}
	if it.Discount.GreaterThan(decimal.Zero) {
		line["discount"] = it.Discount
	}
	return line, nil
}

// ParseUOM extrae la clave SAT de unidad de un string "H87 - Pieza".
// Acepta también la clave sola ("H87"). La clave debe estar en el catálogo.
func ParseUOM(uom string) (unitKey, unitName string, err error) {
	trimmed := strings.TrimSpace(uom)
	if trimmed == "" {
		return "", "", fmt.Errorf("%w: concepto sin unidad de medida", domain.ErrInvalidInput)
	}
	key := trimmed
	name := ""
	if idx := strings.Index(trimmed, " - "); idx > 0 {
		key = strings.TrimSpace(trimmed[:idx])
		name = strings.TrimSpace(trimmed[idx+3:])
	}
	key = strings.ToUpper(key)
	if !sat.ValidUnitKeys[key] {
		return "", "", fmt.Errorf("%w: clave de unidad SAT desconocida %q", domain.ErrInvalidInput, key)
	}
	return key, name, nil
}

var diacriticStripper = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// NormalizeLegalName razón social en la forma que exige el PAC: mayúsculas,
// sin acentos y sin el sufijo de régimen societario (S.A. DE C.V., etc.).
func NormalizeLegalName(name string) string {
	out, _, err := transform.String(diacriticStripper, name)
	if err != nil {
		out = name
	}
	out = strings.ToUpper(strings.TrimSpace(out))

	for _, suffix := range legalSuffixes {
		if strings.HasSuffix(out, suffix) {
			out = strings.TrimSpace(strings.TrimSuffix(out, suffix))
			break
		}
	}
	out = strings.TrimRight(out, ",. ")
	return out
}

var legalSuffixes = []string{
	"S.A. DE C.V.",
	"S.A. DE C.V",
	"SA DE CV",
	"S. DE R.L. DE C.V.",
	"S DE RL DE CV",
	"S.C.",
	"A.C.",
}
