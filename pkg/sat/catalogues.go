// Package sat contiene catálogos y validaciones alineados al Anexo 20 del
// CFDI 4.0 (SAT, México): motivos de cancelación, formas de pago, método de
// pago, uso CFDI y claves de unidad de uso frecuente.
package sat

import (
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// Catálogo de Motivos de Cancelación (RMF 2022, regla 2.7.1.34)
// Cuatro códigos oficiales; solo el "01" exige el UUID del CFDI que sustituye.
// =============================================================================

const (
	MotiveSubstitution  = "01" // Comprobante emitido con errores con relación
	MotiveErrorsNoRel   = "02" // Comprobante emitido con errores sin relación
	MotiveNotCarriedOut = "03" // No se llevó a cabo la operación
	MotiveGlobalRelated = "04" // Operación nominativa relacionada en la factura global
)

// cancellationMotives descripción oficial SAT por código.
var cancellationMotives = map[string]string{
	MotiveSubstitution:  "Comprobantes emitidos con errores con relación",
	MotiveErrorsNoRel:   "Comprobantes emitidos con errores sin relación",
	MotiveNotCarriedOut: "No se llevó a cabo la operación",
	MotiveGlobalRelated: "Operación nominativa relacionada en la factura global",
}

// IsValidCancellationMotive indica si el código pertenece al catálogo SAT.
func IsValidCancellationMotive(code string) bool {
	_, ok := cancellationMotives[code]
	return ok
}

// CancellationMotiveDescription devuelve la descripción oficial del motivo.
func CancellationMotiveDescription(code string) (string, error) {
	desc, ok := cancellationMotives[code]
	if !ok {
		return "", fmt.Errorf("sat: motivo de cancelación desconocido: %q", code)
	}
	return desc, nil
}

// RequiresSubstitutionUUID indica si el motivo exige un UUID de sustitución.
// Únicamente el motivo "01" lo requiere.
func RequiresSubstitutionUUID(code string) bool {
	return code == MotiveSubstitution
}

// CancellationMotiveCatalog es la vista del catálogo que se expone a la UI:
// códigos ordenados, descripciones, el mapa de exigencia de UUID y las
// opciones de Select en formato "<código>\t<descripción>".
type CancellationMotiveCatalog struct {
	Codes                []string          `json:"codes"`
	Descriptions         map[string]string `json:"descriptions"`
	RequiresSubstitution map[string]bool   `json:"requires_substitution"`
	SelectOptions        []string          `json:"select_options"`
}

// GetCancellationMotiveCatalog arma la vista completa del catálogo.
func GetCancellationMotiveCatalog() CancellationMotiveCatalog {
	codes := make([]string, 0, len(cancellationMotives))
	for code := range cancellationMotives {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	cat := CancellationMotiveCatalog{
		Codes:                codes,
		Descriptions:         make(map[string]string, len(codes)),
		RequiresSubstitution: make(map[string]bool, len(codes)),
		SelectOptions:        make([]string, 0, len(codes)),
	}
	for _, code := range codes {
		desc := cancellationMotives[code]
		cat.Descriptions[code] = desc
		cat.RequiresSubstitution[code] = RequiresSubstitutionUUID(code)
		cat.SelectOptions = append(cat.SelectOptions, code+"\t"+desc)
	}
	return cat
}

// CancellationReasonOptions son las opciones del campo Select "motivo de
// cancelación" configuradas en el documento fiscal. El orquestador valida la
// razón resuelta contra esta lista exacta: nunca se inventa una opción.
var CancellationReasonOptions = []string{
	"01 - Comprobantes emitidos con errores con relación",
	"02 - Comprobantes emitidos con errores sin relación",
	"03 - No se llevó a cabo la operación",
	"04 - Operación nominativa relacionada en la factura global",
}

// ResolveCancellationReason localiza la opción de Select que corresponde al
// código: primero match exacto "<código> - <descripción oficial>", después
// prefijo "<código> -". Si ninguna opción coincide, error duro.
func ResolveCancellationReason(code string) (string, error) {
	desc, err := CancellationMotiveDescription(code)
	if err != nil {
		return "", err
	}
	exact := code + " - " + desc
	for _, opt := range CancellationReasonOptions {
		if opt == exact {
			return opt, nil
		}
	}
	prefix := code + " -"
	for _, opt := range CancellationReasonOptions {
		if strings.HasPrefix(opt, prefix) {
			return opt, nil
		}
	}
	return "", fmt.Errorf("sat: ninguna opción de motivo configurada coincide con el código %q", code)
}

// =============================================================================
// Catálogo c_MetodoPago (Anexo 20 - método de pago)
// =============================================================================

const (
	PaymentMethodPUE = "PUE" // Pago en Una sola Exhibición
	PaymentMethodPPD = "PPD" // Pago en Parcialidades o Diferido
)

// =============================================================================
// Catálogo c_FormaPago (Anexo 20 - forma de pago, códigos de uso frecuente)
// PPD obliga forma "99"; PUE admite cualquiera excepto "99".
// =============================================================================

const (
	PaymentFormEfectivo      = "01" // Efectivo
	PaymentFormChequeNominal = "02" // Cheque nominativo
	PaymentFormTransferencia = "03" // Transferencia electrónica de fondos
	PaymentFormTarjetaCred   = "04" // Tarjeta de crédito
	PaymentFormTarjetaDeb    = "28" // Tarjeta de débito
	PaymentFormPorDefinir    = "99" // Por definir (obligatoria con PPD)
)

// ValidPaymentForms formas de pago aceptadas al timbrar.
var ValidPaymentForms = map[string]bool{
	PaymentFormEfectivo: true, PaymentFormChequeNominal: true,
	PaymentFormTransferencia: true, PaymentFormTarjetaCred: true,
	PaymentFormTarjetaDeb: true, PaymentFormPorDefinir: true,
}

// =============================================================================
// Catálogo c_UsoCFDI (Anexo 20 - usos de uso frecuente)
// =============================================================================

const (
	CFDIUseAdquisicion     = "G01"  // Adquisición de mercancías
	CFDIUseGastosGenerales = "G03"  // Gastos en general
	CFDIUsePagos           = "CP01" // Pagos
	CFDIUseSinEfectos      = "S01"  // Sin efectos fiscales
)

// ValidCFDIUses usos CFDI aceptados al timbrar.
var ValidCFDIUses = map[string]bool{
	CFDIUseAdquisicion: true, CFDIUseGastosGenerales: true,
	CFDIUsePagos: true, CFDIUseSinEfectos: true,
	"G02": true, "I01": true, "I02": true, "I03": true, "I04": true,
	"I05": true, "I06": true, "I07": true, "I08": true,
	"D01": true, "D02": true, "D03": true, "D04": true, "D05": true,
	"D06": true, "D07": true, "D08": true, "D09": true, "D10": true,
}

// =============================================================================
// Catálogo c_ClaveUnidad (Anexo 20 - claves de unidad de uso frecuente)
// =============================================================================

const (
	UnitPieza     = "H87" // Pieza
	UnitServicio  = "E48" // Unidad de servicio
	UnitActividad = "ACT" // Actividad
	UnitKilogramo = "KGM" // Kilogramo
	UnitLitro     = "LTR" // Litro
	UnitMetro     = "MTR" // Metro
	UnitHora      = "HUR" // Hora
)

// ValidUnitKeys claves de unidad válidas de uso común.
var ValidUnitKeys = map[string]bool{
	UnitPieza: true, UnitServicio: true, UnitActividad: true,
	UnitKilogramo: true, UnitLitro: true, UnitMetro: true, UnitHora: true,
	"XBX": true, "GRM": true, "MTK": true, "MTQ": true, "DAY": true,
}

// DefaultProductKey clave de producto/servicio genérica cuando el artículo
// no trae clave SAT propia ("01010101" = no existe en el catálogo).
const DefaultProductKey = "01010101"

// =============================================================================
// Catálogo c_RegimenFiscal (códigos de uso frecuente)
// =============================================================================

const (
	RegimeGeneralLey           = "601" // General de Ley Personas Morales
	RegimeSinObligaciones      = "616" // Sin obligaciones fiscales
	RegimeSueldosSalarios      = "605" // Sueldos y salarios
	RegimeActividadEmpresarial = "612" // Personas Físicas con Actividades Empresariales
	RegimeRESICO               = "626" // Régimen Simplificado de Confianza
)

// ValidTaxRegimes regímenes fiscales aceptados para el receptor.
var ValidTaxRegimes = map[string]bool{
	RegimeGeneralLey: true, RegimeSinObligaciones: true, RegimeSueldosSalarios: true,
	RegimeActividadEmpresarial: true, RegimeRESICO: true,
	"603": true, "606": true, "608": true, "610": true, "611": true,
	"614": true, "615": true, "620": true, "621": true, "622": true,
	"623": true, "624": true, "625": true,
}

// =============================================================================
// Relación CFDI (catálogo c_TipoRelacion) — usada en sustitución.
// =============================================================================

// RelationSubstitution "04 - Sustitución de los CFDI previos".
const RelationSubstitution = "04"
