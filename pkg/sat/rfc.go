package sat

import (
	"fmt"
	"regexp"
	"strings"
)

// RFC: 12 caracteres para personas morales, 13 para personas físicas.
// Estructura: iniciales (3 o 4) + fecha AAMMDD + homoclave (3).
var rfcPattern = regexp.MustCompile(`^[A-ZÑ&]{3,4}\d{6}[A-Z0-9]{3}$`)

// RFCs genéricos del SAT: público en general y residentes en el extranjero.
const (
	RFCGenericNational = "XAXX010101000"
	RFCGenericForeign  = "XEXX010101000"
)

// NormalizeRFC limpia el RFC para validación y envío al PAC:
// mayúsculas, sin espacios ni guiones.
func NormalizeRFC(rfc string) string {
	rfc = strings.ToUpper(strings.TrimSpace(rfc))
	rfc = strings.ReplaceAll(rfc, "-", "")
	rfc = strings.ReplaceAll(rfc, " ", "")
	return rfc
}

// ValidateRFC valida estructura y longitud del RFC (12 persona moral,
// 13 persona física). Los RFC genéricos del SAT son válidos.
func ValidateRFC(rfc string) error {
	normalized := NormalizeRFC(rfc)
	if normalized == "" {
		return fmt.Errorf("sat: RFC vacío")
	}
	if len(normalized) != 12 && len(normalized) != 13 {
		return fmt.Errorf("sat: RFC debe tener 12 o 13 caracteres, se recibieron %d", len(normalized))
	}
	if !rfcPattern.MatchString(normalized) {
		return fmt.Errorf("sat: RFC con estructura inválida: %q", normalized)
	}
	return nil
}

// IsGenericRFC indica si el RFC es uno de los genéricos del SAT.
func IsGenericRFC(rfc string) bool {
	normalized := NormalizeRFC(rfc)
	return normalized == RFCGenericNational || normalized == RFCGenericForeign
}

// IsPersonaMoral indica si el RFC corresponde a persona moral (12 caracteres).
func IsPersonaMoral(rfc string) bool {
	return len(NormalizeRFC(rfc)) == 12
}

// countryToISO3 allow-list explícita de países soportados para el receptor.
// El PAC exige ISO 3166-1 alfa-3; cualquier variante fuera de la lista se rechaza
// antes de tocar la red.
var countryToISO3 = map[string]string{
	"MEXICO":         "MEX",
	"MÉXICO":         "MEX",
	"MX":             "MEX",
	"MEX":            "MEX",
	"UNITED STATES":  "USA",
	"ESTADOS UNIDOS": "USA",
	"US":             "USA",
	"USA":            "USA",
	"CANADA":         "CAN",
	"CANADÁ":         "CAN",
	"CA":             "CAN",
	"CAN":            "CAN",
}

// CountryToISO3 resuelve el país del receptor a su código ISO 3166-1 alfa-3.
// Solo México, Estados Unidos y Canadá están soportados.
func CountryToISO3(country string) (string, error) {
	key := strings.ToUpper(strings.TrimSpace(country))
	if iso, ok := countryToISO3[key]; ok {
		return iso, nil
	}
	return "", fmt.Errorf("sat: país no soportado para timbrado: %q (permitidos: México, Estados Unidos, Canadá)", country)
}
