package timbrado

import (
	"errors"
	"strings"

	"github.com/tu-usuario/facturacion-mx/internal/infrastructure/facturapi"
)

// ErrorKind clasifica el fallo de una llamada al PAC. La capa de presentación
// mapea cada kind a un mensaje y una acción correctiva; el mapeo es una
// función total sobre el enum, nunca pattern-matching sobre texto de excepción.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindTimeout
	KindConnection
	KindAuth
	KindMissingAddress
	KindInvalidRFC
	KindMissingSATCodes
	KindInvalidCFDIUse
	KindPACRejection // 4xx del PAC no clasificado
	KindPACServer    // 5xx del PAC
)

// PACError resultado clasificado de un fallo de comunicación con el PAC.
type PACError struct {
	Kind       ErrorKind
	StatusCode int
	Technical  string // detalle crudo, para el operador (ya quedó en el Response Log)
}

func (e *PACError) Error() string { return e.Technical }

// ClassifyPACError proyecta el error del cliente FacturAPI al ErrorKind.
// Los substrings vienen de los mensajes reales de FacturAPI; son la heurística
// de clasificación, no el canal de mensajes al usuario.
func ClassifyPACError(err error) *PACError {
	if err == nil {
		return nil
	}
	if errors.Is(err, facturapi.ErrTimeout) {
		return &PACError{Kind: KindTimeout, Technical: err.Error()}
	}
	if errors.Is(err, facturapi.ErrConnection) {
		return &PACError{Kind: KindConnection, Technical: err.Error()}
	}

	var apiErr *facturapi.APIError
	if errors.As(err, &apiErr) {
		kind := classifyAPIError(apiErr)
		return &PACError{Kind: kind, StatusCode: apiErr.StatusCode, Technical: apiErr.Message}
	}
	return &PACError{Kind: KindUnknown, Technical: err.Error()}
}

func classifyAPIError(apiErr *facturapi.APIError) ErrorKind {
	switch apiErr.StatusCode {
	case 401, 403:
		return KindAuth
	}
	msg := strings.ToLower(apiErr.Message)
	switch {
	case strings.Contains(msg, "address") || strings.Contains(msg, "domicilio") || strings.Contains(msg, "zip"):
		return KindMissingAddress
	case strings.Contains(msg, "tax_id") || strings.Contains(msg, "rfc"):
		return KindInvalidRFC
	case strings.Contains(msg, "product_key") || strings.Contains(msg, "unit_key"):
		return KindMissingSATCodes
	case strings.Contains(msg, "use") && strings.Contains(msg, "cfdi"):
		return KindInvalidCFDIUse
	case apiErr.StatusCode >= 500:
		return KindPACServer
	case apiErr.StatusCode >= 400:
		return KindPACRejection
	}
	return KindUnknown
}

// UserMessage mensaje legible + acción correctiva por kind. Total: todo kind
// tiene entrada y el default cubre valores futuros.
func (k ErrorKind) UserMessage() (message, correctiveAction string) {
	switch k {
	case KindTimeout:
		return "El PAC no respondió a tiempo.",
			"Verifique el estado del documento antes de reintentar: el timbrado pudo haberse completado."
	case KindConnection:
		return "No se pudo establecer conexión con el PAC.",
			"Revise la conectividad de red y reintente."
	case KindAuth:
		return "El PAC rechazó las credenciales.",
			"Verifique la llave de API configurada para el ambiente activo (sandbox/producción)."
	case KindMissingAddress:
		return "El receptor no tiene domicilio fiscal completo.",
			"Capture el código postal del domicilio fiscal del cliente y reintente."
	case KindInvalidRFC:
		return "El RFC del receptor fue rechazado por el PAC.",
			"Verifique el RFC contra la constancia de situación fiscal del cliente."
	case KindMissingSATCodes:
		return "Hay conceptos sin clave SAT de producto o unidad.",
			"Asigne clave de producto (c_ClaveProdServ) y unidad (c_ClaveUnidad) a cada concepto."
	case KindInvalidCFDIUse:
		return "El uso de CFDI no es válido para este receptor.",
			"Seleccione un uso de CFDI compatible con el régimen fiscal del cliente."
	case KindPACServer:
		return "El PAC reportó un error interno.",
			"Reintente más tarde; si persiste, contacte al PAC."
	case KindPACRejection:
		return "El PAC rechazó la solicitud.",
			"Revise el detalle técnico en la bitácora de respuestas del documento."
	default:
		return "Error no clasificado al comunicarse con el PAC.",
			"Revise la bitácora de respuestas del documento para el detalle técnico."
	}
}
