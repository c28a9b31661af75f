package timbrado

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tu-usuario/facturacion-mx/internal/infrastructure/facturapi"
)

func TestClassifyPACError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantKind   ErrorKind
		wantStatus int
	}{
		{
			name:     "timeout del cliente",
			err:      fmt.Errorf("timbrado: %w", facturapi.ErrTimeout),
			wantKind: KindTimeout,
		},
		{
			name:     "fallo de conexión",
			err:      fmt.Errorf("timbrado: %w", facturapi.ErrConnection),
			wantKind: KindConnection,
		},
		{
			name:       "credenciales rechazadas",
			err:        &facturapi.APIError{StatusCode: 401, Message: "Invalid API key"},
			wantKind:   KindAuth,
			wantStatus: 401,
		},
		{
			name:       "domicilio incompleto",
			err:        &facturapi.APIError{StatusCode: 400, Message: "customer.address.zip is required"},
			wantKind:   KindMissingAddress,
			wantStatus: 400,
		},
		{
			name:       "rfc inválido",
			err:        &facturapi.APIError{StatusCode: 400, Message: "tax_id no coincide con el registrado en el SAT"},
			wantKind:   KindInvalidRFC,
			wantStatus: 400,
		},
		{
			name:       "claves SAT faltantes",
			err:        &facturapi.APIError{StatusCode: 400, Message: "items[0].product.product_key is invalid"},
			wantKind:   KindMissingSATCodes,
			wantStatus: 400,
		},
		{
			name:       "uso CFDI incompatible",
			err:        &facturapi.APIError{StatusCode: 400, Message: "el use de CFDI no aplica para el régimen del receptor"},
			wantKind:   KindInvalidCFDIUse,
			wantStatus: 400,
		},
		{
			name:       "error interno del PAC",
			err:        &facturapi.APIError{StatusCode: 503, Message: "service temporarily unavailable"},
			wantKind:   KindPACServer,
			wantStatus: 503,
		},
		{
			name:       "rechazo 4xx no clasificado",
			err:        &facturapi.APIError{StatusCode: 422, Message: "no se pudo generar el comprobante"},
			wantKind:   KindPACRejection,
			wantStatus: 422,
		},
		{
			name:     "error ajeno al cliente",
			err:      errors.New("algo inesperado"),
			wantKind: KindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyPACError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantStatus, got.StatusCode)
			assert.NotEmpty(t, got.Technical)
		})
	}

	assert.Nil(t, ClassifyPACError(nil))
}

func TestClassifyPACError_AuthGanaSobreElTexto(t *testing.T) {
	// Un 401 se clasifica por status aunque el mensaje mencione "rfc".
	got := ClassifyPACError(&facturapi.APIError{StatusCode: 401, Message: "rfc sin autorización"})
	assert.Equal(t, KindAuth, got.Kind)
}

func TestUserMessage_TotalSobreElEnum(t *testing.T) {
	kinds := []ErrorKind{
		KindUnknown, KindTimeout, KindConnection, KindAuth,
		KindMissingAddress, KindInvalidRFC, KindMissingSATCodes,
		KindInvalidCFDIUse, KindPACRejection, KindPACServer,
		ErrorKind(99), // valores futuros caen al default
	}
	for _, k := range kinds {
		msg, action := k.UserMessage()
		assert.NotEmpty(t, msg, "kind %d sin mensaje", k)
		assert.NotEmpty(t, action, "kind %d sin acción correctiva", k)
	}
}

func TestUserMessage_TimeoutPideVerificarAntesDeReintentar(t *testing.T) {
	// Tras un timeout el timbre pudo haberse emitido; reintentar a ciegas
	// duplicaría el CFDI.
	msg, action := KindTimeout.UserMessage()
	assert.Contains(t, msg, "no respondió")
	assert.Contains(t, action, "Verifique el estado")
}
