package entity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tu-usuario/facturacion-mx/internal/domain"
	"github.com/tu-usuario/facturacion-mx/internal/domain/entity"
)

func TestFiscalEvent_TransicionesValidas(t *testing.T) {
	cases := []struct{ from, to string }{
		{entity.EventStatusPending, entity.EventStatusSuccess},
		{entity.EventStatusPending, entity.EventStatusFailed},
		{entity.EventStatusPending, entity.EventStatusRetry},
		{entity.EventStatusFailed, entity.EventStatusRetry},
		{entity.EventStatusFailed, entity.EventStatusSuccess},
		{entity.EventStatusRetry, entity.EventStatusSuccess},
		{entity.EventStatusRetry, entity.EventStatusFailed},
	}
	for _, c := range cases {
		ev := &entity.FiscalEventMX{Status: c.from}
		require.NoError(t, ev.Transition(c.to), "%q → %q", c.from, c.to)
	}
}

func TestFiscalEvent_SuccessEsTerminal(t *testing.T) {
	ev := &entity.FiscalEventMX{Status: entity.EventStatusSuccess}
	for _, to := range []string{entity.EventStatusPending, entity.EventStatusFailed, entity.EventStatusRetry} {
		assert.ErrorIs(t, ev.Transition(to), domain.ErrInvalidTransition)
	}
}

func TestFiscalEvent_MismoEstadoRechazado(t *testing.T) {
	ev := &entity.FiscalEventMX{Status: entity.EventStatusPending}
	assert.ErrorIs(t, ev.Transition(entity.EventStatusPending), domain.ErrInvalidTransition)
}

func TestFiscalEvent_MarcadoresInternos(t *testing.T) {
	// Los helpers internos fijan estado directo, sin pasar por el guard.
	ev := entity.NewFiscalEvent("Factura Fiscal Mexico", "FFM-001", entity.EventDocumentCreated, "{}")
	assert.Equal(t, entity.EventStatusPending, ev.Status)

	ev.MarkSuccess(120 * time.Millisecond)
	assert.Equal(t, entity.EventStatusSuccess, ev.Status)
	assert.Equal(t, 120*time.Millisecond, ev.ExecutionTime)

	ev2 := entity.NewFiscalEvent("Factura Fiscal Mexico", "FFM-002", entity.EventStatusChanged, "{}")
	ev2.MarkFailed("boom")
	assert.Equal(t, entity.EventStatusFailed, ev2.Status)
	assert.Equal(t, "boom", ev2.ErrorMessage)
}
