package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachRead_RoundTrip(t *testing.T) {
	store, err := NewLocalFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	xml := []byte(`<?xml version="1.0"?><cfdi:Comprobante/>`)
	require.NoError(t, store.Attach(ctx, "FFM-001", "cfdi-AAAA.xml", xml))

	got, err := store.Read(ctx, "FFM-001", "cfdi-AAAA.xml")
	require.NoError(t, err)
	assert.Equal(t, xml, got)
}

func TestAttach_SobrescribeRedescargas(t *testing.T) {
	store, err := NewLocalFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Attach(ctx, "FFM-001", "acuse.xml", []byte("v1")))
	require.NoError(t, store.Attach(ctx, "FFM-001", "acuse.xml", []byte("v2")))

	got, err := store.Read(ctx, "FFM-001", "acuse.xml")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func TestAttach_NombresSaneados(t *testing.T) {
	base := t.TempDir()
	store, err := NewLocalFileStore(base)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Attach(ctx, "FFM-001", "../../etc/passwd", []byte("x")))

	// Nada fuera del directorio del documento.
	entries, err := os.ReadDir(filepath.Join(base, "FFM-001"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Name(), "..")

	_, err = os.Stat(filepath.Join(base, "etc", "passwd"))
	assert.True(t, os.IsNotExist(err))
}

func TestAttach_RequiereDocumentoYNombre(t *testing.T) {
	store, err := NewLocalFileStore(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, store.Attach(context.Background(), "", "a.xml", nil))
	assert.Error(t, store.Attach(context.Background(), "FFM-001", "", nil))
}

func TestRead_Inexistente(t *testing.T) {
	store, err := NewLocalFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Read(context.Background(), "FFM-001", "no-existe.pdf")
	assert.Error(t, err)
}

func TestNewLocalFileStore_DirectorioVacio(t *testing.T) {
	_, err := NewLocalFileStore("")
	assert.Error(t, err)
}

func TestAttach_ContextoCancelado(t *testing.T) {
	store, err := NewLocalFileStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, store.Attach(ctx, "FFM-001", "a.xml", []byte("x")))
}
