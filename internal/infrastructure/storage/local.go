// Package storage guarda los adjuntos del documento fiscal en disco local:
// XML y PDF timbrados, acuses de cancelación. Un directorio por documento.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalFileStore implementa timbrado.FileStore sobre el filesystem.
type LocalFileStore struct {
	baseDir string
}

// NewLocalFileStore construye el almacén; crea el directorio base si no existe.
func NewLocalFileStore(baseDir string) (*LocalFileStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("storage: directorio base vacío")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: crear directorio base: %w", err)
	}
	return &LocalFileStore{baseDir: baseDir}, nil
}

// Attach escribe el adjunto bajo <base>/<ffmID>/<filename>. Sobrescribe si ya
// existe: el PAC es la fuente y una re-descarga siempre es más fresca.
func (s *LocalFileStore) Attach(ctx context.Context, ffmID, filename string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ffmID == "" || filename == "" {
		return fmt.Errorf("storage: ffmID y filename requeridos")
	}
	name := sanitize(filename)
	dir := filepath.Join(s.baseDir, sanitize(ffmID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: crear directorio del documento: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("storage: escribir %s: %w", name, err)
	}
	return nil
}

// Read devuelve el contenido de un adjunto previamente guardado.
func (s *LocalFileStore) Read(ctx context.Context, ffmID, filename string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(s.baseDir, sanitize(ffmID), sanitize(filename))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("storage: leer %s: %w", filename, err)
	}
	return data, nil
}

// sanitize quita separadores de ruta para que el nombre no escape del baseDir.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, "..", "_")
	return s
}
