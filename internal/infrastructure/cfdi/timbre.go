// Utilidades sobre el XML del CFDI timbrado: extracción del complemento
// TimbreFiscalDigital y huella canónica (C14N + SHA-256) para archivado.

package cfdi

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"
)

// Timbre datos del complemento TimbreFiscalDigital del CFDI timbrado.
type Timbre struct {
	UUID             string
	FechaTimbrado    string
	SelloSAT         string
	SelloCFD         string
	NoCertificadoSAT string
	RFCProvCertif    string // RFC del PAC que timbró
	Version          string
}

// ParseTimbre extrae el TimbreFiscalDigital del XML timbrado que regresa el
// PAC. El complemento vive en cfdi:Comprobante/cfdi:Complemento y el UUID es
// el folio fiscal que el SAT asignó al documento.
func ParseTimbre(xmlBytes []byte) (*Timbre, error) {
	if len(xmlBytes) == 0 {
		return nil, fmt.Errorf("cfdi: XML vacío")
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, fmt.Errorf("cfdi: parsear XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("cfdi: documento sin raíz")
	}
	if localTag(root) != "Comprobante" {
		return nil, fmt.Errorf("cfdi: raíz inesperada %q, se esperaba cfdi:Comprobante", root.Tag)
	}

	tfd := findTimbre(root)
	if tfd == nil {
		return nil, fmt.Errorf("cfdi: el XML no contiene TimbreFiscalDigital")
	}

	t := &Timbre{
		UUID:             tfd.SelectAttrValue("UUID", ""),
		FechaTimbrado:    tfd.SelectAttrValue("FechaTimbrado", ""),
		SelloSAT:         tfd.SelectAttrValue("SelloSAT", ""),
		SelloCFD:         tfd.SelectAttrValue("SelloCFD", ""),
		NoCertificadoSAT: tfd.SelectAttrValue("NoCertificadoSAT", ""),
		RFCProvCertif:    tfd.SelectAttrValue("RfcProvCertif", ""),
		Version:          tfd.SelectAttrValue("Version", ""),
	}
	if t.UUID == "" {
		return nil, fmt.Errorf("cfdi: TimbreFiscalDigital sin UUID")
	}
	return t, nil
}

// findTimbre recorre cfdi:Complemento buscando el nodo TimbreFiscalDigital.
// El Tag puede llegar con o sin prefijo según cómo declare namespaces el PAC.
func findTimbre(root *etree.Element) *etree.Element {
	for _, child := range root.ChildElements() {
		if localTag(child) != "Complemento" {
			continue
		}
		for _, comp := range child.ChildElements() {
			if localTag(comp) == "TimbreFiscalDigital" {
				return comp
			}
		}
	}
	return nil
}

func localTag(e *etree.Element) string {
	tag := e.Tag
	if i := lastColon(tag); i >= 0 {
		return tag[i+1:]
	}
	return tag
}

func lastColon(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ':' {
			return i
		}
	}
	return -1
}

// CanonicalDigest calcula SHA-256 sobre la forma canónica (C14N) del XML.
// Sirve como huella estable del CFDI archivado: dos serializaciones distintas
// del mismo documento producen el mismo digest. Si el XML no canonicaliza se
// hashea el byte stream tal cual.
func CanonicalDigest(xmlBytes []byte) (string, error) {
	if len(xmlBytes) == 0 {
		return "", fmt.Errorf("cfdi: XML vacío")
	}
	canonical, err := canonicalize(xmlBytes)
	if err != nil {
		canonical = xmlBytes
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

func canonicalize(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}
