package entity

import "time"

// Company es el emisor fiscal: la empresa que timbra. Sus datos fiscales
// (razón social, RFC, régimen y CP) viven en la cuenta del PAC; aquí se
// guardan para la representación impresa y los encabezados de la API.
type Company struct {
	ID        string
	Name      string // razón social registrada ante el SAT
	RFC       string
	TaxRegime string // c_RegimenFiscal del emisor
	ZipCode   string // CP del domicilio fiscal (lugar de expedición)
	Email     string
	Phone     string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
