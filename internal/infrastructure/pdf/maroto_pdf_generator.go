// Package pdf implementa la representación impresa del CFDI 4.0 (Anexo 20 del
// SAT). No es el comprobante fiscal, ese es el XML timbrado; es la vista
// imprimible que el operador entrega al cliente.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Razón Social + RFC emisor │ Serie-Folio + Fecha     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  EMISOR: régimen fiscal / lugar de expedición                │
//	│  RECEPTOR: razón social + RFC + uso CFDI                     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: ClaveSAT | Descripción | Cant | P.Unit | Importe     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Subtotal / IVA / TOTAL                             │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER SAT: UUID + QR de verificación + leyenda             │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"net/url"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	appfiscal "github.com/tu-usuario/facturacion-mx/internal/application/fiscal"
	"github.com/tu-usuario/facturacion-mx/internal/domain/entity"
)

// URL de verificación pública del SAT; los parámetros van en el QR.
const satVerifyBaseURL = "https://verificacfdi.facturaelectronica.sat.gob.mx/default.aspx"

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 90, Blue: 60}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa fiscal.CFDIPDFGenerator usando Maroto v2.
type MarotoPDFGenerator struct{}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{} }

// GenerateCFDIPDF genera la representación impresa y devuelve sus bytes.
func (g *MarotoPDFGenerator) GenerateCFDIPDF(
	_ context.Context,
	ffm *entity.FacturaFiscalMexico,
	company *entity.Company,
	customer *entity.Customer,
	conceptos []appfiscal.ConceptoForPDF,
) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("CFDI "+ffm.UUID, true).
		WithAuthor(company.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(ffm, company))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(emisorRow(company))
	m.AddRows(receptorRow(ffm, customer))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	for _, r := range tableConceptoRows(conceptos) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(ffm))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	for _, r := range satFooterRows(ffm, company, customer) {
		m.AddRows(r)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: razón social + RFC emisor (izq) y serie-folio + fecha de timbrado (der).
func headerRow(ffm *entity.FacturaFiscalMexico, company *entity.Company) core.Row {
	serieFolio := ffm.Serie
	if ffm.Folio != "" {
		serieFolio += "-" + ffm.Folio
	}
	fecha := "—"
	if ffm.FechaTimbrado != nil {
		fecha = ffm.FechaTimbrado.Format("02/01/2006 15:04")
	}

	return row.New(18).Add(
		col.New(7).Add(
			text.New(company.Name, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("RFC: "+company.RFC, props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("CFDI 4.0 · FACTURA", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(serieFolio, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Timbrado: "+fecha, props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

// emisorRow: régimen fiscal y lugar de expedición del emisor.
func emisorRow(company *entity.Company) core.Row {
	return row.New(12).Add(
		col.New(12).Add(
			text.New("DATOS DEL EMISOR", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("Régimen fiscal: %s   |   Lugar de expedición (CP): %s   |   Email: %s",
				nonEmpty(company.TaxRegime, "—"),
				nonEmpty(company.ZipCode, "—"),
				nonEmpty(company.Email, "—"),
			), props.Text{Size: 8, Top: 7, Color: colorGray}),
		),
	)
}

// receptorRow: receptor fiscal con uso CFDI y método/forma de pago.
func receptorRow(ffm *entity.FacturaFiscalMexico, customer *entity.Customer) core.Row {
	return row.New(14).Add(
		col.New(12).Add(
			text.New("RECEPTOR", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(customer.Name, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(fmt.Sprintf("RFC: %s   |   Uso CFDI: %s   |   Método: %s   |   Forma: %s",
				customer.RFC,
				nonEmpty(ffm.CFDIUse, "—"),
				nonEmpty(ffm.PaymentMethodSAT, "—"),
				nonEmpty(ffm.ResolveFormaPago(), "—"),
			), props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de conceptos.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Clave SAT", 2, align.Center),
		h("Descripción", 4, align.Left),
		h("Cant.", 1, align.Center),
		h("P. Unitario", 2, align.Right),
		h("Importe", 3, align.Right),
	)
}

// tableConceptoRows: una fila por concepto.
func tableConceptoRows(conceptos []appfiscal.ConceptoForPDF) []core.Row {
	result := make([]core.Row, 0, len(conceptos))
	for _, c := range conceptos {
		result = append(result, row.New(7).Add(
			col.New(2).Add(text.New(
				c.ProductKey,
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(4).Add(text.New(
				c.Description,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(1).Add(text.New(
				c.Quantity.StringFixed(0),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(2).Add(text.New(
				"$"+c.UnitPrice.StringFixed(2),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(3).Add(text.New(
				"$"+c.Amount.StringFixed(2),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
		))
	}
	return result
}

// totalsRow: subtotal, IVA y total fiscal del snapshot de timbrado.
func totalsRow(ffm *entity.FacturaFiscalMexico) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2,
		})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	grandLabel := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 2,
		})
	}
	grandValue := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 1,
		})
	}

	total := ffm.TotalFiscal
	if total.IsZero() {
		total = ffm.SITotalNeto
	}

	return row.New(26).Add(
		col.New(3), // espacio izquierdo
		col.New(3).Add(
			label("Subtotal:"),
			label("IVA:"),
			grandLabel("TOTAL:"),
		),
		col.New(3).Add(
			value("$"+ffm.SITotalAntesIVA.StringFixed(2)),
			value("$"+ffm.SIIVA.StringFixed(2)),
			grandValue("$"+total.StringFixed(2)),
		),
		col.New(3), // espacio derecho
	)
}

// satFooterRows: folio fiscal (UUID), QR de verificación del SAT y leyenda.
func satFooterRows(ffm *entity.FacturaFiscalMexico, company *entity.Company, customer *entity.Customer) []core.Row {
	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("TIMBRE FISCAL DIGITAL SAT", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
		)),
		row.New(5).Add(col.New(12).Add(
			text.New("Folio fiscal (UUID): "+ffm.UUID, props.Text{
				Style: fontstyle.Bold, Size: 7, Top: 1,
			}),
		)),
	}

	rows = append(rows, row.New(3))

	qr := satVerifyURL(ffm, company, customer)
	rows = append(rows, row.New(50).Add(
		col.New(4).Add(code.NewQr(qr, props.Rect{
			Percent: 95,
			Center:  true,
		})),
		col.New(8).Add(
			text.New("Escanea el código QR para verificar\neste comprobante en el portal del SAT.", props.Text{
				Size: 8, Top: 4, Left: 3, Color: colorGray,
			}),
			text.New("Este documento es una representación\nimpresa de un CFDI 4.0", props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 22,
				Left: 3, Color: colorPrimary,
			}),
		),
	))

	if ffm.FiscalStatus == entity.StatusCancelada {
		rows = append(rows, row.New(8).Add(col.New(12).Add(
			text.New("COMPROBANTE CANCELADO: "+nonEmpty(ffm.CancellationReason, "sin motivo registrado"), props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Center, Top: 2,
			}),
		)))
	}

	rows = append(rows, row.New(8).Add(col.New(12).Add(
		text.New(
			"Comprobante Fiscal Digital por Internet emitido conforme al Anexo 20 "+
				"del SAT, versión 4.0. El XML timbrado es el comprobante fiscal; "+
				"conserve ambos documentos.",
			props.Text{Size: 6.5, Color: colorGray, Top: 2},
		),
	)))

	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// satVerifyURL arma la URL de verificación pública con UUID, RFCs y total.
func satVerifyURL(ffm *entity.FacturaFiscalMexico, company *entity.Company, customer *entity.Customer) string {
	total := ffm.TotalFiscal
	if total.IsZero() {
		total = ffm.SITotalNeto
	}
	q := url.Values{}
	q.Set("id", ffm.UUID)
	q.Set("re", company.RFC)
	q.Set("rr", customer.RFC)
	q.Set("tt", total.StringFixed(6))
	return satVerifyBaseURL + "?" + q.Encode()
}
