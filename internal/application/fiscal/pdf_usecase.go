package fiscal

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/facturacion-mx/internal/domain"
	"github.com/tu-usuario/facturacion-mx/internal/domain/entity"
	"github.com/tu-usuario/facturacion-mx/internal/domain/repository"
	"github.com/tu-usuario/facturacion-mx/pkg/sat"
)

// ConceptoForPDF proyección de una línea de la factura para la representación
// impresa: la clave SAT ya resuelta y el importe de la línea calculado.
type ConceptoForPDF struct {
	ProductKey  string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
	Amount      decimal.Decimal
}

// CFDIPDFGenerator puerto del generador de la representación impresa.
type CFDIPDFGenerator interface {
	GenerateCFDIPDF(
		ctx context.Context,
		ffm *entity.FacturaFiscalMexico,
		company *entity.Company,
		customer *entity.Customer,
		conceptos []ConceptoForPDF,
	) ([]byte, error)
}

// PDFUseCase arma la representación impresa del CFDI timbrado.
type PDFUseCase struct {
	ffmRepo     repository.FacturaFiscalRepository
	siRepo      repository.SalesInvoiceRepository
	custRepo    repository.CustomerRepository
	companyRepo repository.CompanyRepository
	generator   CFDIPDFGenerator
}

// NewPDFUseCase construye el caso de uso.
func NewPDFUseCase(
	ffmRepo repository.FacturaFiscalRepository,
	siRepo repository.SalesInvoiceRepository,
	custRepo repository.CustomerRepository,
	companyRepo repository.CompanyRepository,
	generator CFDIPDFGenerator,
) *PDFUseCase {
	return &PDFUseCase{
		ffmRepo:     ffmRepo,
		siRepo:      siRepo,
		custRepo:    custRepo,
		companyRepo: companyRepo,
		generator:   generator,
	}
}

// GenerateBySalesInvoice genera el PDF del CFDI de la factura. Solo documentos
// con UUID (timbrados o cancelados con acuse) tienen representación impresa.
// Devuelve los bytes y el nombre de archivo sugerido.
func (u *PDFUseCase) GenerateBySalesInvoice(ctx context.Context, salesInvoiceID string) ([]byte, string, error) {
	ffm, err := u.ffmRepo.GetActiveBySalesInvoice(ctx, salesInvoiceID)
	if err != nil {
		return nil, "", err
	}
	if ffm == nil {
		// Un documento cancelado deja de ser "activo" pero su representación
		// impresa sigue disponible, con la leyenda de cancelación.
		docs, err := u.ffmRepo.ListBySalesInvoice(ctx, salesInvoiceID)
		if err != nil {
			return nil, "", err
		}
		for _, d := range docs {
			if d.UUID != "" {
				ffm = d
				break
			}
		}
	}
	if ffm == nil {
		return nil, "", fmt.Errorf("%w: la factura %s no tiene documento fiscal", domain.ErrNotFound, salesInvoiceID)
	}
	if ffm.UUID == "" {
		return nil, "", fmt.Errorf("%w: el documento %s no tiene CFDI timbrado", domain.ErrNotStamped, ffm.ID)
	}

	customer, err := u.custRepo.GetByID(ctx, ffm.CustomerID)
	if err != nil {
		return nil, "", err
	}
	company, err := u.companyRepo.GetByID(ctx, ffm.CompanyID)
	if err != nil {
		return nil, "", err
	}
	items, err := u.siRepo.GetItems(ctx, salesInvoiceID)
	if err != nil {
		return nil, "", err
	}

	conceptos := make([]ConceptoForPDF, 0, len(items))
	for _, it := range items {
		productKey := it.ProductKey
		if productKey == "" {
			productKey = sat.DefaultProductKey
		}
		amount := it.Amount
		if amount.IsZero() {
			amount = it.Quantity.Mul(it.UnitPrice).Sub(it.Discount)
		}
		conceptos = append(conceptos, ConceptoForPDF{
			ProductKey:  productKey,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TaxRate:     it.TaxRate,
			Amount:      amount,
		})
	}

	pdf, err := u.generator.GenerateCFDIPDF(ctx, ffm, company, customer, conceptos)
	if err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("cfdi-%s.pdf", ffm.UUID)
	return pdf, filename, nil
}
