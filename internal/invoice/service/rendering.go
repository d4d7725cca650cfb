package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/invoicer/internal/authorization"
	companydomain "github.com/smallbiznis/invoicer/internal/company/domain"
	customerdomain "github.com/smallbiznis/invoicer/internal/customer/domain"
	"github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/invoice/format"
	"github.com/smallbiznis/invoicer/internal/providers/pdf"
	"go.uber.org/zap"
)

const pdfContentType = "application/pdf"

// requireFeature checks the current plan of the company in ctx.
func (s *Service) requireFeature(ctx context.Context, feature string) error {
	plan, err := s.subscriptions.Plan(ctx)
	if err != nil {
		return err
	}
	allowed, err := s.authz.Allow(ctx, plan.Code, feature)
	if err != nil {
		return err
	}
	if !allowed {
		return domain.ErrFeatureNotAllowed
	}
	return nil
}

func (s *Service) RenderPDF(ctx context.Context, id string) (domain.Document, error) {
	if err := s.requireFeature(ctx, authorization.FeatureInvoicePDF); err != nil {
		return domain.Document{}, err
	}

	invoice, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.Document{}, err
	}
	company, customer, err := s.parties(ctx, invoice)
	if err != nil {
		return domain.Document{}, err
	}
	return s.renderPDF(ctx, invoice, company, customer)
}

func (s *Service) parties(ctx context.Context, invoice domain.Invoice) (companydomain.Profile, customerdomain.Customer, error) {
	company, err := s.companies.Get(ctx)
	if err != nil {
		return companydomain.Profile{}, customerdomain.Customer{}, err
	}
	customer, err := s.customers.GetByID(ctx, invoice.CustomerID.String())
	if err != nil {
		return companydomain.Profile{}, customerdomain.Customer{}, err
	}
	return company, customer, nil
}

func (s *Service) renderPDF(ctx context.Context, invoice domain.Invoice, company companydomain.Profile, customer customerdomain.Customer) (domain.Document, error) {
	doc := pdf.InvoiceDocument{
		Title:     "FATTURA",
		Number:    invoice.InvoiceNumber,
		IssueDate: format.Date(invoice.IssueDate),
		DueDate:   format.Date(invoice.DueDate),
		Status:    format.StatusLabel(string(invoice.Status)),
		Company:   companyParty(company),
		Customer:  customerParty(customer),
		Subtotal:  format.Money(invoice.Subtotal),
		TaxLabel:  fmt.Sprintf("IVA (%s)", format.Percent(invoice.TaxRate)),
		TaxAmount: format.Money(invoice.TaxAmount),
		Total:     format.Money(invoice.Total),
		Notes:     invoice.Notes,
	}
	for _, item := range invoice.Items {
		doc.Items = append(doc.Items, pdf.Line{
			Description: item.Description,
			Quantity:    format.Quantity(item.Quantity),
			UnitPrice:   format.Money(item.UnitPrice),
			Total:       format.Money(item.Total),
		})
	}

	if company.LogoKey != "" {
		logo, err := s.companies.Logo(ctx, invoice.CompanyID)
		if err != nil {
			s.log.Warn("logo unavailable, rendering without it",
				zap.String("invoice_id", invoice.ID.String()),
				zap.Error(err),
			)
		} else {
			doc.Logo = logo
		}
	}

	content, err := s.pdf.Invoice(ctx, doc)
	if err != nil {
		return domain.Document{}, err
	}
	return domain.Document{
		Filename:    format.PDFFilename(invoice.InvoiceNumber),
		ContentType: pdfContentType,
		Content:     content,
	}, nil
}

func companyParty(c companydomain.Profile) pdf.Party {
	lines := compact(
		c.Address,
		strings.TrimSpace(c.PostalCode+" "+c.City),
		c.Country,
	)
	if c.VATNumber != "" {
		lines = append(lines, "P.IVA: "+c.VATNumber)
	}
	if c.FiscalCode != "" {
		lines = append(lines, "C.F.: "+c.FiscalCode)
	}
	if c.Phone != "" {
		lines = append(lines, "Tel: "+c.Phone)
	}
	return pdf.Party{Name: c.Name, Lines: lines, Email: c.Email}
}

func customerParty(c customerdomain.Customer) pdf.Party {
	lines := compact(
		c.Address,
		strings.TrimSpace(c.PostalCode+" "+c.City),
		c.Country,
	)
	if c.VATNumber != "" {
		lines = append(lines, "P.IVA: "+c.VATNumber)
	}
	return pdf.Party{Name: c.Name, Lines: lines, Email: c.Email}
}

func compact(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
