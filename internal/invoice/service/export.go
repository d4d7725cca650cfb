package service

import (
	"bytes"
	"context"
	"encoding/csv"

	"github.com/smallbiznis/invoicer/internal/authorization"
	"github.com/smallbiznis/invoicer/internal/companycontext"
	"github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/invoice/format"
)

const csvContentType = "text/csv; charset=utf-8"

var csvHeader = []string{
	"Numero", "Cliente", "Data emissione", "Data scadenza", "Stato",
	"Imponibile", "Aliquota IVA", "IVA", "Totale", "Note",
}

// ExportCSV writes every invoice matching filter, oldest first. Amounts use
// a plain dot decimal so spreadsheets can parse them.
func (s *Service) ExportCSV(ctx context.Context, filter domain.ListFilter) (domain.Document, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return domain.Document{}, domain.ErrInvalidCompany
	}
	if err := s.requireFeature(ctx, authorization.FeatureInvoiceExport); err != nil {
		return domain.Document{}, err
	}
	filter, err := toFilter(filter.Search, string(filter.Status))
	if err != nil {
		return domain.Document{}, err
	}

	invoices, err := s.repo.ListAll(ctx, s.db, companyID, filter)
	if err != nil {
		return domain.Document{}, err
	}

	company, err := s.companies.Get(ctx)
	if err != nil {
		return domain.Document{}, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = ';'
	if err := w.Write(csvHeader); err != nil {
		return domain.Document{}, err
	}
	for _, inv := range invoices {
		if inv == nil {
			continue
		}
		record := []string{
			inv.InvoiceNumber,
			inv.CustomerName,
			inv.IssueDate.Format(domain.DateLayout),
			inv.DueDate.Format(domain.DateLayout),
			format.StatusLabel(string(inv.Status)),
			inv.Subtotal.StringFixed(2),
			inv.TaxRate.String(),
			inv.TaxAmount.StringFixed(2),
			inv.Total.StringFixed(2),
			inv.Notes,
		}
		if err := w.Write(record); err != nil {
			return domain.Document{}, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return domain.Document{}, err
	}

	return domain.Document{
		Filename:    format.CSVFilename(company.Name, s.clock.Now()),
		ContentType: csvContentType,
		Content:     buf.Bytes(),
	}, nil
}
