package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/smallbiznis/invoicer/internal/authorization"
	"github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/invoice/format"
	"github.com/smallbiznis/invoicer/internal/invoice/render"
	"github.com/smallbiznis/invoicer/internal/providers/email"
	"go.uber.org/zap"
)

// SendEmail mails the invoice PDF to req.To, or to the customer address when
// req.To is empty. A draft invoice becomes sent once delivery succeeds.
func (s *Service) SendEmail(ctx context.Context, id string, req domain.SendEmailRequest) (domain.Invoice, error) {
	if err := s.requireFeature(ctx, authorization.FeatureInvoiceEmail); err != nil {
		return domain.Invoice{}, err
	}

	invoice, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	company, customer, err := s.parties(ctx, invoice)
	if err != nil {
		return domain.Invoice{}, err
	}

	to := strings.TrimSpace(req.To)
	if to == "" {
		to = strings.TrimSpace(customer.Email)
	}
	if to == "" {
		return domain.Invoice{}, domain.ErrMissingRecipient
	}
	if _, err := mail.ParseAddress(to); err != nil {
		return domain.Invoice{}, domain.ErrInvalidRecipient
	}

	document, err := s.renderPDF(ctx, invoice, company, customer)
	if err != nil {
		return domain.Invoice{}, err
	}

	rendered, err := s.renderer.RenderEmail(render.EmailInput{
		Subject:       format.Subject(invoice.InvoiceNumber, company.Name),
		CompanyName:   company.Name,
		CompanyEmail:  company.Email,
		CustomerName:  customer.Name,
		InvoiceNumber: invoice.InvoiceNumber,
		IssueDate:     format.Date(invoice.IssueDate),
		DueDate:       format.Date(invoice.DueDate),
		Status:        format.StatusLabel(string(invoice.Status)),
		Total:         format.Money(invoice.Total),
		Notes:         invoice.Notes,
		Message:       strings.TrimSpace(req.Message),
	})
	if err != nil {
		return domain.Invoice{}, err
	}

	err = s.email.Send(ctx, email.Message{
		To:       []string{to},
		ReplyTo:  company.Email,
		FromName: company.Name,
		Subject:  rendered.Subject,
		HTML:     rendered.HTML,
		Text:     rendered.Text,
		Attachments: []email.Attachment{{
			Filename:    document.Filename,
			ContentType: document.ContentType,
			Content:     document.Content,
		}},
	})
	if err != nil {
		s.metrics.RecordEmailSent(ctx, "error")
		s.log.Error("invoice email failed",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err),
		)
		return domain.Invoice{}, domain.ErrEmailFailed
	}
	s.metrics.RecordEmailSent(ctx, "sent")

	if invoice.Status == domain.StatusDraft {
		return s.UpdateStatus(ctx, id, domain.StatusSent)
	}
	s.changed(ctx, invoice.CompanyID, "invoice.email", invoice, "to", to)
	return invoice, nil
}
