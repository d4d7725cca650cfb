// Package render builds the email that accompanies an invoice PDF.
package render

import (
	"bytes"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

const emailHTMLTemplate = `<!doctype html>
<html lang="it">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1.0" />
  <title>{{.Subject}}</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; background: #f8f9fa; }
    .container { background: #fff; border-radius: 8px; padding: 30px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); }
    .header { border-bottom: 2px solid #e3f2fd; padding-bottom: 20px; margin-bottom: 30px; }
    .company-name { font-size: 24px; font-weight: bold; color: #db5461; margin: 0; }
    .invoice-title { font-size: 28px; font-weight: bold; margin: 20px 0 10px 0; }
    .details { background: #f8f9fa; padding: 20px; border-radius: 6px; margin: 20px 0; }
    .row { margin: 8px 0; }
    .label { font-weight: 600; color: #666; }
    .total { font-size: 20px; font-weight: bold; color: #db5461; }
    .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #e5e7eb; font-size: 14px; color: #6b7280; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1 class="company-name">{{.CompanyName}}</h1>
      <h2 class="invoice-title">Fattura {{.InvoiceNumber}}</h2>
    </div>
    <p>Ciao <strong>{{.CustomerName}}</strong>,</p>
    {{- if .Message}}
    <p>{{.Message}}</p>
    {{- else}}
    <p>Ti inviamo in allegato la fattura <strong>{{.InvoiceNumber}}</strong> per i servizi forniti.</p>
    {{- end}}
    <div class="details">
      <div class="row"><span class="label">Numero Fattura:</span> {{.InvoiceNumber}}</div>
      <div class="row"><span class="label">Data Emissione:</span> {{.IssueDate}}</div>
      <div class="row"><span class="label">Data Scadenza:</span> {{.DueDate}}</div>
      <div class="row"><span class="label">Stato:</span> {{.Status}}</div>
      <div class="row"><span class="label">Importo Totale:</span> <span class="total">{{.Total}}</span></div>
    </div>
    {{- if .Notes}}
    <p><strong>Note:</strong><br>{{.Notes}}</p>
    {{- end}}
    <p>La fattura in formato PDF è allegata a questa email. Per qualsiasi domanda, non esitare a contattarci.</p>
    <div class="footer">
      <p>Grazie per aver scelto i nostri servizi!</p>
      <p><strong>{{.CompanyName}}</strong>{{if .CompanyEmail}}<br>{{.CompanyEmail}}{{end}}</p>
    </div>
  </div>
</body>
</html>
`

const emailTextTemplate = `Fattura {{.InvoiceNumber}} - {{.CompanyName}}

Ciao {{.CustomerName}},

{{if .Message}}{{.Message}}{{else}}Ti inviamo la fattura {{.InvoiceNumber}} per i servizi forniti.{{end}}

Dettagli Fattura:
- Numero: {{.InvoiceNumber}}
- Data Emissione: {{.IssueDate}}
- Data Scadenza: {{.DueDate}}
- Stato: {{.Status}}
- Importo Totale: {{.Total}}
{{if .Notes}}
Note: {{.Notes}}
{{end}}
La fattura in formato PDF è allegata a questa email.

Grazie per aver scelto i nostri servizi!

{{.CompanyName}}
`

// EmailInput holds already formatted values.
type EmailInput struct {
	Subject       string
	CompanyName   string
	CompanyEmail  string
	CustomerName  string
	InvoiceNumber string
	IssueDate     string
	DueDate       string
	Status        string
	Total         string
	Notes         string
	Message       string
}

type Email struct {
	Subject string
	HTML    string
	Text    string
}

type Renderer interface {
	RenderEmail(input EmailInput) (Email, error)
}

type EmailRenderer struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

func NewRenderer() Renderer {
	return &EmailRenderer{
		html: htmltemplate.Must(htmltemplate.New("invoice_email_html").Parse(emailHTMLTemplate)),
		text: texttemplate.Must(texttemplate.New("invoice_email_text").Parse(emailTextTemplate)),
	}
}

func (r *EmailRenderer) RenderEmail(input EmailInput) (Email, error) {
	input.Message = strings.TrimSpace(input.Message)
	input.Notes = strings.TrimSpace(input.Notes)
	if strings.TrimSpace(input.CustomerName) == "" {
		input.CustomerName = "Cliente"
	}

	var html bytes.Buffer
	if err := r.html.Execute(&html, input); err != nil {
		return Email{}, err
	}
	var text bytes.Buffer
	if err := r.text.Execute(&text, input); err != nil {
		return Email{}, err
	}

	return Email{
		Subject: input.Subject,
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
