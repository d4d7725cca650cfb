package pdf

import (
	"context"
	"errors"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

var ErrEmptyDocument = errors.New("empty_document")

type MarotoGenerator struct{}

func New() Generator {
	return &MarotoGenerator{}
}

func (g *MarotoGenerator) Invoice(ctx context.Context, doc InvoiceDocument) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(doc.Number) == "" {
		return nil, ErrEmptyDocument
	}
	title := doc.Title
	if title == "" {
		title = "Fattura"
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Pagina {current} di {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	header := []core.Col{
		text.NewCol(8, doc.Company.Name, props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Left}),
	}
	if len(doc.Logo) > 0 {
		header = append(header, image.NewFromBytesCol(4, doc.Logo, extension.Png, props.Rect{Center: false, Percent: 80}))
	} else {
		header = append(header, col.New(4))
	}
	m.AddRow(25, header...)

	m.AddRow(22,
		partyCol(6, "", doc.Company),
		col.New(6).Add(
			text.New(title+" "+doc.Number, props.Text{Size: 14, Style: fontstyle.Bold, Align: align.Right}),
			text.New("Data emissione: "+doc.IssueDate, props.Text{Top: 8, Size: 9, Align: align.Right}),
			text.New("Data scadenza: "+doc.DueDate, props.Text{Top: 12, Size: 9, Align: align.Right}),
			text.New("Stato: "+doc.Status, props.Text{Top: 16, Size: 9, Align: align.Right}),
		),
	)

	m.AddRow(28,
		partyCol(6, "Destinatario", doc.Customer),
		col.New(6),
	)

	m.AddRow(8,
		text.NewCol(6, "Descrizione", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Quantità", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Prezzo", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Totale", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(2, line.NewCol(12))

	for _, item := range doc.Items {
		m.AddRow(8,
			text.NewCol(6, item.Description, props.Text{Size: 9}),
			text.NewCol(2, item.Quantity, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.UnitPrice, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.Total, props.Text{Size: 9, Align: align.Right}),
		)
	}
	m.AddRow(2, line.NewCol(12))

	m.AddRow(7,
		col.New(8),
		text.NewCol(2, "Imponibile", props.Text{Size: 9}),
		text.NewCol(2, doc.Subtotal, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(7,
		col.New(8),
		text.NewCol(2, doc.TaxLabel, props.Text{Size: 9}),
		text.NewCol(2, doc.TaxAmount, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(9,
		col.New(8),
		text.NewCol(2, "Totale", props.Text{Style: fontstyle.Bold, Size: 10}),
		text.NewCol(2, doc.Total, props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right}),
	)

	if notes := strings.TrimSpace(doc.Notes); notes != "" {
		m.AddRow(6, text.NewCol(12, "Note", props.Text{Style: fontstyle.Bold, Size: 9, Top: 2}))
		m.AddRow(20, text.NewCol(12, notes, props.Text{Size: 9}))
	}

	out, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return out.GetBytes(), nil
}

func partyCol(size int, label string, p Party) core.Col {
	c := col.New(size)
	top := 0.0
	if label != "" {
		c = c.Add(text.New(label, props.Text{Style: fontstyle.Bold, Size: 9}))
		top += 4
	}
	c = c.Add(text.New(p.Name, props.Text{Top: top, Size: 10, Style: fontstyle.Bold}))
	top += 5
	for _, l := range p.Lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		c = c.Add(text.New(l, props.Text{Top: top, Size: 9}))
		top += 4
	}
	if p.Email != "" {
		c = c.Add(text.New(p.Email, props.Text{Top: top, Size: 9}))
	}
	return c
}
