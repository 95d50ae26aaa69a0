package usecase

import (
	"bytes"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/shopspring/decimal"

	"github.com/faktugo/invoice-pipeline/internal/core/acceptance"
	"github.com/faktugo/invoice-pipeline/internal/core/domain"
	"github.com/faktugo/invoice-pipeline/internal/core/period"
	"github.com/faktugo/invoice-pipeline/internal/i18n"
)

const defaultCurrency = "EUR"

type dispatchMailData struct {
	Greeting    string
	Intro       string
	Rows        []dispatchMailRow
	DownloadURL string
	Download    string
	Expiry      string
}

type dispatchMailRow struct {
	Label string
	Value string
}

var dispatchHTMLTemplate = htmltemplate.Must(htmltemplate.New("dispatch_html").Parse(`<p>{{.Greeting}}</p>
<p>{{.Intro}}</p>
<table>
{{- range .Rows}}
  <tr><td><strong>{{.Label}}</strong></td><td>{{.Value}}</td></tr>
{{- end}}
</table>
<p><a href="{{.DownloadURL}}">{{.Download}}</a></p>
<p><small>{{.Expiry}}</small></p>
`))

var dispatchTextTemplate = texttemplate.Must(texttemplate.New("dispatch_text").Parse(`{{.Greeting}}

{{.Intro}}

{{range .Rows}}{{.Label}}: {{.Value}}
{{end}}
{{.Download}}: {{.DownloadURL}}

{{.Expiry}}
`))

// dispatchSubject is "{type label} {supplier} - {client} - {date}".
func dispatchSubject(lang string, inv *domain.Invoice, clientName string) string {
	parts := []string{
		strings.TrimSpace(acceptance.TypeLabel(lang, inv.DocumentType) + " " + supplierName(lang, inv)),
		clientName,
	}
	if date := displayDate(inv.Date); date != "" {
		parts = append(parts, date)
	}
	return strings.Join(parts, " - ")
}

func renderDispatchBodies(lang string, inv *domain.Invoice, clientName, downloadURL string, ttlDays int) (string, string, error) {
	data := dispatchMailData{
		Greeting: i18n.T(lang, "dispatch.greeting"),
		Intro:    i18n.T(lang, "dispatch.intro", clientName),
		Rows: []dispatchMailRow{
			{Label: i18n.T(lang, "dispatch.supplier"), Value: supplierName(lang, inv)},
			{Label: i18n.T(lang, "dispatch.date"), Value: valueOrDash(displayDate(inv.Date))},
			{Label: i18n.T(lang, "dispatch.category"), Value: valueOrDash(inv.Category)},
			{Label: i18n.T(lang, "dispatch.amount"), Value: valueOrDash(FormatAmount(inv.TotalAmount, inv.Currency))},
		},
		DownloadURL: downloadURL,
		Download:    i18n.T(lang, "dispatch.download"),
		Expiry:      i18n.T(lang, "dispatch.link_expiry", ttlDays),
	}

	var html, text bytes.Buffer
	if err := dispatchHTMLTemplate.Execute(&html, data); err != nil {
		return "", "", err
	}
	if err := dispatchTextTemplate.Execute(&text, data); err != nil {
		return "", "", err
	}
	return html.String(), text.String(), nil
}

// FormatAmount renders an amount with two decimals and its currency code.
func FormatAmount(amount *float64, currency string) string {
	if amount == nil {
		return ""
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = defaultCurrency
	}
	return decimal.NewFromFloat(*amount).StringFixed(2) + " " + currency
}

func supplierName(lang string, inv *domain.Invoice) string {
	if s := strings.TrimSpace(inv.Supplier); s != "" {
		return s
	}
	return i18n.T(lang, "dispatch.unknown_supplier")
}

// displayDate shows parseable dates as dd/mm/yyyy and anything else verbatim.
func displayDate(raw string) string {
	t, err := period.ParseDate(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return t.Format("02/01/2006")
}

func valueOrDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}
