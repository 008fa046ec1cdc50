package ticket

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

// Data is everything a rendered ticket shows. Rendering is a pure
// function of it, so re-issuing an order reproduces identical artifacts.
type Data struct {
	Code       string
	OrderID    string
	EventID    string
	EventName  string
	Venue      string
	StartsAt   time.Time
	EndsAt     time.Time
	BuyerEmail string
	TierName   string
	UnitPrice  decimal.Decimal
	Free       bool

	VerificationURL string
}

// Code builds the human-readable ticket code for the n-th unit of a tier,
// counted from 1.
func Code(tierName string, seq int) string {
	return fmt.Sprintf("%s-%d", strings.ReplaceAll(tierName, " ", ""), seq)
}

// VerificationURL is the address encoded in the ticket's QR code. Scanning
// it lands on the event page with the order and code preselected.
func VerificationURL(appBaseURL, eventID, orderID, code string) string {
	q := url.Values{}
	q.Set("order", orderID)
	q.Set("code", code)
	return fmt.Sprintf("%s/events/%s?%s", strings.TrimRight(appBaseURL, "/"), eventID, q.Encode())
}

// ParseVerificationURL extracts the order id and ticket code back out of a
// scanned verification URL.
func ParseVerificationURL(raw string) (orderID, code string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("could not parse verification url: %w", err)
	}

	orderID = u.Query().Get("order")
	code = u.Query().Get("code")
	if orderID == "" || code == "" {
		return "", "", fmt.Errorf("verification url %q is missing order or code", raw)
	}

	return orderID, code, nil
}

// StorageKey is where the rendered artifact lives, deterministic per code
// so re-uploads overwrite instead of duplicating.
func StorageKey(orderID, code string) string {
	return fmt.Sprintf("tickets/%s/%s.html", orderID, code)
}

var ticketTemplate = template.Must(template.New("ticket").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Ticket {{.Code}}</title></head>
<body>
	<h1>{{.EventName}}</h1>
	<p>{{.Venue}}</p>
	<p>{{.StartsAt.Format "Mon, 02 Jan 2006 15:04 MST"}} &ndash; {{.EndsAt.Format "Mon, 02 Jan 2006 15:04 MST"}}</p>
	<h2>{{.TierName}} / {{.Code}}</h2>
	<p>{{if .Free}}FREE{{else}}{{.UnitPrice.StringFixed 2}} XOF{{end}}</p>
	<p>Issued to {{.BuyerEmail}}</p>
	<p>Order {{.OrderID}}</p>
	<img src="{{.QRDataURI}}" alt="{{.VerificationURL}}" width="256" height="256">
</body>
</html>
`))

// Render produces the HTML ticket artifact with an embedded QR code.
func Render(data Data) ([]byte, error) {
	qrPNG, err := qrcode.Encode(data.VerificationURL, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("could not encode qr code: %w", err)
	}

	var buf bytes.Buffer
	err = ticketTemplate.Execute(&buf, struct {
		Data
		QRDataURI template.URL
	}{
		Data:      data,
		QRDataURI: template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(qrPNG)),
	})
	if err != nil {
		return nil, fmt.Errorf("could not render ticket: %w", err)
	}

	return buf.Bytes(), nil
}
