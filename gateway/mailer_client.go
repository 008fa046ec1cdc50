package gateway

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"net"
	"net/smtp"
	"strings"

	"github.com/domodwyer/mailyak/v3"

	"meetix/entity"
)

// MailerClient sends buyer notifications over SMTP.
type MailerClient struct {
	addr string
	from string
	auth smtp.Auth
}

func NewMailerClient(addr, from, user, password string) *MailerClient {
	var auth smtp.Auth
	if user != "" {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}
		auth = smtp.PlainAuth("", user, password, host)
	}

	return &MailerClient{
		addr: addr,
		from: from,
		auth: auth,
	}
}

func (c *MailerClient) SendOrderConfirmation(ctx context.Context, mail entity.OrderConfirmationMail) error {
	msg := mailyak.New(c.addr, c.auth)
	msg.From(c.from)
	msg.To(mail.To)
	msg.Subject(fmt.Sprintf("Your tickets for %s", mail.EventName))

	fmt.Fprint(msg.HTML(), confirmationBody(mail))

	for _, attachment := range mail.Attachments {
		msg.Attach(attachment.Filename, bytes.NewReader(attachment.Content))
	}

	if err := msg.Send(); err != nil {
		return fmt.Errorf("could not send confirmation mail to %s: %w", mail.To, err)
	}

	return nil
}

// confirmationBody renders the HTML mail body. Buyer name and URLs come
// from request input and are escaped.
func confirmationBody(mail entity.OrderConfirmationMail) string {
	var body strings.Builder
	fmt.Fprintf(&body, "<p>Hi %s,</p>", html.EscapeString(mail.BuyerName))
	fmt.Fprintf(&body, "<p>Your order <b>%s</b> for <b>%s</b> is confirmed. Your tickets are attached.</p>",
		html.EscapeString(mail.OrderReference), html.EscapeString(mail.EventName))
	body.WriteString("<ul>")
	for _, url := range mail.TicketURLs {
		escaped := html.EscapeString(url)
		fmt.Fprintf(&body, `<li><a href="%s">%s</a></li>`, escaped, escaped)
	}
	body.WriteString("</ul>")
	return body.String()
}
