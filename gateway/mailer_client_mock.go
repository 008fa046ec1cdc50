package gateway

import (
	"context"
	"sync"

	"meetix/entity"
)

// MailerMock records sent confirmation mails, keyed by recipient.
type MailerMock struct {
	mock sync.Mutex

	SentMails []entity.OrderConfirmationMail
}

func (c *MailerMock) SendOrderConfirmation(ctx context.Context, mail entity.OrderConfirmationMail) error {
	c.mock.Lock()
	defer c.mock.Unlock()

	c.SentMails = append(c.SentMails, mail)

	return nil
}

func (c *MailerMock) Sent() []entity.OrderConfirmationMail {
	c.mock.Lock()
	defer c.mock.Unlock()

	return append([]entity.OrderConfirmationMail(nil), c.SentMails...)
}
