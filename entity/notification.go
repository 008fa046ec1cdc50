package entity

// MailAttachment is an artifact bundled into a notification mail.
type MailAttachment struct {
	Filename string
	Content  []byte
}

// OrderConfirmationMail is everything the mailer needs to notify a buyer
// about a confirmed order.
type OrderConfirmationMail struct {
	To             string
	BuyerName      string
	EventName      string
	OrderReference string
	TicketURLs     []string
	Attachments    []MailAttachment
}
