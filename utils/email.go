package utils

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/tripledger/travel_backend/models"
)

// SMTPInvoiceMailer emails invoices to customers using the SMTP settings
// from the environment.
type SMTPInvoiceMailer struct {
	host string
	port int
	user string
	pass string
}

// NewSMTPInvoiceMailer reads SMTP_HOST/SMTP_PORT/SMTP_USER/SMTP_PASS.
// Returns nil when no SMTP host is configured so sending is disabled.
func NewSMTPInvoiceMailer() *SMTPInvoiceMailer {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return nil
	}
	port := 2525
	if portStr := os.Getenv("SMTP_PORT"); portStr != "" {
		fmt.Sscanf(portStr, "%d", &port)
	}
	return &SMTPInvoiceMailer{
		host: host,
		port: port,
		user: os.Getenv("SMTP_USER"),
		pass: os.Getenv("SMTP_PASS"),
	}
}

// SendInvoice sends a plain-text summary of the invoice to its customer.
func (m *SMTPInvoiceMailer) SendInvoice(invoice *models.Invoice) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\nPlease find your invoice %s below.\n\n", invoice.CustomerName, invoice.InvoiceNumber)
	for _, item := range invoice.Items {
		fmt.Fprintf(&b, "  %s  x%d  $%.2f\n", item.Description, item.Quantity, item.Total)
	}
	fmt.Fprintf(&b, "\nSubtotal: $%.2f\n", invoice.Subtotal)
	if invoice.DiscountAmount > 0 {
		fmt.Fprintf(&b, "Discount: -$%.2f\n", invoice.DiscountAmount)
	}
	fmt.Fprintf(&b, "Tax (%.1f%%): $%.2f\n", invoice.TaxRate, invoice.TaxAmount)
	fmt.Fprintf(&b, "Total: $%.2f\n", invoice.Total)
	fmt.Fprintf(&b, "Due date: %s\n\nThank you for booking with us.\n", invoice.DueDate.Format("2 January 2006"))

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.user)
	msg.SetHeader("To", invoice.CustomerEmail)
	msg.SetHeader("Subject", fmt.Sprintf("Invoice %s", invoice.InvoiceNumber))
	msg.SetBody("text/plain", b.String())

	dialer := gomail.NewDialer(m.host, m.port, m.user, m.pass)
	return dialer.DialAndSend(msg)
}
