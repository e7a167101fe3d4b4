// utils/email.go
package utils

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"go-cartshop/models"

	"github.com/keighl/postmark"
)

// EmailService handles sending emails using Postmark
type EmailService struct {
	client *postmark.Client
	sender string
}

// NewEmailService initializes and returns a new EmailService instance
func NewEmailService(serverToken, sender string) *EmailService {
	client := postmark.NewClient(serverToken, "")
	client.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	return &EmailService{
		client: client,
		sender: sender,
	}
}

// SendEmail sends a basic email to the specified recipient
func (es *EmailService) SendEmail(toEmail, subject, htmlContent, textContent string) error {
	res, err := es.client.SendEmail(postmark.Email{
		From:     es.sender,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlContent,
		TextBody: textContent,
		Tag:      "order-confirmation",
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if res.ErrorCode != 0 {
		return fmt.Errorf("failed to send email: postmark error %d: %s", res.ErrorCode, res.Message)
	}
	return nil
}

// OrderPlaced sends an order confirmation email to the user
func (es *EmailService) OrderPlaced(_ context.Context, toEmail string, order *models.Order) error {
	subject := "Order Confirmation"

	var rows, lines strings.Builder
	for _, item := range order.Items {
		fmt.Fprintf(&rows, "<li>%s x%d - %.2f</li>", html.EscapeString(item.Brand), item.Quantity, item.Price*float64(item.Quantity))
		fmt.Fprintf(&lines, "%s x%d - %.2f\n", item.Brand, item.Quantity, item.Price*float64(item.Quantity))
	}

	htmlContent := fmt.Sprintf(
		"<strong>Thank you for your order!</strong><br><br>Order ID: %s<ul>%s</ul>Total Amount: <strong>%.2f</strong><br>Shipping to: %s",
		order.ID.Hex(),
		rows.String(),
		order.Total,
		html.EscapeString(order.Address),
	)
	textContent := fmt.Sprintf(
		"Thank you for your order!\n\nOrder ID: %s\n%s\nTotal Amount: %.2f\nShipping to: %s\n",
		order.ID.Hex(),
		lines.String(),
		order.Total,
		order.Address,
	)
	return es.SendEmail(toEmail, subject, htmlContent, textContent)
}
