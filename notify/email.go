package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// statusDescriptions are the user-facing wordings used in notification
// emails. Statuses without an entry fall back to the raw value.
var statusDescriptions = map[string]string{
	"pending":      "received and awaiting review",
	"acknowledged": "acknowledged by city staff",
	"in_progress":  "being worked on",
	"resolved":     "resolved",
	"closed":       "closed",
}

// EmailNotifier emails the report submitter when the report status changes.
type EmailNotifier struct {
	client    *sendgrid.Client
	fromName  string
	fromEmail string
}

// NewEmailNotifier creates an email notifier backed by SendGrid.
func NewEmailNotifier(apiKey, fromName, fromEmail string) *EmailNotifier {
	return &EmailNotifier{
		client:    sendgrid.NewSendClient(apiKey),
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (n *EmailNotifier) Name() string { return "email" }

// NotifyStatusChange sends a status update email to the submitter. Events
// without a contact email are silently skipped.
func (n *EmailNotifier) NotifyStatusChange(ctx context.Context, event StatusChangeEvent) error {
	if event.ContactEmail == "" {
		return nil
	}

	description, ok := statusDescriptions[string(event.NewStatus)]
	if !ok {
		description = string(event.NewStatus)
	}

	from := mail.NewEmail(n.fromName, n.fromEmail)
	to := mail.NewEmail(event.ContactEmail, event.ContactEmail)
	subject := fmt.Sprintf("Update on your report %s", event.ReportID)

	plainText := fmt.Sprintf(`Hello,

Your report %s is now %s.`, event.ReportID, description)
	if event.Notes != nil && *event.Notes != "" {
		plainText += fmt.Sprintf("\n\nStaff notes: %s", *event.Notes)
	}
	plainText += "\n\nThank you for helping us keep the city in shape."

	htmlContent := fmt.Sprintf(`<p>Hello,</p>
<p>Your report <strong>%s</strong> is now <strong>%s</strong>.</p>`, event.ReportID, description)
	if event.Notes != nil && *event.Notes != "" {
		htmlContent += fmt.Sprintf("<p>Staff notes: %s</p>", *event.Notes)
	}
	htmlContent += "<p>Thank you for helping us keep the city in shape.</p>"

	message := mail.NewSingleEmail(from, subject, to, plainText, htmlContent)
	response, err := n.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", event.ContactEmail, err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("email delivery rejected with status %d: %s", response.StatusCode, response.Body)
	}

	return nil
}
