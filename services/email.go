package services

import (
	"bytes"
	"fmt"
	"html/template"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"

	"akkani-backend/config"
)

const invitationTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Meeting Invitation: {{.Title}}</title>
</head>
<body>
    <div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
        <h2>You're Invited: {{.Title}}</h2>
        <p>Hello,</p>
        <p>You have been invited to a meeting with the following details:</p>

        <div style="background-color: #f5f5f5; padding: 15px; border-radius: 5px; margin: 20px 0;">
            <p><strong>Title:</strong> {{.Title}}</p>
            <p><strong>Date &amp; Time:</strong> {{.StartTime}} - {{.EndTime}}</p>
            <p><strong>Description:</strong> {{if .Description}}{{.Description}}{{else}}No description provided{{end}}</p>
            {{if .MeetLink}}<p><strong>Meeting Link:</strong> <a href="{{.MeetLink}}" target="_blank">Join Meeting</a></p>{{end}}
        </div>

        <p>Please join the meeting on time. If you have any questions, feel free to reply to this email.</p>

        <p>Best regards,<br>{{.OrganizerName}}</p>

        <div style="margin-top: 30px; font-size: 12px; color: #777;">
            <p>This is an automated message. Please do not reply directly to this email.</p>
        </div>
    </div>
</body>
</html>
`

// MeetingDetails feeds the invitation template.
type MeetingDetails struct {
	Title         string
	Description   string
	StartTime     string
	EndTime       string
	MeetLink      string
	OrganizerName string
}

// NotificationDispatcher sends transactional meeting invitations over SMTP.
type NotificationDispatcher struct {
	cfg  config.SMTPConfig
	tmpl *template.Template
}

func NewNotificationDispatcher(cfg config.SMTPConfig) *NotificationDispatcher {
	return &NotificationDispatcher{
		cfg:  cfg,
		tmpl: template.Must(template.New("meeting_invitation").Parse(invitationTemplate)),
	}
}

// SendMeetingInvitation mails every attendee an HTML invitation with a
// plain-text alternative.
func (d *NotificationDispatcher) SendMeetingInvitation(to []string, details MeetingDetails) error {
	if len(to) == 0 {
		return nil
	}
	if details.OrganizerName == "" {
		details.OrganizerName = d.cfg.FromName
	}

	msg, err := d.buildMessage(to, details)
	if err != nil {
		return fmt.Errorf("build invitation message: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", d.cfg.Host, d.cfg.Port)
	auth := smtp.PlainAuth("", d.cfg.Username, d.cfg.Password, d.cfg.Host)
	if err := smtp.SendMail(addr, auth, d.cfg.FromEmail, to, msg); err != nil {
		return fmt.Errorf("send invitation: %w", err)
	}
	return nil
}

func (d *NotificationDispatcher) buildMessage(to []string, details MeetingDetails) ([]byte, error) {
	htmlBody, err := d.renderInvitation(details)
	if err != nil {
		return nil, err
	}
	textBody := plainTextInvitation(details)

	var buf bytes.Buffer
	alt := multipart.NewWriter(&buf)

	headers := []string{
		fmt.Sprintf("From: %s <%s>", d.cfg.FromName, d.cfg.FromEmail),
		fmt.Sprintf("To: %s", strings.Join(to, ", ")),
		fmt.Sprintf("Subject: Meeting Invitation: %s", details.Title),
		fmt.Sprintf("Date: %s", time.Now().Format(time.RFC1123Z)),
		fmt.Sprintf("Message-ID: <%s@%s>", uuid.NewString(), d.cfg.Host),
		"MIME-Version: 1.0",
		fmt.Sprintf("Content-Type: multipart/alternative; boundary=%q", alt.Boundary()),
	}
	head := strings.Join(headers, "\r\n") + "\r\n\r\n"

	text, err := alt.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain; charset=UTF-8"}})
	if err != nil {
		return nil, err
	}
	if _, err := text.Write([]byte(textBody)); err != nil {
		return nil, err
	}

	html, err := alt.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html; charset=UTF-8"}})
	if err != nil {
		return nil, err
	}
	if _, err := html.Write([]byte(htmlBody)); err != nil {
		return nil, err
	}

	if err := alt.Close(); err != nil {
		return nil, err
	}
	return append([]byte(head), buf.Bytes()...), nil
}

func (d *NotificationDispatcher) renderInvitation(details MeetingDetails) (string, error) {
	var buf bytes.Buffer
	if err := d.tmpl.Execute(&buf, details); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func plainTextInvitation(details MeetingDetails) string {
	description := details.Description
	if description == "" {
		description = "No description provided"
	}
	link := details.MeetLink
	if link == "" {
		link = "No link provided"
	}
	return fmt.Sprintf(`Meeting Invitation: %s

You have been invited to a meeting with the following details:

Title: %s
Date & Time: %s - %s
Description: %s
Meeting Link: %s

Best regards,
%s
`, details.Title, details.Title, details.StartTime, details.EndTime, description, link, details.OrganizerName)
}
