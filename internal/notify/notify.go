// Package notify delivers OTP codes, reset links and admin notices over SMS
// and email.
package notify

import (
	"context"
	"fmt"
	"html"

	"go.uber.org/zap"
)

type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

type Mailer interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

// Dispatcher picks a transport for each message. OTPs go by SMS when Twilio
// is configured, otherwise to the admin inbox, otherwise to the log.
type Dispatcher struct {
	sms        SMSSender
	mail       Mailer
	adminEmail string
	logger     *zap.Logger
}

// NewDispatcher accepts nil senders for transports that are not configured.
func NewDispatcher(sms SMSSender, mail Mailer, adminEmail string, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{sms: sms, mail: mail, adminEmail: adminEmail, logger: logger}
}

func (d *Dispatcher) SendOTP(ctx context.Context, phone, code, purpose string) error {
	body := fmt.Sprintf("Your ToolNTask verification code is %s. It expires in 10 minutes.", code)

	if d.sms != nil {
		if err := d.sms.SendSMS(ctx, phone, body); err != nil {
			return fmt.Errorf("send OTP sms: %w", err)
		}
		return nil
	}

	if d.mail != nil && d.adminEmail != "" {
		subject := fmt.Sprintf("OTP for %s (%s)", phone, purpose)
		content := fmt.Sprintf("<p>SMS delivery is not configured.</p><p>Phone: %s<br>Code: <b>%s</b></p>",
			html.EscapeString(phone), code)
		if err := d.mail.SendEmail(ctx, d.adminEmail, subject, content); err != nil {
			return fmt.Errorf("send OTP email: %w", err)
		}
		return nil
	}

	d.logger.Warn("no OTP transport configured, logging code",
		zap.String("phone", phone), zap.String("purpose", purpose), zap.String("otp", code))
	return nil
}

func (d *Dispatcher) SendPasswordResetLink(ctx context.Context, email, link string) error {
	if d.mail == nil {
		d.logger.Warn("no email transport configured, logging reset link",
			zap.String("email", email), zap.String("link", link))
		return nil
	}

	content := fmt.Sprintf(`<p>We received a request to reset your ToolNTask password.</p>
<p><a href="%s">Reset your password</a></p>
<p>This link expires in 15 minutes. If you did not ask for a reset you can ignore this email.</p>`,
		html.EscapeString(link))
	if err := d.mail.SendEmail(ctx, email, "Reset your ToolNTask password", content); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

// NotifyAdmin is best effort and silent when no admin inbox is configured.
func (d *Dispatcher) NotifyAdmin(ctx context.Context, subject, htmlBody string) error {
	if d.mail == nil || d.adminEmail == "" {
		return nil
	}
	if err := d.mail.SendEmail(ctx, d.adminEmail, subject, htmlBody); err != nil {
		return fmt.Errorf("send admin notice: %w", err)
	}
	return nil
}
