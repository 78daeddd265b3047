package auth

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"text/template"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/user/pokesphere-go/apperror"
	"github.com/user/pokesphere-go/config"
	"github.com/user/pokesphere-go/store"
)

// codeLength is the number of characters in a verification code. Codes are
// uppercase hex, so each pair of characters consumes one random byte.
const codeLength = 6

// GenerateCode returns a random verification code: codeLength uppercase hex
// characters from a cryptographically random source.
func GenerateCode() (string, error) {
	buf := make([]byte, codeLength/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}

// MailSender delivers a single HTML email. The SMTP implementation is
// SMTPSender; tests substitute a recorder.
type MailSender interface {
	Send(to, subject, htmlBody string) error
}

// SMTPSender sends mail over SMTP via gomail.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender creates an SMTPSender from the mail configuration.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// Send delivers one HTML message.
func (s *SMTPSender) Send(to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)
	return s.dialer.DialAndSend(m)
}

// codeEmailTemplate is the body of the password-reset email.
var codeEmailTemplate = template.Must(template.New("code").Parse(`<!DOCTYPE html>
<html>
<body style="margin: 0; padding: 0; font-family: Arial, sans-serif; background-color: #3F3F3F;">
  <table border="0" cellpadding="0" cellspacing="0" width="100%" style="background-color: #3F3F3F; padding: 120px 10px;">
    <tr>
      <td align="center">
        <table border="0" cellpadding="0" cellspacing="0" width="600" style="background-color: #303030; border-radius: 24px;">
          <tr>
            <td align="center" style="padding: 40px 20px 10px;">
              <h1 style="margin: 0; color: #ffffff; font-size: 36px;">PokéSphere</h1>
            </td>
          </tr>
          <tr>
            <td align="center" style="padding: 10px 0;">
              <h2 style="margin: 0; color: #ffffff; font-size: 28px;">Password Reset Code</h2>
            </td>
          </tr>
          <tr>
            <td align="center" style="padding: 0 30px;">
              <p style="color: #A6A6A6; font-size: 14px; margin: 0 0 30px;">
                Please enter this code in the form to reset your account's password.
              </p>
            </td>
          </tr>
          <tr>
            <td align="center" style="padding: 0 30px 10px;">
              <p style="color: #35FF69; font-size: 52px; font-weight: bold; margin: 0; letter-spacing: 2px;">{{.Code}}</p>
            </td>
          </tr>
          <tr>
            <td align="center">
              <p style="color: #FFFFFF; margin: 0;">This code expires in {{printf "%.f" .Expiry.Minutes}} minutes.</p>
            </td>
          </tr>
          <tr>
            <td align="center" style="padding: 50px 30px 20px;">
              <p style="color: #A6A6A6; font-size: 12px; margin: 0;">&copy; PokéSphere {{.Year}} All Rights Reserved</p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`))

type codeEmailParams struct {
	Code   string
	Expiry time.Duration
	Year   int
}

// CodeIssuer generates verification codes, persists them with an expiry,
// and dispatches them over the mail transport.
type CodeIssuer struct {
	codes  store.VerificationStore
	sender MailSender
	ttl    time.Duration
	logger *zap.Logger

	now func() time.Time
}

// NewCodeIssuer creates a CodeIssuer. ttl is the code lifetime.
func NewCodeIssuer(codes store.VerificationStore, sender MailSender, ttl time.Duration, logger *zap.Logger) *CodeIssuer {
	return &CodeIssuer{
		codes:  codes,
		sender: sender,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// RequestCode generates a fresh code for email, sends it, and upserts the
// verification record. A code requested again for the same email overwrites
// the previous one. Transport and persistence failures both surface as a
// generic server error.
func (i *CodeIssuer) RequestCode(ctx context.Context, email string) error {
	code, err := GenerateCode()
	if err != nil {
		return apperror.NewInternalError("cannot generate verification code", err)
	}

	var body bytes.Buffer
	params := codeEmailParams{Code: code, Expiry: i.ttl, Year: i.now().Year()}
	if err := codeEmailTemplate.Execute(&body, params); err != nil {
		return apperror.NewInternalError("cannot render verification email", err)
	}

	if err := i.sender.Send(email, "Password Reset Code", body.String()); err != nil {
		i.logger.Error("cannot send verification email", zap.String("email", email), zap.Error(err))
		return apperror.NewExternalServiceError("cannot send email, server error", err)
	}

	expiresAt := i.now().Add(i.ttl)
	if err := i.codes.UpsertCode(ctx, email, code, expiresAt); err != nil {
		return apperror.NewDatabaseError("cannot store verification code", err)
	}

	i.logger.Info("verification code issued",
		zap.String("email", email),
		zap.Time("expiresAt", expiresAt))
	return nil
}
