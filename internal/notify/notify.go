package notify

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ines-sys/real-bank-api-retfull/internal/config"
	"github.com/ines-sys/real-bank-api-retfull/internal/money"
)

// Sender handles sending emails via SMTP. With no SMTP host configured it
// degrades to a no-op so the service runs without a mail relay.
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{cfg: cfg, logger: logger}
}

// SendTransactionNotice sends a notification email for a deposit or
// withdrawal on a certificate.
func (s *Sender) SendTransactionNotice(to, name string, certificateID int64, amount, balance decimal.Decimal, kind string) error {
	if s.cfg.SMTPHost == "" {
		s.logger.Debugf("SMTP disabled, skipping %s notice for certificate %d", kind, certificateID)
		return nil
	}

	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = fmt.Sprintf("%s Notification", kind)

	body := fmt.Sprintf("Dear %s,\n\n", name)
	if kind == "Deposit" {
		body += fmt.Sprintf(
			"Your certificate %d has been credited with %s.\n"+
				"Transaction time: %s\n"+
				"Current balance: %s\n",
			certificateID, money.FormatDOP(amount), time.Now().Format("2006-01-02 15:04:05"), money.FormatDOP(balance),
		)
	} else {
		body += fmt.Sprintf(
			"An amount of %s has been withdrawn from your certificate %d.\n"+
				"Transaction time: %s\n"+
				"Current balance: %s\n",
			money.FormatDOP(amount), certificateID, time.Now().Format("2006-01-02 15:04:05"), money.FormatDOP(balance),
		)
	}
	body += "\nBest regards,\nReal Bank"
	e.Text = []byte(body)

	return s.send(e, to)
}

// SendMaturityReminder tells a client their certificate is about to
// mature and withdrawals will no longer carry the early surcharge.
func (s *Sender) SendMaturityReminder(to, name string, certificateID int64, expiration time.Time, balance decimal.Decimal) error {
	if s.cfg.SMTPHost == "" {
		s.logger.Debugf("SMTP disabled, skipping maturity reminder for certificate %d", certificateID)
		return nil
	}

	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = "Certificate Maturity Reminder"

	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"Your deposit certificate %d matures on %s.\n"+
			"Current balance: %s\n"+
			"From the maturity date on, withdrawals carry no early-withdrawal surcharge.\n"+
			"\nBest regards,\nReal Bank",
		name, certificateID, expiration.Format("2006-01-02"), money.FormatDOP(balance),
	)
	e.Text = []byte(body)

	return s.send(e, to)
}

func (s *Sender) send(e *email.Email, to string) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}
	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}
