package notificator

import (
	"fmt"
	"net/smtp"
	"strconv"

	"github.com/core-coin/walletx/pkg/logger"
)

type EmailNotificator struct {
	logger *logger.Logger

	SMTPHost            string
	SMTPPort            int
	SMTPAlternativePort int
	SMTPSender          string

	SMTPAuth smtp.Auth

	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailNotificator(logger *logger.Logger, SMTPHost string, SMTPPort int, SMTPAlternativePort int, SMTPUser string, SMTPPassword string, SMTPSender string) *EmailNotificator {
	auth := smtp.PlainAuth(
		"",
		SMTPUser,
		SMTPPassword,
		SMTPHost,
	)

	return &EmailNotificator{
		logger:              logger,
		SMTPAuth:            auth,
		SMTPHost:            SMTPHost,
		SMTPPort:            SMTPPort,
		SMTPAlternativePort: SMTPAlternativePort,
		SMTPSender:          SMTPSender,
		sendMail:            smtp.SendMail,
	}
}

// SendNotification mails message to to, falling back to the alternative port
// when the primary one fails.
func (e *EmailNotificator) SendNotification(to, message string) error {
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		e.SMTPSender,
		to,
		"WalletX ledger event",
		message,
	)

	var lastErr error
	for _, port := range []int{e.SMTPPort, e.SMTPAlternativePort} {
		if port == 0 {
			continue
		}
		addr := e.SMTPHost + ":" + strconv.Itoa(port)
		if err := e.sendMail(addr, e.SMTPAuth, e.SMTPSender, []string{to}, []byte(msg)); err != nil {
			e.logger.Warn("SMTP delivery failed", "addr", addr, "error", err)
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("failed to send email: %w", lastErr)
}
