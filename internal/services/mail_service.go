package services

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/ecowatcher/backend/internal/logger"
	"github.com/ecowatcher/backend/internal/models"
)

// AccountMailer tells users about changes to their account.
type AccountMailer interface {
	NotifyVerified(u models.User) error
}

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// MailService sends account emails over SMTP.
type MailService struct {
	sender mailSender
	from   string
	log    *logrus.Entry
}

// NewMailService creates a MailService for the given SMTP server.
func NewMailService(host string, port int, username, password, from string) *MailService {
	return &MailService{
		sender: gomail.NewDialer(host, port, username, password),
		from:   from,
		log:    logger.WithComponent("mail"),
	}
}

// NotifyVerified tells a donor their account can now log in.
func (s *MailService) NotifyVerified(u models.User) error {
	if u.Email == "" {
		return nil
	}
	if err := s.sender.DialAndSend(s.verifiedMessage(u)); err != nil {
		return fmt.Errorf("send verification mail: %w", err)
	}
	s.log.WithField("user_id", u.ID).Info("verification mail sent")
	return nil
}

func (s *MailService) verifiedMessage(u models.User) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", u.Email)
	msg.SetHeader("Subject", "Akun EcoWatcher Anda sudah aktif")
	msg.SetBody("text/html", fmt.Sprintf(
		"<p>Halo %s,</p><p>Akun Anda telah diverifikasi. Silakan masuk ke aplikasi EcoWatcher untuk mulai menyetor sampah dan mengumpulkan poin.</p>",
		u.Nama,
	))
	return msg
}
