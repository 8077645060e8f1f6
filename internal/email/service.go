package email

import (
	"fmt"
	"net/smtp"

	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/model"
)

// Service handles email sending via SMTP.
type Service struct {
	host string
	port string
	from string
}

func NewService(host, port, from string) *Service {
	return &Service{
		host: host,
		port: port,
		from: from,
	}
}

// SendPurchaseConfirmation sends the purchase confirmation email for a ticket.
func (s *Service) SendPurchaseConfirmation(to string, t *model.Ticket) error {
	subject := fmt.Sprintf("Purchase confirmation - ticket %s", t.Code)
	body := BuildPurchaseConfirmationBody(t)
	return s.send(to, subject, body)
}

func (s *Service) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return smtp.SendMail(addr, nil, s.from, []string{to}, []byte(msg))
}
