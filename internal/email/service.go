package email

import (
	"fmt"
	"net/smtp"
)

// Service sends mail through a plain SMTP relay.
type Service struct {
	host string
	port string
	from string
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewService(host, port, from string) *Service {
	return &Service{
		host: host,
		port: port,
		from: from,
		send: smtp.SendMail,
	}
}

// SendOrderConfirmation mails the receipt for a placed order.
func (s *Service) SendOrderConfirmation(to, name, orderID string, total int, items []OrderItem) error {
	body, err := BuildOrderConfirmationBody(name, orderID, total, items)
	if err != nil {
		return fmt.Errorf("render confirmation: %w", err)
	}
	return s.deliver(to, fmt.Sprintf("Order confirmed: %s", orderID), body)
}

// SendStatusUpdate mails a fulfillment status change.
func (s *Service) SendStatusUpdate(to, orderID, previous, status string) error {
	body, err := BuildStatusUpdateBody(orderID, previous, status)
	if err != nil {
		return fmt.Errorf("render status update: %w", err)
	}
	return s.deliver(to, fmt.Sprintf("Order %s: %s", orderID, status), body)
}

func (s *Service) deliver(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return s.send(addr, nil, s.from, []string{to}, []byte(msg))
}
