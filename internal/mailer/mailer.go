// Package mailer sends operator alert mail through the SendGrid SMTP relay.
package mailer

import (
	"github.com/spf13/viper"
	"gopkg.in/gomail.v2"
)

type Mailer struct {
	dialer     *gomail.Dialer
	from       string
	recipients []string
}

func NewMailer(username, password, from string, recipients []string) *Mailer {
	host := viper.GetString("smtp.host")
	if host == "" {
		host = "smtp.sendgrid.net"
	}

	port := viper.GetInt("smtp.port")
	if port == 0 {
		port = 587
	}

	return &Mailer{
		dialer:     gomail.NewDialer(host, port, username, password),
		from:       from,
		recipients: recipients,
	}
}

// Send delivers a plain-text message to every configured recipient.
func (m *Mailer) Send(subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.recipients...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	return m.dialer.DialAndSend(msg)
}
