package mailer

import (
	"io"
	"time"

	gomail "gopkg.in/gomail.v2"
)

type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	SendDelay   time.Duration
	SendTimeout time.Duration
	MaxAttempts int
}

// Attachment is a binary file attached to an outgoing message
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a fully rendered email ready for transport
type Message struct {
	From        string
	To          string
	Subject     string
	HTMLBody    string
	TextBody    string
	Attachments []Attachment
}

// Sender delivers a rendered message through the mail relay
type Sender interface {
	Send(msg *Message) error
}

// SMTPSender delivers messages over SMTP using gomail
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(cfg Config) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *SMTPSender) Send(msg *Message) error {
	m := gomail.NewMessage()

	from := msg.From
	if from == "" {
		from = s.from
	}
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)

	m.SetBody("text/plain", msg.TextBody)
	if msg.HTMLBody != "" {
		m.AddAlternative("text/html", msg.HTMLBody)
	}

	for _, att := range msg.Attachments {
		data := att.Data
		m.Attach(att.Filename, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}))
	}

	return s.dialer.DialAndSend(m)
}
