package smtptest

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/google/uuid"
	gomail "gopkg.in/gomail.v2"
)

// Mail is a message for Send to deliver. Leave Plain or HTML empty to send a
// message without that part.
type Mail struct {
	From    string
	To      []string
	Subject string
	Plain   string
	HTML    string
}

// Send delivers m to the SMTP server at addr (host:port) without TLS or
// authentication, which is all a mail-capturing service expects. A message
// with both bodies is sent as multipart/alternative.
func Send(addr string, m Mail) error {
	if m.From == "" || len(m.To) == 0 {
		return errors.New("must supply a \"from\" address and at least one \"to\" address")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("can't parse the SMTP address %v: %v", addr, err)
	}

	p, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("can't parse the SMTP port %v: %v", port, err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", m.To...)
	msg.SetHeader("Subject", m.Subject)
	msg.SetHeader("Message-ID", fmt.Sprintf("<%v@%v>", uuid.New().String(), host))

	switch {
	case m.Plain != "" && m.HTML != "":
		msg.SetBody("text/plain", m.Plain)
		msg.AddAlternative("text/html", m.HTML)
	case m.HTML != "":
		msg.SetBody("text/html", m.HTML)
	default:
		msg.SetBody("text/plain", m.Plain)
	}

	d := gomail.Dialer{
		Host: host,
		Port: p,
	}

	return d.DialAndSend(msg)
}
