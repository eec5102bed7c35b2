package smtptest

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
)

// Captured is a message as the fake service sees it. A nil Plain or HTML
// means the message has no such part, which the API reports as a 404.
type Captured struct {
	Sender     string    `json:"sender"`
	Recipients []string  `json:"recipients"`
	Subject    string    `json:"subject"`
	Type       string    `json:"type"`
	Plain      *string   `json:"plain,omitempty"`
	HTML       *string   `json:"html,omitempty"`
	Source     []byte    `json:"source"`
	CreatedAt  time.Time `json:"created_at"`
}

// Parse reads a raw RFC 5322 message and returns its subject along with the
// first text/plain and text/html inline parts. Sender and Recipients come
// from the From and To headers; the SMTP backend replaces them with the
// envelope addresses, which is what MailCatcher reports.
func Parse(raw []byte) (Captured, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	// An unknown charset still leaves us with a readable message.
	if err != nil && !message.IsUnknownCharset(err) {
		return Captured{}, fmt.Errorf("can't read the message: %v", err)
	}

	c := Captured{
		Source: raw,
	}

	subj, err := mr.Header.Subject()
	if err != nil {
		subj = mr.Header.Get("Subject")
	}
	c.Subject = subj

	c.Type, _, err = mr.Header.ContentType()
	if err != nil || c.Type == "" {
		c.Type = "text/plain"
	}

	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		c.Sender = "<" + from[0].Address + ">"
	}

	if to, err := mr.Header.AddressList("To"); err == nil {
		for _, a := range to {
			c.Recipients = append(c.Recipients, "<"+a.Address+">")
		}
	}

	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Captured{}, fmt.Errorf("can't read the next message part: %v", err)
		}

		h, ok := p.Header.(*mail.InlineHeader)
		// Attachments aren't bodies
		if !ok {
			continue
		}

		// RFC 2045 says a part without a Content-Type is text/plain.
		t, _, err := h.ContentType()
		if err != nil || t == "" {
			t = "text/plain"
		}

		if t != "text/plain" && t != "text/html" {
			continue
		}

		b, err := io.ReadAll(p.Body)
		if err != nil {
			return Captured{}, fmt.Errorf("can't read the %v part: %v", t, err)
		}
		s := string(b)

		switch {
		case t == "text/plain" && c.Plain == nil:
			c.Plain = &s
		case t == "text/html" && c.HTML == nil:
			c.HTML = &s
		}
	}

	return c, nil
}

// formats lists the parts of c that the API can serve, in MailCatcher's
// order.
func (c Captured) formats() []string {
	f := []string{"source"}
	if c.HTML != nil {
		f = append(f, "html")
	}
	if c.Plain != nil {
		f = append(f, "plain")
	}
	return f
}
