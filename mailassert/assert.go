package mailassert

import (
	"context"
	"fmt"

	"github.com/ptgott/mailassert/htmlbody"
	"github.com/ptgott/mailassert/transport"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

type tHelper interface {
	Helper()
}

type failNower interface {
	FailNow()
}

// AssertMailCount asserts that the service holds exactly expected messages.
func (s *Session) AssertMailCount(t assert.TestingT, expected int, msgAndArgs ...interface{}) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}

	c, err := s.repo.ListMessages(s.ctx)
	if err != nil {
		return s.reportError(t, err, msgAndArgs...)
	}

	if len(c) == expected {
		return true
	}

	return assert.Fail(
		t,
		fmt.Sprintf("expected %v captured messages but got %v", expected, len(c)),
		msgAndArgs...,
	)
}

// AssertMailSubject asserts that the latest message's subject is exactly
// expected. Case and whitespace matter.
func (s *Session) AssertMailSubject(t assert.TestingT, expected string, msgAndArgs ...interface{}) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}

	m, err := s.repo.LatestMessage(s.ctx)
	if err != nil {
		return s.reportError(t, err, msgAndArgs...)
	}

	return assert.Equal(t, expected, m.Subject, msgAndArgs...)
}

// AssertMailPlainBodyContains asserts that the latest message's text/plain
// part contains needle. The comparison is case sensitive.
func (s *Session) AssertMailPlainBodyContains(t assert.TestingT, needle string, msgAndArgs ...interface{}) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}

	b, err := s.repo.LatestPlainBody(s.ctx)
	if err != nil {
		return s.reportError(t, err, msgAndArgs...)
	}

	return assert.Contains(t, b, needle, msgAndArgs...)
}

// AssertMailHTMLBodyContains asserts that the latest message's text/html part
// contains needle. The comparison is case sensitive.
func (s *Session) AssertMailHTMLBodyContains(t assert.TestingT, needle string, msgAndArgs ...interface{}) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}

	b, err := s.repo.LatestHTMLBody(s.ctx)
	if err != nil {
		return s.reportError(t, err, msgAndArgs...)
	}

	return assert.Contains(t, b, needle, msgAndArgs...)
}

// AssertMailPlainBodyEmpty asserts that the latest message has no text/plain
// part or an empty one.
func (s *Session) AssertMailPlainBodyEmpty(t assert.TestingT, msgAndArgs ...interface{}) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}

	b, err := s.latestBodyOrEmpty(s.repo.GetPlainBody)
	if err != nil {
		return s.reportError(t, err, msgAndArgs...)
	}

	return assert.Empty(t, b, msgAndArgs...)
}

// AssertMailHTMLBodyEmpty asserts that the latest message has no text/html
// part or an empty one.
func (s *Session) AssertMailHTMLBodyEmpty(t assert.TestingT, msgAndArgs ...interface{}) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}

	b, err := s.latestBodyOrEmpty(s.repo.GetHTMLBody)
	if err != nil {
		return s.reportError(t, err, msgAndArgs...)
	}

	return assert.Empty(t, b, msgAndArgs...)
}

// AssertMailHTMLBodyHasElement asserts that at least one element of the
// latest message's text/html part matches the CSS selector.
func (s *Session) AssertMailHTMLBodyHasElement(t assert.TestingT, selector string, msgAndArgs ...interface{}) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}

	b, err := s.repo.LatestHTMLBody(s.ctx)
	if err != nil {
		return s.reportError(t, err, msgAndArgs...)
	}

	n, err := htmlbody.Count(b, selector)
	if err != nil {
		return s.reportError(t, err, msgAndArgs...)
	}

	if n > 0 {
		return true
	}

	return assert.Fail(
		t,
		fmt.Sprintf("expected an element matching %q in the HTML body but found none", selector),
		msgAndArgs...,
	)
}

// latestBodyOrEmpty fetches a part of the latest message, treating a 404 for
// the part itself as an empty body. A 404 from the message list is still an
// error.
func (s *Session) latestBodyOrEmpty(fetch func(context.Context, int) (string, error)) (string, error) {
	id, err := s.repo.LatestID(s.ctx)
	if err != nil {
		return "", err
	}

	b, err := fetch(s.ctx, id)
	if transport.IsNotFound(err) {
		return "", nil
	}
	return b, err
}

// reportError reports err as a test error rather than an assertion failure
// and stops the test if t allows it.
func (s *Session) reportError(t assert.TestingT, err error, msgAndArgs ...interface{}) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}

	log.Error().
		Err(err).
		Str("baseURL", s.baseURL).
		Msg("can't query the mail-capturing service")

	t.Errorf("mail-capturing service error: %v%v", err, formatMsg(msgAndArgs...))

	if f, ok := t.(failNower); ok {
		f.FailNow()
	}
	return false
}

// formatMsg renders msgAndArgs the way testify does: a lone value is printed
// as is, otherwise the first value is a format string.
func formatMsg(msgAndArgs ...interface{}) string {
	if len(msgAndArgs) == 0 {
		return ""
	}

	var msg string
	if f, ok := msgAndArgs[0].(string); ok && len(msgAndArgs) > 1 {
		msg = fmt.Sprintf(f, msgAndArgs[1:]...)
	} else {
		msg = fmt.Sprint(msgAndArgs[0])
	}

	if msg == "" {
		return ""
	}
	return "\n\tMessages: " + msg
}
