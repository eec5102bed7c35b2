// Package mailassert lets a test assert on the email its code under test
// sent, by asking a MailCatcher-compatible service what it captured.
//
// Create a Session in each test (it starts by deleting every captured
// message) and call its Assert methods:
//
//	func TestSignup(t *testing.T) {
//		mail := mailassert.SetUp(t, "http://localhost:1080")
//		signup("someone@example.com")
//		mail.AssertMailCount(t, 1)
//		mail.AssertMailSubject(t, "Welcome")
//		mail.AssertMailPlainBodyContains(t, "confirm your address")
//	}
//
// Assertion mismatches are reported through testify like any other assert
// failure. Problems talking to the service are reported as errors and, for a
// *testing.T, stop the test, so an unreachable service never looks like a
// passing or merely failing assertion.
package mailassert

import (
	"context"

	"github.com/ptgott/mailassert/messages"
	"github.com/ptgott/mailassert/transport"
	"github.com/ptgott/mailassert/userconfig"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

// Session is the connection to a mail-capturing service for a single test
// case. It isn't meant to be shared between test cases or goroutines. There
// is nothing to close.
type Session struct {
	ctx     context.Context
	baseURL string
	repo    *messages.Repository
}

// NewSession connects to the service at baseURL (transport.DefaultBaseURL if
// empty) and deletes every captured message so the test starts from zero.
// ctx applies to every request the Session makes.
func NewSession(ctx context.Context, baseURL string) (*Session, error) {
	c, err := transport.NewClient(baseURL)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ctx:     ctx,
		baseURL: c.BaseURL(),
		repo:    messages.New(c),
	}

	if err := s.Clear(); err != nil {
		return nil, err
	}

	log.Info().
		Str("baseURL", s.baseURL).
		Msg("started a mail assertion session")

	return s, nil
}

// SetUp is NewSession for test setup: it stops the test if the service can't
// be reached or cleared.
func SetUp(t require.TestingT, baseURL string) *Session {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	s, err := NewSession(context.Background(), baseURL)
	require.NoError(t, err, "can't set up the mail-capturing service")
	return s
}

// SetUpWithConfig is SetUp with the base URL and log level taken from a
// parsed config.
func SetUpWithConfig(t require.TestingT, c userconfig.Meta) *Session {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	c.Logging.Apply()
	return SetUp(t, c.MailCatcher.BaseURL)
}

// Clear deletes every captured message.
func (s *Session) Clear() error {
	return s.repo.Clear(s.ctx)
}

// BaseURL returns the address of the service the Session talks to.
func (s *Session) BaseURL() string {
	return s.baseURL
}

// Repository exposes the queries the assertions are built on, for tests that
// need more than the assertions offer.
func (s *Session) Repository() *messages.Repository {
	return s.repo
}
