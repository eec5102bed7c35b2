package smtptest

import (
	"fmt"
	"io"
	"net"
	"net/http/httptest"
	"time"

	"github.com/docker/go-units"
	"github.com/emersion/go-smtp"
	"github.com/ptgott/mailassert/storage"
	"github.com/rs/zerolog/log"
)

// doubtful we'll get an email this big, but we need a limit
const maxMessageSize int64 = 100 * units.MiB

// Backend implements smtp.Backend. Every session writes to the same Store.
type Backend struct {
	store *Store
}

// Login implements smtp.Backend. Not supported since MailCatcher doesn't
// authenticate senders either.
func (be *Backend) Login(_ *smtp.ConnectionState, username string, password string) (smtp.Session, error) {
	return nil, smtp.ErrAuthUnsupported
}

// AnonymousLogin implements smtp.Backend.
func (be *Backend) AnonymousLogin(_ *smtp.ConnectionState) (smtp.Session, error) {
	return &session{store: be.store}, nil
}

// session implements smtp.Session and records the envelope so we can report
// it the way MailCatcher does.
type session struct {
	store *Store
	from  string
	to    []string
}

// Reset implements smtp.Session.
func (s *session) Reset() {
	s.from = ""
	s.to = nil
}

// Logout implements smtp.Session. No-op here.
func (s *session) Logout() error { return nil }

// Mail implements smtp.Session.
func (s *session) Mail(from string, _ smtp.MailOptions) error {
	s.from = from
	return nil
}

// Rcpt implements smtp.Session.
func (s *session) Rcpt(to string) error {
	s.to = append(s.to, to)
	return nil
}

// Data implements smtp.Session. Parses the message and stores it.
func (s *session) Data(r io.Reader) error {
	buf, err := io.ReadAll(io.LimitReader(r, maxMessageSize))
	if err != nil {
		return err
	}

	c, err := Parse(buf)
	if err != nil {
		return err
	}

	c.Sender = "<" + s.from + ">"
	c.Recipients = make([]string, len(s.to))
	for i := range s.to {
		c.Recipients[i] = "<" + s.to[i] + ">"
	}

	_, err = s.store.Add(c)
	return err
}

// InProcessServer is a fake MailCatcher that runs in the same process as the
// test suite: an SMTP server and an HTTP API sharing one Store. You must
// initialize this via NewInProcessServer or NewServer.
type InProcessServer struct {
	*Store
	smtpServer   *smtp.Server
	smtpListener net.Listener
	api          *httptest.Server
	db           *storage.BadgerDB
}

// ServerConfig sets where an InProcessServer listens and keeps its messages.
// The zero value means random local ports and in-memory storage.
type ServerConfig struct {
	SMTPAddress string
	APIAddress  string
	Storage     storage.KVConfig
}

// NewInProcessServer creates an InProcessServer listening on random local
// ports. Call Start to begin serving and Close when you're done.
func NewInProcessServer() (*InProcessServer, error) {
	return NewServer(ServerConfig{})
}

// NewServer creates an InProcessServer from c. Call Start to begin serving
// and Close when you're done.
func NewServer(c ServerConfig) (*InProcessServer, error) {
	if c.SMTPAddress == "" {
		c.SMTPAddress = "127.0.0.1:0"
	}
	if c.APIAddress == "" {
		c.APIAddress = "127.0.0.1:0"
	}

	db, err := storage.NewBadgerDB(&c.Storage)
	if err != nil {
		return nil, err
	}

	// Binding here rather than in Start means SMTPAddress is known before
	// the server starts.
	l, err := net.Listen("tcp", c.SMTPAddress)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("can't listen for SMTP connections: %v", err)
	}

	al, err := net.Listen("tcp", c.APIAddress)
	if err != nil {
		l.Close()
		db.Close()
		return nil, fmt.Errorf("can't listen for HTTP connections: %v", err)
	}

	store := NewStore(db)

	srv := smtp.NewServer(&Backend{store: store})
	srv.Domain = "localhost"
	srv.ReadTimeout = time.Duration(10) * time.Second
	srv.WriteTimeout = time.Duration(10) * time.Second
	srv.MaxMessageBytes = int(maxMessageSize)
	// no authentication required to deliver email
	srv.AuthDisabled = true

	api := httptest.NewUnstartedServer(&APIHandler{Store: store})
	api.Listener.Close()
	api.Listener = al

	return &InProcessServer{
		Store:        store,
		smtpServer:   srv,
		smtpListener: l,
		api:          api,
		db:           db,
	}, nil
}

// Start begins serving SMTP and HTTP in the background. Not blocking.
func (is *InProcessServer) Start() error {
	is.api.Start()
	go func() {
		// Serve also returns when Close is called, so this isn't
		// necessarily a failure.
		err := is.smtpServer.Serve(is.smtpListener)
		log.Debug().Err(err).Msg("the test SMTP server stopped")
	}()
	return nil
}

// Close shuts down both servers and the store. You must initialize a new
// InProcessServer instead of restarting this one.
func (is *InProcessServer) Close() {
	if err := is.smtpServer.Close(); err != nil {
		log.Error().Err(err).Msg("can't close the test SMTP server")
	}
	// Already closed if Serve ran
	is.smtpListener.Close()
	is.api.Close()
	is.db.Close()
}

// SMTPAddress returns the host:port of the test SMTP server.
func (is *InProcessServer) SMTPAddress() string {
	return is.smtpListener.Addr().String()
}

// APIURL returns the base URL of the fake MailCatcher API.
func (is *InProcessServer) APIURL() string {
	return is.api.URL
}

// SetListAsObject switches GET /messages between MailCatcher's array and a
// JSON object keyed by ID. Call it before Start.
func (is *InProcessServer) SetListAsObject(b bool) {
	is.api.Config.Handler = &APIHandler{Store: is.Store, ListAsObject: b}
}
