package smtptest

// Server is a mail-capturing service for a test or test suite to send email
// to. It accepts messages over SMTP and exposes them over a
// MailCatcher-compatible HTTP API. The server is meant to start during a test
// (or test suite) and stop right after.
type Server interface {
	// Start launches the server and returns an error if this fails. Retry
	// behavior is left to the caller. Start should also set up any
	// resources required to run the server.
	Start() error

	// Close terminates the server and any required resources. While
	// this is designed not to return an error so it's easier to use with defer,
	// implementations should log failures to close so the test operator can
	// chase down rogue server processes.
	Close()

	// SMTPAddress returns the host:port to send email to.
	SMTPAddress() string

	// APIURL returns the base URL of the HTTP API, without a trailing
	// slash.
	APIURL() string
}
