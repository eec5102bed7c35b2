package e2e

// e2e contains integration tests that send real SMTP traffic to a
// mail-capturing service and then check it with mailassert, plus the utility
// code required to set up the service. The tests always run against the
// in-process fake from smtptest. They also run against a real MailCatcher if
// one is configured through the environment:
//
//	MAILCATCHER_URL   base URL of the HTTP API, e.g., http://localhost:1080
//	MAILCATCHER_SMTP  host:port of the SMTP server, e.g., localhost:1025
//
// or, to have the tests launch MailCatcher themselves:
//
//	MAILCATCHER_PATH  path to the mailcatcher executable
