package transport

// transport is responsible for talking HTTP to a mail-capturing service such as
// MailCatcher. It knows how to build request URLs from a base URL and how to
// turn failed round trips into errors, but nothing about what the service
// returns. Parsing response bodies is left to the messages package.
