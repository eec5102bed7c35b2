package messages

// messages turns questions about captured email ("how many messages are
// there?", "what's the subject of the latest one?") into requests against a
// MailCatcher-compatible API, and parses the answers. "Latest" always means
// the message with the highest ID, never a position in a list.
