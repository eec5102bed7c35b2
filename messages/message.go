package messages

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrNoMessages is returned when asking for the latest message while the
// service holds none. We don't fall back to an ID of 0 since that could be
// a real message.
var ErrNoMessages = errors.New("the mail-capturing service has no messages")

// InvalidArgumentError means a message ID was rejected before any request was
// made.
type InvalidArgumentError struct {
	Name  string
	Value string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf(
		"invalid %v %q: must be a non-negative integer",
		e.Name,
		e.Value,
	)
}

// Summary is one entry of the message list.
type Summary struct {
	ID         int      `json:"id"`
	Sender     string   `json:"sender"`
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	CreatedAt  string   `json:"created_at"`
}

// Collection maps message IDs to summaries. Iteration order means nothing.
type Collection map[int]Summary

// IDs returns the message IDs in c in no particular order.
func (c Collection) IDs() []int {
	ids := make([]int, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	return ids
}

// Message is the metadata MailCatcher returns for a single message. Formats
// lists the parts that can be fetched, e.g. "source", "plain" and "html".
type Message struct {
	ID         int      `json:"id"`
	Sender     string   `json:"sender"`
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	Type       string   `json:"type"`
	Formats    []string `json:"formats"`
	CreatedAt  string   `json:"created_at"`
}

// HasFormat reports whether the service says part f exists.
func (m Message) HasFormat(f string) bool {
	for _, mf := range m.Formats {
		if mf == f {
			return true
		}
	}
	return false
}

// ParseID converts an identifier from outside the program (e.g., a JSON
// object key) into a message ID.
func ParseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		return 0, &InvalidArgumentError{Name: "message ID", Value: s}
	}
	return id, nil
}

func validateID(id int) error {
	if id < 0 {
		return &InvalidArgumentError{Name: "message ID", Value: strconv.Itoa(id)}
	}
	return nil
}
