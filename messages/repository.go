package messages

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ptgott/mailassert/transport"
	"github.com/rs/zerolog/log"
)

const messagesPath = "/messages"

// Repository answers questions about captured messages using a
// transport.Client. It doesn't cache anything: every call is a fresh round
// trip.
type Repository struct {
	client *transport.Client
}

// New returns a Repository that sends its requests through c.
func New(c *transport.Client) *Repository {
	return &Repository{client: c}
}

// Clear deletes every message held by the service. Clearing an empty service
// is not an error.
func (r *Repository) Clear(ctx context.Context) error {
	if err := r.client.Delete(ctx, messagesPath); err != nil {
		return err
	}
	log.Info().
		Str("baseURL", r.client.BaseURL()).
		Msg("deleted all captured messages")
	return nil
}

// ListMessages returns every captured message. An empty Collection is not an
// error.
//
// MailCatcher answers with a JSON array of summaries, each with an "id". We
// also accept a JSON object keyed by message ID.
func (r *Repository) ListMessages(ctx context.Context) (Collection, error) {
	b, err := r.client.Get(ctx, messagesPath)
	if err != nil {
		return nil, err
	}

	return parseCollection(b)
}

func parseCollection(b []byte) (Collection, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return Collection{}, nil
	}

	switch b[0] {
	case '[':
		var l []Summary
		if err := json.Unmarshal(b, &l); err != nil {
			return nil, fmt.Errorf("can't read the message list as JSON: %w", err)
		}
		c := make(Collection, len(l))
		for _, s := range l {
			if err := validateID(s.ID); err != nil {
				return nil, err
			}
			c[s.ID] = s
		}
		return c, nil
	case '{':
		var m map[string]Summary
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, fmt.Errorf("can't read the message list as JSON: %w", err)
		}
		c := make(Collection, len(m))
		for k, s := range m {
			id, err := ParseID(k)
			if err != nil {
				return nil, err
			}
			s.ID = id
			c[id] = s
		}
		return c, nil
	default:
		return nil, fmt.Errorf(
			"expected the message list to be a JSON array or object, but got %q",
			truncate(b, 32),
		)
	}
}

// LatestID returns the highest message ID currently held by the service, or
// ErrNoMessages if there isn't one.
func (r *Repository) LatestID(ctx context.Context) (int, error) {
	c, err := r.ListMessages(ctx)
	if err != nil {
		return 0, err
	}

	if len(c) == 0 {
		return 0, ErrNoMessages
	}

	latest := -1
	for id := range c {
		if id > latest {
			latest = id
		}
	}
	return latest, nil
}

// GetMessage returns the metadata for message id.
func (r *Repository) GetMessage(ctx context.Context, id int) (Message, error) {
	b, err := r.getPart(ctx, id, "json")
	if err != nil {
		return Message{}, err
	}

	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return Message{}, fmt.Errorf("can't read message %v as JSON: %w", id, err)
	}
	return m, nil
}

// GetPlainBody returns the text/plain part of message id. The service
// answers 404 if there is no such part; use transport.IsNotFound to check.
func (r *Repository) GetPlainBody(ctx context.Context, id int) (string, error) {
	b, err := r.getPart(ctx, id, "plain")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// GetHTMLBody returns the text/html part of message id. The service answers
// 404 if there is no such part.
func (r *Repository) GetHTMLBody(ctx context.Context, id int) (string, error) {
	b, err := r.getPart(ctx, id, "html")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// GetSource returns message id as it was received over SMTP.
func (r *Repository) GetSource(ctx context.Context, id int) (string, error) {
	b, err := r.getPart(ctx, id, "source")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// LatestMessage returns the metadata for the message with the highest ID.
func (r *Repository) LatestMessage(ctx context.Context) (Message, error) {
	id, err := r.LatestID(ctx)
	if err != nil {
		return Message{}, err
	}
	return r.GetMessage(ctx, id)
}

// LatestPlainBody returns the text/plain part of the message with the
// highest ID.
func (r *Repository) LatestPlainBody(ctx context.Context) (string, error) {
	id, err := r.LatestID(ctx)
	if err != nil {
		return "", err
	}
	return r.GetPlainBody(ctx, id)
}

// LatestHTMLBody returns the text/html part of the message with the highest
// ID.
func (r *Repository) LatestHTMLBody(ctx context.Context) (string, error) {
	id, err := r.LatestID(ctx)
	if err != nil {
		return "", err
	}
	return r.GetHTMLBody(ctx, id)
}

// getPart validates id before building the request path, so an invalid ID
// never reaches the network.
func (r *Repository) getPart(ctx context.Context, id int, ext string) ([]byte, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	p := fmt.Sprintf(
		"%v/%v.%v",
		messagesPath,
		url.PathEscape(strconv.Itoa(id)),
		ext,
	)
	return r.client.Get(ctx, p)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
