package smtptest

import (
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// APIHandler serves the part of MailCatcher's HTTP API that test helpers
// use:
//
//	DELETE /messages
//	GET    /messages
//	GET    /messages/{id}.json
//	GET    /messages/{id}.plain
//	GET    /messages/{id}.html
//	GET    /messages/{id}.source
//
// Like MailCatcher, it answers 404 for unknown IDs and for parts a message
// doesn't have.
type APIHandler struct {
	Store *Store
	// ListAsObject makes GET /messages return a JSON object keyed by ID
	// instead of MailCatcher's array.
	ListAsObject bool
}

// summaryJSON is an entry of the message list
type summaryJSON struct {
	ID         int      `json:"id"`
	Sender     string   `json:"sender"`
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	Size       string   `json:"size"`
	CreatedAt  string   `json:"created_at"`
}

// messageJSON is the response body for /messages/{id}.json
type messageJSON struct {
	summaryJSON
	Type        string        `json:"type"`
	Formats     []string      `json:"formats"`
	Attachments []interface{} `json:"attachments"`
}

func newSummaryJSON(m StoredMessage) summaryJSON {
	r := m.Recipients
	if r == nil {
		r = []string{}
	}
	return summaryJSON{
		ID:         m.ID,
		Sender:     m.Sender,
		Recipients: r,
		Subject:    m.Subject,
		Size:       strconv.Itoa(len(m.Source)),
		CreatedAt:  m.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ServeHTTP implements http.Handler.
func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/messages" {
		switch r.Method {
		case http.MethodGet:
			h.list(w)
		case http.MethodDelete:
			h.deleteAll(w)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/messages/")
	if name == r.URL.Path {
		http.NotFound(w, r)
		return
	}

	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ext := path.Ext(name)
	id, err := strconv.Atoi(strings.TrimSuffix(name, ext))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	m, err := h.Store.Get(id)
	if errors.Is(err, ErrMessageNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.internalError(w, err)
		return
	}

	switch ext {
	case ".json":
		h.writeJSON(w, messageJSON{
			summaryJSON: newSummaryJSON(m),
			Type:        m.Type,
			Formats:     m.formats(),
			Attachments: []interface{}{},
		})
	case ".plain":
		h.writePart(w, r, "text/plain; charset=utf-8", m.Plain)
	case ".html":
		h.writePart(w, r, "text/html; charset=utf-8", m.HTML)
	case ".source":
		src := string(m.Source)
		h.writePart(w, r, "message/rfc822", &src)
	default:
		http.NotFound(w, r)
	}
}

func (h *APIHandler) list(w http.ResponseWriter) {
	l, err := h.Store.List()
	if err != nil {
		h.internalError(w, err)
		return
	}

	if h.ListAsObject {
		o := make(map[string]summaryJSON, len(l))
		for _, m := range l {
			o[strconv.Itoa(m.ID)] = newSummaryJSON(m)
		}
		h.writeJSON(w, o)
		return
	}

	a := make([]summaryJSON, len(l))
	for i, m := range l {
		a[i] = newSummaryJSON(m)
	}
	h.writeJSON(w, a)
}

func (h *APIHandler) deleteAll(w http.ResponseWriter) {
	if err := h.Store.DeleteAll(); err != nil {
		h.internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) writePart(w http.ResponseWriter, r *http.Request, contentType string, part *string) {
	if part == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", contentType)
	if _, err := w.Write([]byte(*part)); err != nil {
		log.Error().Err(err).Msg("can't write the message part")
	}
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		h.internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(b); err != nil {
		log.Error().Err(err).Msg("can't write the JSON response")
	}
}

func (h *APIHandler) internalError(w http.ResponseWriter, err error) {
	log.Error().Err(err).Msg("the fake mail-capturing service failed")
	w.WriteHeader(http.StatusInternalServerError)
}
