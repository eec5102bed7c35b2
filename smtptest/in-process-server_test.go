package smtptest

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/ptgott/mailassert/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T) *InProcessServer {
	srv, err := NewInProcessServer()
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, u string) (int, string) {
	resp, err := http.Get(u)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func TestSendAndRetrieve(t *testing.T) {
	srv := startTestServer(t)

	err := Send(srv.SMTPAddress(), Mail{
		From:    "me@example.com",
		To:      []string{"you@example.com"},
		Subject: "Welcome",
		Plain:   "Hello, world",
		HTML:    "<p>Hello, world</p>",
	})
	require.NoError(t, err)

	err = Send(srv.SMTPAddress(), Mail{
		From:    "me@example.com",
		To:      []string{"you@example.com", "them@example.com"},
		Subject: "Text only",
		Plain:   "Just text",
	})
	require.NoError(t, err)

	code, body := get(t, srv.APIURL()+"/messages")
	require.Equal(t, http.StatusOK, code)
	var l []summaryJSON
	require.NoError(t, json.Unmarshal([]byte(body), &l))
	require.Len(t, l, 2)
	assert.Equal(t, 1, l[0].ID)
	assert.Equal(t, "Welcome", l[0].Subject)
	assert.Equal(t, "<me@example.com>", l[0].Sender)
	assert.Equal(t, []string{"<you@example.com>"}, l[0].Recipients)
	assert.Equal(t, 2, l[1].ID)
	assert.Len(t, l[1].Recipients, 2)

	code, body = get(t, srv.APIURL()+"/messages/1.json")
	require.Equal(t, http.StatusOK, code)
	var m messageJSON
	require.NoError(t, json.Unmarshal([]byte(body), &m))
	assert.Equal(t, "Welcome", m.Subject)
	assert.Equal(t, "multipart/alternative", m.Type)
	assert.Equal(t, []string{"source", "html", "plain"}, m.Formats)

	code, body = get(t, srv.APIURL()+"/messages/1.plain")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Hello, world")

	code, body = get(t, srv.APIURL()+"/messages/1.html")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "<p>Hello, world</p>")

	code, body = get(t, srv.APIURL()+"/messages/1.source")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Subject: Welcome")

	code, _ = get(t, srv.APIURL()+"/messages/2.html")
	assert.Equal(t, http.StatusNotFound, code)

	code, body = get(t, srv.APIURL()+"/messages/2.plain")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Just text")
}

func TestAPIErrors(t *testing.T) {
	srv := startTestServer(t)
	_, err := srv.Add(Captured{Subject: "Only one"})
	require.NoError(t, err)

	testCases := []struct {
		description  string
		method       string
		path         string
		expectedCode int
	}{
		{
			description:  "unknown id",
			method:       http.MethodGet,
			path:         "/messages/2.json",
			expectedCode: http.StatusNotFound,
		},
		{
			description:  "non-numeric id",
			method:       http.MethodGet,
			path:         "/messages/latest.json",
			expectedCode: http.StatusNotFound,
		},
		{
			description:  "unknown format",
			method:       http.MethodGet,
			path:         "/messages/1.eml",
			expectedCode: http.StatusNotFound,
		},
		{
			description:  "missing plain part",
			method:       http.MethodGet,
			path:         "/messages/1.plain",
			expectedCode: http.StatusNotFound,
		},
		{
			description:  "unknown route",
			method:       http.MethodGet,
			path:         "/inbox",
			expectedCode: http.StatusNotFound,
		},
		{
			description:  "wrong method on the list",
			method:       http.MethodPost,
			path:         "/messages",
			expectedCode: http.StatusMethodNotAllowed,
		},
		{
			description:  "wrong method on a message",
			method:       http.MethodDelete,
			path:         "/messages/1.json",
			expectedCode: http.StatusMethodNotAllowed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, srv.APIURL()+tc.path, nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tc.expectedCode, resp.StatusCode)
		})
	}
}

func TestAPIDeleteAll(t *testing.T) {
	srv := startTestServer(t)
	_, err := srv.Add(Captured{Subject: "Gone soon"})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodDelete, srv.APIURL()+"/messages", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	code, body := get(t, srv.APIURL()+"/messages")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "[]", strings.TrimSpace(body))
}

func TestAPIListAsObject(t *testing.T) {
	srv, err := NewInProcessServer()
	require.NoError(t, err)
	srv.SetListAsObject(true)
	require.NoError(t, srv.Start())
	defer srv.Close()

	_, err = srv.Add(Captured{Subject: "First"})
	require.NoError(t, err)
	_, err = srv.Add(Captured{Subject: "Second"})
	require.NoError(t, err)

	code, body := get(t, srv.APIURL()+"/messages")
	require.Equal(t, http.StatusOK, code)
	var o map[string]summaryJSON
	require.NoError(t, json.Unmarshal([]byte(body), &o))
	require.Len(t, o, 2)
	assert.Equal(t, "First", o["1"].Subject)
	assert.Equal(t, "Second", o["2"].Subject)
}

func TestSendValidation(t *testing.T) {
	testCases := []struct {
		description string
		addr        string
		mail        Mail
	}{
		{
			description: "no from address",
			addr:        "127.0.0.1:2525",
			mail:        Mail{To: []string{"you@example.com"}},
		},
		{
			description: "no to address",
			addr:        "127.0.0.1:2525",
			mail:        Mail{From: "me@example.com"},
		},
		{
			description: "no port",
			addr:        "127.0.0.1",
			mail:        Mail{From: "me@example.com", To: []string{"you@example.com"}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			assert.Error(t, Send(tc.addr, tc.mail))
		})
	}
}

func TestNewServerResumesIDs(t *testing.T) {
	c := ServerConfig{
		Storage: storage.KVConfig{StorageDirPath: t.TempDir()},
	}

	srv, err := NewServer(c)
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	_, err = srv.Add(Captured{Subject: "First"})
	require.NoError(t, err)
	_, err = srv.Add(Captured{Subject: "Second"})
	require.NoError(t, err)
	srv.Close()

	srv, err = NewServer(c)
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	defer srv.Close()

	id, err := srv.Add(Captured{Subject: "Third"})
	require.NoError(t, err)
	assert.Equal(t, 3, id)

	code, body := get(t, srv.APIURL()+"/messages/1.json")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "First")
}

func TestNewServerAddressInUse(t *testing.T) {
	srv := startTestServer(t)

	_, err := NewServer(ServerConfig{SMTPAddress: srv.SMTPAddress()})
	assert.Error(t, err)
}
