package userconfig

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ptgott/mailassert/storage"
	"github.com/rs/zerolog/log"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		description     string
		conf            string
		shouldBeError   bool
		expectedBaseURL string
		expectedLevel   string
	}{
		{
			description: "valid case",
			conf: `---
mailcatcher:
    baseURL: http://127.0.0.1:1080/
logging:
    level: debug`,
			expectedBaseURL: "http://127.0.0.1:1080",
			expectedLevel:   "debug",
		},
		{
			description:     "empty document",
			conf:            ``,
			expectedBaseURL: "http://localhost:1080",
			expectedLevel:   "info",
		},
		{
			description: "no logging section",
			conf: `mailcatcher:
    baseURL: https://mail.example.com`,
			expectedBaseURL: "https://mail.example.com",
			expectedLevel:   "info",
		},
		{
			description: "no base URL",
			conf: `logging:
    level: warn`,
			expectedBaseURL: "http://localhost:1080",
			expectedLevel:   "warn",
		},
		{
			description: "base URL without a scheme",
			conf: `mailcatcher:
    baseURL: localhost:1080`,
			shouldBeError: true,
		},
		{
			description: "mailcatcher section is not an object",
			conf: `mailcatcher:
    - http://localhost:1080`,
			shouldBeError: true,
		},
		{
			description: "unknown log level",
			conf: `logging:
    level: trace`,
			shouldBeError: true,
		},
		{
			description: "fake service address without a port",
			conf: `fakeService:
    smtpAddress: localhost`,
			shouldBeError: true,
		},
		{
			description:   "not yaml",
			conf:          `this is not yaml`,
			shouldBeError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			b := bytes.NewBuffer([]byte(tc.conf))
			m, err := Parse(b)

			if (err != nil) != tc.shouldBeError {
				t.Fatalf(
					"%v: unexpected error status: wanted %v but got %v with error %v",
					tc.description,
					tc.shouldBeError,
					err != nil,
					err,
				)
			}

			if tc.shouldBeError {
				if !reflect.DeepEqual(*m, Meta{}) {
					t.Errorf("%v: expected an empty Meta alongside the error", tc.description)
				}
				return
			}

			if m.MailCatcher.BaseURL != tc.expectedBaseURL {
				t.Errorf(
					"%v: expected base URL %v but got %v",
					tc.description,
					tc.expectedBaseURL,
					m.MailCatcher.BaseURL,
				)
			}

			if m.Logging.Level != tc.expectedLevel {
				t.Errorf(
					"%v: expected log level %v but got %v",
					tc.description,
					tc.expectedLevel,
					m.Logging.Level,
				)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "mailassert.yaml")
	err := os.WriteFile(p, []byte("mailcatcher:\n    baseURL: http://127.0.0.1:2080\n"), 0o600)
	if err != nil {
		t.Fatal(err)
	}

	m, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if m.MailCatcher.BaseURL != "http://127.0.0.1:2080" {
		t.Errorf("expected the base URL from the file but got %v", m.MailCatcher.BaseURL)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestLoggingApply(t *testing.T) {
	orig := log.Logger
	defer func() { log.Logger = orig }()

	testCases := []struct {
		level        string
		debugEnabled bool
		infoEnabled  bool
	}{
		{level: "debug", debugEnabled: true, infoEnabled: true},
		{level: "info", debugEnabled: false, infoEnabled: true},
		{level: "warn", debugEnabled: false, infoEnabled: false},
	}

	for _, tc := range testCases {
		t.Run(tc.level, func(t *testing.T) {
			log.Logger = orig
			Logging{Level: tc.level}.Apply()
			if log.Debug().Enabled() != tc.debugEnabled {
				t.Errorf("expected debug logging enabled to be %v", tc.debugEnabled)
			}
			if log.Info().Enabled() != tc.infoEnabled {
				t.Errorf("expected info logging enabled to be %v", tc.infoEnabled)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	m := Default()
	c, err := m.CheckAndSetDefaults()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(c, Default()) {
		t.Errorf("expected the defaults to survive validation unchanged, but got %+v", c)
	}
}

func TestFakeService(t *testing.T) {
	conf := `fakeService:
    httpAddress: 0.0.0.0:2080
    storage:
        storageDir: /var/lib/mailassert`

	m, err := Parse(bytes.NewBufferString(conf))
	if err != nil {
		t.Fatal(err)
	}

	expected := FakeService{
		SMTPAddress: "127.0.0.1:1025",
		HTTPAddress: "0.0.0.0:2080",
		Storage:     storage.KVConfig{StorageDirPath: "/var/lib/mailassert"},
	}
	if !reflect.DeepEqual(m.FakeService, expected) {
		t.Errorf("expected %+v but got %+v", expected, m.FakeService)
	}
}
