package userconfig

import (
	"fmt"
	"io"
	"net"
	"os"

	"github.com/ptgott/mailassert/storage"
	"github.com/ptgott/mailassert/transport"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	yaml "gopkg.in/yaml.v2"
)

// Meta represents all config options a test suite can set, i.e., after
// validation and parsing
type Meta struct {
	MailCatcher MailCatcher `yaml:"mailcatcher"`
	Logging     Logging     `yaml:"logging"`
	FakeService FakeService `yaml:"fakeService"`
}

// MailCatcher contains config options for reaching the mail-capturing
// service
type MailCatcher struct {
	BaseURL string
}

// UnmarshalYAML parses the mailcatcher section of a user-provided YAML
// configuration, returning any parsing errors.
func (m *MailCatcher) UnmarshalYAML(unmarshal func(interface{}) error) error {
	v := make(map[string]string)
	err := unmarshal(&v)

	if err != nil {
		return fmt.Errorf("can't parse the mailcatcher config: %v", err)
	}

	m.BaseURL = v["baseURL"]

	return nil
}

// CheckAndSetDefaults validates m and either returns a copy of m with default
// settings applied or returns an error due to an invalid configuration
func (m *MailCatcher) CheckAndSetDefaults() (MailCatcher, error) {
	if m.BaseURL == "" {
		m.BaseURL = transport.DefaultBaseURL
	}

	// NewClient is the authority on what makes a usable base URL.
	c, err := transport.NewClient(m.BaseURL)
	if err != nil {
		return MailCatcher{}, err
	}
	m.BaseURL = c.BaseURL()

	return *m, nil
}

// Logging contains config options for the package-wide zerolog logger
type Logging struct {
	Level string `yaml:"level"`
}

// CheckAndSetDefaults validates l and either returns a copy of l with default
// settings applied or returns an error due to an invalid configuration
func (l *Logging) CheckAndSetDefaults() (Logging, error) {
	switch l.Level {
	case "":
		l.Level = "info"
	case "debug", "info", "warn":
	default:
		return Logging{}, fmt.Errorf(
			`log level must be "info", "debug", or "warn", but got %q`,
			l.Level,
		)
	}
	return *l, nil
}

// Apply sets the level of the global logger. Call it after
// CheckAndSetDefaults.
func (l Logging) Apply() {
	switch l.Level {
	case "debug":
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	case "warn":
		log.Logger = log.Logger.Level(zerolog.WarnLevel)
	default:
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}
}

// FakeService contains config options for running the fake mail-capturing
// service as its own process. Test suites that only assert never read it.
type FakeService struct {
	SMTPAddress string           `yaml:"smtpAddress"`
	HTTPAddress string           `yaml:"httpAddress"`
	Storage     storage.KVConfig `yaml:"storage"`
}

// MailCatcher's own defaults
const (
	defaultSMTPAddress = "127.0.0.1:1025"
	defaultHTTPAddress = "127.0.0.1:1080"
)

// CheckAndSetDefaults validates f and either returns a copy of f with default
// settings applied or returns an error due to an invalid configuration
func (f *FakeService) CheckAndSetDefaults() (FakeService, error) {
	if f.SMTPAddress == "" {
		f.SMTPAddress = defaultSMTPAddress
	}
	if f.HTTPAddress == "" {
		f.HTTPAddress = defaultHTTPAddress
	}

	if _, _, err := net.SplitHostPort(f.SMTPAddress); err != nil {
		return FakeService{}, fmt.Errorf("the SMTP address must be host:port: %v", err)
	}
	if _, _, err := net.SplitHostPort(f.HTTPAddress); err != nil {
		return FakeService{}, fmt.Errorf("the HTTP address must be host:port: %v", err)
	}

	return *f, nil
}

// CheckAndSetDefaults validates m and either returns a copy of m with default
// settings applied or returns an error due to an invalid configuration
func (m *Meta) CheckAndSetDefaults() (Meta, error) {
	c := Meta{}

	mc, err := m.MailCatcher.CheckAndSetDefaults()
	if err != nil {
		return Meta{}, err
	}
	c.MailCatcher = mc

	l, err := m.Logging.CheckAndSetDefaults()
	if err != nil {
		return Meta{}, err
	}
	c.Logging = l

	f, err := m.FakeService.CheckAndSetDefaults()
	if err != nil {
		return Meta{}, err
	}
	c.FakeService = f

	return c, nil
}

// Parse generates usable configurations from possibly arbitrary user input.
// An error indicates a problem with parsing or validation. The Reader r
// can be either JSON or YAML. Every section is optional.
func Parse(r io.Reader) (*Meta, error) {
	var m Meta
	err := yaml.NewDecoder(r).Decode(&m)
	// An empty document is a valid config that uses all the defaults.
	if err != nil && err != io.EOF {
		return &Meta{}, fmt.Errorf("can't read the config file as YAML: %v", err)
	}

	c, err := m.CheckAndSetDefaults()
	if err != nil {
		return &Meta{}, err
	}

	log.Debug().
		Str("baseURL", c.MailCatcher.BaseURL).
		Str("level", c.Logging.Level).
		Msg("parsed the config")

	return &c, nil
}

// Load reads and parses the config file at path.
func Load(path string) (*Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		return &Meta{}, fmt.Errorf("can't open the config file: %v", err)
	}
	defer f.Close()

	return Parse(f)
}

// Default returns the config used when a test suite doesn't provide one.
func Default() Meta {
	return Meta{
		MailCatcher: MailCatcher{BaseURL: transport.DefaultBaseURL},
		Logging:     Logging{Level: "info"},
		FakeService: FakeService{
			SMTPAddress: defaultSMTPAddress,
			HTTPAddress: defaultHTTPAddress,
		},
	}
}
