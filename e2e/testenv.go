package e2e

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ptgott/mailassert/smtptest"
)

const (
	tempDirPathName = "tempTestDir"
	configFileName  = "mailassert.yaml"
)

// testEnvironment manages all dependencies required to run the e2e tests
// against one mail-capturing service. Callers should create this via
// startTestEnvironment.
type testEnvironment struct {
	server      smtptest.Server
	tempDirPath string // must be populated programmatically
	configPath  string
}

// startTestEnvironment starts server and writes a config file pointing at
// it. Callers should defer a call to tearDown.
//
// Note that if startTestEnvironment fails, it will return an error along with
// whatever shreds of a test environment we've set up so far so you can tear
// it down (i.e., it won't just be the zero value)
func startTestEnvironment(server smtptest.Server, logLevel string) (*testEnvironment, error) {
	te := &testEnvironment{}

	p, err := os.MkdirTemp("", tempDirPathName)
	if err != nil {
		return te, fmt.Errorf("could not create the test config directory: %w", err)
	}
	te.tempDirPath = p

	err = server.Start()
	if err != nil {
		return te, fmt.Errorf("could not start the mail-capturing service: %w", err)
	}
	te.server = server

	te.configPath = filepath.Join(p, configFileName)
	err = createAppConfig(te.configPath, appConfigOptions{
		BaseURL:  server.APIURL(),
		LogLevel: logLevel,
	})
	if err != nil {
		return te, err
	}

	return te, nil
}

// tearDown returns the testEnvironment to its state prior to start. Designed
// to call with defer
func (te *testEnvironment) tearDown() {
	if te.server != nil {
		te.server.Close()
	}

	// This error will be nil if the path doesn't exist. See:
	// https://golang.org/pkg/os/#RemoveAll
	err := os.RemoveAll(te.tempDirPath)

	// We're not expecting this to return an error since it's designed to call with
	// defer. Instead we panic, and hopefully we can prevent any panic-causing
	// error from happening again.
	if err != nil {
		panic(fmt.Sprintf("can't delete the test config directory: %v", err))
	}
}
