package e2e

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/ptgott/mailassert/messages"
	"github.com/ptgott/mailassert/transport"
	"github.com/rs/zerolog/log"
)

const (
	urlEnv  = "MAILCATCHER_URL"
	smtpEnv = "MAILCATCHER_SMTP"
	pathEnv = "MAILCATCHER_PATH"

	readyTimeout = 10 * time.Second
)

// MailCatcher contains information used for managing a MailCatcher server,
// either one that's already running or one we launch as a child process.
//
// Implements smtptest.Server.
type MailCatcher struct {
	// path to the mailcatcher executable. Empty if the server is already
	// running somewhere else.
	mailCatcherPath string
	// ports to launch MailCatcher on, which is always local
	smtpPort int
	apiPort  int
	smtpAddr string
	apiURL   string
	// proc is used for managing the MailCatcher process
	proc *os.Process
}

// mailCatcherFromEnv returns a MailCatcher configured via environment
// variables, or false if the environment doesn't name one.
func mailCatcherFromEnv() (*MailCatcher, bool, error) {
	u, s := os.Getenv(urlEnv), os.Getenv(smtpEnv)
	if u != "" && s != "" {
		return &MailCatcher{
			smtpAddr: s,
			apiURL:   u,
		}, true, nil
	}

	p := os.Getenv(pathEnv)
	if p == "" {
		return nil, false, nil
	}

	sp, err := freePort()
	if err != nil {
		return nil, false, err
	}
	ap, err := freePort()
	if err != nil {
		return nil, false, err
	}

	return &MailCatcher{
		mailCatcherPath: p,
		smtpPort:        sp,
		apiPort:         ap,
		smtpAddr:        net.JoinHostPort("127.0.0.1", strconv.Itoa(sp)),
		apiURL:          "http://" + net.JoinHostPort("127.0.0.1", strconv.Itoa(ap)),
	}, true, nil
}

// Start launches the MailCatcher executable if we manage one, then waits for
// the HTTP API to answer.
func (mc *MailCatcher) Start() error {
	if mc.smtpAddr == "" || mc.apiURL == "" {
		return errors.New("must specify an API and SMTP address for MailCatcher")
	}

	if mc.mailCatcherPath != "" {
		if err := mc.launch(); err != nil {
			return err
		}
	}

	return mc.waitReady()
}

func (mc *MailCatcher) launch() error {
	_, err := os.Lstat(mc.mailCatcherPath)
	if err != nil {
		return fmt.Errorf("can't find the MailCatcher executable: %v", err)
	}

	cmd := exec.Command(
		mc.mailCatcherPath,
		"--foreground",
		"--ip", "127.0.0.1",
		"--smtp-port", strconv.Itoa(mc.smtpPort),
		"--http-port", strconv.Itoa(mc.apiPort),
	)

	err = cmd.Start()
	if err != nil {
		return fmt.Errorf("could not start MailCatcher: %v", err)
	}

	mc.proc = cmd.Process

	log.Debug().
		Int("pid", mc.proc.Pid).
		Str("smtp", mc.smtpAddr).
		Str("api", mc.apiURL).
		Msg("launched MailCatcher")

	return nil
}

// waitReady polls the message list until MailCatcher answers or readyTimeout
// elapses.
func (mc *MailCatcher) waitReady() error {
	c, err := transport.NewClient(mc.apiURL)
	if err != nil {
		return err
	}
	r := messages.New(c)

	ctx, cancel := context.WithTimeout(context.Background(), readyTimeout)
	defer cancel()

	for {
		_, err = r.ListMessages(ctx)
		if err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("MailCatcher at %v isn't ready: %v", mc.apiURL, err)
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// Close attempts to gracefully terminate a MailCatcher process we launched
// and, failing that, kill it abruptly. A server we didn't launch is left
// alone.
func (mc *MailCatcher) Close() {
	// If the process isn't running, don't worry about attempting to exit it
	if mc.proc == nil {
		return
	}

	err := mc.proc.Signal(os.Interrupt)
	if err != nil {
		err = mc.proc.Kill()
		if err != nil {
			log.Error().
				Err(err).
				Int("pid", mc.proc.Pid).
				Msg("could not terminate MailCatcher. You'll need to stop it manually")
			return
		}
	}

	// Reap the process
	_, _ = mc.proc.Wait()
}

// SMTPAddress retrieves the address of the SMTP server
func (mc *MailCatcher) SMTPAddress() string {
	return mc.smtpAddr
}

// APIURL retrieves the base URL of the HTTP API
func (mc *MailCatcher) APIURL() string {
	return mc.apiURL
}

// freePort asks the kernel for a port nothing is listening on.
func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("can't find a free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
