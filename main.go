package main

import (
	"flag"
	"os"
	"os/signal"

	"github.com/ptgott/mailassert/smtptest"
	"github.com/ptgott/mailassert/userconfig"

	"github.com/rs/zerolog/log"
)

// Runs the fake mail-capturing service on its own so test suites that can't
// start it in-process (e.g., ones driving another binary) can point their
// mailassert config at it.
func main() {
	// Log with filename and line number. This writes to stderr, so it should
	// be thread safe.
	// https://github.com/rs/zerolog/blob/7ccd4c940bf8a02fcc5f10e5475f9d3daff04d57/log/log.go#L13
	log.Logger = log.With().Caller().Logger()

	configPath := flag.String(
		"config",
		"",
		"path to a YAML file containing your configuration. Uses the defaults if empty",
	)
	level := flag.String(
		"level",
		"",
		`log level: "info", "debug", or "warn". Overrides the config file`,
	)
	listAsObject := flag.Bool(
		"objectlist",
		false,
		"list messages as a JSON object keyed by ID instead of an array",
	)
	flag.Parse()

	config := userconfig.Default()

	if *configPath != "" {
		c, err := userconfig.Load(*configPath)
		if err != nil {
			log.Error().
				Str("config-path", *configPath).
				Err(err).
				Msg("Problem loading your config")
			os.Exit(1)
		}
		config = *c
	}

	if *level != "" {
		config.Logging.Level = *level
		l, err := config.Logging.CheckAndSetDefaults()
		if err != nil {
			log.Error().
				Err(err).
				Msg("Problem validating the log level")
			os.Exit(1)
		}
		config.Logging = l
	}
	config.Logging.Apply()

	srv, err := smtptest.NewServer(smtptest.ServerConfig{
		SMTPAddress: config.FakeService.SMTPAddress,
		APIAddress:  config.FakeService.HTTPAddress,
		Storage:     config.FakeService.Storage,
	})
	if err != nil {
		log.Error().
			Err(err).
			Msg("can't start the fake mail-capturing service")
		os.Exit(1)
	}
	srv.SetListAsObject(*listAsObject)

	if err := srv.Start(); err != nil {
		log.Error().
			Err(err).
			Msg("can't start the fake mail-capturing service")
		srv.Close()
		os.Exit(1)
	}

	log.Info().
		Str("smtp", srv.SMTPAddress()).
		Str("api", srv.APIURL()).
		Str("storageDir", config.FakeService.Storage.StorageDirPath).
		Msg("the fake mail-capturing service is running")

	// Block until an interrupt so we can close the store cleanly.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	<-sigCh

	log.Info().Msg("interrupt: exiting")
	srv.Close()
}
