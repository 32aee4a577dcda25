package cmd

import (
	"io"
	"log/slog"

	"censys-toolkit/internal/api"
	"censys-toolkit/internal/config"
	"censys-toolkit/internal/logging"
)

// session holds what every command needs: resolved config and a logger.
type session struct {
	cfg      config.Config
	logger   *slog.Logger
	closeLog io.Closer
}

func newSession(errOut io.Writer) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagDebug {
		cfg.Debug = true
	}
	if flagLogFile != "" {
		cfg.LogFile = flagLogFile
	}

	logger, closer, err := logging.New(logging.Options{
		Debug:  cfg.Debug,
		Quiet:  flagQuiet,
		File:   cfg.LogFile,
		Writer: errOut,
	})
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, closeLog: closer}, nil
}

func (s *session) Close() {
	if s.closeLog != nil {
		s.closeLog.Close()
	}
}

func newClient(cfg config.Config) (*api.Client, error) {
	return api.NewClient(api.Options{
		BaseURL:   cfg.APIURL,
		APIID:     cfg.APIID,
		APISecret: cfg.APISecret,
		Timeout:   cfg.Timeout,
		UserAgent: "censys-toolkit/" + buildVersion(),
	})
}
