package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"listingpilot/config"
	"listingpilot/journal"
	"listingpilot/review"
	"listingpilot/sheet"
	"listingpilot/transformer"
)

const userAgent = "listingpilot/1.0"

// newTransformer builds the client selected by transformer.mode.
func newTransformer(cfg *config.Config) (transformer.Transformer, error) {
	switch cfg.Transformer.Mode {
	case config.ModeBackend:
		return transformer.NewBackendClient(transformer.BackendConfig{
			BaseURL:   cfg.Transformer.URL,
			UserAgent: userAgent,
			Timeout:   cfg.Transformer.Timeout(),
		})
	case config.ModeChat:
		key := cfg.Chat.APIKey()
		if key == "" {
			return nil, fmt.Errorf("chat mode needs an API key in $%s (environment or .env file)", cfg.Chat.APIKeyEnv)
		}
		return transformer.NewChatClient(transformer.ChatConfig{
			BaseURL: cfg.Chat.BaseURL,
			APIKey:  key,
			Model:   cfg.Chat.Model,
			Timeout: cfg.Transformer.Timeout(),
		})
	default:
		return nil, fmt.Errorf("unsupported transformer mode: %s (supported: %s, %s)", cfg.Transformer.Mode, config.ModeBackend, config.ModeChat)
	}
}

func reviewOptions(cfg *config.Config) review.Options {
	return review.Options{
		Window:             sheet.Window{Rows: cfg.Sheet.HeaderRows, Columns: cfg.Sheet.HeaderCols},
		HeaderMarkers:      cfg.Sheet.HeaderMarkers,
		TitleMarkers:       cfg.Review.TitleMarkers,
		DescriptionMarkers: cfg.Review.DescriptionMarkers,
		Category:           cfg.Transformer.Category,
		AppliedColor:       cfg.Review.AppliedColor,
		ChangedColor:       cfg.Review.ChangedColor,
	}
}

// newLogger writes engine diagnostics as text to w.
func newLogger(w io.Writer, level string) (*logrus.Logger, error) {
	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level: %w", err)
	}
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(parsed)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return logger, nil
}

// session bundles what every sheet command opens and must close.
type session struct {
	cfg        *config.Config
	host       sheet.Workbook
	journal    *journal.Store
	controller *review.Controller
	logger     *logrus.Logger
}

// openSession loads the config, opens the workbook and the journal and wires
// a controller. sheetName overrides sheet.name when set.
func openSession(errOut io.Writer, file, sheetName, outputPath string) (*session, error) {
	cfg, err := config.LoadAndValidate()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(sheetName) != "" {
		cfg.Sheet.Name = sheetName
	}

	logger, err := newLogger(errOut, logLevel)
	if err != nil {
		return nil, err
	}

	client, err := newTransformer(cfg)
	if err != nil {
		return nil, err
	}

	host, err := sheet.Open(file, cfg.Sheet.Name, outputPath)
	if err != nil {
		return nil, err
	}

	store, err := journal.Open(cfg.Journal.DSN)
	if err != nil {
		_ = host.Close()
		return nil, err
	}

	return &session{
		cfg:        cfg,
		host:       host,
		journal:    store,
		controller: review.NewController(host, client, store, reviewOptions(cfg), logger),
		logger:     logger,
	}, nil
}

func (s *session) Close() error {
	journalErr := s.journal.Close()
	hostErr := s.host.Close()
	if journalErr != nil {
		return journalErr
	}
	return hostErr
}
