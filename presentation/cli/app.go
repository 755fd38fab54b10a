package cli

import (
	"context"
	"errors"
	"fmt"

	"cartbot/application/driver"
	"cartbot/application/locator"
	"cartbot/application/probe"
	"cartbot/domain/entities"
	"cartbot/domain/interfaces"
	"cartbot/infrastructure/ai"
	"cartbot/infrastructure/browser"
	"cartbot/infrastructure/config"
	"cartbot/infrastructure/ocr"
	"cartbot/infrastructure/ocr/tesseract"
	"cartbot/infrastructure/security"
	"cartbot/infrastructure/storage"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// errBrowserStart marks a browser that failed to launch
var errBrowserStart = errors.New("failed to initialize browser")

// App owns every collaborator of a run
type App struct {
	driver  *driver.Driver
	session interfaces.Session
	closers []func() error
	logger  *logrus.Logger
}

// NewApp wires the adapters, the locators and the browser session.
// The browser is started last so that adapter misconfiguration never opens it.
func NewApp(cfg *config.Config, logger *logrus.Logger) (*App, error) {
	app := &App{logger: logger}

	classifier, err := ai.NewOpenAIClient(ai.Options{
		APIKey:  cfg.OpenAIKey,
		Model:   cfg.OpenAIModel,
		BaseURL: cfg.OpenAIBaseURL,
		Timeout: cfg.AdapterTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AI service: %w", err)
	}

	registry, err := app.recognizers(cfg, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	searchRec, err := registry.Select(cfg.SearchBoxOCR)
	if err != nil {
		app.Close()
		return nil, err
	}
	productRec, err := registry.Select(cfg.ProductOCR)
	if err != nil {
		app.Close()
		return nil, err
	}
	cartRec, err := registry.Select(cfg.AddToCartOCR)
	if err != nil {
		app.Close()
		return nil, err
	}

	p, err := probe.NewProbe(cfg.SamplesDir, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	history, err := storage.NewRunHistory(cfg.HistoryPath, logger)
	if err != nil {
		logger.Warnf("Run history disabled: %v", err)
		history = nil
	}

	session, err := openSession(cfg, logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("%w: %w", errBrowserStart, err)
	}
	app.session = session
	app.closers = append(app.closers, session.Close)

	app.driver = driver.NewDriver(
		session,
		classifier,
		security.NewSecurityLayer(cfg.BlockedHosts, cfg.AllowPrivateHosts, logger),
		driver.Locators{
			SearchBox: locator.NewSearchBoxLocator(p, searchRec, classifier, logger),
			Product:   locator.NewProductLocator(p, productRec, logger),
			AddToCart: locator.NewAddToCartLocator(p, cartRec, logger),
		},
		history,
		logger,
		driver.Timings{
			NavigationTimeout: cfg.NavigationTimeout,
			SettleTimeout:     cfg.SettleTimeout,
			TabSpawnTimeout:   cfg.TabSpawnTimeout,
			TabPollInterval:   driver.DefaultTimings().TabPollInterval,
			PointerPause:      cfg.PointerPause,
		},
	)
	return app, nil
}

func (a *App) recognizers(cfg *config.Config, logger *logrus.Logger) (*ocr.Registry, error) {
	registry := ocr.NewRegistry()
	if cfg.UsesBackend(entities.BackendCloud) {
		cloud, err := ocr.NewOCRSpaceClient(cfg.OCRSpaceKey, cfg.OCRSpaceEndpoint, cfg.AdapterTimeout, logger)
		if err != nil {
			return nil, err
		}
		registry.Register(entities.BackendCloud, cloud)
	}
	if cfg.UsesBackend(entities.BackendLocal) {
		local, err := tesseract.NewRecognizer(logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tesseract: %w", err)
		}
		a.closers = append(a.closers, local.Close)
		registry.Register(entities.BackendLocal, local)
	}
	return registry, nil
}

func openSession(cfg *config.Config, logger *logrus.Logger) (interfaces.Session, error) {
	opts := browser.Options{
		Headless:          cfg.Headless,
		NavigationTimeout: cfg.NavigationTimeout,
		ActionTimeout:     cfg.AdapterTimeout,
		DriverPath:        cfg.DriverPath,
		ChromeBinary:      cfg.ChromeBinary,
		DriverPort:        cfg.DriverPort,
	}
	if cfg.BrowserBackend == config.BackendSelenium {
		return browser.NewSeleniumSession(opts, logger)
	}
	return browser.NewPlaywrightSession(opts, logger)
}

// Run executes one command
func (a *App) Run(ctx context.Context, command string) entities.Outcome {
	return a.driver.Run(ctx, command)
}

// Close releases the browser and the local recognizer
func (a *App) Close() error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i]())
	}
	a.closers = nil
	return err
}
