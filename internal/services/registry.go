package services

import (
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/contextiq/internal/audit"
	"github.com/fyrsmithlabs/contextiq/internal/config"
	"github.com/fyrsmithlabs/contextiq/internal/extraction"
	"github.com/fyrsmithlabs/contextiq/internal/logging"
	"github.com/fyrsmithlabs/contextiq/internal/secrets"
	"github.com/fyrsmithlabs/contextiq/internal/service"
	"github.com/fyrsmithlabs/contextiq/internal/store"
)

// Registry provides access to the assembled services.
type Registry interface {
	Service() *service.Service
	Store() store.Store
	Scrubber() secrets.Scrubber
	Extractor() *extraction.Extractor
	Audit() audit.Sink

	// Close releases the NATS connection and, when Build opened it, the store.
	Close() error
}

// Options configures Build. Only Config is required.
type Options struct {
	Config *config.Config
	Logger *logging.Logger
	Meter  metric.Meter

	// Store replaces the SQLite store named by Config.Store.Path. The caller
	// keeps ownership and closes it.
	Store store.Store
}

type registry struct {
	service   *service.Service
	store     store.Store
	scrubber  secrets.Scrubber
	extractor *extraction.Extractor
	audit     audit.Sink

	nats      *audit.NATSSink
	ownsStore bool
}

// Build wires the service graph. On error everything opened so far is
// closed again.
func Build(opts Options) (_ Registry, err error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("services: config is required")
	}
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	r := &registry{}
	defer func() {
		if err != nil {
			_ = r.Close()
		}
	}()

	if opts.Store != nil {
		r.store = store.Instrument(opts.Store)
	} else {
		sq, err := store.NewSQLite(store.SQLiteConfig{Path: cfg.Store.Path})
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		r.store = store.Instrument(sq)
		r.ownsStore = true
	}

	if r.scrubber, err = newScrubber(cfg.Secrets); err != nil {
		return nil, fmt.Errorf("secrets scrubber: %w", err)
	}
	if r.extractor, err = newExtractor(cfg.Extraction); err != nil {
		return nil, fmt.Errorf("pattern library: %w", err)
	}

	sinks := audit.Multi{audit.NewStoreSink(r.store)}
	if cfg.Audit.NATSURL != "" {
		var nopts []nats.Option
		if cfg.Audit.NATSToken.IsSet() {
			nopts = append(nopts, nats.Token(cfg.Audit.NATSToken.Value()))
		}
		if r.nats, err = audit.ConnectNATS(cfg.Audit.NATSURL, cfg.Audit.Subject, nopts...); err != nil {
			return nil, err
		}
		sinks = append(sinks, r.nats)
		logger.Underlying().Info("audit publishing to NATS",
			zap.String("url", cfg.Audit.NATSURL),
			zap.String("subject", cfg.Audit.Subject))
	}
	r.audit = sinks

	r.service, err = service.New(service.Options{
		Store:     r.store,
		Extractor: r.extractor,
		Scrubber:  r.scrubber,
		Audit:     r.audit,
		Logger:    logger.Named("service").Underlying(),
		Meter:     opts.Meter,
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func newScrubber(s config.SecretsConfig) (secrets.Scrubber, error) {
	sc := secrets.DefaultConfig()
	sc.Enabled = s.Enabled
	sc.Gitleaks = s.Gitleaks
	sc.AllowListFile = s.AllowListFile
	return secrets.New(sc)
}

func newExtractor(e config.ExtractionConfig) (*extraction.Extractor, error) {
	var (
		lib *extraction.Library
		err error
	)
	if e.PatternsFile != "" {
		lib, err = extraction.LoadLibraryFile(e.PatternsFile)
	} else {
		lib, err = extraction.DefaultLibrary()
	}
	if err != nil {
		return nil, err
	}
	return extraction.NewExtractor(lib, extraction.WithFrequencyBoost(e.FrequencyBoost))
}

func (r *registry) Service() *service.Service        { return r.service }
func (r *registry) Store() store.Store               { return r.store }
func (r *registry) Scrubber() secrets.Scrubber       { return r.scrubber }
func (r *registry) Extractor() *extraction.Extractor { return r.extractor }
func (r *registry) Audit() audit.Sink                { return r.audit }

func (r *registry) Close() error {
	var errs []error
	if r.nats != nil {
		errs = append(errs, r.nats.Close())
		r.nats = nil
	}
	if r.ownsStore && r.store != nil {
		errs = append(errs, r.store.Close())
		r.ownsStore = false
	}
	return errors.Join(errs...)
}
