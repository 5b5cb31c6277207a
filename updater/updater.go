package updater

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"rulemerge/config"
	"rulemerge/engine"
	"rulemerge/parser"
	"rulemerge/writer"
)

// ErrNoSources is returned when every source failed to load.
var ErrNoSources = errors.New("no source could be loaded")

// Updater fetches all sources, runs the engine and writes the rule file,
// once or periodically.
type Updater struct {
	cfg  *config.Manager
	now  func() time.Time
	stop chan struct{}
}

// NewUpdater creates a new Updater.
func NewUpdater(cfg *config.Manager) *Updater {
	return &Updater{
		cfg:  cfg,
		now:  time.Now,
		stop: make(chan struct{}),
	}
}

func (u *Updater) Stop() {
	close(u.stop)
}

// Build runs one complete fetch, reduce and write cycle with the current
// configuration. Sources that fail are logged and skipped.
func (u *Updater) Build(ctx context.Context) (*engine.Result, error) {
	cfg := u.cfg.Get()
	logger := log.WithField("run", uuid.NewString())
	start := u.now()

	loader := parser.NewLoader(cfg.Fetch.DataDir,
		parser.WithUserAgent(cfg.Fetch.UserAgent),
		parser.WithTimeout(cfg.Fetch.Timeout),
		parser.WithRetries(cfg.Fetch.Retries, 0),
		parser.WithCacheTTL(cfg.Fetch.CacheTTL),
	)

	sources, err := u.fetchAll(ctx, logger, loader, cfg)
	if err != nil {
		return nil, err
	}

	logger.Infof("Reducing rules from %d sources...", len(sources))
	res := engine.Run(parser.Classifier{Extended: cfg.Fetch.ExtendedSyntax}, sources)

	for _, kind := range parser.Kinds {
		if n := res.Kinds[kind]; n > 0 {
			logger.Debugf("%s: %d", kind, n)
		}
	}
	logger.WithFields(log.Fields{
		"duplicates":     res.Stats.Duplicates,
		"cidr_covered":   res.Stats.CIDRCovered,
		"domain_covered": res.Stats.DomainCovered,
		"suffix_covered": res.Stats.SuffixCovered,
		"cross_kind":     res.Stats.CrossKind,
		"malformed":      res.Stats.Malformed,
	}).Infof("Kept %d rules, removed %d redundant", len(res.Rules), res.Removed())

	meta := writer.Meta{
		Title:        cfg.Output.Title,
		SubscribeURL: cfg.Output.SubscribeURL,
		GeneratedAt:  u.now(),
	}
	if err := writer.WriteFile(cfg.Output.Path, res, meta); err != nil {
		return nil, fmt.Errorf("failed to write '%s': %w", cfg.Output.Path, err)
	}

	logger.Infof("Saved %s in %v", cfg.Output.Path, u.now().Sub(start).Round(time.Millisecond))
	return res, nil
}

// fetchAll loads every source concurrently. The result keeps the configured
// source order and omits sources that failed.
func (u *Updater) fetchAll(ctx context.Context, logger *log.Entry, loader *parser.Loader, cfg *config.Config) ([]engine.Source, error) {
	results := make([]*engine.Source, len(cfg.Sources))

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Fetch.Concurrency > 0 {
		g.SetLimit(cfg.Fetch.Concurrency)
	}

	for i, src := range cfg.Sources {
		i, src := i, src
		g.Go(func() error {
			var (
				lines []string
				err   error
			)
			if src.Path != "" {
				lines, err = loader.LoadFromPath(src.Path)
			} else {
				lines, err = loader.LoadFromURL(gctx, src.URL)
			}

			if err != nil {
				// One broken feed must not cost the others
				logger.Errorf("Failed to load source '%s': %v", src.Name, err)
				return nil
			}

			logger.Infof("Loaded %d lines from '%s'", len(lines), src.Name)
			results[i] = &engine.Source{Name: src.Name, Lines: lines}
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var sources []engine.Source
	for _, s := range results {
		if s != nil {
			sources = append(sources, *s)
		}
	}
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	return sources, nil
}

// Run builds once and then again every configured interval until Stop is
// called or ctx ends. With no interval it returns after the first build.
func (u *Updater) Run(ctx context.Context) error {
	if _, err := u.Build(ctx); err != nil {
		if u.cfg.Get().Interval <= 0 {
			return err
		}
		log.Errorf("Build failed: %v", err)
	}

	for {
		interval := u.cfg.Get().Interval
		if interval <= 0 {
			return nil
		}
		log.Infof("Next build in %v", interval)

		select {
		case <-time.After(interval):
			log.Infoln("Updater triggered...")
			if _, err := u.Build(ctx); err != nil {
				log.Errorf("Build failed: %v", err)
			}
		case <-u.stop:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
