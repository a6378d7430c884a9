package sdk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/busantable/busantable/internal/catalog"
	"github.com/busantable/busantable/internal/db"
	dbMemory "github.com/busantable/busantable/internal/db/memory"
	dbRedis "github.com/busantable/busantable/internal/db/redis"
	profilerepo "github.com/busantable/busantable/internal/repository/profile"
	sessionrepo "github.com/busantable/busantable/internal/repository/session"
	"github.com/busantable/busantable/internal/transport/openai"
	"github.com/busantable/busantable/internal/usecase/browse"
	chatuc "github.com/busantable/busantable/internal/usecase/chat"
	"github.com/busantable/busantable/internal/usecase/quality"
	"github.com/busantable/busantable/internal/usecase/recommend"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the busantable SDK entry point.
type Client struct {
	store     db.Store
	browseSvc *browse.Service
	recSvc    *recommend.Service
	qEngine   *quality.Engine
	chatSvc   *chatuc.Service
}

// New creates a Client. The provided context bounds the initial store
// readiness check when the redis driver is configured.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.catalogPath == "" && cfg.catalogRecords == nil {
		return nil, errors.New("busantable: catalog required (use WithCatalogFile or WithRecords)")
	}

	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("busantable: store not ready: %w", err)
	}

	var cat browse.Catalog
	if cfg.catalogRecords != nil {
		cat = catalog.Static(toInternalRecords(cfg.catalogRecords))
	} else {
		cat = catalog.NewFile(cfg.catalogPath, cfg.reloadInterval, logger)
	}

	profileRepo := profilerepo.New(store)
	if cfg.profileTTL > 0 {
		profileRepo = profileRepo.WithMaxIdle(cfg.profileTTL)
	}

	rules := quality.DefaultRules()
	if cfg.idPrefix != "" {
		rules.IDPrefix = cfg.idPrefix
	}

	browseSvc := browse.New(cat)
	recSvc := recommend.New(profileRepo)

	var completer chatuc.Completer = noopCompleter{}
	if cfg.chatAPIKey != "" {
		completer = openai.NewCompleter(&openai.Config{
			APIKey:  cfg.chatAPIKey,
			BaseURL: cfg.chatBaseURL,
			Model:   cfg.chatModel,
			Logger:  logger,
		})
	}
	chatSvc := chatuc.New(browseSvc, recSvc, completer, sessionrepo.New(store), chatuc.Config{
		Timeout: cfg.chatTimeout,
	}, logger)

	return &Client{
		store:     store,
		browseSvc: browseSvc,
		recSvc:    recSvc,
		qEngine:   quality.New(rules),
		chatSvc:   chatSvc,
	}, nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "", "memory":
		return dbMemory.NewStore(), nil
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("busantable: create redis store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("busantable: unknown driver %q", cfg.driver)
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks store connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Restaurants returns the catalog filtering service.
func (c *Client) Restaurants() *RestaurantService {
	return &RestaurantService{svc: c.browseSvc}
}

// Users returns the profile and recommendation service.
func (c *Client) Users() *UserService {
	return &UserService{svc: c.recSvc}
}

// Quality returns the dedup and corruption analysis service.
func (c *Client) Quality() *QualityService {
	return &QualityService{engine: c.qEngine}
}

// Chat returns the conversation service.
func (c *Client) Chat() *ChatService {
	return &ChatService{svc: c.chatSvc}
}

// noopCompleter fails every completion, pushing the conversation service
// onto its canned fallback path (used when no provider key is configured).
type noopCompleter struct{}

func (noopCompleter) Complete(_ context.Context, _, _ string) (string, error) {
	return "", errors.New("busantable: chat provider not configured (use WithChatProvider)")
}
