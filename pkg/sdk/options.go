package sdk

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "memory" or "redis"
	addrs    []string
	password string

	catalogPath    string
	catalogRecords []Restaurant
	reloadInterval time.Duration

	chatAPIKey  string
	chatBaseURL string
	chatModel   string
	chatTimeout time.Duration

	idPrefix   string
	profileTTL time.Duration

	logger *zap.Logger
}

// WithRedis stores profiles and chat sessions in a Redis instance so they
// survive restarts and are shared between processes. The default is an
// in-process store.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithCatalogFile reads the restaurant collection from a JSON file.
// One of WithCatalogFile or WithRecords is required.
func WithCatalogFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.catalogPath = path
	})
}

// WithCatalogReload re-reads the catalog file once the snapshot is older
// than the interval. Default: load once, never reload.
func WithCatalogReload(interval time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.reloadInterval = interval
	})
}

// WithRecords serves the given fixed record collection instead of a file.
func WithRecords(records []Restaurant) Option {
	return optionFunc(func(c *clientConfig) {
		c.catalogRecords = records
	})
}

// WithChatProvider enables model-backed conversation replies. Without it
// Chat().Converse still works but always serves the canned fallback.
// An empty model selects the default.
func WithChatProvider(apiKey, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.chatAPIKey = apiKey
		c.chatModel = model
	})
}

// WithChatBaseURL points the chat provider at an OpenAI-compatible
// endpoint other than the default.
func WithChatBaseURL(baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.chatBaseURL = baseURL
	})
}

// WithChatTimeout bounds the provider wait per turn. Default: 20s.
func WithChatTimeout(timeout time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.chatTimeout = timeout
	})
}

// WithIDPrefix overrides the identifier prefix used when the quality
// engine renumbers a cleaned collection. Default: "busan_".
func WithIDPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.idPrefix = prefix
	})
}

// WithProfileTTL drops profiles idle for longer than the given duration.
// Default: profiles are kept forever.
func WithProfileTTL(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.profileTTL = ttl
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}
