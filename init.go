package teamup

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/huykn/teamup-client/api"
	"github.com/huykn/teamup-client/cache"
	"github.com/huykn/teamup-client/httpclient"
	"github.com/huykn/teamup-client/metrics"
	"github.com/huykn/teamup-client/query"
	"github.com/huykn/teamup-client/storage"
	"github.com/huykn/teamup-client/store"
	cachesync "github.com/huykn/teamup-client/sync"
	"github.com/huykn/teamup-client/token"
)

// Config configures a Client.
type Config struct {
	// BaseURL is the platform API root, e.g. "https://api.teamup.example.edu/api".
	BaseURL string

	// Timeout bounds every request that does not set its own.
	Timeout time.Duration

	// UserAgent is sent with every request. Defaults to UserAgent().
	UserAgent string

	// ClientID identifies this client in invalidation events.
	// If empty, a random UUID is used.
	ClientID string

	// QueryDefaults are the freshness and retry settings for every query
	// family that does not override them.
	QueryDefaults QueryOptions

	// LocalCacheConfig configures the query cache storage.
	LocalCacheConfig LocalCacheConfig

	// LocalCacheFactory is the factory for creating local cache instances.
	// If nil, defaults to the LRU factory.
	LocalCacheFactory LocalCacheFactory

	// RedisAddr enables Redis-backed snapshots and invalidation broadcast
	// (e.g., "localhost:6379"). Empty keeps everything in process.
	RedisAddr string

	// RedisPassword is the optional Redis password.
	RedisPassword string

	// RedisDB is the Redis database number.
	RedisDB int

	// SnapshotPrefix namespaces snapshot keys in Redis.
	SnapshotPrefix string

	// InvalidationChannel is the Redis pub/sub channel for cache invalidation.
	InvalidationChannel string

	// Synchronizer shares invalidations when RedisAddr is empty, e.g. a
	// sync.LocalSynchronizer. Optional.
	Synchronizer Synchronizer

	// Cookies holds the tokens. If nil, tokens live in memory.
	Cookies token.CookieStore

	// Identity is the external sign-in provider. If nil, SignInWithGoogle
	// fails with ErrUnauthenticated and sessions come from stored tokens.
	Identity store.IdentityProvider

	// Logger is the logger for debug logging.
	// If nil, defaults to no-op logger.
	Logger Logger

	// DebugMode enables debug logging.
	DebugMode bool

	// ContextTimeout bounds background cache work.
	ContextTimeout time.Duration

	// EnableMetrics creates a metrics.Collector fed by the client.
	EnableMetrics bool

	// MetricsNamespace prefixes metric names.
	MetricsNamespace string

	// OnError is called when an error occurs in background operations.
	OnError func(error)
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:             "https://api.teamup.example.edu/api",
		Timeout:             httpclient.DefaultTimeout,
		QueryDefaults:       cache.DefaultQueryOptions(),
		LocalCacheConfig:    DefaultLocalCacheConfig(),
		SnapshotPrefix:      "teamup:",
		InvalidationChannel: "teamup:invalidate",
		ContextTimeout:      5 * time.Second,
		MetricsNamespace:    "teamup",
		LocalCacheFactory:   nil, // Will default to LRU in New()
		Logger:              nil, // Will default to no-op in New()
		DebugMode:           false,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL is required", ErrInvalidConfig)
	}
	if c.Timeout < 0 || c.ContextTimeout < 0 {
		return fmt.Errorf("%w: negative timeout", ErrInvalidConfig)
	}
	if c.RedisAddr != "" && c.InvalidationChannel == "" {
		return fmt.Errorf("%w: invalidation channel is required with Redis", ErrInvalidConfig)
	}
	return nil
}

// Client is the assembled data layer: credentials, HTTP, query cache,
// generated hooks and domain stores.
type Client struct {
	Tokens  *token.Manager
	HTTP    *httpclient.Client
	Cache   *cache.QueryCache
	Queries *query.Factory
	API     *api.API

	Auth    *store.AuthStore
	Profile *store.ProfileStore
	Groups  *store.GroupStore
	Posts   *store.PostStore

	// Metrics is nil unless EnableMetrics is set.
	Metrics *metrics.Collector

	snapshots storage.Store
	logger    Logger

	initMu sync.Mutex
	inited bool
}

// New assembles a client. Nothing talks to the network except the Redis
// connection check when RedisAddr is set.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ClientID == "" {
		cfg.ClientID = uuid.NewString()
	}
	if cfg.Logger == nil {
		cfg.Logger = cache.NewNoOpLogger()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = UserAgent()
	}
	if cfg.Cookies == nil {
		cfg.Cookies = token.NewMemoryCookieStore()
	}
	if cfg.Identity == nil {
		cfg.Identity = noIdentity{}
	}
	if cfg.QueryDefaults == (QueryOptions{}) {
		cfg.QueryDefaults = cache.DefaultQueryOptions()
	}
	if cfg.LocalCacheFactory == nil && cfg.LocalCacheConfig.MaxSize <= 0 {
		cfg.LocalCacheConfig = DefaultLocalCacheConfig()
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	tokens := token.NewManager(cfg.Cookies,
		token.WithSecure(base.Scheme == "https"),
		token.WithLogger(cfg.Logger),
	)

	c := &Client{Tokens: tokens, logger: cfg.Logger}

	hcfg := httpclient.Config{
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.Timeout,
		UserAgent: cfg.UserAgent,
		Logger:    cfg.Logger,
		DebugMode: cfg.DebugMode,
	}
	if cfg.EnableMetrics {
		c.Metrics = metrics.NewCollector(cfg.MetricsNamespace)
		hcfg.OnResponse = c.Metrics.ObserveResponse
	}
	c.HTTP, err = httpclient.New(hcfg, tokens)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	synchronizer := cfg.Synchronizer
	if cfg.RedisAddr != "" {
		rs, err := storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.SnapshotPrefix)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisConnection, err)
		}
		c.snapshots = rs
		synchronizer = cachesync.NewPubSubSynchronizer(rs.GetClient(), cfg.InvalidationChannel, cfg.ClientID)
	} else {
		c.snapshots = storage.NewMemoryStore()
	}

	c.Cache, err = cache.New(cache.Options{
		ClientID:          cfg.ClientID,
		LocalCacheConfig:  cfg.LocalCacheConfig,
		LocalCacheFactory: cfg.LocalCacheFactory,
		Synchronizer:      synchronizer,
		Defaults:          cfg.QueryDefaults,
		Logger:            cfg.Logger,
		DebugMode:         cfg.DebugMode,
		ContextTimeout:    cfg.ContextTimeout,
		OnError:           cfg.OnError,
	})
	if err != nil {
		c.snapshots.Close()
		return nil, err
	}
	if c.Metrics != nil {
		c.Metrics.Watch(c.Cache)
	}

	c.Queries = query.NewFactory(c.Cache, c.HTTP, cfg.Logger)
	c.API = api.New(c.Queries)

	c.Profile = store.NewProfileStore(c.API, c.Queries, c.snapshots, cfg.Logger)
	c.Groups = store.NewGroupStore(c.API)
	c.Posts = store.NewPostStore(c.API)
	c.Auth, err = store.NewAuthStore(store.AuthConfig{
		Sessions:   c.API,
		Tokens:     tokens,
		Identity:   cfg.Identity,
		Profile:    c.Profile,
		Dependents: []store.Resetter{c.Groups, c.Posts},
		Snapshots:  c.snapshots,
		Logger:     cfg.Logger,
	})
	if err != nil {
		c.Close()
		return nil, err
	}

	return c, nil
}

// Init restores persisted state and starts listening to the identity
// provider. It runs once; later calls return nil until Reset.
func (c *Client) Init(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	if c.inited {
		return nil
	}
	if err := c.Auth.Init(ctx); err != nil {
		return err
	}
	c.inited = true
	return nil
}

// SignOut signs out and drops every cached query.
func (c *Client) SignOut(ctx context.Context) error {
	err := c.Auth.SignOut(ctx)
	if cerr := c.Cache.Clear(ctx); cerr != nil {
		err = errors.Join(err, cerr)
	}
	return err
}

// Reset clears tokens, stores and the query cache and returns the client
// to its state before Init.
func (c *Client) Reset(ctx context.Context) error {
	c.Tokens.ClearTokens()

	var errs []error
	for _, r := range []store.Resetter{c.Profile, c.Groups, c.Posts, c.Auth} {
		if err := r.Reset(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.Cache.Clear(ctx); err != nil {
		errs = append(errs, err)
	}

	c.initMu.Lock()
	c.inited = false
	c.initMu.Unlock()
	return errors.Join(errs...)
}

// Close releases the cache, the synchronizer and the snapshot store.
func (c *Client) Close() error {
	return errors.Join(c.Cache.Close(), c.snapshots.Close())
}

// noIdentity is used when no external provider is configured.
type noIdentity struct{}

func (noIdentity) SignIn(context.Context) (*store.Identity, error) {
	return nil, ErrUnauthenticated
}

func (noIdentity) SignOut(context.Context) error { return nil }

func (noIdentity) OnStateChange(fn func(*store.Identity)) func() {
	fn(nil)
	return func() {}
}
