package resources

import (
	"context"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-resources/adapters/gocommand"
	"github.com/goliatone/go-resources/adapters/gologger"
	"github.com/goliatone/go-resources/auth"
	"github.com/goliatone/go-resources/core"
	memstore "github.com/goliatone/go-resources/store/memory"
	sqlstore "github.com/goliatone/go-resources/store/sql"
	"github.com/uptrace/bun"
)

type Option func(*setupOptions)

type setupOptions struct {
	client         *persistence.Client
	db             *bun.DB
	memory         *memstore.Store
	logger         glog.Logger
	loggerProvider glog.LoggerProvider
	metrics        core.MetricsRecorder
	hasher         auth.Hasher
	issuer         auth.TokenIssuer
	secret         string
	now            func() time.Time
	configProvider core.ConfigProvider
	resolver       core.OptionsResolver
	tokenCache     repositorycache.CacheService
	tokenCacheTTL  time.Duration
	commandBus     *gocommand.RegistryAdapter
}

// WithPersistence backs the resources with the tables of a go-persistence-bun
// client. Migrations are registered separately through the migrations
// package.
func WithPersistence(client *persistence.Client) Option {
	return func(o *setupOptions) {
		o.client = client
	}
}

func WithDB(db *bun.DB) Option {
	return func(o *setupOptions) {
		o.db = db
	}
}

// WithMemoryStore backs the resources with an in-process store. Build it with
// auth.MemorySchemas() so documents are validated like the sql schema does.
func WithMemoryStore(store *memstore.Store) Option {
	return func(o *setupOptions) {
		o.memory = store
	}
}

func WithLogger(logger glog.Logger) Option {
	return func(o *setupOptions) {
		o.logger = logger
	}
}

func WithLoggerProvider(provider glog.LoggerProvider) Option {
	return func(o *setupOptions) {
		o.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(o *setupOptions) {
		o.metrics = recorder
	}
}

func WithHasher(hasher auth.Hasher) Option {
	return func(o *setupOptions) {
		o.hasher = hasher
	}
}

// WithTokenIssuer replaces the JWT issuer built from the signing secret.
func WithTokenIssuer(issuer auth.TokenIssuer) Option {
	return func(o *setupOptions) {
		o.issuer = issuer
	}
}

func WithSigningSecret(secret string) Option {
	return func(o *setupOptions) {
		o.secret = secret
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *setupOptions) {
		o.now = now
	}
}

func WithConfigProvider(provider core.ConfigProvider) Option {
	return func(o *setupOptions) {
		o.configProvider = provider
	}
}

func WithOptionsResolver(resolver core.OptionsResolver) Option {
	return func(o *setupOptions) {
		o.resolver = resolver
	}
}

// WithTokenCache puts a go-repository-cache service in front of token
// decoding.
func WithTokenCache(cache repositorycache.CacheService) Option {
	return func(o *setupOptions) {
		o.tokenCache = cache
	}
}

// WithTokenCacheTTL builds a default cache service with the given ttl when no
// cache is supplied.
func WithTokenCacheTTL(ttl time.Duration) Option {
	return func(o *setupOptions) {
		o.tokenCacheTTL = ttl
	}
}

// WithCommandBus subscribes the auth and invitation handlers to the
// go-command dispatcher through adapter.
func WithCommandBus(adapter *gocommand.RegistryAdapter) Option {
	return func(o *setupOptions) {
		o.commandBus = adapter
	}
}

// Resources is the wired authentication stack.
type Resources struct {
	config      Config
	observer    *core.Observer
	coordinator core.TransactionCoordinator

	workflow    *auth.Workflow
	invitations *auth.InvitationService
	accounts    *auth.AccountService
	tokens      *auth.TokenService

	wiring *gocommand.Wiring
}

// Setup resolves configuration, picks the backing store and wires the
// workflow and the administrative services. Runtime values in cfg override
// loaded configuration.
func Setup(ctx context.Context, cfg Config, opts ...Option) (*Resources, error) {
	options := setupOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&options)
	}

	resolved, err := core.ResolveConfig(ctx, options.configProvider, options.resolver, cfg)
	if err != nil {
		return nil, err
	}

	observer := gologger.Observer(resolved.ServiceName, options.loggerProvider, options.logger, options.metrics)
	logger := observer.Logger()

	backend, err := resolveBackend(options, logger)
	if err != nil {
		return nil, err
	}

	hasher := options.hasher
	if hasher == nil {
		hasher = auth.BcryptHasher{}
	}
	issuer := options.issuer
	if issuer == nil {
		if strings.TrimSpace(options.secret) == "" {
			return nil, core.InternalError("resources: signing secret or token issuer is required")
		}
		jwtOpts := []auth.JWTOption{}
		if options.now != nil {
			jwtOpts = append(jwtOpts, auth.WithJWTClock(options.now))
		}
		issuer, err = auth.NewJWTIssuer(options.secret, resolved.Auth, jwtOpts...)
		if err != nil {
			return nil, err
		}
	}
	decoder, err := resolveDecoder(issuer, options)
	if err != nil {
		return nil, err
	}

	workflow, err := auth.NewWorkflow(auth.WorkflowDependencies{
		Coordinator: backend.coordinator,
		Accounts:    backend.accounts,
		Invitations: backend.invitations,
		Tokens:      backend.tokens,
		Hasher:      hasher,
		Issuer:      issuer,
		Decoder:     decoder,
		Observer:    observer,
		Config:      resolved.Auth,
		Now:         options.now,
	})
	if err != nil {
		return nil, err
	}

	runner := core.NewRunner(backend.coordinator, observer)
	transforms := auth.Transforms{
		Hasher:     hasher,
		MaxRoles:   resolved.Auth.MaxRoles,
		RefreshTTL: resolved.Auth.RefreshTTL,
		Now:        options.now,
	}
	res := &Resources{
		config:      resolved,
		observer:    observer,
		coordinator: backend.coordinator,
		workflow:    workflow,
		invitations: auth.NewInvitationService(runner, backend.invitations, transforms),
		accounts:    auth.NewAccountService(runner, backend.accounts, transforms),
		tokens:      auth.NewTokenService(runner, backend.tokens, transforms),
	}

	if options.commandBus != nil {
		res.wiring = gocommand.NewWiring(options.commandBus)
		if err := gocommand.RegisterAuth(res.wiring, workflow); err != nil {
			res.Close()
			return nil, err
		}
		if err := gocommand.RegisterInvitations(res.wiring, res.invitations, res.Links(auth.InvitationLinks())); err != nil {
			res.Close()
			return nil, err
		}
	}
	return res, nil
}

type storeBackend struct {
	coordinator core.TransactionCoordinator
	accounts    core.Provider[auth.Account]
	invitations core.Provider[auth.Invitation]
	tokens      core.OwnedProvider[auth.TokenEntry]
}

func resolveBackend(options setupOptions, logger core.Logger) (storeBackend, error) {
	switch {
	case options.client != nil || options.db != nil:
		var (
			factory *sqlstore.RepositoryFactory
			err     error
		)
		if options.client != nil {
			factory, err = sqlstore.NewRepositoryFactoryFromPersistence(options.client, sqlstore.WithFactoryLogger(logger))
		} else {
			factory, err = sqlstore.NewRepositoryFactoryFromDB(options.db, sqlstore.WithFactoryLogger(logger))
		}
		if err != nil {
			return storeBackend{}, err
		}
		return storeBackend{
			coordinator: factory.Coordinator(),
			accounts:    factory.AccountProvider(),
			invitations: factory.InvitationProvider(),
			tokens:      factory.TokenProvider(),
		}, nil
	default:
		store := options.memory
		if store == nil {
			logger.Warn("resources: no backing store configured, using an in-memory store")
			store = memstore.New(append(auth.MemorySchemas(), memstore.WithLogger(logger))...)
		}
		return storeBackend{
			coordinator: store,
			accounts:    memstore.NewProvider[auth.Account](store, auth.CollectionAccounts),
			invitations: memstore.NewProvider[auth.Invitation](store, auth.CollectionInvitations),
			tokens:      memstore.NewOwnedProvider[auth.TokenEntry](store, auth.CollectionRefreshTokens),
		}, nil
	}
}

func resolveDecoder(issuer auth.TokenIssuer, options setupOptions) (auth.TokenDecoder, error) {
	cache := options.tokenCache
	if cache == nil && options.tokenCacheTTL > 0 {
		config := repositorycache.DefaultConfig()
		config.TTL = options.tokenCacheTTL
		service, err := repositorycache.NewCacheService(config)
		if err != nil {
			return nil, fmt.Errorf("resources: token cache: %w", err)
		}
		cache = service
	}
	if cache == nil {
		return issuer, nil
	}
	decoder, err := auth.NewCachedTokenDecoder(issuer, cache)
	if err != nil {
		return nil, err
	}
	if options.now != nil {
		decoder.WithClock(options.now)
	}
	return decoder, nil
}

func (r *Resources) Config() Config {
	if r == nil {
		return Config{}
	}
	return r.config
}

func (r *Resources) Coordinator() core.TransactionCoordinator {
	if r == nil {
		return nil
	}
	return r.coordinator
}

func (r *Resources) Observer() *core.Observer {
	if r == nil {
		return core.NopObserver()
	}
	return r.observer
}

func (r *Resources) Workflow() *auth.Workflow {
	if r == nil {
		return nil
	}
	return r.workflow
}

func (r *Resources) Invitations() *auth.InvitationService {
	if r == nil {
		return nil
	}
	return r.invitations
}

func (r *Resources) Accounts() *auth.AccountService {
	if r == nil {
		return nil
	}
	return r.accounts
}

func (r *Resources) Tokens() *auth.TokenService {
	if r == nil {
		return nil
	}
	return r.tokens
}

// Links applies the configured discovery suffix to policy.
func (r *Resources) Links(policy LinkPolicy) LinkPolicy {
	if r != nil && r.config.Links.DiscoverySuffix != "" {
		policy.DiscoverySuffix = r.config.Links.DiscoverySuffix
	}
	return policy
}

// Close releases the command bus subscriptions. The backing store is owned by
// the caller.
func (r *Resources) Close() {
	if r == nil || r.wiring == nil {
		return
	}
	r.wiring.Close()
	r.wiring = nil
}
