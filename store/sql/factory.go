package sqlstore

import (
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-resources/auth"
	"github.com/goliatone/go-resources/core"
	"github.com/uptrace/bun"
)

// RepositoryFactory wires the resource tables and the transaction
// coordinator around one bun database.
type RepositoryFactory struct {
	db     *bun.DB
	logger core.Logger

	coordinator   *Coordinator
	accounts      *Provider[auth.Account, accountRecord]
	invitations   *Provider[auth.Invitation, invitationRecord]
	refreshTokens *OwnedProvider[auth.TokenEntry, refreshTokenRecord]
}

type FactoryOption func(*RepositoryFactory)

func WithFactoryLogger(logger core.Logger) FactoryOption {
	return func(f *RepositoryFactory) {
		f.logger = logger
	}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client, opts ...FactoryOption) (*RepositoryFactory, error) {
	if client == nil {
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	}
	return newRepositoryFactory(client, opts...)
}

func NewRepositoryFactoryFromDB(db *bun.DB, opts ...FactoryOption) (*RepositoryFactory, error) {
	return newRepositoryFactory(db, opts...)
}

func newRepositoryFactory(candidate any, opts ...FactoryOption) (*RepositoryFactory, error) {
	db, err := resolveBunDB(candidate)
	if err != nil {
		return nil, err
	}
	factory := &RepositoryFactory{db: db}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(factory)
	}
	if err := factory.initStores(); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) Coordinator() core.TransactionCoordinator {
	if f == nil {
		return nil
	}
	return f.coordinator
}

func (f *RepositoryFactory) AccountProvider() core.Provider[auth.Account] {
	if f == nil {
		return nil
	}
	return f.accounts
}

func (f *RepositoryFactory) InvitationProvider() core.Provider[auth.Invitation] {
	if f == nil {
		return nil
	}
	return f.invitations
}

func (f *RepositoryFactory) TokenProvider() core.OwnedProvider[auth.TokenEntry] {
	if f == nil {
		return nil
	}
	return f.refreshTokens
}

func (f *RepositoryFactory) initStores() error {
	if err := validateHandlers[accountRecord](f.db, "account", accountHandlers()); err != nil {
		return err
	}
	if err := validateHandlers[invitationRecord](f.db, "invitation", invitationHandlers()); err != nil {
		return err
	}
	if err := validateHandlers[refreshTokenRecord](f.db, "refresh token", refreshTokenHandlers()); err != nil {
		return err
	}

	f.coordinator = NewCoordinator(f.db, WithCoordinatorLogger(f.logger))
	f.accounts = NewProvider(f.db, "account", accountMapper(), accountHandlers())
	f.invitations = NewProvider(f.db, "invitation", invitationMapper(), invitationHandlers())
	f.refreshTokens = NewOwnedProvider(f.db, "refresh token", refreshTokenMapper(), refreshTokenHandlers())
	return nil
}

func validateHandlers[R any](db *bun.DB, subject string, handlers repository.ModelHandlers[*R]) error {
	repo := repository.NewRepository[*R](db, handlers)
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid %s repository wiring: %w", subject, err)
		}
	}
	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		if typed == nil {
			return nil, fmt.Errorf("sqlstore: bun db is required")
		}
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
