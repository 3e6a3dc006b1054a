package repository

import (
	"log/slog"

	"github.com/central-university-dev/go-WebMonitor/internal/config"
	"github.com/central-university-dev/go-WebMonitor/internal/database"
	"github.com/central-university-dev/go-WebMonitor/internal/domain/errors"
	"github.com/central-university-dev/go-WebMonitor/internal/monitor/repository/orm"
	sqlrepo "github.com/central-university-dev/go-WebMonitor/internal/monitor/repository/sql"
	"github.com/central-university-dev/go-WebMonitor/pkg/txs"
)

type Factory struct {
	db        *database.PostgresDB
	txManager *txs.TxManager
	config    *config.Config
	logger    *slog.Logger
}

func NewFactory(db *database.PostgresDB, txManager *txs.TxManager, config *config.Config, logger *slog.Logger) *Factory {
	return &Factory{
		db:        db,
		txManager: txManager,
		config:    config,
		logger:    logger,
	}
}

func (f *Factory) CreateRegistryRepository() (RegistryRepository, error) {
	switch f.config.DatabaseAccessType {
	case config.SquirrelAccess:
		f.logger.Info("Создание ORM (Squirrel) репозитория реестра")
		return orm.NewRegistryRepository(f.db, f.txManager), nil
	case config.SQLAccess:
		f.logger.Info("Создание SQL репозитория реестра")
		return sqlrepo.NewRegistryRepository(f.db), nil
	default:
		return nil, &errors.ErrUnknownDBAccessType{AccessType: string(f.config.DatabaseAccessType)}
	}
}

func (f *Factory) CreateSnapshotRepository() (SnapshotRepository, error) {
	switch f.config.DatabaseAccessType {
	case config.SquirrelAccess:
		f.logger.Info("Создание ORM (Squirrel) репозитория снимков")
		return orm.NewSnapshotRepository(f.db), nil
	case config.SQLAccess:
		f.logger.Info("Создание SQL репозитория снимков")
		return sqlrepo.NewSnapshotRepository(f.db), nil
	default:
		return nil, &errors.ErrUnknownDBAccessType{AccessType: string(f.config.DatabaseAccessType)}
	}
}

func (f *Factory) CreateDigestRepository() (DigestRepository, error) {
	switch f.config.DatabaseAccessType {
	case config.SquirrelAccess:
		f.logger.Info("Создание ORM (Squirrel) репозитория дайджестов")
		return orm.NewDigestRepository(f.db), nil
	case config.SQLAccess:
		f.logger.Info("Создание SQL репозитория дайджестов")
		return sqlrepo.NewDigestRepository(f.db), nil
	default:
		var repo DigestRepository
		return repo, &errors.ErrUnknownDBAccessType{AccessType: string(f.config.DatabaseAccessType)}
	}
}

func (f *Factory) CreateSubscriberRepository() (SubscriberRepository, error) {
	switch f.config.DatabaseAccessType {
	case config.SquirrelAccess:
		f.logger.Info("Создание ORM (Squirrel) репозитория подписчиков")
		return orm.NewSubscriberRepository(f.db), nil
	case config.SQLAccess:
		f.logger.Info("Создание SQL репозитория подписчиков")
		return sqlrepo.NewSubscriberRepository(f.db), nil
	default:
		var repo SubscriberRepository
		return repo, &errors.ErrUnknownDBAccessType{AccessType: string(f.config.DatabaseAccessType)}
	}
}
