package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/KAsare1/subscriptions-server/cmd/models"
	"github.com/KAsare1/subscriptions-server/config"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists every table the service owns, parents first.
var Models = []interface{}{
	&models.User{},
	&models.Subscription{},
}

// NewStorage opens the process-wide database handle for the configured driver.
// Callers own the handle and must Close it on shutdown.
func NewStorage(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DBURL)
	case "sqlite":
		dialector = sqlite.Open(SQLiteDSN(cfg.DBURL))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}

	level := logger.Error
	if cfg.IsDevelopment() {
		level = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(zap.NewStdLog(log), logger.Config{
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DBDriver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if cfg.DBDriver == "sqlite" {
		// SQLite serializes writers; one connection also keeps :memory: databases shared.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}

	return db, nil
}

// SQLiteDSN enables foreign keys on a sqlite path, keeping any query
// parameters the path already carries.
func SQLiteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Migrate creates or updates every table in Models.
func Migrate(db *gorm.DB, log *zap.Logger) error {
	for _, model := range Models {
		log.Info("migrating table", zap.String("model", fmt.Sprintf("%T", model)))
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migrate %T: %w", model, err)
		}
	}
	return nil
}

// Drop removes the given tables, children first. An empty list drops everything.
func Drop(db *gorm.DB, log *zap.Logger, tables []interface{}) error {
	if len(tables) == 0 {
		for i := len(Models) - 1; i >= 0; i-- {
			tables = append(tables, Models[i])
		}
	}
	for _, table := range tables {
		if err := db.Migrator().DropTable(table); err != nil {
			return fmt.Errorf("drop %T: %w", table, err)
		}
		log.Info("table dropped", zap.String("model", fmt.Sprintf("%T", table)))
	}
	return nil
}

// Ping checks that the database answers.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
