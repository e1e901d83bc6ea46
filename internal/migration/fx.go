package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	auditdomain "github.com/propsight/propsight/internal/audit/domain"
	"github.com/propsight/propsight/internal/config"
	pddomain "github.com/propsight/propsight/internal/propertydata/domain"
	quotadomain "github.com/propsight/propsight/internal/quota/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		// sqlite (local/dev) has no migration driver wired; gorm's
		// auto-migration covers it.
		return conn.AutoMigrate(
			&pddomain.CacheEntry{},
			&pddomain.HistoricalValuation{},
			&pddomain.UsageLog{},
			&quotadomain.QuotaUsage{},
			&auditdomain.AuditLog{},
		)
	}),
)
