package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/propsight/propsight/internal/admin"
	"github.com/propsight/propsight/internal/audit"
	"github.com/propsight/propsight/internal/clock"
	"github.com/propsight/propsight/internal/config"
	"github.com/propsight/propsight/internal/migration"
	"github.com/propsight/propsight/internal/observability/metrics"
	"github.com/propsight/propsight/internal/propertydata"
	"github.com/propsight/propsight/internal/propertydata/provider"
	"github.com/propsight/propsight/internal/quota"
	"github.com/propsight/propsight/internal/ratelimit"
	"github.com/propsight/propsight/internal/scheduler"
	"github.com/propsight/propsight/internal/server"
	"github.com/propsight/propsight/pkg/db"
	"github.com/propsight/propsight/pkg/log"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		metrics.Module,
		ratelimit.Module,
		migration.Module,

		// Functional domains
		audit.Module,
		quota.Module,
		provider.Module,
		propertydata.Module,
		admin.Module,
		scheduler.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
