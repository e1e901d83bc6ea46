package admin

import (
	"go.uber.org/fx"

	"github.com/propsight/propsight/internal/admin/service"
)

var Module = fx.Module("admin.service",
	fx.Provide(service.NewService),
)
