package quota

import (
	"go.uber.org/fx"

	"github.com/propsight/propsight/internal/quota/service"
)

var Module = fx.Module("quota.service",
	fx.Provide(service.NewService),
)
