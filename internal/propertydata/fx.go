package propertydata

import (
	"go.uber.org/fx"

	"github.com/propsight/propsight/internal/propertydata/domain"
	"github.com/propsight/propsight/internal/propertydata/repository"
	"github.com/propsight/propsight/internal/propertydata/service"
	quotadomain "github.com/propsight/propsight/internal/quota/domain"
)

var Module = fx.Module("propertydata.service",
	fx.Provide(repository.Provide),
	fx.Provide(func(repo domain.Repository) quotadomain.UsageStatsSource { return repo }),
	fx.Provide(service.NewService),
)
