package version

import (
	"github.com/smallbiznis/servicedesk/internal/version/repository"
	"github.com/smallbiznis/servicedesk/internal/version/service"
	"go.uber.org/fx"
)

var Module = fx.Module("version.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
