package workspace

import (
	"github.com/smallbiznis/servicedesk/internal/workspace/repository"
	"github.com/smallbiznis/servicedesk/internal/workspace/service"
	"go.uber.org/fx"
)

var Module = fx.Module("workspace.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
