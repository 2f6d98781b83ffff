package assignee

import (
	"github.com/smallbiznis/servicedesk/internal/assignee/repository"
	"github.com/smallbiznis/servicedesk/internal/assignee/service"
	"go.uber.org/fx"
)

var Module = fx.Module("assignee.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
