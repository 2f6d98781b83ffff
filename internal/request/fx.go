package request

import (
	"github.com/smallbiznis/servicedesk/internal/request/cascade"
	"github.com/smallbiznis/servicedesk/internal/request/query"
	"github.com/smallbiznis/servicedesk/internal/request/repository"
	"github.com/smallbiznis/servicedesk/internal/request/service"
	"go.uber.org/fx"
)

var Module = fx.Module("request.service",
	fx.Provide(repository.Provide),
	fx.Provide(cascade.New),
	fx.Provide(service.New),
	fx.Provide(query.New),
)
