package notification

import (
	"github.com/smallbiznis/servicedesk/internal/notification/publisher"
	"github.com/smallbiznis/servicedesk/internal/notification/repository"
	"github.com/smallbiznis/servicedesk/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(repository.Provide),
	fx.Provide(publisher.New),
	fx.Provide(service.New),
)
