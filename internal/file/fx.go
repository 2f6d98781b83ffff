package file

import (
	"github.com/smallbiznis/servicedesk/internal/file/repository"
	"github.com/smallbiznis/servicedesk/internal/file/service"
	"go.uber.org/fx"
)

var Module = fx.Module("file.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
