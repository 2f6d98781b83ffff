package providers

import (
	"github.com/smallbiznis/servicedesk/internal/providers/email"
	"github.com/smallbiznis/servicedesk/internal/providers/slack"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	slack.Module,
)
