package intake

import (
	"github.com/firmline/firmline/internal/intake/repository"
	"github.com/firmline/firmline/internal/intake/service"
	"go.uber.org/fx"
)

var Module = fx.Module("intake.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
