package firm

import (
	"github.com/firmline/firmline/internal/firm/repository"
	"github.com/firmline/firmline/internal/firm/service"
	"go.uber.org/fx"
)

var Module = fx.Module("firm.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
