package knowledge

import (
	"github.com/firmline/firmline/internal/knowledge/repository"
	"github.com/firmline/firmline/internal/knowledge/service"
	"go.uber.org/fx"
)

var Module = fx.Module("knowledge.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
