package contact

import (
	"github.com/firmline/firmline/internal/contact/repository"
	"github.com/firmline/firmline/internal/contact/service"
	"go.uber.org/fx"
)

var Module = fx.Module("contact.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
