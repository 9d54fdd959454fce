package invitation

import (
	"github.com/talentgrid/campushire/internal/invitation/repository"
	"github.com/talentgrid/campushire/internal/invitation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invitation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(service.NewSweeper),
	fx.Provide(service.NewCandidateSource),
)
