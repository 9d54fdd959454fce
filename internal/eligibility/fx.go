package eligibility

import (
	"github.com/talentgrid/campushire/internal/eligibility/repository"
	"github.com/talentgrid/campushire/internal/eligibility/service"
	"go.uber.org/fx"
)

var Module = fx.Module("eligibility.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
