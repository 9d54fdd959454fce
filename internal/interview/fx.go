package interview

import (
	"github.com/talentgrid/campushire/internal/interview/repository"
	"github.com/talentgrid/campushire/internal/interview/service"
	"go.uber.org/fx"
)

var Module = fx.Module("interview.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
