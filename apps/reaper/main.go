package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/talentgrid/campushire/internal/clock"
	"github.com/talentgrid/campushire/internal/config"
	"github.com/talentgrid/campushire/internal/eligibility"
	"github.com/talentgrid/campushire/internal/invitation"
	"github.com/talentgrid/campushire/internal/observability"
	"github.com/talentgrid/campushire/internal/ratelimit"
	"github.com/talentgrid/campushire/internal/reaper"
	"github.com/talentgrid/campushire/pkg/db"
)

// Standalone expiry reaper. The redis lock in ratelimit keeps
// concurrent replicas from double-sweeping.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		eligibility.Module,
		invitation.Module,
		ratelimit.Module,

		// No server module
		reaper.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
