package reaper

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("reaper",
	fx.Provide(ProvideConfig),
	fx.Provide(New),
	fx.Invoke(StartReaper),
)

func StartReaper(lc fx.Lifecycle, r *Reaper) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go r.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
