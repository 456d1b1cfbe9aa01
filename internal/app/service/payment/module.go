package payment

import "go.uber.org/fx"

// Module exposes the payment processor via Fx.
var Module = fx.Options(
	fx.Provide(NewProcessor),
)
