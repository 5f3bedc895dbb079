package encoder

import "github.com/google/wire"

var ProviderSet = wire.NewSet(
	NewQREncoder,
	NewGuarded,
	wire.Bind(new(Encoder), new(*Guarded)),
)
