package transaction

import (
	"go.uber.org/fx"

	"github.com/lumostore/topup/internal/app/service/apilog"
	"github.com/lumostore/topup/internal/app/service/catalog"
	"github.com/lumostore/topup/internal/app/service/customer"
	"github.com/lumostore/topup/internal/platform/digiflazz"
)

// Module exposes the transaction orchestrator via Fx. The interface
// bindings keep the service decoupled from the concrete gateway, ledger and
// registry implementations.
var Module = fx.Options(
	fx.Provide(NewStore),
	fx.Provide(func(c *digiflazz.Client) Gateway { return c }),
	fx.Provide(func(s *apilog.Service) Ledger { return s }),
	fx.Provide(func(s *customer.Service) Customers { return s }),
	fx.Provide(func(s *catalog.Service) Catalog { return s }),
	fx.Provide(NewService),
	fx.Invoke(registerRecovery),
)
