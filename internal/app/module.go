package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/lumostore/topup/internal/app/api/server"
	"github.com/lumostore/topup/internal/app/service/apilog"
	"github.com/lumostore/topup/internal/app/service/catalog"
	"github.com/lumostore/topup/internal/app/service/customer"
	"github.com/lumostore/topup/internal/app/service/pricing"
	"github.com/lumostore/topup/internal/app/service/statistics"
	"github.com/lumostore/topup/internal/app/service/sysconfig"
	"github.com/lumostore/topup/internal/app/service/transaction"
	"github.com/lumostore/topup/internal/platform/db"
	"github.com/lumostore/topup/internal/platform/digiflazz"
	"github.com/lumostore/topup/pkg/config"
	"github.com/lumostore/topup/pkg/logger"
	"github.com/lumostore/topup/pkg/redislock"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	redislock.Module,
	digiflazz.Module,
	server.Module,
	catalog.Module,
	pricing.Module,
	customer.Module,
	apilog.Module,
	statistics.Module,
	sysconfig.Module,
	transaction.Module,
)
