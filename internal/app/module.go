package app

import (
	"time"

	"github.com/botsmith/billing/internal/app/api/server"
	"github.com/botsmith/billing/internal/app/service/expiry"
	"github.com/botsmith/billing/internal/app/service/payment"
	"github.com/botsmith/billing/internal/app/service/statistics"
	"github.com/botsmith/billing/internal/app/service/subscription"
	webhookhandler "github.com/botsmith/billing/internal/app/service/webhook_handler"
	webhooklog "github.com/botsmith/billing/internal/app/service/webhook_log"
	"github.com/botsmith/billing/internal/platform/db"
	"github.com/botsmith/billing/internal/platform/razorpay"
	"github.com/botsmith/billing/pkg/config"
	"github.com/botsmith/billing/pkg/logger"

	"go.uber.org/fx"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	razorpay.Module,
	server.Module,
	subscription.Module,
	payment.Module,
	statistics.Module,
	webhooklog.Module,
	webhookhandler.Module,
	expiry.Module,
)
