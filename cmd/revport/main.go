package main

import (
	"github.com/smallbiznis/revport/internal/billing"
	"github.com/smallbiznis/revport/internal/clock"
	"github.com/smallbiznis/revport/internal/config"
	"github.com/smallbiznis/revport/internal/fxrate"
	"github.com/smallbiznis/revport/internal/logger"
	"github.com/smallbiznis/revport/internal/metrics"
	"github.com/smallbiznis/revport/internal/mrr"
	"github.com/smallbiznis/revport/internal/server"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		clock.Module,
		metrics.Module,

		// Functional domains
		fxrate.Module,
		billing.Module,
		mrr.Module,

		server.Module,
	)
	app.Run()
}
