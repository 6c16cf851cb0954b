package billing

import (
	"github.com/smallbiznis/revport/internal/billing/domain"
	"github.com/smallbiznis/revport/internal/billing/stripe"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.source",
	fx.Provide(stripe.New),
	fx.Provide(func(c *stripe.Client) domain.Source { return c }),
)
