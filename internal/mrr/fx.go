package mrr

import (
	"github.com/smallbiznis/revport/internal/fxrate"
	"github.com/smallbiznis/revport/internal/mrr/domain"
	"github.com/smallbiznis/revport/internal/mrr/recognized"
	"github.com/smallbiznis/revport/internal/mrr/snapshot"
	"go.uber.org/fx"
)

var Module = fx.Module("mrr",
	fx.Provide(func(s *fxrate.Service) domain.Converter { return s }),
	fx.Provide(snapshot.NewService),
	fx.Provide(recognized.NewService),
)
