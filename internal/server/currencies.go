package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/revport/internal/fxrate"
	"go.uber.org/zap"
)

type currenciesResponse struct {
	Provider   string   `json:"provider"`
	Currencies []string `json:"currencies"`
}

// ListCurrencies returns the currencies present in the loaded FX rate table.
func (s *Server) ListCurrencies(c *gin.Context) {
	currencies, err := s.catalog.Currencies(c.Request.Context())
	if err != nil {
		s.log.Error("currency catalog unavailable", zap.Error(err))
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	c.JSON(http.StatusOK, currenciesResponse{
		Provider:   fxrate.Provider,
		Currencies: currencies,
	})
}
