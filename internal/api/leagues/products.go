package leagues

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/codr1/leaguehub/internal/api/apiutil"
	"github.com/codr1/leaguehub/internal/payments"
)

type productListResponse struct {
	Products []payments.Product `json:"products"`
}

// GET /api/v1/products
//
// Lists the registration products from the last sync.
func HandleListProducts(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), leagueQueryTimeout)
	defer cancel()

	rows, err := q.ListProducts(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list products")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load products")
		return
	}

	products := make([]payments.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, payments.ProductFromRow(row))
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, productListResponse{Products: products}); err != nil {
		logger.Error().Err(err).Msg("Failed to write products response")
	}
}
