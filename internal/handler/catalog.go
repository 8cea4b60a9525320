package handler

import (
	"encoding/json"
	"net/http"

	"comanda/internal/model"
	"comanda/internal/service"
)

type addonRequest struct {
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Available  *bool  `json:"available"`
}

type productRequest struct {
	Name       string         `json:"name"`
	PriceCents int64          `json:"price_cents"`
	Available  *bool          `json:"available"`
	Addons     []addonRequest `json:"addons,omitempty"`
}

func CreateProductHandler(catalogSvc *service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req productRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		product := &model.Product{
			Name:       req.Name,
			PriceCents: req.PriceCents,
			Available:  req.Available == nil || *req.Available,
		}
		for _, a := range req.Addons {
			product.Addons = append(product.Addons, model.Addon{
				Name:       a.Name,
				PriceCents: a.PriceCents,
				Available:  a.Available == nil || *a.Available,
			})
		}

		created, err := catalogSvc.CreateProduct(r.Context(), product)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func ListProductsHandler(catalogSvc *service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := catalogSvc.ListProducts(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}

		if len(products) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, products)
	}
}
