package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/palletor/ucpwms/internal/services/composition"
	"github.com/palletor/ucpwms/internal/services/packaging"
)

// getPackagingHierarchy returns a product's packaging tree, root first
func (r *Router) getPackagingHierarchy(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	hierarchy, err := r.services.Packaging.BuildHierarchy(req.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, hierarchy)
}

// addPackagingType creates a new packaging level for a product
func (r *Router) addPackagingType(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var body packaging.AddPackagingTypeRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	body.ProductID = id

	created, err := r.services.Packaging.AddPackagingType(req.Context(), body)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// removePackagingType removes an unused packaging level
func (r *Router) removePackagingType(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := r.services.Packaging.RemovePackagingType(req.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// getStock returns the consolidated stock of a product plus the per-level view
func (r *Router) getStock(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	summary, err := r.services.Stock.Consolidate(req.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	byPackaging, err := r.services.Stock.StockByPackaging(req.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"summary":     summary,
		"byPackaging": byPackaging,
	})
}

// getPickingPlan decomposes ?quantity= base units into packaging levels
func (r *Router) getPickingPlan(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	quantity, err := strconv.ParseInt(req.URL.Query().Get("quantity"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "quantity query parameter is required")
		return
	}
	plan, err := r.services.Picking.GetOptimizedPickingPlan(req.Context(), id, quantity)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

// validateComposition scores a proposed arrangement against pallet capacity
func (r *Router) validateComposition(w http.ResponseWriter, req *http.Request) {
	var body composition.Request
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	result, err := r.services.Composition.Validate(req.Context(), body)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// optimizeComposition suggests ranked alternatives for an arrangement
func (r *Router) optimizeComposition(w http.ResponseWriter, req *http.Request) {
	var body composition.Request
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	result, err := r.services.Composition.Optimize(req.Context(), body)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
