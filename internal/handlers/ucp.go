package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/palletor/ucpwms/internal/middleware"
	"github.com/palletor/ucpwms/internal/services/printer"
	"github.com/palletor/ucpwms/internal/services/ucp"
)

func pathID(req *http.Request) (uint, error) {
	id, err := strconv.ParseUint(mux.Vars(req)["id"], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id")
	}
	return uint(id), nil
}

// listUcps returns all Ucps, optionally filtered by ?status=
func (r *Router) listUcps(w http.ResponseWriter, req *http.Request) {
	ucps, err := r.services.Ucp.List(req.Context(), req.URL.Query().Get("status"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ucps)
}

// createUcp opens a new unit load
func (r *Router) createUcp(w http.ResponseWriter, req *http.Request) {
	var body ucp.CreateRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	body.CreatedBy = middleware.Username(req)

	created, err := r.services.Ucp.Create(req.Context(), body)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// getUcp returns one Ucp with its active items
func (r *Router) getUcp(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := r.services.Ucp.Get(req.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, u)
}

// moveUcp updates the position of a Ucp
func (r *Router) moveUcp(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var body struct {
		PositionID *uint `json:"positionId"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	moved, err := r.services.Ucp.Move(req.Context(), id, body.PositionID, middleware.Username(req))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, moved)
}

// dismantleUcp archives an empty Ucp
func (r *Router) dismantleUcp(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(req.Body).Decode(&body)

	dismantled, err := r.services.Ucp.Dismantle(req.Context(), id, body.Reason, middleware.Username(req))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dismantled)
}

// reactivateUcp returns an archived Ucp to service
func (r *Router) reactivateUcp(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	reactivated, err := r.services.Ucp.Reactivate(req.Context(), id, middleware.Username(req))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, reactivated)
}

// getUcpHistory returns the audit ledger of a Ucp
func (r *Router) getUcpHistory(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	history, err := r.services.Ucp.History(req.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// addUcpItem places product quantity onto a Ucp
func (r *Router) addUcpItem(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var body ucp.AddItemRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	body.UcpID = id
	body.AddedBy = middleware.Username(req)

	item, err := r.services.Ucp.AddItem(req.Context(), body)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

// removeUcpItem deactivates an item in full
func (r *Router) removeUcpItem(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	reason := req.URL.Query().Get("reason")
	if err := r.services.Ucp.RemoveItem(req.Context(), id, reason, middleware.Username(req)); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// transferItem moves quantity between two Ucps
func (r *Router) transferItem(w http.ResponseWriter, req *http.Request) {
	var body ucp.TransferRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	body.PerformedBy = middleware.Username(req)

	result, err := r.services.Ucp.Transfer(req.Context(), body)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// getUcpLabel renders a printable PDF label for a Ucp
func (r *Router) getUcpLabel(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := r.services.Ucp.Get(req.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	var totalUnits int64
	for _, item := range u.Items {
		totalUnits += item.Quantity
	}
	label := printer.Label{
		Code:      u.Code,
		Summary:   fmt.Sprintf("%d items, %d base units", len(u.Items), totalUnits),
		CreatedAt: u.CreatedAt,
	}

	pdf, err := printer.GenerateLabelSheet([]printer.Label{label}, printer.DefaultSheet)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to render label")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", u.Code))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
