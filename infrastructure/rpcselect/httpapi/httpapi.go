// Package httpapi exposes an operator-facing admin surface over a
// Selector and Store: inspecting endpoint health and forcing state
// transitions outside the normal selection/health-loop flow.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	rpcerrors "github.com/R3E-Network/service_layer/infrastructure/errors"
	"github.com/R3E-Network/service_layer/infrastructure/rpcselect"
)

// Handler bundles the admin HTTP endpoints.
type Handler struct {
	store    rpcselect.Store
	selector *rpcselect.Selector
}

// NewRouter builds a chi router exposing the admin surface.
func NewRouter(store rpcselect.Store, selector *rpcselect.Selector) http.Handler {
	h := &Handler{store: store, selector: selector}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/chains/{chain}/endpoints", h.listEndpoints)
	r.Get("/chains/{chain}/best", h.getBest)
	r.Post("/chains/{chain}/next", h.getNext)
	r.Post("/endpoints/{id}/disable", h.disableEndpoint)
	r.Post("/endpoints/{id}/enable", h.enableEndpoint)
	r.Post("/endpoints/{url}/success", h.markSuccess)
	r.Post("/endpoints/{url}/failure", h.markFailure)

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) listEndpoints(w http.ResponseWriter, r *http.Request) {
	chain, err := chainParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	endpoints, err := h.store.GetByChain(r.Context(), chain)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, endpoints)
}

func (h *Handler) getBest(w http.ResponseWriter, r *http.Request) {
	chain, err := chainParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	url, err := h.selector.GetBest(r.Context(), chain)
	if err != nil {
		writeError(w, selectorErrStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// selectorErrStatus maps a Selector error to the HTTP status an operator
// caller should see: a bad argument is the caller's fault, an exhausted
// endpoint pool is a (hopefully transient) service condition, and
// anything else is an unexpected failure.
func selectorErrStatus(err error) int {
	switch {
	case errors.Is(err, rpcerrors.ErrInvalidArgument):
		return http.StatusBadRequest
	case rpcerrors.IsNoHealthyEndpoint(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// getNext returns the best endpoint for the chain other than the one
// named in the request body's failed_url field.
func (h *Handler) getNext(w http.ResponseWriter, r *http.Request) {
	chain, err := chainParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var body struct {
		FailedURL string `json:"failed_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	url, err := h.selector.GetNext(r.Context(), chain, body.FailedURL)
	if err != nil {
		writeError(w, selectorErrStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// markSuccess and markFailure take the endpoint URL percent-encoded in
// the path, since a raw URL would itself contain path separators.
func (h *Handler) markSuccess(w http.ResponseWriter, r *http.Request) {
	target, err := urlParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.selector.MarkSuccess(r.Context(), target); err != nil {
		writeError(w, selectorErrStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) markFailure(w http.ResponseWriter, r *http.Request) {
	target, err := urlParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if err := h.selector.MarkFailure(r.Context(), target, body.Reason); err != nil {
		writeError(w, selectorErrStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// disableEndpoint sets an endpoint's state to Disabled directly in the
// store. This is an operator action, outside the state machine Selector
// and HealthLoop drive on their own.
func (h *Handler) disableEndpoint(w http.ResponseWriter, r *http.Request) {
	h.setState(w, r, rpcselect.StateDisabled)
}

// enableEndpoint restores a Disabled endpoint to Active, for an
// operator who has confirmed manually that it is safe to use again.
func (h *Handler) enableEndpoint(w http.ResponseWriter, r *http.Request) {
	h.setState(w, r, rpcselect.StateActive)
}

func (h *Handler) setState(w http.ResponseWriter, r *http.Request, state rpcselect.State) {
	id := chi.URLParam(r, "id")
	ep, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if ep == nil {
		writeError(w, http.StatusNotFound, errNotFound(id))
		return
	}

	ep.State = state
	if state == rpcselect.StateActive {
		ep.ConsecutiveErrors = 0
		ep.ErrorMessage = ""
		ep.LastErrorAt = nil
	}
	if err := h.store.Update(r.Context(), ep); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if h.selector != nil {
		h.selector.InvalidateChain(r.Context(), ep.Chain)
	}
	writeJSON(w, http.StatusOK, ep)
}

func urlParam(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "url")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return "", errInvalidURLParam(raw)
	}
	return decoded, nil
}

func chainParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "chain")
	chain, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errInvalidChain(raw)
	}
	return chain, nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
