package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Arthur-Pio/axelor-open-platform/internal/auth"
)

type verifyRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type verifyResponse struct {
	Code string `json:"code"`
}

func (a *API) handleVerify(w http.ResponseWriter, r *http.Request) {
	if !isJSON(r) {
		writeError(w, r, http.StatusUnsupportedMediaType, "content type must be application/json")
		return
	}
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	accepted, err := a.verifier.Verify(r.Context(), req.Username, auth.NewSecret(req.Password))
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrIncorrectCredentials):
		writeError(w, r, http.StatusUnauthorized, auth.IncorrectCredentialsMessage)
		return
	case errors.Is(err, auth.ErrBackingStoreUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, "credential store unavailable")
		return
	default:
		a.logger.Error().Err(err).Str("request_id", RequestIDFromContext(r.Context())).Msg("verify failed")
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	ctx := auth.ContextWithAccepted(r.Context(), accepted)
	if a.successes != nil {
		a.successes.LogAccepted(ctx, accepted.Code)
	}
	writeJSON(w, http.StatusOK, verifyResponse{Code: accepted.Code})
}

func (a *API) handleAuthorization(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	info, ok, err := a.resolver.ResolveAuthorization(r.Context(), code)
	switch {
	case errors.Is(err, auth.ErrBackingStoreUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, "credential store unavailable")
		return
	case err != nil:
		a.logger.Error().Err(err).Str("request_id", RequestIDFromContext(r.Context())).Msg("authorization lookup failed")
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	case !ok:
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, info)
}
