package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/tomasen/realip"

	"github.com/hackgods/appointment-lookup/internal/appointment"
	redisclient "github.com/hackgods/appointment-lookup/internal/redis"
	"github.com/hackgods/appointment-lookup/internal/render"
)

type Lookuper interface {
	Lookup(ctx context.Context, q appointment.Query) appointment.Result
}

type lookupHandler struct {
	svc        Lookuper
	limiter    redisclient.Limiter
	trustProxy bool
	timeout    time.Duration
	logger     zerolog.Logger
}

func (h *lookupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil {
		if err := h.limiter.Allow(r.Context(), clientKey(r, h.trustProxy)); err != nil {
			if errors.Is(err, redisclient.ErrRateLimited) {
				writeError(w, http.StatusTooManyRequests, "rate_limited", "too many lookups, retry later")
				return
			}
			// Fail open when Redis is unreachable.
			h.logger.Warn().Err(err).Str("request_id", GetRequestID(r.Context())).Msg("rate limiter unavailable")
		}
	}

	params, err := parseLookupParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_id must be an integer")
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	q, _ := params.Query()
	res := h.svc.Lookup(ctx, q)

	status, resp := lookupResponse(res)
	if r.URL.Query().Get("format") == "text" {
		writeText(w, status, resp.Message)
		return
	}
	writeJSON(w, status, resp)
}

// clientKey identifies the caller for throttling. Forwarding headers are set
// by the client unless a proxy rewrites them, so they only count when the
// server runs behind one.
func clientKey(r *http.Request, trustProxy bool) string {
	if trustProxy {
		return realip.FromRequest(r)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func parseLookupParams(r *http.Request) (appointment.Params, error) {
	v := r.URL.Query()
	params := appointment.Params{
		Username:    v.Get("username"),
		IDCard:      v.Get("id_card"),
		AccessToken: v.Get("access_token"),
	}

	if raw := v.Get("appointment_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return appointment.Params{}, err
		}
		params.AppointmentID = &id
	}

	return params, nil
}

func lookupResponse(res appointment.Result) (int, LookupResponse) {
	resp := LookupResponse{Message: render.Text(res)}

	switch r := res.(type) {
	case appointment.Found:
		resp.Status = StatusFound
		resp.Appointment = newAppointmentResponse(r.Appointment)
		return http.StatusOK, resp
	case appointment.NotFound:
		resp.Status = StatusNotFound
		return http.StatusNotFound, resp
	case appointment.InsufficientInput:
		resp.Status = StatusInsufficientInput
		return http.StatusBadRequest, resp
	default:
		resp.Status = StatusError
		return http.StatusInternalServerError, resp
	}
}
