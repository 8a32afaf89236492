package api

import (
	"time"

	"github.com/hackgods/appointment-lookup/internal/appointment"
	"github.com/hackgods/appointment-lookup/internal/render"
)

const (
	StatusFound             = "found"
	StatusNotFound          = "not_found"
	StatusInsufficientInput = "insufficient_input"
	StatusError             = "error"
)

type LookupResponse struct {
	Status      string               `json:"status"`
	Message     string               `json:"message"`
	Appointment *AppointmentResponse `json:"appointment,omitempty"`
}

// AppointmentResponse never echoes the access token back.
type AppointmentResponse struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	IDCard        string    `json:"id_card"`
	Department    *string   `json:"department"`
	Date          *string   `json:"date"`
	Time          *string   `json:"time"`
	TokenExpireAt time.Time `json:"token_expire_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func newAppointmentResponse(a appointment.Appointment) *AppointmentResponse {
	resp := &AppointmentResponse{
		ID:            a.ID,
		Username:      a.Username,
		IDCard:        a.IDCard,
		Department:    a.Department,
		TokenExpireAt: a.TokenExpireAt,
	}
	if a.Date != nil {
		d := a.Date.Format("2006-01-02")
		resp.Date = &d
	}
	if a.Time != nil {
		t := render.Clock(a.Time)
		resp.Time = &t
	}
	return resp
}
