package api

import (
	"testing"
	"time"

	"github.com/hackgods/appointment-lookup/internal/appointment"
)

func TestNewAppointmentResponse(t *testing.T) {
	date := time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC)
	clock := 8*time.Hour + 30*time.Minute

	resp := newAppointmentResponse(appointment.Appointment{
		ID:       9,
		Username: "张三",
		IDCard:   "110101199001011234",
		Date:     &date,
		Time:     &clock,
	})

	if resp.Date == nil || *resp.Date != "2026-11-03" {
		t.Errorf("expected date 2026-11-03, got %v", resp.Date)
	}
	if resp.Time == nil || *resp.Time != "8:30:00" {
		t.Errorf("expected time 8:30:00, got %v", resp.Time)
	}
	if resp.Department != nil {
		t.Errorf("expected null department, got %q", *resp.Department)
	}
}
