package service

import (
	"context"
	"testing"

	"smallcrm/cmd/internal/utils/apierror"
)

func weekday(d int) *int {
	return &d
}

func TestAvailabilityService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := &AvailabilityRequest{UserID: env.staff.ID, Weekday: weekday(0), StartTime: "09:00", EndTime: "12:00"}
	window, apierr := env.availability.CreateAvailability(ctx, req, env.staff.SubUUID)
	if apierr != nil {
		t.Fatalf("create own window: %v", apierr)
	}
	if !window.IsActive || window.StartTime != "09:00" {
		t.Errorf("window = %+v", window)
	}

	if _, apierr := env.availability.CreateAvailability(ctx, req, env.admin.SubUUID); apierr != apierror.AvailabilityExistsError {
		t.Errorf("duplicate key: got %v", apierr)
	}

	inverted := &AvailabilityRequest{UserID: env.staff.ID, Weekday: weekday(1), StartTime: "12:00", EndTime: "12:00"}
	if _, apierr := env.availability.CreateAvailability(ctx, inverted, env.staff.SubUUID); apierr != apierror.InvalidIntervalError {
		t.Errorf("empty window: got %v", apierr)
	}

	forAdmin := &AvailabilityRequest{UserID: env.admin.ID, Weekday: weekday(1), StartTime: "09:00", EndTime: "10:00"}
	if _, apierr := env.availability.CreateAvailability(ctx, forAdmin, env.staff.SubUUID); apierr != apierror.AdminOnlyError {
		t.Errorf("someone else's window: got %v", apierr)
	}

	if _, apierr := env.availability.CreateAvailability(ctx, &AvailabilityRequest{UserID: env.staff.ID, Weekday: weekday(7), StartTime: "09:00", EndTime: "10:00"}, env.staff.SubUUID); apierr == nil {
		t.Error("weekday 7 accepted")
	}

	inactive := false
	update := &AvailabilityRequest{UserID: env.staff.ID, Weekday: weekday(0), StartTime: "09:00", EndTime: "13:00", IsActive: &inactive}
	updated, apierr := env.availability.UpdateAvailability(ctx, itoa(window.ID), update, env.staff.SubUUID)
	if apierr != nil {
		t.Fatalf("update keeping own key: %v", apierr)
	}
	if updated.EndTime != "13:00" || updated.IsActive {
		t.Errorf("updated = %+v", updated)
	}

	windows, apierr := env.availability.GetUserAvailability(ctx, "@me", env.staff.SubUUID)
	if apierr != nil || len(windows) != 1 {
		t.Errorf("list = %+v %v", windows, apierr)
	}

	if apierr := env.availability.DeleteAvailability(ctx, itoa(window.ID), env.staff.SubUUID); apierr != nil {
		t.Fatal(apierr)
	}
	if apierr := env.availability.DeleteAvailability(ctx, itoa(window.ID), env.staff.SubUUID); apierr != apierror.NotFoundError {
		t.Errorf("second delete: got %v", apierr)
	}
}
