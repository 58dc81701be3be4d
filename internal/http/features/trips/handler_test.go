package trips

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/haulware/dispatch-core/internal/http/middleware"
)

func testHandler() *Handler {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return NewHandler(logger, nil, nil, nil, nil)
}

// request builds an authenticated chi request with URL params set, so
// validation paths can be exercised without repositories.
func request(method, target, body string, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = context.WithValue(ctx, middleware.UserIDKey, uuid.New())
	return req.WithContext(ctx)
}

func TestAction_InvalidOrderID(t *testing.T) {
	handler := testHandler()

	req := request(http.MethodPost, "/v1/dispatcher-orders/not-a-uuid/accept", ``, map[string]string{
		"id":     "not-a-uuid",
		"action": "accept",
	})
	rec := httptest.NewRecorder()

	handler.Action(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestAction_UnknownAction(t *testing.T) {
	handler := testHandler()

	id := uuid.New().String()
	req := request(http.MethodPost, "/v1/dispatcher-orders/"+id+"/teleport", ``, map[string]string{
		"id":     id,
		"action": "teleport",
	})
	rec := httptest.NewRecorder()

	handler.Action(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAction_Unauthenticated(t *testing.T) {
	handler := testHandler()

	req := httptest.NewRequest(http.MethodPost, "/v1/dispatcher-orders/x/accept", nil)
	rec := httptest.NewRecorder()

	handler.Action(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAssignmentPatchTriState(t *testing.T) {
	id := uuid.New()
	var fields map[string]json.RawMessage
	body := `{"vehicle_id":"` + id.String() + `","driver_id":null,"customer_name":"Acme"}`
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	patch, present, err := assignmentPatch(fields)
	if err != nil {
		t.Fatalf("assignmentPatch: %v", err)
	}
	if !present {
		t.Fatal("patch should be present")
	}
	if !patch.VehicleID.IsSpecified() || patch.VehicleID.IsNull() || patch.VehicleID.Value() != id {
		t.Errorf("vehicle_id should be set to %s", id)
	}
	if !patch.DriverID.IsNull() {
		t.Error("driver_id null should release the binding")
	}
	if patch.TrailerID.IsSpecified() {
		t.Error("absent trailer_id should stay unspecified")
	}

	if !hasDetails(fields) {
		t.Error("customer_name should count as a details field")
	}
}

func TestUpdateStatus_InvalidStatus(t *testing.T) {
	handler := testHandler()

	id := uuid.New().String()
	req := request(http.MethodPatch, "/v1/worker-tenant/orders/"+id+"/status", `{"status":"TELEPORTED"}`, map[string]string{
		"id": id,
	})
	rec := httptest.NewRecorder()

	handler.UpdateStatus(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}
