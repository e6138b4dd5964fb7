package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"smallcrm/cmd/internal/service"
	"smallcrm/cmd/internal/utils"
	"smallcrm/cmd/internal/utils/apierror"
)

var secret = []byte("route-secret")

// serve runs handler behind the JWT middleware, authenticated as sub unless
// sub is empty.
func serve(t *testing.T, handler echo.HandlerFunc, req *http.Request, sub string, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	if sub != "" {
		token, err := utils.IssueToken(secret, sub, "", time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	var names, values []string
	for i := 0; i+1 < len(params); i += 2 {
		names = append(names, params[i])
		values = append(values, params[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	if err := utils.JWTMiddleware(secret)(handler)(c); err != nil {
		t.Fatal(err)
	}
	return rec
}

type fakeAppointmentService struct {
	AppointmentService
	gotSlots []string
	created  *service.AppointmentRequest
	createBy string
	err      apierror.ErrorResponse
}

func (f *fakeAppointmentService) GetSlots(_ context.Context, rawDate, rawUserId, rawDuration string) (*service.SlotsResponse, apierror.ErrorResponse) {
	f.gotSlots = []string{rawDate, rawUserId, rawDuration}
	if f.err != nil {
		return nil, f.err
	}
	return &service.SlotsResponse{Slots: []service.Slot{{Start: "09:00", End: "10:00", Datetime: "2026-03-02T09:00:00Z"}}}, nil
}

func (f *fakeAppointmentService) CreateAppointment(_ context.Context, req *service.AppointmentRequest, callerSub string) (*service.AppointmentResponse, apierror.ErrorResponse) {
	f.created, f.createBy = req, callerSub
	if f.err != nil {
		return nil, f.err
	}
	return &service.AppointmentResponse{ID: "a1", Title: req.Title}, nil
}

func (f *fakeAppointmentService) CalendarFeed(_ context.Context, _ string) (string, apierror.ErrorResponse) {
	return "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n", nil
}

func TestAppointmentRoute_GetSlots(t *testing.T) {
	fake := &fakeAppointmentService{}
	route := NewAppointmentDefault(fake)

	req := httptest.NewRequest(http.MethodGet, "/api/appointments/slots?date=2026-03-02&user_id=%207&duration=30", nil)
	rec := serve(t, route.GetSlots, req, "staff")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if strings.Join(fake.gotSlots, "|") != "2026-03-02|7|30" {
		t.Errorf("params = %v", fake.gotSlots)
	}

	var body service.SlotsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Slots) != 1 || body.Slots[0].Start != "09:00" {
		t.Errorf("body = %+v", body)
	}

	fake.err = apierror.InvalidDateError
	rec = serve(t, route.GetSlots, httptest.NewRequest(http.MethodGet, "/api/appointments/slots?date=x&user_id=7", nil), "staff")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid date status %d", rec.Code)
	}
}

func TestAppointmentRoute_CreateAppointment(t *testing.T) {
	fake := &fakeAppointmentService{}
	route := NewAppointmentDefault(fake)

	newReq := func(body string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/appointments", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		return req
	}

	rec := serve(t, route.CreateAppointment, newReq(`{"title":"Visit","starts_at":"2026-03-02T09:00:00Z"}`), "staff")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if fake.created.Title != "Visit" || fake.createBy != "staff" {
		t.Errorf("service got %+v from %q", fake.created, fake.createBy)
	}

	rec = serve(t, route.CreateAppointment, newReq(`{"title":`), "staff")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status %d", rec.Code)
	}

	rec = serve(t, route.CreateAppointment, newReq(`{}`), "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status %d", rec.Code)
	}

	fake.err = apierror.AppointmentConflictError
	rec = serve(t, route.CreateAppointment, newReq(`{"title":"Visit"}`), "staff")
	if rec.Code != http.StatusConflict || !strings.Contains(rec.Body.String(), "already has an appointment") {
		t.Errorf("conflict response %d %s", rec.Code, rec.Body.String())
	}
}

func TestAppointmentRoute_CalendarFeed(t *testing.T) {
	route := NewAppointmentDefault(&fakeAppointmentService{})
	rec := serve(t, route.GetCalendarFeed, httptest.NewRequest(http.MethodGet, "/api/appointments/calendar.ics", nil), "staff")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("content type %q", ct)
	}
}

type fakeCustomerService struct {
	CustomerService
	imported string
	deleted  string
}

func (f *fakeCustomerService) ExportCSV(_ context.Context, w io.Writer) apierror.ErrorResponse {
	_, _ = io.WriteString(w, "Name,Email\nJohn Doe,john@example.com\n")
	return nil
}

func (f *fakeCustomerService) ImportCSV(_ context.Context, r io.Reader, _ string) (*service.ImportReport, apierror.ErrorResponse) {
	raw, _ := io.ReadAll(r)
	f.imported = string(raw)
	return &service.ImportReport{Imported: 1, Skipped: []service.ImportSkip{}}, nil
}

func (f *fakeCustomerService) DeleteCustomer(_ context.Context, rawId string) apierror.ErrorResponse {
	f.deleted = rawId
	return nil
}

func multipartRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.WriteString(part, content)
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/customers/import", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestCustomerRoute_ExportCSV(t *testing.T) {
	route := NewCustomerDefault(&fakeCustomerService{})
	rec := serve(t, route.ExportCSV, httptest.NewRequest(http.MethodGet, "/api/customers/export", nil), "staff")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type %q", ct)
	}
	if cd := rec.Header().Get(echo.HeaderContentDisposition); !strings.HasPrefix(cd, `attachment; filename="customers_`) {
		t.Errorf("content disposition %q", cd)
	}
	if !strings.Contains(rec.Body.String(), "John Doe") {
		t.Errorf("body %q", rec.Body.String())
	}
}

func TestCustomerRoute_ImportCSV(t *testing.T) {
	fake := &fakeCustomerService{}
	route := NewCustomerDefault(fake)

	rec := serve(t, route.ImportCSV, multipartRequest(t, "customers.CSV", "first_name,last_name,email\n"), "staff")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if fake.imported != "first_name,last_name,email\n" {
		t.Errorf("service read %q", fake.imported)
	}

	rec = serve(t, route.ImportCSV, multipartRequest(t, "customers.xlsx", "x"), "staff")
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "CSV") {
		t.Errorf("wrong extension: %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(t, route.ImportCSV, httptest.NewRequest(http.MethodPost, "/api/customers/import", nil), "staff")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing file status %d", rec.Code)
	}
}

func TestCustomerRoute_DeleteCustomer(t *testing.T) {
	fake := &fakeCustomerService{}
	route := NewCustomerDefault(fake)

	rec := serve(t, route.DeleteCustomer, httptest.NewRequest(http.MethodDelete, "/api/customers/c1", nil), "staff", "id", "c1")
	if rec.Code != http.StatusNoContent || fake.deleted != "c1" {
		t.Errorf("status %d, deleted %q", rec.Code, fake.deleted)
	}
}

type fakeUserService struct {
	UserService
}

func (fakeUserService) GetUser(_ context.Context, rawId, subId string) (*service.UserResponse, apierror.ErrorResponse) {
	if rawId != "@me" {
		return nil, apierror.NotFoundError
	}
	return &service.UserResponse{ID: 1, Username: subId}, nil
}

func TestUserRoute_GetUser(t *testing.T) {
	route := NewUserDefault(fakeUserService{})

	rec := serve(t, route.GetUser, httptest.NewRequest(http.MethodGet, "/api/users/@me", nil), "ana", "id", "@me")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"username":"ana"`) {
		t.Errorf("@me: %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(t, route.GetUser, httptest.NewRequest(http.MethodGet, "/api/users/9", nil), "ana", "id", "9")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown user status %d", rec.Code)
	}

	rec = serve(t, route.GetUser, httptest.NewRequest(http.MethodGet, "/api/users/", nil), "ana", "id", " ")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank id status %d", rec.Code)
	}
}
