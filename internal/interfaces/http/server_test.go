package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/trip-expense/internal/application/service"
	"github.com/garyjia/trip-expense/internal/domain/entity"
	apperrors "github.com/garyjia/trip-expense/pkg/errors"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// stubTripService overrides the methods a test needs; others panic through the nil embedded interface
type stubTripService struct {
	service.TripService
	submitFn func(ctx context.Context, actor entity.Actor, tripID int64) (*entity.Trip, error)
	createFn func(ctx context.Context, actor entity.Actor, input service.CreateTripInput) (*entity.Trip, error)
}

func (s *stubTripService) Submit(ctx context.Context, actor entity.Actor, tripID int64) (*entity.Trip, error) {
	return s.submitFn(ctx, actor, tripID)
}

func (s *stubTripService) Create(ctx context.Context, actor entity.Actor, input service.CreateTripInput) (*entity.Trip, error) {
	return s.createFn(ctx, actor, input)
}

type stubReceiptService struct {
	service.ReceiptService
	uploadFn func(ctx context.Context, actor entity.Actor, input service.UploadReceiptInput) (*entity.Receipt, error)
}

func (s *stubReceiptService) Upload(ctx context.Context, actor entity.Actor, input service.UploadReceiptInput) (*entity.Receipt, error) {
	return s.uploadFn(ctx, actor, input)
}

type stubSettlementService struct {
	service.SettlementService
	exportFn func(ctx context.Context, actor entity.Actor, tripID int64) (*service.Statement, error)
}

func (s *stubSettlementService) ExportStatement(ctx context.Context, actor entity.Actor, tripID int64) (*service.Statement, error) {
	return s.exportFn(ctx, actor, tripID)
}

type stubSettingService struct {
	service.SettingService
	listFn func(ctx context.Context, actor entity.Actor) ([]*entity.Setting, error)
}

func (s *stubSettingService) List(ctx context.Context, actor entity.Actor) ([]*entity.Setting, error) {
	return s.listFn(ctx, actor)
}

func (s *stubSettingService) PricePerKM(context.Context) (int64, error) {
	return 5000, nil
}

type recordingObserver struct {
	routes []string
}

func (r *recordingObserver) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	r.routes = append(r.routes, method+" "+route)
}

var employee = entity.Actor{ID: "emp-1", Role: entity.RoleEmployee, AreaCode: "JKT"}

func newTestServer(t *testing.T, services Services, opts ...ServerOption) (*Server, *TokenAuthenticator) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	auth, err := NewTokenAuthenticator(AuthConfig{Secret: "test-secret", Issuer: "trip-expense"})
	require.NoError(t, err)
	return NewServer(DefaultServerConfig(), services, auth, nopLogger{}, opts...), auth
}

func bearer(t *testing.T, auth *TokenAuthenticator, actor entity.Actor) string {
	t.Helper()
	token, err := auth.Issue(actor, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealthCheck(t *testing.T) {
	server, _ := newTestServer(t, Services{})

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode(t, rec).Success)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

type stubHealth map[string]error

func (s stubHealth) CheckHealth(context.Context) map[string]error { return s }

func TestHealthCheck_DegradedComponent(t *testing.T) {
	server, _ := newTestServer(t, Services{},
		WithHealthChecker(stubHealth{"database": nil, "workers": errors.New("workers stopped")}))

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body struct {
		Data HealthResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Data.Status)
	assert.Equal(t, map[string]string{"database": "ok", "workers": "workers stopped"}, body.Data.Components)
}

func TestAuthMiddleware(t *testing.T) {
	trips := &stubTripService{submitFn: func(ctx context.Context, actor entity.Actor, tripID int64) (*entity.Trip, error) {
		return &entity.Trip{ID: tripID, OwnerID: actor.ID, Status: entity.TripStatusAwaitingReview}, nil
	}}
	server, auth := newTestServer(t, Services{Trips: trips})

	other, err := NewTokenAuthenticator(AuthConfig{Secret: "other-secret"})
	require.NoError(t, err)
	forged, err := other.Issue(employee, time.Hour)
	require.NoError(t, err)
	expired, err := auth.Issue(employee, -time.Minute)
	require.NoError(t, err)
	badRole, err := auth.Issue(entity.Actor{ID: "x", Role: "admin"}, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + forged, http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"unknown role", "Bearer " + badRole, http.StatusUnauthorized},
		{"valid", bearer(t, auth, employee), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/trips/7/submit", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			server.Router().ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			resp := decode(t, rec)
			if tt.status == http.StatusUnauthorized {
				require.NotNil(t, resp.Error)
				assert.Equal(t, string(apperrors.CodeUnauthorized), resp.Error.Code)
			} else {
				assert.True(t, resp.Success)
			}
		})
	}
}

func TestErrorEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
		details bool
	}{
		{
			name:    "state error keeps message",
			err:     apperrors.State("trip must be active to submit"),
			status:  http.StatusUnprocessableEntity,
			code:    "STATE_ERROR",
			message: "trip must be active to submit",
		},
		{
			name:    "validation details",
			err:     apperrors.New(apperrors.CodeValidation, "validation failed").WithDetails(map[string]string{"destination": "is required"}),
			status:  http.StatusBadRequest,
			code:    "VALIDATION_ERROR",
			message: "validation failed",
			details: true,
		},
		{
			name:    "forbidden",
			err:     apperrors.Forbidden("not allowed to submit this trip"),
			status:  http.StatusForbidden,
			code:    "FORBIDDEN",
			message: "not allowed to submit this trip",
		},
		{
			name:    "unclassified is hidden",
			err:     assert.AnError,
			status:  http.StatusInternalServerError,
			code:    "INTERNAL_ERROR",
			message: "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trips := &stubTripService{submitFn: func(context.Context, entity.Actor, int64) (*entity.Trip, error) {
				return nil, tt.err
			}}
			server, auth := newTestServer(t, Services{Trips: trips})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/trips/7/submit", nil)
			req.Header.Set("Authorization", bearer(t, auth, employee))
			rec := httptest.NewRecorder()
			server.Router().ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			resp := decode(t, rec)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, tt.message, resp.Error.Message)
			assert.Equal(t, tt.details, resp.Error.Details != nil)
		})
	}
}

func TestInvalidPathID(t *testing.T) {
	server, auth := newTestServer(t, Services{Trips: &stubTripService{}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/trips/abc/submit", nil)
	req.Header.Set("Authorization", bearer(t, auth, employee))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, rec).Error.Code)
}

func TestCreateTrip_PassesActorAndBody(t *testing.T) {
	var gotActor entity.Actor
	var gotInput service.CreateTripInput
	trips := &stubTripService{createFn: func(ctx context.Context, actor entity.Actor, input service.CreateTripInput) (*entity.Trip, error) {
		gotActor, gotInput = actor, input
		return &entity.Trip{ID: 1, TripNumber: "TRP-20251114-0001", Destination: input.Destination}, nil
	}}
	observer := &recordingObserver{}
	server, auth := newTestServer(t, Services{Trips: trips}, WithRequestObserver(observer))

	body := `{"destination":"Surabaya","purpose":"Site audit","start_date":"2025-11-14T00:00:00Z","end_date":"2025-11-16T00:00:00Z","estimated_budget":500000}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/trips", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, auth, employee))
	req.Header.Set(requestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get(requestIDHeader))
	assert.Equal(t, employee, gotActor)
	assert.Equal(t, "Surabaya", gotInput.Destination)
	assert.Equal(t, entity.Money(500000), gotInput.EstimatedBudget)
	assert.Equal(t, []string{"POST /api/v1/trips"}, observer.routes)
}

func TestUploadReceipt_Multipart(t *testing.T) {
	var got service.UploadReceiptInput
	receipts := &stubReceiptService{uploadFn: func(ctx context.Context, actor entity.Actor, input service.UploadReceiptInput) (*entity.Receipt, error) {
		got = input
		return &entity.Receipt{ID: 3, TripID: input.TripID, Amount: input.Amount}, nil
	}}
	server, auth := newTestServer(t, Services{Receipts: receipts})

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("trip_id", "7"))
	require.NoError(t, w.WriteField("advance_id", "2"))
	require.NoError(t, w.WriteField("receipt_date", "2025-11-15"))
	require.NoError(t, w.WriteField("amount", "1250.50"))
	require.NoError(t, w.WriteField("category", "hotel"))
	part, err := w.CreateFormFile("file", "hotel.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg-bytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/receipts", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", bearer(t, auth, employee))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, int64(7), got.TripID)
	require.NotNil(t, got.AdvanceID)
	assert.Equal(t, int64(2), *got.AdvanceID)
	assert.Equal(t, entity.Money(125050), got.Amount)
	assert.Equal(t, "hotel", got.Category)
	assert.Equal(t, time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC), got.ReceiptDate)
	require.NotNil(t, got.File)
	assert.Equal(t, "hotel.jpg", got.File.Name)
	assert.Equal(t, []byte("jpeg-bytes"), got.File.Content)
}

func TestUploadReceipt_InvalidFields(t *testing.T) {
	server, auth := newTestServer(t, Services{Receipts: &stubReceiptService{}})

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("trip_id", "7"))
	require.NoError(t, w.WriteField("receipt_date", "15/11/2025"))
	require.NoError(t, w.WriteField("amount", "12.345"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/receipts", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", bearer(t, auth, employee))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode(t, rec)
	details, ok := resp.Error.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, details, "receipt_date")
	assert.Contains(t, details, "amount")
}

func TestExportStatement(t *testing.T) {
	settlements := &stubSettlementService{exportFn: func(ctx context.Context, actor entity.Actor, tripID int64) (*service.Statement, error) {
		return &service.Statement{
			FileName:    "STL-20251118-0001.xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Content:     []byte("xlsx"),
		}, nil
	}}
	server, auth := newTestServer(t, Services{Settlements: settlements})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trips/7/settlement/statement.xlsx", nil)
	req.Header.Set("Authorization", bearer(t, auth, employee))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="STL-20251118-0001.xlsx"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "xlsx", rec.Body.String())
}

func TestSettings_PricePerKMOpenToEmployees(t *testing.T) {
	settings := &stubSettingService{listFn: func(ctx context.Context, actor entity.Actor) ([]*entity.Setting, error) {
		if !actor.Role.IsFinance() {
			return nil, apperrors.Forbidden("you are not allowed to view settings")
		}
		return []*entity.Setting{{Key: entity.SettingPricePerKM, Value: "5000"}}, nil
	}}
	server, auth := newTestServer(t, Services{Settings: settings})

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", bearer(t, auth, employee))
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, req)
		return rec
	}

	rec := get("/api/v1/settings/price-per-km")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"price_per_km": float64(5000)}, decode(t, rec).Data)

	rec = get("/api/v1/settings")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, string(apperrors.CodeForbidden), decode(t, rec).Error.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	server, _ := newTestServer(t, Services{}, WithMetricsHandler(handler))

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# metrics", rec.Body.String())
}

func TestNewTokenAuthenticator_RequiresSecret(t *testing.T) {
	_, err := NewTokenAuthenticator(AuthConfig{})
	assert.Error(t, err)
}
