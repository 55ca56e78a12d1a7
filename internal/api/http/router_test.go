package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/service"
	"github.com/spec-kit/support-desk/internal/upload"
)

type testServer struct {
	app     *fiber.App
	store   *repository.MemoryStore
	metrics *observability.Metrics
}

func newTestServer(t *testing.T, uploader upload.Uploader) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	store := repository.NewMemoryStore()

	verifier, err := auth.NewStaticAdminVerifier("admin@example.com", "hunter2", bcrypt.MinCost)
	require.NoError(t, err)
	tokens := auth.NewTokenManager("test-secret", 60)

	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  store,
		MessageRepo: store,
		Uploader:    uploader,
		Logger:      logger,
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("support-desk", "test", nil, nil, metrics),
		Tickets:        handlers.NewTicketsHandler(tickets),
		Auth:           handlers.NewAuthHandler(service.NewAuthService(verifier, tokens)),
		LoginRateLimit: 3,
	})
	return &testServer{app: app, store: store, metrics: metrics}
}

func (s *testServer) do(t *testing.T, method, target, contentType string, body io.Reader) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set(fiber.HeaderContentType, contentType)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func (s *testServer) doJSON(t *testing.T, method, target string, payload any) (int, []byte) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return s.do(t, method, target, fiber.MIMEApplicationJSON, bytes.NewReader(raw))
}

func multipartBody(t *testing.T, fields map[string]string, fileName string, file []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		part, err := w.CreateFormFile("attachment", fileName)
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func (s *testServer) createTicket(t *testing.T, fields map[string]string) dto.TicketResponse {
	t.Helper()
	body, contentType := multipartBody(t, fields, "", nil)
	status, raw := s.do(t, fiber.MethodPost, "/api/tickets", contentType, body)
	require.Equal(t, fiber.StatusOK, status, string(raw))
	var ticket dto.TicketResponse
	require.NoError(t, json.Unmarshal(raw, &ticket))
	return ticket
}

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, raw []byte) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	return body
}

var validFields = map[string]string{"name": "Ann", "email": "ann@example.com", "description": "Printer is on fire"}

func TestCreateTicket_NoAttachment(t *testing.T) {
	s := newTestServer(t, nil)

	body, contentType := multipartBody(t, validFields, "", nil)
	status, raw := s.do(t, fiber.MethodPost, "/api/tickets", contentType, body)
	require.Equal(t, fiber.StatusOK, status, string(raw))

	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.Contains(t, generic, "attachmentUrl")
	assert.Nil(t, generic["attachmentUrl"])
	assert.Equal(t, "new", generic["status"])
	assert.NotEmpty(t, generic["id"])
	assert.NotEmpty(t, generic["createdAt"])
}

func TestCreateTicket_WithAttachment(t *testing.T) {
	var received upload.Attachment
	uploader := upload.UploaderFunc(func(_ context.Context, a upload.Attachment) (string, error) {
		received = a
		return "https://cdn.example.com/shot.png", nil
	})
	s := newTestServer(t, uploader)

	body, contentType := multipartBody(t, validFields, "shot.png", []byte("PNGDATA"))
	status, raw := s.do(t, fiber.MethodPost, "/api/tickets", contentType, body)
	require.Equal(t, fiber.StatusOK, status, string(raw))

	var ticket dto.TicketResponse
	require.NoError(t, json.Unmarshal(raw, &ticket))
	require.NotNil(t, ticket.AttachmentURL)
	assert.Equal(t, "https://cdn.example.com/shot.png", *ticket.AttachmentURL)
	assert.Equal(t, "shot.png", received.FileName)
	assert.Equal(t, []byte("PNGDATA"), received.Data)
}

func TestCreateTicket_MissingFields(t *testing.T) {
	s := newTestServer(t, nil)

	body, contentType := multipartBody(t, map[string]string{"name": "Ann"}, "", nil)
	status, raw := s.do(t, fiber.MethodPost, "/api/tickets", contentType, body)
	require.Equal(t, fiber.StatusBadRequest, status)
	errBody := decodeError(t, raw)
	assert.Equal(t, "VALIDATION_FAILED", errBody.Error.Code)
	assert.ElementsMatch(t, []any{"email", "description"}, errBody.Error.Details["missing"])

	tickets, err := s.store.List(context.Background(), repository.TicketListOptions{})
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestCreateTicket_UploadFailure(t *testing.T) {
	uploader := upload.UploaderFunc(func(context.Context, upload.Attachment) (string, error) {
		return "", errors.New("media host said no: secret-detail")
	})
	s := newTestServer(t, uploader)

	body, contentType := multipartBody(t, validFields, "shot.png", []byte("PNGDATA"))
	status, raw := s.do(t, fiber.MethodPost, "/api/tickets", contentType, body)
	require.Equal(t, fiber.StatusInternalServerError, status)
	errBody := decodeError(t, raw)
	assert.Equal(t, "UPLOAD_FAILED", errBody.Error.Code)
	assert.Equal(t, "internal server error", errBody.Error.Message)
	assert.NotContains(t, string(raw), "secret-detail")

	tickets, err := s.store.List(context.Background(), repository.TicketListOptions{})
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestTicketLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	first := s.createTicket(t, validFields)
	second := s.createTicket(t, map[string]string{"name": "Bob", "email": "bob@example.com", "description": "VPN down"})

	status, raw := s.do(t, fiber.MethodGet, "/api/tickets", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	var list []dto.TicketResponse
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list, 2)
	assert.False(t, list[0].CreatedAt.Before(list[1].CreatedAt))
	assert.ElementsMatch(t, []string{first.ID, second.ID}, []string{list[0].ID, list[1].ID})

	status, raw = s.doJSON(t, fiber.MethodPost, "/api/tickets/"+first.ID+"/respond", map[string]string{"message": "Have you tried water?"})
	require.Equal(t, fiber.StatusOK, status, string(raw))
	var reply map[string]any
	require.NoError(t, json.Unmarshal(raw, &reply))
	assert.Equal(t, domain.DefaultReplyAuthor, reply["author"])
	assert.Equal(t, first.ID, reply["ticketId"])
	assert.Equal(t, "Have you tried water?", reply["message"])

	status, raw = s.doJSON(t, fiber.MethodPatch, "/api/tickets/"+first.ID+"/status", map[string]string{"status": "resolved"})
	require.Equal(t, fiber.StatusOK, status, string(raw))
	var updated dto.TicketResponse
	require.NoError(t, json.Unmarshal(raw, &updated))
	assert.Equal(t, domain.TicketStatusResolved, updated.Status)

	status, raw = s.do(t, fiber.MethodGet, "/api/tickets/"+first.ID, "", nil)
	require.Equal(t, fiber.StatusOK, status)
	var detail dto.TicketDetailResponse
	require.NoError(t, json.Unmarshal(raw, &detail))
	assert.Equal(t, domain.TicketStatusResolved, detail.Ticket.Status)
	require.Len(t, detail.Messages, 2)
	assert.Equal(t, "Ann", detail.Messages[0].Author)
	assert.Equal(t, "Printer is on fire", detail.Messages[0].Message)
	assert.Equal(t, domain.DefaultReplyAuthor, detail.Messages[1].Author)
}

func TestTicketRoutes_NotFound(t *testing.T) {
	s := newTestServer(t, nil)

	status, raw := s.do(t, fiber.MethodGet, "/api/tickets/does-not-exist", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", decodeError(t, raw).Error.Code)

	status, _ = s.doJSON(t, fiber.MethodPost, "/api/tickets/does-not-exist/respond", map[string]string{"message": "hi"})
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = s.doJSON(t, fiber.MethodPatch, "/api/tickets/does-not-exist/status", map[string]string{"status": "resolved"})
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestSetStatus_Invalid(t *testing.T) {
	s := newTestServer(t, nil)
	ticket := s.createTicket(t, validFields)

	status, raw := s.doJSON(t, fiber.MethodPatch, "/api/tickets/"+ticket.ID+"/status", map[string]string{"status": "closed"})
	require.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "INVALID_STATUS", decodeError(t, raw).Error.Code)

	got, err := s.store.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusNew, got.Status)
}

func TestLogin_UnreadableBodyResolvesToUser(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{name: "json without content type", body: `{"email":"x","password":"y"}`},
		{name: "garbage json", contentType: fiber.MIMEApplicationJSON, body: "{not json"},
		{name: "empty body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, raw := s.do(t, fiber.MethodPost, "/api/auth/login", tt.contentType, strings.NewReader(tt.body))
			require.Equal(t, fiber.StatusOK, status, string(raw))
			var login dto.LoginResponse
			require.NoError(t, json.Unmarshal(raw, &login))
			assert.Equal(t, domain.RoleUser, login.Role)
			assert.NotEmpty(t, login.Token)
		})
	}
}

func TestLogin_AdminWithoutContentType(t *testing.T) {
	s := newTestServer(t, nil)

	status, raw := s.do(t, fiber.MethodPost, "/api/auth/login", "", strings.NewReader(`{"email":"admin@example.com","password":"hunter2"}`))
	require.Equal(t, fiber.StatusOK, status, string(raw))
	var login dto.LoginResponse
	require.NoError(t, json.Unmarshal(raw, &login))
	assert.Equal(t, domain.RoleAdmin, login.Role)
}

func TestJSONBodiesWithoutContentType(t *testing.T) {
	s := newTestServer(t, nil)
	ticket := s.createTicket(t, validFields)

	status, raw := s.do(t, fiber.MethodPost, "/api/tickets/"+ticket.ID+"/respond", "", strings.NewReader(`{"author":"Dana","message":"On it"}`))
	require.Equal(t, fiber.StatusOK, status, string(raw))
	var reply dto.MessageResponse
	require.NoError(t, json.Unmarshal(raw, &reply))
	assert.Equal(t, "Dana", reply.Author)
	assert.Equal(t, "On it", reply.Message)

	status, raw = s.do(t, fiber.MethodPatch, "/api/tickets/"+ticket.ID+"/status", "", strings.NewReader(`{"status":"in_progress"}`))
	require.Equal(t, fiber.StatusOK, status, string(raw))
	var updated dto.TicketResponse
	require.NoError(t, json.Unmarshal(raw, &updated))
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
}

func TestRespond_MalformedJSON(t *testing.T) {
	s := newTestServer(t, nil)
	ticket := s.createTicket(t, validFields)

	status, raw := s.do(t, fiber.MethodPost, "/api/tickets/"+ticket.ID+"/respond", fiber.MIMEApplicationJSON, strings.NewReader("{"))
	require.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", decodeError(t, raw).Error.Code)
}

func TestPreflight(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(fiber.MethodOptions, "/api/tickets", nil)
	req.Header.Set(fiber.HeaderOrigin, "https://desk.example.com")
	req.Header.Set(fiber.HeaderAccessControlRequestMethod, fiber.MethodPatch)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
	assert.Contains(t, resp.Header.Get(fiber.HeaderAccessControlAllowMethods), fiber.MethodPatch)

	bare, err := s.app.Test(httptest.NewRequest(fiber.MethodOptions, "/api/tickets/abc/status", nil), -1)
	require.NoError(t, err)
	defer bare.Body.Close()
	assert.Equal(t, fiber.StatusOK, bare.StatusCode)
}

func TestLoginAndSession(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name     string
		email    string
		password string
		want     domain.Role
	}{
		{name: "admin", email: "admin@example.com", password: "hunter2", want: domain.RoleAdmin},
		{name: "anyone else", email: "ann@example.com", password: "whatever", want: domain.RoleUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, raw := s.doJSON(t, fiber.MethodPost, "/api/auth/login", dto.LoginRequest{Email: tt.email, Password: tt.password})
			require.Equal(t, fiber.StatusOK, status, string(raw))
			var login dto.LoginResponse
			require.NoError(t, json.Unmarshal(raw, &login))
			assert.Equal(t, tt.want, login.Role)
			require.NotEmpty(t, login.Token)

			req := httptest.NewRequest(fiber.MethodGet, "/api/auth/session", nil)
			req.Header.Set(fiber.HeaderAuthorization, "Bearer "+login.Token)
			resp, err := s.app.Test(req, -1)
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, fiber.StatusOK, resp.StatusCode)
			var session dto.SessionResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
			assert.Equal(t, tt.want, session.Role)
		})
	}

	status, _ := s.do(t, fiber.MethodGet, "/api/auth/session", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestLogin_RateLimited(t *testing.T) {
	s := newTestServer(t, nil)
	creds := dto.LoginRequest{Email: "ann@example.com", Password: "x"}

	for i := 0; i < 3; i++ {
		status, _ := s.doJSON(t, fiber.MethodPost, "/api/auth/login", creds)
		require.Equal(t, fiber.StatusOK, status)
	}
	status, raw := s.doJSON(t, fiber.MethodPost, "/api/auth/login", creds)
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, raw).Error.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, nil)

	status, _ := s.do(t, fiber.MethodGet, "/health/live", "", nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, raw := s.do(t, fiber.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(raw), `"postgres":"disabled"`)

	s.do(t, fiber.MethodGet, "/api/tickets/missing", "", nil)
	s.do(t, fiber.MethodGet, "/api/tickets/also-missing", "", nil)

	status, raw = s.do(t, fiber.MethodGet, "/metrics", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	var snap observability.MetricsSnapshot
	require.NoError(t, json.Unmarshal(raw, &snap))
	var total int64
	for _, n := range snap.Requests {
		total += n
	}
	assert.GreaterOrEqual(t, total, int64(3))
	assert.Equal(t, int64(2), snap.Errors["/api/tickets/:id|GET|NOT_FOUND"])
	for key := range snap.Errors {
		assert.NotContains(t, key, "missing")
	}
}
