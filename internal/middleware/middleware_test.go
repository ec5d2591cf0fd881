package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/odontogram-api/internal/handler"
	"github.com/jwalitptl/odontogram-api/internal/model"
	"github.com/jwalitptl/odontogram-api/internal/repository/mocks"
	"github.com/jwalitptl/odontogram-api/internal/service/audit"
	"github.com/jwalitptl/odontogram-api/pkg/auth"
	apperrors "github.com/jwalitptl/odontogram-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate(t *testing.T) {
	tokens, err := auth.NewJWTService("0123456789abcdef0123456789abcdef", "odontogram-api")
	require.NoError(t, err)
	m := NewAuthMiddleware(tokens)

	userID := uuid.New()
	r := gin.New()
	r.GET("/me", m.Authenticate(), func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c).String()+" "+c.GetString(ContextRole))
	})
	r.GET("/admin", m.Authenticate(), m.RequireRole(auth.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	token, err := tokens.GenerateAccessToken(userID, auth.RoleDentist, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"valid", "/me", "Bearer " + token, http.StatusOK},
		{"missing header", "/me", "", http.StatusUnauthorized},
		{"wrong scheme", "/me", "Basic " + token, http.StatusUnauthorized},
		{"garbage token", "/me", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"role not allowed", "/admin", "Bearer " + token, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(r, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, userID.String()+" "+auth.RoleDentist, w.Body.String())
			}
		})
	}
}

func TestUserID_Unauthenticated(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, uuid.Nil, UserID(c))
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), ErrorHandler())
	r.GET("/conflict", func(c *gin.Context) {
		_ = c.Error(apperrors.Conflict("version taken", nil).WithDetails([]string{"retry"}))
	})
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(assert.AnError)
	})
	r.GET("/written", func(c *gin.Context) {
		_ = c.Error(assert.AnError)
		c.String(http.StatusTeapot, "handled")
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/conflict", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"message":"version taken"`)
	assert.Contains(t, w.Body.String(), `"details":["retry"]`)
	assert.Contains(t, w.Body.String(), w.Header().Get(HeaderXRequestID))

	w = serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/written", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "handled", w.Body.String())
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestID)) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(w.Body.String())
	assert.NoError(t, err)
	assert.Equal(t, w.Body.String(), w.Header().Get(HeaderXRequestID))

	given := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, given)
	assert.Equal(t, given, serve(r, req).Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, "not-a-uuid\nwith-newline")
	assert.NotEqual(t, "not-a-uuid\nwith-newline", serve(r, req).Body.String())
}

func TestRecovery(t *testing.T) {
	var logs bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&logs)
	t.Cleanup(func() { log.Logger = prev })

	r := gin.New()
	r.Use(Recovery(), RequestID())
	r.GET("/", func(*gin.Context) { panic("boom") })
	r.GET("/written", func(c *gin.Context) {
		c.Status(http.StatusAccepted)
		c.Writer.WriteHeaderNow()
		panic("late")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rid := uuid.NewString()
	req.Header.Set(HeaderXRequestID, rid)
	w := serve(r, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp handler.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "internal server error", resp.Message)
	assert.NotContains(t, w.Body.String(), "boom")

	assert.Contains(t, logs.String(), `"request_id":"`+rid+`"`)
	assert.Contains(t, logs.String(), `"panic":"boom"`)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/written", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(TimeoutConfig{Duration: 20 * time.Millisecond}))
	r.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})
	r.GET("/fast", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusGatewayTimeout, serve(r, httptest.NewRequest(http.MethodGet, "/slow", nil)).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, httptest.NewRequest(http.MethodGet, "/fast", nil)).Code)
}

func TestRateLimit(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: rate.Every(time.Hour), Burst: 2})
	r := gin.New()
	r.Use(rl.RateLimit())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	from := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":4321"
		return serve(r, req).Code
	}

	assert.Equal(t, http.StatusNoContent, from("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, from("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, from("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, from("10.0.0.2"), "limits are per client")
}

func TestSizeLimit(t *testing.T) {
	r := gin.New()
	r.Use(SizeLimit(8))
	r.POST("/", func(c *gin.Context) {
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusNoContent)
	})

	assert.Equal(t, http.StatusNoContent, serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small"))).Code)
	assert.Equal(t, http.StatusRequestEntityTooLarge, serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("far too large"))).Code)
}

func TestAuditContext(t *testing.T) {
	repo := new(mocks.AuditRepository)
	svc := audit.NewService(repo)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(l *model.AuditLog) bool {
		return l.IPAddress == "10.1.2.3" && l.UserAgent == "chart-client/1.0"
	})).Return(nil).Once()

	r := gin.New()
	r.Use(AuditContext())
	r.GET("/", func(c *gin.Context) {
		err := svc.Log(c.Request.Context(), uuid.New(), model.AuditActionRead, model.AuditEntityOdontogram, uuid.New(), nil)
		require.NoError(t, err)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	req.Header.Set("User-Agent", "chart-client/1.0")
	serve(r, req)

	repo.AssertExpectations(t)
}
