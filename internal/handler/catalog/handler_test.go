package catalog

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/odontogram-api/internal/dental"
	"github.com/jwalitptl/odontogram-api/internal/middleware"
	"github.com/jwalitptl/odontogram-api/internal/model"
	"github.com/jwalitptl/odontogram-api/internal/repository/mocks"
	"github.com/jwalitptl/odontogram-api/internal/service/catalog"
	"github.com/jwalitptl/odontogram-api/pkg/auth"
	"github.com/jwalitptl/odontogram-api/pkg/cache"
)

func setup(t *testing.T) (*gin.Engine, auth.JWTService, *mocks.ConditionRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := auth.NewJWTService("0123456789abcdef0123456789abcdef", "odontogram-api")
	require.NoError(t, err)

	repo := new(mocks.ConditionRepository)
	svc := catalog.NewService(
		dental.StaticSource(dental.DefaultConditions()),
		repo,
		cache.New(cache.DefaultConfig(), nil),
		nil,
		nil,
		catalog.Config{TTL: time.Minute},
		nil,
	)

	authMiddleware := middleware.NewAuthMiddleware(tokens)
	r := gin.New()
	api := r.Group("/api/v1", authMiddleware.Authenticate())
	NewHandler(svc).RegisterRoutes(api, authMiddleware)

	t.Cleanup(func() { repo.AssertExpectations(t) })
	return r, tokens, repo
}

func request(t *testing.T, r *gin.Engine, tokens auth.JWTService, method, path, role string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	token, err := tokens.GenerateAccessToken(uuid.New(), role, time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListConditions(t *testing.T) {
	r, tokens, _ := setup(t)

	w := request(t, r, tokens, http.MethodGet, "/api/v1/conditions", auth.RoleAssistant, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []model.ConditionCatalogEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 9)
	assert.Equal(t, "ausente", resp.Data[0].Code)
}

func TestUpsertCondition(t *testing.T) {
	r, tokens, repo := setup(t)

	repo.On("List", mock.Anything).Return(dental.DefaultConditions(), nil)
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(e *model.ConditionCatalogEntry) bool {
		return e.Code == "fluorosis" && e.Priority == 3 && e.Color == "#CDDC39"
	})).Return(nil).Once()

	w := request(t, r, tokens, http.MethodPut, "/api/v1/conditions/Fluorosis", auth.RoleAdmin, gin.H{
		"display_name": "Fluorosis",
		"category":     "patologia",
		"priority":     3,
		"color":        "#CDDC39",
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestUpsertCondition_Rejected(t *testing.T) {
	r, tokens, _ := setup(t)
	valid := gin.H{"display_name": "Fluorosis", "priority": 3}

	w := request(t, r, tokens, http.MethodPut, "/api/v1/conditions/fluorosis", auth.RoleDentist, valid)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = request(t, r, tokens, http.MethodPut, "/api/v1/conditions/fluorosis", auth.RoleAdmin, gin.H{"display_name": "Fluorosis"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "priority is required")

	w = request(t, r, tokens, http.MethodPut, "/api/v1/conditions/fluorosis", auth.RoleAdmin, gin.H{
		"display_name": "Fluorosis", "priority": 3, "color": "green",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpsertCondition_OutranksMissingTooth(t *testing.T) {
	r, tokens, repo := setup(t)

	repo.On("List", mock.Anything).Return(dental.DefaultConditions(), nil)

	w := request(t, r, tokens, http.MethodPut, "/api/v1/conditions/implante", auth.RoleAdmin, gin.H{
		"display_name": "Implante",
		"priority":     11,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestInvalidate(t *testing.T) {
	r, tokens, _ := setup(t)

	// warm the cache
	w := request(t, r, tokens, http.MethodGet, "/api/v1/conditions", auth.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = request(t, r, tokens, http.MethodPost, "/api/v1/conditions/invalidate", auth.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Removed int `json:"removed"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.Removed)
}
