package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lumostore/topup/internal/app/service/catalog"
	"github.com/lumostore/topup/pkg/response"
)

func adminRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	cat := catalog.NewService(nil, zap.NewNop().Sugar())
	r := gin.New()
	r.POST("/admin/catalog/games/:id/refresh", ApiRefreshGameSnapshot(cat))
	return r
}

func TestApiRefreshGameSnapshot_OK(t *testing.T) {
	r := adminRouter()

	w := doJSON(t, r, http.MethodPost, "/admin/catalog/games/1/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var res response.APIResponse[map[string]string]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Equal(t, response.APIResponseCodeOK, res.Code)
}

func TestApiRefreshGameSnapshot_BadID(t *testing.T) {
	r := adminRouter()

	w := doJSON(t, r, http.MethodPost, "/admin/catalog/games/abc/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var res response.APIResponse[any]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Equal(t, response.APIResponseCodeBadRequest, res.Code)
}
