package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/chart_editor_server/config"
	"github.com/qs3c/chart_editor_server/internal/api/middleware"
	"github.com/qs3c/chart_editor_server/internal/pkg/draft"
	"github.com/qs3c/chart_editor_server/internal/pkg/pubsub"
	"github.com/qs3c/chart_editor_server/internal/pkg/queue"
	"github.com/qs3c/chart_editor_server/internal/pkg/response"
	"github.com/qs3c/chart_editor_server/internal/repository"
	"github.com/qs3c/chart_editor_server/internal/service"
	"github.com/qs3c/chart_editor_server/internal/testutil"
)

const testSecret = "test-secret-key"

func init() {
	gin.SetMode(gin.TestMode)
}

// testContext 本地测试上下文
type testContext struct {
	DB      *gorm.DB
	Cfg     *config.Config
	Drafts  *draft.Store
	Storage *memoryStorage

	Auth    *service.AuthService
	User    *service.UserService
	Quota   *service.QuotaService
	Chart   *service.ChartService
	Gallery *service.GalleryService
}

// memoryStorage 内存中的预览图存储
type memoryStorage struct {
	objects map[string][]byte
}

func (m *memoryStorage) UploadPreview(chartID int64, data []byte, ext string) (string, error) {
	url := fmt.Sprintf("https://cdn.example.com/previews/%d%s", chartID, ext)
	m.objects[url] = data
	return url, nil
}

func (m *memoryStorage) DeleteByURL(url string) error {
	delete(m.objects, url)
	return nil
}

func setupTestContext(t *testing.T) *testContext {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })
	client, _ := testutil.SetupTestRedis(t)

	cfg := &config.Config{
		JWT:     config.JWTConfig{Secret: testSecret, ExpireHours: 24},
		Quota:   config.QuotaConfig{DailyLimit: 1, Timezone: "UTC"},
		Gallery: config.GalleryConfig{ListLimit: 50},
	}

	userRepo := repository.NewUserRepository(db)
	chartRepo := repository.NewChartRepository(db)
	galleryRepo := repository.NewGalleryRepository(db)

	ctx := &testContext{
		DB:      db,
		Cfg:     cfg,
		Drafts:  draft.NewStore(client, cfg.Draft.TTL()),
		Storage: &memoryStorage{objects: map[string][]byte{}},
	}
	ctx.Quota = service.NewQuotaService(userRepo, cfg, nil)
	ctx.Auth = service.NewAuthService(userRepo, ctx.Drafts, cfg)
	ctx.User = service.NewUserService(userRepo, ctx.Quota)
	ctx.Chart = service.NewChartService(
		chartRepo,
		galleryRepo,
		ctx.Quota,
		ctx.Drafts,
		ctx.Storage,
		queue.NewQueue(client, "activity:test"),
		pubsub.NewPublisher(client, "events:test"),
		cfg,
		nil,
	)
	ctx.Gallery = service.NewGalleryService(galleryRepo, repository.NewFavoriteRepository(db), cfg, nil)
	return ctx
}

// mockAuth 模拟认证中间件
func mockAuth(userID int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Next()
	}
}

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	switch b := body.(type) {
	case nil:
		reqBody = bytes.NewBuffer(nil)
	case string:
		reqBody = bytes.NewBufferString(b)
	default:
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

// dataMap 取出响应中的 data 对象
func dataMap(t *testing.T, resp response.Response) map[string]interface{} {
	t.Helper()
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", resp.Data)
	return data
}

func newJSONRequest(method, path string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(t *testing.T, r http.Handler, req *http.Request) response.Response {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return parseResponse(t, w)
}
