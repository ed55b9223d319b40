package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/qs3c/chart_editor_server/internal/model"
	"github.com/qs3c/chart_editor_server/internal/pkg/export"
	"github.com/qs3c/chart_editor_server/internal/pkg/response"
	"github.com/qs3c/chart_editor_server/internal/testutil"
)

// setupChartRouter 按生产环境的路由挂载图表接口
func setupChartRouter(t *testing.T, userID int64, ctx *testContext) *gin.Engine {
	t.Helper()

	handler := NewChartHandler(ctx.Chart, nil)

	router := gin.New()
	router.Use(mockAuth(userID))
	charts := router.Group("/charts")
	{
		charts.POST("", handler.Create)
		charts.GET("", handler.List)
		charts.GET("/export", handler.Export)
		charts.GET("/:id", handler.Get)
		charts.PUT("/:id", handler.Update)
		charts.DELETE("/:id", handler.Delete)
		charts.POST("/:id/duplicate", handler.Duplicate)
		charts.POST("/:id/publish", handler.Publish)
		charts.POST("/:id/preview", handler.UploadPreview)
		charts.POST("/:id/draft", handler.OpenDraft)
		charts.PATCH("/:id/draft", handler.PatchDraft)
		charts.POST("/:id/draft/save", handler.SaveDraft)
		charts.DELETE("/:id/draft", handler.DiscardDraft)
	}
	return router
}

func chartPath(id int64, suffix string) string {
	return fmt.Sprintf("/charts/%d%s", id, suffix)
}

func TestChartHandler_Create_Success(t *testing.T) {
	ctx := setupTestContext(t)
	user := testutil.TestUser(t, ctx.DB)
	router := setupChartRouter(t, user.ID, ctx)

	w := performRequest(router, "POST", "/charts", map[string]interface{}{
		"name": "Revenue",
		"spec": json.RawMessage(testutil.TestSpec),
	})
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, response.CodeSuccess, resp.Code)

	data := dataMap(t, resp)
	assert.Equal(t, "Revenue", data["name"])
	assert.Equal(t, "bar", data["chart_type"])
	assert.NotNil(t, data["spec"])
}

func TestChartHandler_Create_QuotaExceeded(t *testing.T) {
	ctx := setupTestContext(t)
	user := testutil.TestUser(t, ctx.DB, testutil.WithChartsToday(1, time.Now()))
	router := setupChartRouter(t, user.ID, ctx)

	w := performRequest(router, "POST", "/charts", map[string]string{"name": "second"})
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, response.CodeQuotaExceeded, resp.Code)

	data := dataMap(t, resp)
	assert.EqualValues(t, 1, data["current"])
	assert.EqualValues(t, 1, data["limit"])
}

func TestChartHandler_Create_Invalid(t *testing.T) {
	ctx := setupTestContext(t)
	user := testutil.TestUser(t, ctx.DB)
	router := setupChartRouter(t, user.ID, ctx)

	tests := []struct {
		name string
		body string
	}{
		{name: "missing name", body: `{}`},
		{name: "malformed json", body: `{"name":`},
		{name: "spec not an object", body: `{"name":"x","spec":[1,2]}`},
		{name: "mark not a string or object", body: `{"name":"x","spec":{"mark":42}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, "POST", "/charts", tt.body)
			assert.Equal(t, response.CodeParamError, parseResponse(t, w).Code)
		})
	}

	var count int64
	require.NoError(t, ctx.DB.Model(&model.Chart{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestChartHandler_List(t *testing.T) {
	ctx := setupTestContext(t)
	user := testutil.TestUser(t, ctx.DB)
	other := testutil.TestUser(t, ctx.DB)
	testutil.TestChart(t, ctx.DB, user.ID, testutil.WithChartName("Revenue"))
	testutil.TestChart(t, ctx.DB, user.ID, testutil.WithChartName("Costs"))
	testutil.TestChart(t, ctx.DB, other.ID)
	router := setupChartRouter(t, user.ID, ctx)

	w := performRequest(router, "GET", "/charts?page=1&page_size=10", nil)
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	data := dataMap(t, resp)
	assert.EqualValues(t, 2, data["total"])
	assert.Len(t, data["items"], 2)

	w = performRequest(router, "GET", "/charts?search=Rev", nil)
	data = dataMap(t, parseResponse(t, w))
	assert.EqualValues(t, 1, data["total"])

	w = performRequest(router, "GET", "/charts?page_size=1000", nil)
	assert.Equal(t, response.CodeParamError, parseResponse(t, w).Code)
}

func TestChartHandler_Get(t *testing.T) {
	ctx := setupTestContext(t)
	owner := testutil.TestUser(t, ctx.DB)
	other := testutil.TestUser(t, ctx.DB)
	private := testutil.TestChart(t, ctx.DB, owner.ID)
	public := testutil.TestChart(t, ctx.DB, owner.ID, testutil.WithPublic(true))

	tests := []struct {
		name   string
		userID int64
		path   string
		code   int
	}{
		{name: "owner", userID: owner.ID, path: chartPath(private.ID, ""), code: response.CodeSuccess},
		{name: "public chart", userID: other.ID, path: chartPath(public.ID, ""), code: response.CodeSuccess},
		{name: "private chart", userID: other.ID, path: chartPath(private.ID, ""), code: response.CodePermissionDenied},
		{name: "missing", userID: owner.ID, path: chartPath(99999, ""), code: response.CodeResourceNotFound},
		{name: "bad id", userID: owner.ID, path: "/charts/abc", code: response.CodeParamError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupChartRouter(t, tt.userID, ctx)
			w := performRequest(router, "GET", tt.path, nil)
			assert.Equal(t, tt.code, parseResponse(t, w).Code)
		})
	}
}

func TestChartHandler_Update_Delta(t *testing.T) {
	ctx := setupTestContext(t)
	owner := testutil.TestUser(t, ctx.DB)
	chart := testutil.TestChart(t, ctx.DB, owner.ID)
	router := setupChartRouter(t, owner.ID, ctx)

	w := performRequest(router, "PUT", chartPath(chart.ID, ""), `{
		"name": "Renamed",
		"delta": {
			"mark": {"type": "line", "point": true},
			"encoding": {"color": {"field": "region", "type": "nominal"}}
		}
	}`)
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	data := dataMap(t, resp)
	assert.Equal(t, "Renamed", data["name"])
	assert.Equal(t, "line", data["chart_type"])

	spec := data["spec"].(map[string]interface{})
	encoding := spec["encoding"].(map[string]interface{})
	assert.Contains(t, encoding, "color")
	assert.Contains(t, encoding, "x")
}

func TestChartHandler_Update_Errors(t *testing.T) {
	ctx := setupTestContext(t)
	owner := testutil.TestUser(t, ctx.DB)
	other := testutil.TestUser(t, ctx.DB)
	chart := testutil.TestChart(t, ctx.DB, owner.ID, testutil.WithPublic(true))

	router := setupChartRouter(t, owner.ID, ctx)
	w := performRequest(router, "PUT", chartPath(chart.ID, ""), `{"delta":{"mark":{"type":""}}}`)
	assert.Equal(t, response.CodeParamError, parseResponse(t, w).Code)

	router = setupChartRouter(t, other.ID, ctx)
	w = performRequest(router, "PUT", chartPath(chart.ID, ""), `{"name":"mine now"}`)
	assert.Equal(t, response.CodePermissionDenied, parseResponse(t, w).Code)
}

func TestChartHandler_Delete(t *testing.T) {
	ctx := setupTestContext(t)
	owner := testutil.TestUser(t, ctx.DB)
	chart := testutil.TestChart(t, ctx.DB, owner.ID)
	router := setupChartRouter(t, owner.ID, ctx)

	w := performRequest(router, "DELETE", chartPath(chart.ID, ""), nil)
	require.Equal(t, response.CodeSuccess, parseResponse(t, w).Code)

	w = performRequest(router, "GET", chartPath(chart.ID, ""), nil)
	assert.Equal(t, response.CodeResourceNotFound, parseResponse(t, w).Code)
}

func TestChartHandler_Duplicate(t *testing.T) {
	ctx := setupTestContext(t)
	owner := testutil.TestUser(t, ctx.DB)
	chart := testutil.TestChart(t, ctx.DB, owner.ID, testutil.WithChartName("Sales"))
	router := setupChartRouter(t, owner.ID, ctx)

	w := performRequest(router, "POST", chartPath(chart.ID, "/duplicate"), nil)
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)
	assert.Equal(t, "Sales (copy)", dataMap(t, resp)["name"])

	// 免费用户每日一次，第二次复制被拒绝
	w = performRequest(router, "POST", chartPath(chart.ID, "/duplicate"), nil)
	assert.Equal(t, response.CodeQuotaExceeded, parseResponse(t, w).Code)
}

func TestChartHandler_Publish(t *testing.T) {
	ctx := setupTestContext(t)
	owner := testutil.TestUser(t, ctx.DB)
	chart := testutil.TestChart(t, ctx.DB, owner.ID)
	router := setupChartRouter(t, owner.ID, ctx)

	body := map[string]interface{}{"title": "Quarterly Sales", "tags": []string{"sales"}}
	w := performRequest(router, "POST", chartPath(chart.ID, "/publish"), body)
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	data := dataMap(t, resp)
	assert.Regexp(t, `^quarterly-sales-[0-9a-f]{8}$`, data["slug"])
	assert.Equal(t, []interface{}{"sales"}, data["tags"])

	w = performRequest(router, "POST", chartPath(chart.ID, "/publish"), body)
	assert.Equal(t, response.CodeDuplicateAction, parseResponse(t, w).Code)

	w = performRequest(router, "POST", chartPath(chart.ID, "/publish"), map[string]string{})
	assert.Equal(t, response.CodeParamError, parseResponse(t, w).Code)
}

func newMultipartRequest(t *testing.T, path, filename string, content []byte) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestChartHandler_UploadPreview(t *testing.T) {
	ctx := setupTestContext(t)
	owner := testutil.TestUser(t, ctx.DB)
	chart := testutil.TestChart(t, ctx.DB, owner.ID)
	router := setupChartRouter(t, owner.ID, ctx)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newMultipartRequest(t, chartPath(chart.ID, "/preview"), "preview.png", []byte("png-bytes")))
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	url := dataMap(t, resp)["preview_image_url"].(string)
	assert.Equal(t, []byte("png-bytes"), ctx.Storage.objects[url])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, newMultipartRequest(t, chartPath(chart.ID, "/preview"), "notes.txt", []byte("hi")))
	assert.Equal(t, response.CodeParamError, parseResponse(t, w).Code)

	// 没有文件
	w = performRequest(router, "POST", chartPath(chart.ID, "/preview"), nil)
	assert.Equal(t, response.CodeParamError, parseResponse(t, w).Code)
}

func TestChartHandler_Export(t *testing.T) {
	ctx := setupTestContext(t)
	owner := testutil.TestUser(t, ctx.DB)
	testutil.TestChart(t, ctx.DB, owner.ID, testutil.WithChartName("Revenue"))
	router := setupChartRouter(t, owner.ID, ctx)

	w := performRequest(router, "GET", "/charts/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment;")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(export.SheetCharts)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Revenue", rows[1][1])
}

func TestChartHandler_DraftLifecycle(t *testing.T) {
	ctx := setupTestContext(t)
	owner := testutil.TestUser(t, ctx.DB)
	chart := testutil.TestChart(t, ctx.DB, owner.ID)
	router := setupChartRouter(t, owner.ID, ctx)

	// 没有会话时修改失败
	w := performRequest(router, "PATCH", chartPath(chart.ID, "/draft"), `{"mark":{"type":"area"}}`)
	assert.Equal(t, response.CodeResourceNotFound, parseResponse(t, w).Code)

	w = performRequest(router, "POST", chartPath(chart.ID, "/draft"), nil)
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)
	assert.EqualValues(t, 0, dataMap(t, resp)["revision"])

	w = performRequest(router, "PATCH", chartPath(chart.ID, "/draft"), `{"mark":{"type":"area"}}`)
	resp = parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)
	data := dataMap(t, resp)
	assert.EqualValues(t, 1, data["revision"])
	mark := data["spec"].(map[string]interface{})["mark"].(map[string]interface{})
	assert.Equal(t, "area", mark["type"])

	// 保存前已保存的图表不变
	w = performRequest(router, "GET", chartPath(chart.ID, ""), nil)
	assert.Equal(t, "bar", dataMap(t, parseResponse(t, w))["chart_type"])

	w = performRequest(router, "POST", chartPath(chart.ID, "/draft/save"), nil)
	resp = parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)
	assert.Equal(t, "area", dataMap(t, resp)["chart_type"])

	w = performRequest(router, "DELETE", chartPath(chart.ID, "/draft"), nil)
	assert.Equal(t, response.CodeResourceNotFound, parseResponse(t, w).Code)
}

func TestChartHandler_DraftDiscard(t *testing.T) {
	ctx := setupTestContext(t)
	owner := testutil.TestUser(t, ctx.DB)
	chart := testutil.TestChart(t, ctx.DB, owner.ID)
	router := setupChartRouter(t, owner.ID, ctx)

	w := performRequest(router, "POST", chartPath(chart.ID, "/draft"), nil)
	require.Equal(t, response.CodeSuccess, parseResponse(t, w).Code)

	w = performRequest(router, "PATCH", chartPath(chart.ID, "/draft"), `{"params":[{"name":"p","value":1}]}`)
	require.Equal(t, response.CodeSuccess, parseResponse(t, w).Code)

	w = performRequest(router, "DELETE", chartPath(chart.ID, "/draft"), nil)
	require.Equal(t, response.CodeSuccess, parseResponse(t, w).Code)

	w = performRequest(router, "POST", chartPath(chart.ID, "/draft/save"), nil)
	assert.Equal(t, response.CodeResourceNotFound, parseResponse(t, w).Code)
}
