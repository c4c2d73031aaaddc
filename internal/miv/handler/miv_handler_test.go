package handler

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bitfantasy/nimo-miv/internal/miv/entity"
	"github.com/bitfantasy/nimo-miv/internal/miv/repository"
	"github.com/bitfantasy/nimo-miv/internal/miv/service"
	"github.com/bitfantasy/nimo-miv/internal/miv/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupMIVTest(t *testing.T) (*gin.Engine, *gorm.DB, *entity.Project) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, db, nil, zap.NewNop())
	h := NewHandlers(services)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1")

	api.POST("/projects/:id/mto/import", h.Catalog.Import)
	api.GET("/projects/:id/mto/lines", h.Catalog.Lines)
	api.GET("/projects/:id/mto/items", h.Catalog.LineItems)
	api.GET("/projects/:id/mto/suggest", h.Catalog.SuggestLines)
	api.POST("/mivs", h.MIV.Register)
	api.GET("/mivs/:id", h.MIV.Get)
	api.PUT("/mivs/:id", h.MIV.Update)
	api.DELETE("/mivs/:id", h.MIV.Delete)
	api.GET("/projects/:id/mivs", h.MIV.List)
	api.GET("/projects/:id/progress/line", h.Progress.Line)
	api.GET("/projects/:id/progress", h.Progress.Project)

	project := testutil.SeedProject(t, db, "PRJ-API")
	return router, db, project
}

func seedAPILine(t *testing.T, db *gorm.DB, projectID, lineNo string) {
	t.Helper()
	testutil.SeedMTOItem(t, db, &entity.MTOItem{
		ProjectID: projectID,
		LineNo:    lineNo,
		LineKey:   service.NormalizeLineNo(lineNo),
		ItemCode:  "PFS-100",
		ItemType:  "ELBOW",
		Unit:      "EA",
		P1Bore:    4,
		Quantity:  100,
	})
}

func TestMIVHandlerAuthRequired(t *testing.T) {
	router, _, project := setupMIVTest(t)

	w := testutil.DoRequest(router, http.MethodGet, "/api/v1/projects/"+project.ID+"/mivs", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status without token = %d, want 401", w.Code)
	}
}

func TestMIVHandlerRegisterAndGet(t *testing.T) {
	router, db, project := setupMIVTest(t)
	seedAPILine(t, db, project.ID, "L-500")
	token := testutil.DefaultTestToken()

	body := map[string]interface{}{
		"project_id": project.ID,
		"line_no":    "L-500",
		"tag":        "miv-500",
		"lines": []map[string]interface{}{
			{"item_key": "PFS-100", "used_qty": 40},
		},
	}
	w := testutil.DoRequest(router, http.MethodPost, "/api/v1/mivs", body, token)
	if w.Code != http.StatusOK {
		t.Fatalf("register status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 0 {
		t.Fatalf("code = %v", resp["code"])
	}
	data := resp["data"].(map[string]interface{})
	if data["tag"] != "MIV-500" {
		t.Errorf("tag = %v, want MIV-500", data["tag"])
	}
	mivID := data["id"].(string)

	w = testutil.DoRequest(router, http.MethodGet, "/api/v1/mivs/"+mivID, nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}

	// 超量领料回422，前端据此提示改小数量
	body["tag"] = "MIV-501"
	body["lines"] = []map[string]interface{}{{"item_key": "PFS-100", "used_qty": 70}}
	w = testutil.DoRequest(router, http.MethodPost, "/api/v1/mivs", body, token)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("over-allocation status = %d, want 422", w.Code)
	}
	resp = testutil.ParseResponse(w)
	if resp["code"].(float64) != 10003 {
		t.Errorf("over-allocation code = %v, want 10003", resp["code"])
	}
}

func TestMIVHandlerNotFound(t *testing.T) {
	router, _, _ := setupMIVTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(router, http.MethodGet, "/api/v1/mivs/"+uuid.NewString(), nil, token)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 10002 {
		t.Errorf("code = %v, want 10002", resp["code"])
	}
}

func TestMIVHandlerRegisterValidation(t *testing.T) {
	router, _, project := setupMIVTest(t)
	token := testutil.DefaultTestToken()

	// 缺lines字段被binding拦下
	body := map[string]interface{}{
		"project_id": project.ID,
		"line_no":    "L-1",
		"tag":        "MIV-1",
	}
	w := testutil.DoRequest(router, http.MethodPost, "/api/v1/mivs", body, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status without lines = %d, want 400", w.Code)
	}
}

func TestProgressHandlerLine(t *testing.T) {
	router, db, project := setupMIVTest(t)
	seedAPILine(t, db, project.ID, "L-510")
	token := testutil.DefaultTestToken()

	body := map[string]interface{}{
		"project_id": project.ID,
		"line_no":    "L-510",
		"tag":        "MIV-510",
		"lines":      []map[string]interface{}{{"item_key": "PFS-100", "used_qty": 50}},
	}
	if w := testutil.DoRequest(router, http.MethodPost, "/api/v1/mivs", body, token); w.Code != http.StatusOK {
		t.Fatalf("register status = %d, body = %s", w.Code, w.Body.String())
	}

	w := testutil.DoRequest(router, http.MethodGet,
		"/api/v1/projects/"+project.ID+"/progress/line?line_no=L-510", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("progress status = %d", w.Code)
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if pct := data["percentage"].(float64); pct < 49.9 || pct > 50.1 {
		t.Errorf("percentage = %v, want ~50", pct)
	}
	if data["is_complete"].(bool) {
		t.Error("half-issued line marked complete")
	}
}

func TestCatalogHandlerImport(t *testing.T) {
	router, _, project := setupMIVTest(t)
	token := testutil.DefaultTestToken()

	csvBody := "Line No,Item Code,Description,Unit,Type,P1 Bore,Length M,Qty\n" +
		"L-600,PIPE-01,PIPE SMLS 6IN,M,Pipe,6,25.5,0\n" +
		"L-600,PFS-100,ELBOW 90,EA,Elbow,4,0,8\n" +
		",PFS-999,NO LINE,EA,Elbow,4,0,1\n"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "mto.csv")
	if err != nil {
		t.Fatal(err)
	}
	fmt.Fprint(fw, csvBody)
	mw.Close()

	req, _ := http.NewRequest(http.MethodPost, "/api/v1/projects/"+project.ID+"/mto/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("import status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["imported"].(float64) != 2 {
		t.Errorf("imported = %v, want 2", data["imported"])
	}
	if skipped := data["skipped_rows"].([]interface{}); len(skipped) != 1 {
		t.Errorf("skipped_rows = %v, want one row", skipped)
	}

	// 导入后管线可查
	w = testutil.DoRequest(router, http.MethodGet, "/api/v1/projects/"+project.ID+"/mto/lines", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("lines status = %d", w.Code)
	}
	resp = testutil.ParseResponse(w)
	lines := resp["data"].([]interface{})
	if len(lines) != 1 || lines[0].(string) != "L-600" {
		t.Errorf("lines = %v, want [L-600]", lines)
	}
}
