package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bitfantasy/vgp/internal/middleware"
	"github.com/bitfantasy/vgp/internal/vgp/entity"
)

const (
	JWTSecret = "vgp-test-jwt-secret"
)

// Test users, one per role
const (
	AdminID      = "u-admin"
	ManagerID    = "u-manager"
	TechnicianID = "u-tech"
	AuditorID    = "u-auditor"
)

// SetupTestDB opens an isolated in-memory SQLite database with every workflow
// table migrated. A single connection keeps the shared-cache database alive
// and serializes writers.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:vgp_%s?mode=memory&cache=shared", uuid.New().String()[:8])
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get database instance: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(entity.AllModels()...); err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

// SetupRouter creates a gin test router
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	return r
}

// AuthGroup creates an API group with JWT auth and the read-only guard
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret), middleware.ReadOnlyGuard())
}

// GenerateTestToken creates a valid JWT token for testing
func GenerateTestToken(userID, name string, roles []string) string {
	if roles == nil {
		roles = []string{}
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"uid":   userID,
		"name":  name,
		"email": userID + "@test.local",
		"roles": roles,
		"iss":   "vgp",
		"iat":   now.Unix(),
		"exp":   now.Add(24 * time.Hour).Unix(),
		"jti":   fmt.Sprintf("test-jti-%d", now.UnixNano()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

func AdminToken() string {
	return GenerateTestToken(AdminID, "Test Admin", []string{"admin"})
}

func ManagerToken() string {
	return GenerateTestToken(ManagerID, "Test Manager", []string{"technician", "manager"})
}

func TechnicianToken() string {
	return GenerateTestToken(TechnicianID, "Test Technician", []string{"technician"})
}

func AuditorToken() string {
	return GenerateTestToken(AuditorID, "Test Auditor", []string{"auditor"})
}

// DoRequest executes an HTTP request against the test router
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse parses the JSON response body into a handler.Response-like map
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// ResponseData returns the data object of a response envelope
func ResponseData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	resp := ParseResponse(w)
	data, ok := resp["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("Response has no data object: %s", w.Body.String())
	}
	return data
}

// SeedControlType creates an active control type
func SeedControlType(t *testing.T, db *gorm.DB, code string, periodicityDays int) *entity.ControlType {
	t.Helper()
	ct := &entity.ControlType{
		ID:              entity.NewID(),
		Code:            code,
		Label:           "Contrôle " + code,
		PeriodicityDays: periodicityDays,
		Active:          true,
	}
	if err := db.Create(ct).Error; err != nil {
		t.Fatalf("Failed to seed control type: %v", err)
	}
	return ct
}

// SeedAsset creates an asset
func SeedAsset(t *testing.T, db *gorm.DB, code string) *entity.Asset {
	t.Helper()
	asset := &entity.Asset{
		ID:   entity.NewID(),
		Code: code,
		Name: "Équipement " + code,
		Site: "Site A",
	}
	if err := db.Create(asset).Error; err != nil {
		t.Fatalf("Failed to seed asset: %v", err)
	}
	return asset
}

// SeedTemplate creates a template with n required yes/no items, sorted in creation order
func SeedTemplate(t *testing.T, db *gorm.DB, controlTypeID, flow string, n int, autoObservations bool) *entity.ChecklistTemplate {
	t.Helper()
	tpl := &entity.ChecklistTemplate{
		ID:               entity.NewID(),
		Code:             fmt.Sprintf("TPL-%s", uuid.New().String()[:8]),
		Label:            "Checklist " + flow,
		ControlTypeID:    controlTypeID,
		Flow:             flow,
		AutoObservations: autoObservations,
	}
	for i := 0; i < n; i++ {
		tpl.Items = append(tpl.Items, entity.TemplateItem{
			ID:         entity.NewID(),
			TemplateID: tpl.ID,
			Label:      fmt.Sprintf("Point %d", i+1),
			Required:   true,
			AnswerKind: entity.AnswerYesNo,
			SortOrder:  i + 1,
		})
	}
	if err := db.Create(tpl).Error; err != nil {
		t.Fatalf("Failed to seed template: %v", err)
	}
	return tpl
}

// SeedMission creates a mission in the given status
func SeedMission(t *testing.T, db *gorm.DB, status string) *entity.Mission {
	t.Helper()
	m := &entity.Mission{
		ID:         entity.NewID(),
		Code:       fmt.Sprintf("MIS-T-%s", uuid.New().String()[:8]),
		Title:      "Tournée test",
		AssignedTo: TechnicianID,
		Status:     status,
		CreatedBy:  ManagerID,
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("Failed to seed mission: %v", err)
	}
	return m
}

// Count returns the number of rows of model
func Count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	return n
}
