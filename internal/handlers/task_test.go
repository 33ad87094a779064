package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/assigndesk/task-assignment-api/internal/constants"
	"github.com/assigndesk/task-assignment-api/internal/middleware"
	"github.com/assigndesk/task-assignment-api/internal/models"
	"github.com/assigndesk/task-assignment-api/internal/repository"
	"github.com/assigndesk/task-assignment-api/internal/services"
	"github.com/assigndesk/task-assignment-api/internal/storage"
)

// TaskHandlerTestSuite defines the test suite for TaskHandler
type TaskHandlerTestSuite struct {
	suite.Suite
	db          *gorm.DB
	uploadDir   string
	taskHandler *TaskHandler
	authHandler *AuthHandler
	admin       *models.User
	worker      *models.User
	other       *models.User
}

// SetupTest runs before each test
func (suite *TaskHandlerTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(&models.User{}, &models.Task{}, &models.Document{})
	suite.Require().NoError(err)

	suite.uploadDir = suite.T().TempDir()
	store, err := storage.NewStore(suite.uploadDir)
	suite.Require().NoError(err)

	taskRepo := repository.NewTaskRepository(suite.db)
	userRepo := repository.NewUserRepository(suite.db)
	taskService := services.NewTaskService(taskRepo, userRepo, store)
	authService := services.NewAuthService(userRepo, "test-secret")

	suite.taskHandler = NewTaskHandler(taskService)
	suite.authHandler = NewAuthHandler(authService)

	suite.admin = suite.createTestUser("Admin", "admin@example.com", models.RoleAdmin)
	suite.worker = suite.createTestUser("Worker", "worker@example.com", models.RoleUser)
	suite.other = suite.createTestUser("Other", "other@example.com", models.RoleUser)

	gin.SetMode(gin.TestMode)
}

// TearDownTest runs after each test
func (suite *TaskHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *TaskHandlerTestSuite) createTestUser(name, email string, role models.UserRole) *models.User {
	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: "hashedpassword",
		Role:         role,
	}
	suite.db.Create(user)
	return user
}

// router builds the task routes with the given caller already
// authenticated, mirroring the server's route table.
func (suite *TaskHandlerTestSuite) router(user *models.User) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(constants.ContextKeyUserID, user.ID)
		c.Set(constants.ContextKeyUserRole, user.Role)
	})

	tasks := r.Group("/api/v1/tasks")
	{
		tasks.GET("", middleware.RequireAdmin(), suite.taskHandler.List)
		tasks.GET("/users", middleware.RequireAdmin(), suite.authHandler.ListUsers)
		tasks.GET("/admin-tasks", middleware.RequireAdmin(), suite.taskHandler.ListAdminTasks)
		tasks.GET("/user/:userId", suite.taskHandler.ListForUser)
		tasks.GET("/:taskId/documents/:docIndex", suite.taskHandler.DownloadDocument)
		tasks.POST("/create/:userId", middleware.RequireAdmin(), suite.taskHandler.Create)
		tasks.PUT("/status/:taskId", middleware.RequireAdmin(), suite.taskHandler.UpdateStatus)
		tasks.PUT("/user-status/:taskId", suite.taskHandler.UpdateStatus)
		tasks.PUT("/start/:taskId", suite.taskHandler.Start)
		tasks.PUT("/request-review/:taskId", suite.taskHandler.RequestReview)
		tasks.PUT("/approve/:taskId", middleware.RequireAdmin(), suite.taskHandler.Approve)
		tasks.PUT("/reject/:taskId", middleware.RequireAdmin(), suite.taskHandler.Reject)
		tasks.PUT("/:taskId", middleware.RequireAdmin(), suite.taskHandler.Reassign)
		tasks.DELETE("/delete/:taskId", middleware.RequireAdmin(), suite.taskHandler.Delete)
	}
	return r
}

type uploadFile struct {
	name        string
	contentType string
	content     []byte
}

func pdfUpload(name string, size int) uploadFile {
	return uploadFile{name: name, contentType: storage.PDFMimeType, content: bytes.Repeat([]byte("x"), size)}
}

func multipartBody(suite *TaskHandlerTestSuite, fields map[string]string, files []uploadFile) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for key, value := range fields {
		suite.Require().NoError(w.WriteField(key, value))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, storage.UploadField, f.name))
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		suite.Require().NoError(err)
		_, err = part.Write(f.content)
		suite.Require().NoError(err)
	}
	suite.Require().NoError(w.Close())

	return &buf, w.FormDataContentType()
}

func defaultTaskFields() map[string]string {
	return map[string]string{
		"title":       "Audit",
		"description": "Q1 audit",
		"deadline":    "2025-03-01T00:00:00Z",
		"priority":    "high",
	}
}

func (suite *TaskHandlerTestSuite) doCreate(caller *models.User, assigneeID uint64, fields map[string]string, files []uploadFile) *httptest.ResponseRecorder {
	body, contentType := multipartBody(suite, fields, files)
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/tasks/create/%d", assigneeID), body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	suite.router(caller).ServeHTTP(w, req)
	return w
}

func (suite *TaskHandlerTestSuite) doJSON(caller *models.User, method, url string, payload any) *httptest.ResponseRecorder {
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		suite.Require().NoError(err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, url, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.router(caller).ServeHTTP(w, req)
	return w
}

func (suite *TaskHandlerTestSuite) decodeData(w *httptest.ResponseRecorder) map[string]any {
	var response map[string]any
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	data, _ := response["data"].(map[string]any)
	return data
}

func (suite *TaskHandlerTestSuite) storedFileCount() int {
	entries, err := os.ReadDir(suite.uploadDir)
	suite.Require().NoError(err)
	return len(entries)
}

func (suite *TaskHandlerTestSuite) taskCount() int64 {
	var count int64
	suite.db.Model(&models.Task{}).Count(&count)
	return count
}

func (suite *TaskHandlerTestSuite) TestCreateTask_Success() {
	w := suite.doCreate(suite.admin, suite.worker.ID, defaultTaskFields(), []uploadFile{pdfUpload("report.pdf", 512)})

	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	data := suite.decodeData(w)
	assert.Equal(suite.T(), "pending", data["status"])
	assert.Equal(suite.T(), float64(suite.worker.ID), data["assignedTo"])
	assert.Equal(suite.T(), float64(suite.admin.ID), data["assignedBy"])

	docs := data["documents"].([]any)
	suite.Require().Len(docs, 1)
	doc := docs[0].(map[string]any)
	assert.Equal(suite.T(), "report.pdf", doc["originalname"])
	assert.Equal(suite.T(), storage.PDFMimeType, doc["mimetype"])

	assert.Equal(suite.T(), 1, suite.storedFileCount())
}

func (suite *TaskHandlerTestSuite) TestCreateTask_MissingFields() {
	fields := defaultTaskFields()
	delete(fields, "priority")

	w := suite.doCreate(suite.admin, suite.worker.ID, fields, []uploadFile{pdfUpload("report.pdf", 512)})

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Zero(suite.T(), suite.taskCount())
	assert.Zero(suite.T(), suite.storedFileCount())
}

func (suite *TaskHandlerTestSuite) TestCreateTask_TooManyFiles() {
	files := []uploadFile{
		pdfUpload("a.pdf", 10),
		pdfUpload("b.pdf", 10),
		pdfUpload("c.pdf", 10),
		pdfUpload("d.pdf", 10),
	}

	w := suite.doCreate(suite.admin, suite.worker.ID, defaultTaskFields(), files)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Zero(suite.T(), suite.taskCount())
	assert.Zero(suite.T(), suite.storedFileCount())
}

func (suite *TaskHandlerTestSuite) TestCreateTask_RejectsNonPDF() {
	files := []uploadFile{
		pdfUpload("ok.pdf", 10),
		{name: "notes.txt", contentType: "text/plain", content: []byte("hello")},
	}

	w := suite.doCreate(suite.admin, suite.worker.ID, defaultTaskFields(), files)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Zero(suite.T(), suite.taskCount())
	assert.Zero(suite.T(), suite.storedFileCount())
}

func (suite *TaskHandlerTestSuite) TestCreateTask_RequiresAdmin() {
	w := suite.doCreate(suite.worker, suite.worker.ID, defaultTaskFields(), nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

func (suite *TaskHandlerTestSuite) TestWorkflowScenario() {
	w := suite.doCreate(suite.admin, suite.worker.ID, defaultTaskFields(), []uploadFile{pdfUpload("report.pdf", 128)})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	taskID := uint64(suite.decodeData(w)["id"].(float64))

	w = suite.doJSON(suite.worker, http.MethodPut, fmt.Sprintf("/api/v1/tasks/start/%d", taskID), nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	assert.Equal(suite.T(), "in-progress", suite.decodeData(w)["status"])

	w = suite.doJSON(suite.worker, http.MethodPut, fmt.Sprintf("/api/v1/tasks/request-review/%d", taskID), nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	assert.Equal(suite.T(), "review-requested", suite.decodeData(w)["status"])

	w = suite.doJSON(suite.admin, http.MethodPut, fmt.Sprintf("/api/v1/tasks/reject/%d", taskID),
		map[string]string{"rejectionReason": "Missing figures"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	data := suite.decodeData(w)
	assert.Equal(suite.T(), "rejected", data["status"])
	assert.Equal(suite.T(), "Missing figures", data["rejectionReason"])

	// Admin reopens the task through the full-field reassign path.
	w = suite.doJSON(suite.admin, http.MethodPut, fmt.Sprintf("/api/v1/tasks/%d", taskID), map[string]any{
		"title":       "Audit",
		"description": "Q1 audit",
		"deadline":    "2025-04-01T00:00:00Z",
		"priority":    "high",
		"status":      "pending",
		"assignedTo":  suite.worker.ID,
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	data = suite.decodeData(w)
	assert.Equal(suite.T(), "pending", data["status"])
	assert.Nil(suite.T(), data["rejectionReason"])
}

func (suite *TaskHandlerTestSuite) TestUserStatus_CannotSetArbitraryState() {
	w := suite.doCreate(suite.admin, suite.worker.ID, defaultTaskFields(), nil)
	suite.Require().Equal(http.StatusCreated, w.Code)
	taskID := uint64(suite.decodeData(w)["id"].(float64))

	w = suite.doJSON(suite.worker, http.MethodPut, fmt.Sprintf("/api/v1/tasks/user-status/%d", taskID),
		map[string]string{"status": "completed"})
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	// The guarded next step still works through the same route.
	w = suite.doJSON(suite.worker, http.MethodPut, fmt.Sprintf("/api/v1/tasks/user-status/%d", taskID),
		map[string]string{"status": "in-progress"})
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func (suite *TaskHandlerTestSuite) TestUserStatus_OtherUsersTaskForbidden() {
	w := suite.doCreate(suite.admin, suite.worker.ID, defaultTaskFields(), nil)
	suite.Require().Equal(http.StatusCreated, w.Code)
	taskID := uint64(suite.decodeData(w)["id"].(float64))

	w = suite.doJSON(suite.other, http.MethodPut, fmt.Sprintf("/api/v1/tasks/start/%d", taskID), nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

func (suite *TaskHandlerTestSuite) TestUpdateStatus_NotFound() {
	w := suite.doJSON(suite.admin, http.MethodPut, "/api/v1/tasks/status/9999",
		map[string]string{"status": "in-progress"})
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *TaskHandlerTestSuite) TestDownloadDocument() {
	w := suite.doCreate(suite.admin, suite.worker.ID, defaultTaskFields(), []uploadFile{pdfUpload("report.pdf", 64)})
	suite.Require().Equal(http.StatusCreated, w.Code)
	taskID := uint64(suite.decodeData(w)["id"].(float64))

	w = suite.doJSON(suite.worker, http.MethodGet, fmt.Sprintf("/api/v1/tasks/%d/documents/0", taskID), nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Header().Get("Content-Disposition"), "report.pdf")
	assert.Equal(suite.T(), 64, w.Body.Len())

	w = suite.doJSON(suite.worker, http.MethodGet, fmt.Sprintf("/api/v1/tasks/%d/documents/5", taskID), nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w = suite.doJSON(suite.worker, http.MethodGet, "/api/v1/tasks/9999/documents/0", nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *TaskHandlerTestSuite) TestListForUser_Ownership() {
	suite.doCreate(suite.admin, suite.worker.ID, defaultTaskFields(), nil)

	// A user may fetch their own list.
	w := suite.doJSON(suite.worker, http.MethodGet, fmt.Sprintf("/api/v1/tasks/user/%d", suite.worker.ID), nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var response map[string]any
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(suite.T(), response["data"].([]any), 1)

	// But not someone else's.
	w = suite.doJSON(suite.worker, http.MethodGet, fmt.Sprintf("/api/v1/tasks/user/%d", suite.other.ID), nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	// Admins may fetch anyone's.
	w = suite.doJSON(suite.admin, http.MethodGet, fmt.Sprintf("/api/v1/tasks/user/%d", suite.worker.ID), nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func (suite *TaskHandlerTestSuite) TestListTasks_AdminOnly() {
	suite.doCreate(suite.admin, suite.worker.ID, defaultTaskFields(), nil)

	w := suite.doJSON(suite.admin, http.MethodGet, "/api/v1/tasks?page=1&limit=10", nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var response map[string]any
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(suite.T(), response["data"].([]any), 1)
	assert.Contains(suite.T(), response, "pagination")

	w = suite.doJSON(suite.worker, http.MethodGet, "/api/v1/tasks", nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

func (suite *TaskHandlerTestSuite) TestAdminTasks_SelfOnly() {
	suite.doCreate(suite.admin, suite.worker.ID, defaultTaskFields(), nil)

	w := suite.doJSON(suite.admin, http.MethodGet, fmt.Sprintf("/api/v1/tasks/admin-tasks?adminId=%d", suite.admin.ID), nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var response map[string]any
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(suite.T(), response["data"].([]any), 1)

	w = suite.doJSON(suite.admin, http.MethodGet, "/api/v1/tasks/admin-tasks?adminId=9999", nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

func (suite *TaskHandlerTestSuite) TestUserDirectory_ExcludesAdmins() {
	w := suite.doJSON(suite.admin, http.MethodGet, "/api/v1/tasks/users", nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var response map[string]any
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	users := response["data"].([]any)
	suite.Require().Len(users, 2)
	for _, u := range users {
		assert.Equal(suite.T(), "user", u.(map[string]any)["usertype"])
	}

	w = suite.doJSON(suite.worker, http.MethodGet, "/api/v1/tasks/users", nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

func (suite *TaskHandlerTestSuite) TestDeleteTask() {
	w := suite.doCreate(suite.admin, suite.worker.ID, defaultTaskFields(), []uploadFile{pdfUpload("report.pdf", 64)})
	suite.Require().Equal(http.StatusCreated, w.Code)
	taskID := uint64(suite.decodeData(w)["id"].(float64))
	suite.Require().Equal(1, suite.storedFileCount())

	w = suite.doJSON(suite.admin, http.MethodDelete, fmt.Sprintf("/api/v1/tasks/delete/%d", taskID), nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	// Gone from the database and from disk.
	assert.Zero(suite.T(), suite.taskCount())
	assert.Zero(suite.T(), suite.storedFileCount())

	w = suite.doJSON(suite.admin, http.MethodDelete, fmt.Sprintf("/api/v1/tasks/delete/%d", taskID), nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// TestTaskHandlerTestSuite runs the test suite
func TestTaskHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TaskHandlerTestSuite))
}
