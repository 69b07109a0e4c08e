package controller

import (
	"bytes"
	"course_studio_backend/internal/config"
	"course_studio_backend/internal/middleware"
	"course_studio_backend/internal/model"
	"course_studio_backend/internal/repository"
	"course_studio_backend/internal/service"
	"course_studio_backend/internal/util"
	"course_studio_backend/pkg/database"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	gin.SetMode(gin.TestMode)

	db, err := database.InitDB(&config.DatabaseConfig{Driver: "sqlite", DSN: "file::memory:", MaxOpenConns: 1, MaxIdleConns: 1})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	courses := repository.NewCourseRepository(db)
	chapters := repository.NewChapterRepository(db)
	lessons := repository.NewLessonRepository(db)
	structure := service.NewCourseStructureService(db, courses, chapters, lessons, nil, nil)
	courseSvc := service.NewCourseService(db, courses, chapters, lessons, nil, nil, nil)

	chapterCtl := NewChapterController(structure)
	lessonCtl := NewLessonController(structure, courseSvc)
	courseCtl := NewCourseController(courseSvc)

	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}
	router := gin.New()
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin))
	admin.GET("/courses/:courseId", courseCtl.GetCourse)
	admin.DELETE("/courses/:courseId", courseCtl.DeleteCourse)
	admin.POST("/courses/:courseId/chapters", chapterCtl.CreateChapter)
	admin.PATCH("/courses/:courseId/chapters", chapterCtl.ReorderChapters)
	admin.DELETE("/courses/:courseId/chapters/:chapterId", chapterCtl.DeleteChapter)
	admin.POST("/courses/:courseId/chapters/:chapterId/lessons", lessonCtl.CreateLesson)
	admin.DELETE("/courses/:courseId/chapters/:chapterId/lessons/:lessonId", lessonCtl.DeleteLesson)

	return &testServer{router: router, db: db}
}

func token(t *testing.T, role model.UserRole) string {
	tok, err := util.GenerateJWT(&model.Actor{UserID: "user-" + string(role), Role: role}, testSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, tok string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func (s *testServer) seedCourse(t *testing.T) *model.Course {
	course := &model.Course{
		Title:            "Go basics",
		Description:      datatypes.JSON(`{}`),
		SmallDescription: "short",
		FileKey:          "cover.png",
		Price:            1,
		Duration:         1,
		Category:         "Development",
		Slug:             uuid.NewString(),
		UserID:           "user-admin",
	}
	require.NoError(t, s.db.Create(course).Error)
	return course
}

func TestAdminRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	course := s.seedCourse(t)

	rec, _ := s.do(t, http.MethodPost, "/api/admin/courses/"+course.ID+"/chapters", "", map[string]string{"name": "Intro"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/admin/courses/"+course.ID+"/chapters", "garbage", map[string]string{"name": "Intro"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/admin/courses/"+course.ID+"/chapters", token(t, model.Student), map[string]string{"name": "Intro"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var count int64
	require.NoError(t, s.db.Model(&model.Chapter{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateChapterEndpoint(t *testing.T) {
	s := newTestServer(t)
	course := s.seedCourse(t)

	rec, env := s.do(t, http.MethodPost, "/api/admin/courses/"+course.ID+"/chapters", token(t, model.Admin), map[string]string{"name": "Intro"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Chapter created successfully", env.Message)

	var result struct {
		Status string        `json:"status"`
		Data   model.Chapter `json:"data"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, 1, result.Data.Position)
	assert.Equal(t, course.ID, result.Data.CourseID)
}

func TestCreateChapterEndpointValidation(t *testing.T) {
	s := newTestServer(t)
	course := s.seedCourse(t)

	rec, env := s.do(t, http.MethodPost, "/api/admin/courses/"+course.ID+"/chapters", token(t, model.Admin), map[string]string{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid data", env.Message)

	var result service.ActionResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, service.StatusError, result.Status)
	require.Len(t, result.Fields, 1)
	assert.Equal(t, "name", result.Fields[0].Field)
}

func TestReorderEndpointRejectsEmptyList(t *testing.T) {
	s := newTestServer(t)
	course := s.seedCourse(t)

	rec, env := s.do(t, http.MethodPatch, "/api/admin/courses/"+course.ID+"/chapters", token(t, model.Admin), map[string]interface{}{"chapters": []interface{}{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No chapters provided for reordering", env.Message)
}

func TestReorderEndpoint(t *testing.T) {
	s := newTestServer(t)
	course := s.seedCourse(t)
	admin := token(t, model.Admin)

	var ids []string
	for _, name := range []string{"First", "Second"} {
		rec, env := s.do(t, http.MethodPost, "/api/admin/courses/"+course.ID+"/chapters", admin, map[string]string{"name": name})
		require.Equal(t, http.StatusCreated, rec.Code)
		var result struct {
			Data model.Chapter `json:"data"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &result))
		ids = append(ids, result.Data.ID)
	}

	rec, env := s.do(t, http.MethodPatch, "/api/admin/courses/"+course.ID+"/chapters", admin, map[string]interface{}{
		"chapters": []map[string]interface{}{
			{"id": ids[0], "position": 2},
			{"id": ids[1], "position": 1},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Chapters reordered successfully", env.Message)

	rec, env = s.do(t, http.MethodGet, "/api/admin/courses/"+course.ID, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var outline model.Course
	require.NoError(t, json.Unmarshal(env.Data, &outline))
	require.Len(t, outline.Chapters, 2)
	assert.Equal(t, ids[1], outline.Chapters[0].ID)
}

func TestDeleteLessonEndpointNotFound(t *testing.T) {
	s := newTestServer(t)
	course := s.seedCourse(t)
	admin := token(t, model.Admin)

	rec, env := s.do(t, http.MethodPost, "/api/admin/courses/"+course.ID+"/chapters", admin, map[string]string{"name": "Intro"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Data model.Chapter `json:"data"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	rec, env = s.do(t, http.MethodDelete, "/api/admin/courses/"+course.ID+"/chapters/"+created.Data.ID+"/lessons/"+uuid.NewString(), admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Lesson not found in the chapter", env.Message)
}

func TestGetCourseEndpointNotFound(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodGet, "/api/admin/courses/"+uuid.NewString(), token(t, model.Admin), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Course not found", env.Message)
}

func TestDeleteCourseEndpoint(t *testing.T) {
	s := newTestServer(t)
	course := s.seedCourse(t)

	rec, env := s.do(t, http.MethodDelete, "/api/admin/courses/"+course.ID, token(t, model.Admin), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Course deleted successfully", env.Message)
}
