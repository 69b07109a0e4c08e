package service

import (
	"context"
	"course_studio_backend/internal/config"
	"course_studio_backend/internal/model"
	"course_studio_backend/internal/repository"
	"course_studio_backend/pkg/database"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	adminActor   = &model.Actor{UserID: "admin-1", Email: "admin@example.com", Role: model.Admin}
	studentActor = &model.Actor{UserID: "user-1", Email: "user@example.com", Role: model.Student}
)

// setupTestDB 每个测试一个独立的内存库；单连接保证事务内外看到同一个库
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          "file::memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type recordingRevalidator struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (r *recordingRevalidator) Revalidate(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	return r.err
}

func (r *recordingRevalidator) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

type recordingReporter struct {
	mu     sync.Mutex
	errors []error
}

func (r *recordingReporter) Report(_ context.Context, err error, _ map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
}

func (r *recordingReporter) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors)
}

type structureFixture struct {
	db          *gorm.DB
	svc         *CourseStructureService
	revalidator *recordingRevalidator
	reporter    *recordingReporter
}

func newStructureFixture(t *testing.T) *structureFixture {
	db := setupTestDB(t)
	revalidator := &recordingRevalidator{}
	reporter := &recordingReporter{}
	svc := NewCourseStructureService(db,
		repository.NewCourseRepository(db),
		repository.NewChapterRepository(db),
		repository.NewLessonRepository(db),
		reporter,
		revalidator,
	)
	return &structureFixture{db: db, svc: svc, revalidator: revalidator, reporter: reporter}
}

func seedCourse(t *testing.T, db *gorm.DB, title string) *model.Course {
	t.Helper()
	course := &model.Course{
		Title:            title,
		Description:      datatypes.JSON(`{"type":"doc"}`),
		SmallDescription: "short",
		FileKey:          "cover.png",
		Price:            10,
		Duration:         5,
		Level:            model.LevelBeginner,
		Category:         "Development",
		Slug:             model.GenerateUUID(),
		Status:           model.StatusDraft,
		UserID:           adminActor.UserID,
	}
	require.NoError(t, db.Create(course).Error)
	return course
}

func seedChapters(t *testing.T, db *gorm.DB, courseID string, positions ...int) []model.Chapter {
	t.Helper()
	chapters := make([]model.Chapter, 0, len(positions))
	for i, p := range positions {
		c := model.Chapter{Title: "Chapter " + string(rune('A'+i)), Position: p, CourseID: courseID}
		require.NoError(t, db.Create(&c).Error)
		chapters = append(chapters, c)
	}
	return chapters
}

func seedLessons(t *testing.T, db *gorm.DB, chapterID string, positions ...int) []model.Lesson {
	t.Helper()
	lessons := make([]model.Lesson, 0, len(positions))
	for i, p := range positions {
		l := model.Lesson{Title: "Lesson " + string(rune('A'+i)), Position: p, ChapterID: chapterID}
		require.NoError(t, db.Create(&l).Error)
		lessons = append(lessons, l)
	}
	return lessons
}

// chapterPositions id -> position
func chapterPositions(t *testing.T, db *gorm.DB, courseID string) map[string]int {
	t.Helper()
	var chapters []model.Chapter
	require.NoError(t, db.Where("course_id = ?", courseID).Find(&chapters).Error)
	out := make(map[string]int, len(chapters))
	for _, c := range chapters {
		out[c.ID] = c.Position
	}
	return out
}

func lessonPositions(t *testing.T, db *gorm.DB, chapterID string) map[string]int {
	t.Helper()
	var lessons []model.Lesson
	require.NoError(t, db.Where("chapter_id = ?", chapterID).Find(&lessons).Error)
	out := make(map[string]int, len(lessons))
	for _, l := range lessons {
		out[l.ID] = l.Position
	}
	return out
}

func toSiblings(positions map[string]int) []Sibling {
	siblings := make([]Sibling, 0, len(positions))
	for id, p := range positions {
		siblings = append(siblings, Sibling{ID: id, Position: p})
	}
	return siblings
}
