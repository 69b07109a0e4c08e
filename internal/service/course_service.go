package service

import (
	"context"
	"course_studio_backend/internal/model"
	"course_studio_backend/internal/repository"
	"course_studio_backend/internal/util"
	"course_studio_backend/pkg/logger"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gosimple/slug"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ViewCache 编辑视图缓存，RedisRevalidator 实现
type ViewCache interface {
	Load(ctx context.Context, path string, dst interface{}) (bool, error)
	Store(ctx context.Context, path string, value interface{}) error
}

// CourseService 课程本身的增删改查；结构（章节/课时位置）由 CourseStructureService 负责
type CourseService struct {
	gate
	db       *gorm.DB
	cache    ViewCache
	Courses  *repository.CourseRepository
	Chapters *repository.ChapterRepository
	Lessons  *repository.LessonRepository
}

func NewCourseService(
	db *gorm.DB,
	courses *repository.CourseRepository,
	chapters *repository.ChapterRepository,
	lessons *repository.LessonRepository,
	cache ViewCache,
	reporter Reporter,
	revalidator Revalidator,
) *CourseService {
	return &CourseService{
		gate:     newGate(reporter, revalidator),
		db:       db,
		cache:    cache,
		Courses:  courses,
		Chapters: chapters,
		Lessons:  lessons,
	}
}

type CourseRequest struct {
	Title            string          `json:"title" validate:"required,min=3,max=255"`
	Description      json.RawMessage `json:"description" validate:"required"`
	SmallDescription string          `json:"smallDescription" validate:"required,min=3,max=255"`
	FileKey          string          `json:"fileKey" validate:"required"`
	Price            int             `json:"price" validate:"required,min=1"`
	Duration         int             `json:"duration" validate:"required,min=1,max=500"`
	Level            string          `json:"level" validate:"required,oneof=beginner intermediate advanced"`
	Category         string          `json:"category" validate:"required,course_category"`
	Slug             string          `json:"slug" validate:"omitempty,min=3,max=255"`
	Status           string          `json:"status" validate:"required,oneof=draft published archived"`
}

type UpdateLessonRequest struct {
	CourseID     string          `json:"courseId" validate:"required"`
	ChapterID    string          `json:"chapterId" validate:"required"`
	LessonID     string          `json:"lessonId" validate:"required"`
	Name         string          `json:"name" validate:"required,min=3,max=255"`
	Description  json.RawMessage `json:"description,omitempty"`
	VideoKey     string          `json:"videoKey,omitempty" validate:"max=255"`
	ThumbnailKey string          `json:"thumbnailKey,omitempty" validate:"max=255"`
}

// checkCourseRequest 结构校验之外的规则：description 为 JSON 对象，slug 缺省由标题生成
func checkCourseRequest(req *CourseRequest) (ActionResult, bool) {
	if err := validate.Struct(req); err != nil {
		return validationResult(err), false
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(req.Description, &doc); err != nil {
		return invalidResult("Invalid data", FieldError{Field: "description", Error: "must be a JSON document"}), false
	}
	if req.Slug == "" {
		req.Slug = slug.Make(req.Title)
	} else {
		req.Slug = slug.Make(req.Slug)
	}
	if len(req.Slug) < 3 {
		return invalidResult("Invalid data", FieldError{Field: "slug", Error: "must be at least 3 characters"}), false
	}
	return ActionResult{}, true
}

func (s *CourseService) CreateCourse(ctx context.Context, actor *model.Actor, req CourseRequest) (ActionResult, error) {
	const op = "CreateCourse"
	if err := s.requireAdmin(actor); err != nil {
		return ActionResult{}, err
	}
	ctx, span := s.startSpan(ctx, op)
	defer span.End()

	if result, ok := checkCourseRequest(&req); !ok {
		return s.record(op, result), nil
	}

	course := &model.Course{
		Title:            req.Title,
		Description:      datatypes.JSON(req.Description),
		SmallDescription: req.SmallDescription,
		FileKey:          req.FileKey,
		Price:            req.Price,
		Duration:         req.Duration,
		Level:            model.CourseLevel(req.Level),
		Category:         req.Category,
		Slug:             req.Slug,
		Status:           model.CourseStatus(req.Status),
		UserID:           actor.UserID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		courses := s.Courses.WithTx(tx)
		taken, err := courses.SlugExists(course.Slug, "")
		if err != nil {
			return err
		}
		if taken {
			return util.ErrSlugTaken
		}
		return courses.Create(course)
	})
	if err != nil {
		if errors.Is(err, util.ErrSlugTaken) {
			return s.record(op, invalidResult("Invalid data", FieldError{Field: "slug", Error: "is already in use"})), nil
		}
		return s.fail(ctx, op, actor, err, "Failed to create course", nil), nil
	}

	logger.Log.Info("course created", zap.String("course_id", course.ID), zap.String("slug", course.Slug))
	return s.record(op, successResult("Course created successfully", course)), nil
}

// UpdateCourse 只能修改自己创建的课程
func (s *CourseService) UpdateCourse(ctx context.Context, actor *model.Actor, courseID string, req CourseRequest) (ActionResult, error) {
	const op = "UpdateCourse"
	if err := s.requireAdmin(actor); err != nil {
		return ActionResult{}, err
	}
	ctx, span := s.startSpan(ctx, op, attribute.String("course.id", courseID))
	defer span.End()

	if result, ok := checkCourseRequest(&req); !ok {
		return s.record(op, result), nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		courses := s.Courses.WithTx(tx)
		taken, err := courses.SlugExists(req.Slug, courseID)
		if err != nil {
			return err
		}
		if taken {
			return util.ErrSlugTaken
		}
		affected, err := courses.Update(courseID, actor.UserID, map[string]interface{}{
			"title":             req.Title,
			"description":       datatypes.JSON(req.Description),
			"small_description": req.SmallDescription,
			"file_key":          req.FileKey,
			"price":             req.Price,
			"duration":          req.Duration,
			"level":             req.Level,
			"category":          req.Category,
			"slug":              req.Slug,
			"status":            req.Status,
		})
		if err != nil {
			return err
		}
		if affected == 0 {
			return util.ErrCourseNotFound
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, util.ErrSlugTaken):
			return s.record(op, invalidResult("Invalid data", FieldError{Field: "slug", Error: "is already in use"})), nil
		case errors.Is(err, util.ErrCourseNotFound):
			return s.record(op, notFoundResult("Course not found")), nil
		}
		return s.fail(ctx, op, actor, err, "Failed to update course", map[string]interface{}{
			"course_id": courseID,
		}), nil
	}

	s.revalidateCourse(ctx, op, courseID)
	return s.record(op, successResult("Course updated successfully", nil)), nil
}

// DeleteCourse 在同一事务中删除课时、章节和课程
func (s *CourseService) DeleteCourse(ctx context.Context, actor *model.Actor, courseID string) (ActionResult, error) {
	const op = "DeleteCourse"
	if err := s.requireAdmin(actor); err != nil {
		return ActionResult{}, err
	}
	ctx, span := s.startSpan(ctx, op, attribute.String("course.id", courseID))
	defer span.End()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		courses := s.Courses.WithTx(tx)
		if _, err := courses.LockByID(courseID); err != nil {
			return notFoundAs(err, util.ErrCourseNotFound)
		}
		return courses.DeleteCascade(courseID)
	})
	if err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			return s.record(op, notFoundResult("Course not found")), nil
		}
		return s.fail(ctx, op, actor, err, "Failed to delete course", map[string]interface{}{
			"course_id": courseID,
		}), nil
	}

	s.revalidateCourse(ctx, op, courseID)
	return s.record(op, successResult("Course deleted successfully", nil)), nil
}

func (s *CourseService) ListCourses(ctx context.Context, actor *model.Actor, page, limit int, status string) ([]model.Course, int64, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.Courses.WithTx(s.db.WithContext(ctx)).FindAll(page, limit, status)
}

// GetCourseOutline 编辑视图数据，优先读缓存；缓存故障只降级不报错
func (s *CourseService) GetCourseOutline(ctx context.Context, actor *model.Actor, courseID string) (*model.Course, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}
	ctx, span := s.startSpan(ctx, "GetCourseOutline", attribute.String("course.id", courseID))
	defer span.End()

	path := fmt.Sprintf(util.EditViewPath, courseID)
	if s.cache != nil {
		var cached model.Course
		hit, err := s.cache.Load(ctx, path, &cached)
		if err != nil {
			logger.Log.Warn("outline cache read failed", zap.String("path", path), zap.Error(err))
		}
		if hit {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return &cached, nil
		}
	}

	course, err := s.Courses.WithTx(s.db.WithContext(ctx)).FindOutline(courseID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrCourseNotFound)
	}

	if s.cache != nil {
		if err := s.cache.Store(ctx, path, course); err != nil {
			logger.Log.Warn("outline cache write failed", zap.String("path", path), zap.Error(err))
		}
	}
	return course, nil
}

func (s *CourseService) GetLesson(ctx context.Context, actor *model.Actor, courseID, chapterID, lessonID string) (*model.Lesson, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	if _, err := s.Chapters.WithTx(db).FindInCourse(chapterID, courseID); err != nil {
		return nil, notFoundAs(err, util.ErrChapterNotFound)
	}
	lesson, err := s.Lessons.WithTx(db).FindInChapter(lessonID, chapterID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrLessonNotFound)
	}
	return lesson, nil
}

// UpdateLesson 修改课时内容，不改变 position
func (s *CourseService) UpdateLesson(ctx context.Context, actor *model.Actor, req UpdateLessonRequest) (ActionResult, error) {
	const op = "UpdateLesson"
	if err := s.requireAdmin(actor); err != nil {
		return ActionResult{}, err
	}
	ctx, span := s.startSpan(ctx, op,
		attribute.String("course.id", req.CourseID),
		attribute.String("lesson.id", req.LessonID),
	)
	defer span.End()

	if err := validate.Struct(req); err != nil {
		return s.record(op, validationResult(err)), nil
	}
	if len(req.Description) > 0 && !json.Valid(req.Description) {
		return s.record(op, invalidResult("Invalid data", FieldError{Field: "description", Error: "must be valid JSON"})), nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.Chapters.WithTx(tx).FindInCourse(req.ChapterID, req.CourseID); err != nil {
			return notFoundAs(err, util.ErrChapterNotFound)
		}
		affected, err := s.Lessons.WithTx(tx).UpdateContent(req.LessonID, req.ChapterID, map[string]interface{}{
			"title":         req.Name,
			"description":   descriptionJSON(req.Description),
			"video_key":     req.VideoKey,
			"thumbnail_key": req.ThumbnailKey,
		})
		if err != nil {
			return err
		}
		if affected == 0 {
			return util.ErrLessonNotFound
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, util.ErrChapterNotFound):
			return s.record(op, notFoundResult("Chapter not found")), nil
		case errors.Is(err, util.ErrLessonNotFound):
			return s.record(op, notFoundResult("Lesson not found in the chapter")), nil
		}
		return s.fail(ctx, op, actor, err, "Failed to update lesson", map[string]interface{}{
			"course_id": req.CourseID,
			"lesson_id": req.LessonID,
		}), nil
	}

	s.revalidateCourse(ctx, op, req.CourseID)
	return s.record(op, successResult("Lesson updated successfully", nil)), nil
}
