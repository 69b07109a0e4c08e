package service

import (
	"context"
	"course_studio_backend/internal/model"
	"course_studio_backend/internal/repository"
	"course_studio_backend/internal/util"
	"course_studio_backend/pkg/logger"
	"course_studio_backend/pkg/monitoring"
	"encoding/json"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 单次重排中并发写入的上限
const maxConcurrentPositionWrites = 8

// CourseStructureService 维护章节/课时的 position。
// 每个写操作在一个事务内完成：先锁父节点行，再读-改-写同级集合，保证 1..n 连续。
type CourseStructureService struct {
	gate
	db       *gorm.DB
	Courses  *repository.CourseRepository
	Chapters *repository.ChapterRepository
	Lessons  *repository.LessonRepository
}

func NewCourseStructureService(
	db *gorm.DB,
	courses *repository.CourseRepository,
	chapters *repository.ChapterRepository,
	lessons *repository.LessonRepository,
	reporter Reporter,
	revalidator Revalidator,
) *CourseStructureService {
	return &CourseStructureService{
		gate:     newGate(reporter, revalidator),
		db:       db,
		Courses:  courses,
		Chapters: chapters,
		Lessons:  lessons,
	}
}

type CreateChapterRequest struct {
	CourseID string `json:"courseId" validate:"required,uuid"`
	Name     string `json:"name" validate:"required,min=3,max=255"`
}

type CreateLessonRequest struct {
	ChapterID    string          `json:"chapterId" validate:"required,uuid"`
	CourseID     string          `json:"courseId" validate:"required,uuid"`
	Name         string          `json:"name" validate:"required,min=3,max=255"`
	Description  json.RawMessage `json:"description,omitempty"`
	VideoKey     string          `json:"videoKey,omitempty" validate:"max=255"`
	ThumbnailKey string          `json:"thumbnailKey,omitempty" validate:"max=255"`
}

type DeleteChapterRequest struct {
	ChapterID string `json:"chapterId" validate:"required"`
	CourseID  string `json:"courseId" validate:"required"`
}

type DeleteLessonRequest struct {
	ChapterID string `json:"chapterId" validate:"required"`
	CourseID  string `json:"courseId" validate:"required"`
	LessonID  string `json:"lessonId" validate:"required"`
}

// notFoundAs 将 gorm 的 ErrRecordNotFound 替换为具体的领域错误
func notFoundAs(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

func isLedgerError(err error) bool {
	return errors.Is(err, ErrEmptyReorder) ||
		errors.Is(err, ErrIncompleteReorder) ||
		errors.Is(err, ErrUnknownSibling) ||
		errors.Is(err, ErrDuplicateSibling) ||
		errors.Is(err, ErrInvalidPosition)
}

func chapterSiblings(chapters []model.Chapter) []Sibling {
	siblings := make([]Sibling, len(chapters))
	for i, c := range chapters {
		siblings[i] = Sibling{ID: c.ID, Position: c.Position}
	}
	return siblings
}

func lessonSiblings(lessons []model.Lesson) []Sibling {
	siblings := make([]Sibling, len(lessons))
	for i, l := range lessons {
		siblings[i] = Sibling{ID: l.ID, Position: l.Position}
	}
	return siblings
}

// applyPositions 并发写入各行新位置并等待全部完成；任一失败则整个事务回滚
func applyPositions(updates []PositionUpdate, write func(PositionUpdate) error) error {
	if len(updates) == 0 {
		return nil
	}
	var g errgroup.Group
	g.SetLimit(maxConcurrentPositionWrites)
	for _, u := range updates {
		u := u
		g.Go(func() error {
			return write(u)
		})
	}
	return g.Wait()
}

func descriptionJSON(raw json.RawMessage) datatypes.JSON {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return datatypes.JSON(raw)
}

func (s *CourseStructureService) CreateChapter(ctx context.Context, actor *model.Actor, req CreateChapterRequest) (ActionResult, error) {
	const op = "CreateChapter"
	if err := s.requireAdmin(actor); err != nil {
		return ActionResult{}, err
	}
	ctx, span := s.startSpan(ctx, op, attribute.String("course.id", req.CourseID))
	defer span.End()

	if err := validate.Struct(req); err != nil {
		return s.record(op, validationResult(err)), nil
	}

	var chapter *model.Chapter
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.Courses.WithTx(tx).LockByID(req.CourseID); err != nil {
			return notFoundAs(err, util.ErrCourseNotFound)
		}

		chapters := s.Chapters.WithTx(tx)
		positions, err := chapters.Positions(req.CourseID)
		if err != nil {
			return err
		}

		chapter = &model.Chapter{
			Title:    req.Name,
			CourseID: req.CourseID,
			Position: NextPosition(positions),
		}
		return chapters.Create(chapter)
	})
	if err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			return s.record(op, notFoundResult("Course not found")), nil
		}
		return s.fail(ctx, op, actor, err, "Failed to create chapter", map[string]interface{}{
			"course_id": req.CourseID,
		}), nil
	}

	s.revalidateCourse(ctx, op, req.CourseID)
	return s.record(op, successResult("Chapter created successfully", chapter)), nil
}

func (s *CourseStructureService) CreateLesson(ctx context.Context, actor *model.Actor, req CreateLessonRequest) (ActionResult, error) {
	const op = "CreateLesson"
	if err := s.requireAdmin(actor); err != nil {
		return ActionResult{}, err
	}
	ctx, span := s.startSpan(ctx, op,
		attribute.String("course.id", req.CourseID),
		attribute.String("chapter.id", req.ChapterID),
	)
	defer span.End()

	if err := validate.Struct(req); err != nil {
		return s.record(op, validationResult(err)), nil
	}
	if len(req.Description) > 0 && !json.Valid(req.Description) {
		return s.record(op, invalidResult("Invalid data", FieldError{Field: "description", Error: "must be valid JSON"})), nil
	}

	var lesson *model.Lesson
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.Chapters.WithTx(tx).LockInCourse(req.ChapterID, req.CourseID); err != nil {
			return notFoundAs(err, util.ErrChapterNotFound)
		}

		lessons := s.Lessons.WithTx(tx)
		positions, err := lessons.Positions(req.ChapterID)
		if err != nil {
			return err
		}

		lesson = &model.Lesson{
			Title:        req.Name,
			Description:  descriptionJSON(req.Description),
			VideoKey:     req.VideoKey,
			ThumbnailKey: req.ThumbnailKey,
			ChapterID:    req.ChapterID,
			Position:     NextPosition(positions),
		}
		return lessons.Create(lesson)
	})
	if err != nil {
		if errors.Is(err, util.ErrChapterNotFound) {
			return s.record(op, notFoundResult("Chapter not found")), nil
		}
		return s.fail(ctx, op, actor, err, "Failed to create Lesson", map[string]interface{}{
			"course_id":  req.CourseID,
			"chapter_id": req.ChapterID,
		}), nil
	}

	s.revalidateCourse(ctx, op, req.CourseID)
	return s.record(op, successResult("Lesson created successfully", lesson)), nil
}

func (s *CourseStructureService) DeleteChapter(ctx context.Context, actor *model.Actor, req DeleteChapterRequest) (ActionResult, error) {
	const op = "DeleteChapter"
	if err := s.requireAdmin(actor); err != nil {
		return ActionResult{}, err
	}
	ctx, span := s.startSpan(ctx, op,
		attribute.String("course.id", req.CourseID),
		attribute.String("chapter.id", req.ChapterID),
	)
	defer span.End()

	if err := validate.Struct(req); err != nil {
		return s.record(op, validationResult(err)), nil
	}

	var renumbered int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.Courses.WithTx(tx).LockByID(req.CourseID); err != nil {
			return notFoundAs(err, util.ErrCourseNotFound)
		}

		chapters := s.Chapters.WithTx(tx)
		if _, err := chapters.FindInCourse(req.ChapterID, req.CourseID); err != nil {
			return notFoundAs(err, util.ErrChapterNotFound)
		}
		if err := chapters.Delete(req.ChapterID, req.CourseID); err != nil {
			return err
		}

		remaining, err := chapters.ListByCourse(req.CourseID)
		if err != nil {
			return err
		}
		updates := Renumber(chapterSiblings(remaining))
		renumbered = len(updates)
		return applyPositions(updates, func(u PositionUpdate) error {
			return chapters.UpdatePosition(u.ID, req.CourseID, u.Position)
		})
	})
	if err != nil {
		switch {
		case errors.Is(err, util.ErrCourseNotFound):
			return s.record(op, notFoundResult("Course not found")), nil
		case errors.Is(err, util.ErrChapterNotFound):
			return s.record(op, notFoundResult("Chapter not found in the course")), nil
		}
		return s.fail(ctx, op, actor, err, "Failed to delete chapter", map[string]interface{}{
			"course_id":  req.CourseID,
			"chapter_id": req.ChapterID,
		}), nil
	}

	monitoring.ObserveRenumber("chapter", renumbered)
	logger.Log.Debug("chapter deleted",
		zap.String("course_id", req.CourseID),
		zap.String("chapter_id", req.ChapterID),
		zap.Int("renumbered", renumbered),
	)

	s.revalidateCourse(ctx, op, req.CourseID)
	return s.record(op, successResult("Chapter deleted successfully and positions are reordered", nil)), nil
}

func (s *CourseStructureService) DeleteLesson(ctx context.Context, actor *model.Actor, req DeleteLessonRequest) (ActionResult, error) {
	const op = "DeleteLesson"
	if err := s.requireAdmin(actor); err != nil {
		return ActionResult{}, err
	}
	ctx, span := s.startSpan(ctx, op,
		attribute.String("course.id", req.CourseID),
		attribute.String("chapter.id", req.ChapterID),
		attribute.String("lesson.id", req.LessonID),
	)
	defer span.End()

	if err := validate.Struct(req); err != nil {
		return s.record(op, validationResult(err)), nil
	}

	var renumbered int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.Chapters.WithTx(tx).LockInCourse(req.ChapterID, req.CourseID); err != nil {
			return notFoundAs(err, util.ErrChapterNotFound)
		}

		lessons := s.Lessons.WithTx(tx)
		if _, err := lessons.FindInChapter(req.LessonID, req.ChapterID); err != nil {
			return notFoundAs(err, util.ErrLessonNotFound)
		}
		if err := lessons.Delete(req.LessonID, req.ChapterID); err != nil {
			return err
		}

		remaining, err := lessons.ListByChapter(req.ChapterID)
		if err != nil {
			return err
		}
		updates := Renumber(lessonSiblings(remaining))
		renumbered = len(updates)
		return applyPositions(updates, func(u PositionUpdate) error {
			return lessons.UpdatePosition(u.ID, req.ChapterID, u.Position)
		})
	})
	if err != nil {
		switch {
		case errors.Is(err, util.ErrChapterNotFound):
			return s.record(op, notFoundResult("Chapter not found")), nil
		case errors.Is(err, util.ErrLessonNotFound):
			return s.record(op, notFoundResult("Lesson not found in the chapter")), nil
		}
		return s.fail(ctx, op, actor, err, "Failed to delete lesson", map[string]interface{}{
			"course_id":  req.CourseID,
			"chapter_id": req.ChapterID,
			"lesson_id":  req.LessonID,
		}), nil
	}

	monitoring.ObserveRenumber("lesson", renumbered)

	s.revalidateCourse(ctx, op, req.CourseID)
	return s.record(op, successResult("Lesson deleted successfully and positions are reordered", nil)), nil
}

// ReorderChapters 提交的顺序必须是课程全部章节的完整 1..n 排列，否则不做任何修改
func (s *CourseStructureService) ReorderChapters(ctx context.Context, actor *model.Actor, courseID string, items []PositionUpdate) (ActionResult, error) {
	const op = "ReorderChapters"
	if err := s.requireAdmin(actor); err != nil {
		return ActionResult{}, err
	}
	ctx, span := s.startSpan(ctx, op, attribute.String("course.id", courseID), attribute.Int("items", len(items)))
	defer span.End()

	if len(items) == 0 {
		return s.record(op, invalidResult("No chapters provided for reordering")), nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.Courses.WithTx(tx).LockByID(courseID); err != nil {
			return notFoundAs(err, util.ErrCourseNotFound)
		}

		chapters := s.Chapters.WithTx(tx)
		current, err := chapters.ListByCourse(courseID)
		if err != nil {
			return err
		}
		siblings := chapterSiblings(current)
		if err := ValidatePermutation(siblings, items); err != nil {
			return err
		}
		return applyPositions(ChangedPositions(siblings, items), func(u PositionUpdate) error {
			return chapters.UpdatePosition(u.ID, courseID, u.Position)
		})
	})
	if err != nil {
		switch {
		case errors.Is(err, util.ErrCourseNotFound):
			return s.record(op, notFoundResult("Course not found")), nil
		case isLedgerError(err):
			return s.record(op, invalidResult("Invalid data", FieldError{Field: "chapters", Error: err.Error()})), nil
		}
		return s.fail(ctx, op, actor, err, "Failed to reorder chapters", map[string]interface{}{
			"course_id": courseID,
		}), nil
	}

	s.revalidateCourse(ctx, op, courseID)
	return s.record(op, successResult("Chapters reordered successfully", nil)), nil
}

// ReorderLessons 同 ReorderChapters，作用于一个章节内的课时
func (s *CourseStructureService) ReorderLessons(ctx context.Context, actor *model.Actor, chapterID, courseID string, items []PositionUpdate) (ActionResult, error) {
	const op = "ReorderLessons"
	if err := s.requireAdmin(actor); err != nil {
		return ActionResult{}, err
	}
	ctx, span := s.startSpan(ctx, op,
		attribute.String("course.id", courseID),
		attribute.String("chapter.id", chapterID),
		attribute.Int("items", len(items)),
	)
	defer span.End()

	if len(items) == 0 {
		return s.record(op, invalidResult("No lessons provided for reordering.")), nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.Chapters.WithTx(tx).LockInCourse(chapterID, courseID); err != nil {
			return notFoundAs(err, util.ErrChapterNotFound)
		}

		lessons := s.Lessons.WithTx(tx)
		current, err := lessons.ListByChapter(chapterID)
		if err != nil {
			return err
		}
		siblings := lessonSiblings(current)
		if err := ValidatePermutation(siblings, items); err != nil {
			return err
		}
		return applyPositions(ChangedPositions(siblings, items), func(u PositionUpdate) error {
			return lessons.UpdatePosition(u.ID, chapterID, u.Position)
		})
	})
	if err != nil {
		switch {
		case errors.Is(err, util.ErrChapterNotFound):
			return s.record(op, notFoundResult("Chapter not found")), nil
		case isLedgerError(err):
			return s.record(op, invalidResult("Invalid data", FieldError{Field: "lessons", Error: err.Error()})), nil
		}
		return s.fail(ctx, op, actor, err, "Failed to reorder lessons.", map[string]interface{}{
			"course_id":  courseID,
			"chapter_id": chapterID,
		}), nil
	}

	s.revalidateCourse(ctx, op, courseID)
	return s.record(op, successResult("Lessons reordered successfully", nil)), nil
}
