package repository

import (
	"course_studio_backend/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CourseRepository 课程数据访问。删除课程时显式级联删除章节与课时，不依赖外键的 ON DELETE CASCADE
type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

// WithTx 返回绑定到事务的仓储
func (r *CourseRepository) WithTx(tx *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: tx}
}

func (r *CourseRepository) Create(course *model.Course) error {
	return errors.Wrap(r.DB.Create(course).Error, "create course")
}

// Update 仅更新属于 ownerID 的课程，返回受影响行数
func (r *CourseRepository) Update(id, ownerID string, updates map[string]interface{}) (int64, error) {
	res := r.DB.Model(&model.Course{}).
		Where("id = ? AND user_id = ?", id, ownerID).
		Updates(updates)
	return res.RowsAffected, errors.Wrap(res.Error, "update course")
}

func (r *CourseRepository) FindByID(id string) (*model.Course, error) {
	var course model.Course
	if err := r.DB.First(&course, "id = ?", id).Error; err != nil {
		return nil, errors.Wrap(err, "find course")
	}
	return &course, nil
}

// LockByID 以 SELECT ... FOR UPDATE 锁住课程行，串行化同一课程下章节集合的变更
func (r *CourseRepository) LockByID(id string) (*model.Course, error) {
	var course model.Course
	err := r.DB.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&course, "id = ?", id).Error
	if err != nil {
		return nil, errors.Wrap(err, "lock course")
	}
	return &course, nil
}

// FindOutline 课程 + 按 position 排序的章节与课时
func (r *CourseRepository) FindOutline(id string) (*model.Course, error) {
	var course model.Course
	err := r.DB.
		Preload("Chapters", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, created_at ASC")
		}).
		Preload("Chapters.Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, created_at ASC")
		}).
		First(&course, "id = ?", id).Error
	if err != nil {
		return nil, errors.Wrap(err, "find course outline")
	}
	return &course, nil
}

// FindAll 分页查询，按创建时间倒序
func (r *CourseRepository) FindAll(page, limit int, status string) ([]model.Course, int64, error) {
	var courses []model.Course
	var total int64

	query := r.DB.Model(&model.Course{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count courses")
	}

	offset := (page - 1) * limit
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&courses).Error
	return courses, total, errors.Wrap(err, "list courses")
}

// SlugExists excludeID 非空时忽略该课程自身
func (r *CourseRepository) SlugExists(slug, excludeID string) (bool, error) {
	var count int64
	query := r.DB.Model(&model.Course{}).Where("slug = ?", slug)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "check slug")
	}
	return count > 0, nil
}

// DeleteCascade 依次删除课时、章节、课程，需要在事务中调用
func (r *CourseRepository) DeleteCascade(id string) error {
	chapterIDs := r.DB.Model(&model.Chapter{}).Select("id").Where("course_id = ?", id)
	if err := r.DB.Where("chapter_id IN (?)", chapterIDs).Delete(&model.Lesson{}).Error; err != nil {
		return errors.Wrap(err, "delete course lessons")
	}
	if err := r.DB.Where("course_id = ?", id).Delete(&model.Chapter{}).Error; err != nil {
		return errors.Wrap(err, "delete course chapters")
	}
	if err := r.DB.Delete(&model.Course{}, "id = ?", id).Error; err != nil {
		return errors.Wrap(err, "delete course")
	}
	return nil
}
