package repository

import (
	"course_studio_backend/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChapterRepository struct {
	DB *gorm.DB
}

func NewChapterRepository(db *gorm.DB) *ChapterRepository {
	return &ChapterRepository{DB: db}
}

func (r *ChapterRepository) WithTx(tx *gorm.DB) *ChapterRepository {
	return &ChapterRepository{DB: tx}
}

func (r *ChapterRepository) Create(chapter *model.Chapter) error {
	return errors.Wrap(r.DB.Create(chapter).Error, "create chapter")
}

// FindInCourse 章节必须属于指定课程
func (r *ChapterRepository) FindInCourse(id, courseID string) (*model.Chapter, error) {
	var chapter model.Chapter
	err := r.DB.First(&chapter, "id = ? AND course_id = ?", id, courseID).Error
	if err != nil {
		return nil, errors.Wrap(err, "find chapter")
	}
	return &chapter, nil
}

// LockInCourse 锁住章节行，串行化同一章节下课时集合的变更
func (r *ChapterRepository) LockInCourse(id, courseID string) (*model.Chapter, error) {
	var chapter model.Chapter
	err := r.DB.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&chapter, "id = ? AND course_id = ?", id, courseID).Error
	if err != nil {
		return nil, errors.Wrap(err, "lock chapter")
	}
	return &chapter, nil
}

func (r *ChapterRepository) Positions(courseID string) ([]int, error) {
	var positions []int
	err := r.DB.Model(&model.Chapter{}).
		Where("course_id = ?", courseID).
		Pluck("position", &positions).Error
	return positions, errors.Wrap(err, "load chapter positions")
}

// ListByCourse 按当前 position 升序返回课程下所有章节
func (r *ChapterRepository) ListByCourse(courseID string) ([]model.Chapter, error) {
	var chapters []model.Chapter
	err := r.DB.Where("course_id = ?", courseID).
		Order("position ASC, created_at ASC, id ASC").
		Find(&chapters).Error
	return chapters, errors.Wrap(err, "list chapters")
}

// UpdatePosition 以 course_id 约束更新，目标行不存在时返回错误
func (r *ChapterRepository) UpdatePosition(id, courseID string, position int) error {
	res := r.DB.Model(&model.Chapter{}).
		Where("id = ? AND course_id = ?", id, courseID).
		Update("position", position)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "update chapter %s position", id)
	}
	if res.RowsAffected == 0 {
		return errors.Errorf("update chapter %s position: no rows affected", id)
	}
	return nil
}

// Delete 先删除章节下的课时，再删除章节本身
func (r *ChapterRepository) Delete(id, courseID string) error {
	if err := r.DB.Where("chapter_id = ?", id).Delete(&model.Lesson{}).Error; err != nil {
		return errors.Wrap(err, "delete chapter lessons")
	}
	res := r.DB.Delete(&model.Chapter{}, "id = ? AND course_id = ?", id, courseID)
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete chapter")
	}
	if res.RowsAffected == 0 {
		return errors.Wrap(gorm.ErrRecordNotFound, "delete chapter")
	}
	return nil
}
