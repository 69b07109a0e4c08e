package repository

import (
	"course_studio_backend/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type LessonRepository struct {
	DB *gorm.DB
}

func NewLessonRepository(db *gorm.DB) *LessonRepository {
	return &LessonRepository{DB: db}
}

func (r *LessonRepository) WithTx(tx *gorm.DB) *LessonRepository {
	return &LessonRepository{DB: tx}
}

func (r *LessonRepository) Create(lesson *model.Lesson) error {
	return errors.Wrap(r.DB.Create(lesson).Error, "create lesson")
}

// FindInChapter 课时必须属于指定章节
func (r *LessonRepository) FindInChapter(id, chapterID string) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.DB.First(&lesson, "id = ? AND chapter_id = ?", id, chapterID).Error
	if err != nil {
		return nil, errors.Wrap(err, "find lesson")
	}
	return &lesson, nil
}

func (r *LessonRepository) Positions(chapterID string) ([]int, error) {
	var positions []int
	err := r.DB.Model(&model.Lesson{}).
		Where("chapter_id = ?", chapterID).
		Pluck("position", &positions).Error
	return positions, errors.Wrap(err, "load lesson positions")
}

func (r *LessonRepository) ListByChapter(chapterID string) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.Where("chapter_id = ?", chapterID).
		Order("position ASC, created_at ASC, id ASC").
		Find(&lessons).Error
	return lessons, errors.Wrap(err, "list lessons")
}

func (r *LessonRepository) UpdatePosition(id, chapterID string, position int) error {
	res := r.DB.Model(&model.Lesson{}).
		Where("id = ? AND chapter_id = ?", id, chapterID).
		Update("position", position)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "update lesson %s position", id)
	}
	if res.RowsAffected == 0 {
		return errors.Errorf("update lesson %s position: no rows affected", id)
	}
	return nil
}

// UpdateContent 更新课时内容字段，position 不在此处修改
func (r *LessonRepository) UpdateContent(id, chapterID string, updates map[string]interface{}) (int64, error) {
	res := r.DB.Model(&model.Lesson{}).
		Where("id = ? AND chapter_id = ?", id, chapterID).
		Updates(updates)
	return res.RowsAffected, errors.Wrap(res.Error, "update lesson")
}

func (r *LessonRepository) Delete(id, chapterID string) error {
	res := r.DB.Delete(&model.Lesson{}, "id = ? AND chapter_id = ?", id, chapterID)
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete lesson")
	}
	if res.RowsAffected == 0 {
		return errors.Wrap(gorm.ErrRecordNotFound, "delete lesson")
	}
	return nil
}
