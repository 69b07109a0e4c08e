package util

import "errors"

var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden: admin role required")
	ErrCourseNotFound   = errors.New("course not found")
	ErrChapterNotFound  = errors.New("chapter not found")
	ErrLessonNotFound   = errors.New("lesson not found")
	ErrSlugTaken        = errors.New("slug already in use")
	ErrInvalidFileType  = errors.New("invalid file type")
	ErrStorageNotConfig = errors.New("storage provider not configured")
)
