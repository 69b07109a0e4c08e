package model

import "gorm.io/datatypes"

type CourseLevel string

const (
	LevelBeginner     CourseLevel = "beginner"
	LevelIntermediate CourseLevel = "intermediate"
	LevelAdvanced     CourseLevel = "advanced"
)

type CourseStatus string

const (
	StatusDraft     CourseStatus = "draft"
	StatusPublished CourseStatus = "published"
	StatusArchived  CourseStatus = "archived"
)

var CourseCategories = []string{
	"Development",
	"Business",
	"Finance",
	"IT & Software",
	"Office Productivity",
	"Personal Development",
	"Design",
	"Marketing",
	"Health & Fitness",
	"Music",
	"Teaching & Academics",
}

// swagger:model Course
type Course struct {
	UUIDBase
	Title            string         `gorm:"size:255;not null" json:"title"`
	Description      datatypes.JSON `gorm:"not null" json:"description"`
	SmallDescription string         `gorm:"size:255;not null" json:"smallDescription"`
	FileKey          string         `gorm:"size:255;not null" json:"fileKey"`
	Price            int            `gorm:"not null" json:"price"`
	Duration         int            `gorm:"not null" json:"duration"`
	Level            CourseLevel    `gorm:"size:20;default:'beginner'" json:"level"`
	Category         string         `gorm:"size:255;not null" json:"category"`
	Slug             string         `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Status           CourseStatus   `gorm:"size:20;default:'draft'" json:"status"`
	UserID           string         `gorm:"type:varchar(255);index;not null" json:"userId"`

	Chapters []Chapter `gorm:"foreignKey:CourseID" json:"chapters,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// Chapter 课程下的章节，Position 在同一课程内从 1 开始连续
// swagger:model Chapter
type Chapter struct {
	UUIDBase
	Title    string `gorm:"size:255;not null" json:"title"`
	Position int    `gorm:"not null;index" json:"position"`
	CourseID string `gorm:"type:varchar(36);index;not null" json:"courseId"`

	Lessons []Lesson `gorm:"foreignKey:ChapterID" json:"lessons,omitempty"`
}

func (Chapter) TableName() string {
	return "chapters"
}

// Lesson 章节下的课时，Position 在同一章节内从 1 开始连续
// swagger:model Lesson
type Lesson struct {
	UUIDBase
	Title        string         `gorm:"size:255;not null" json:"title"`
	Description  datatypes.JSON `json:"description,omitempty"`
	ThumbnailKey string         `gorm:"size:255" json:"thumbnailKey,omitempty"`
	VideoKey     string         `gorm:"size:255" json:"videoKey,omitempty"`
	Position     int            `gorm:"not null;index" json:"position"`
	ChapterID    string         `gorm:"type:varchar(36);index;not null" json:"chapterId"`
}

func (Lesson) TableName() string {
	return "lessons"
}
