package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	MimeVideo = "video/"
	MimeImage = "image/"
)

// EditViewPath 课程编辑视图路径，结构变更后对其发出失效信号
const EditViewPath = "/course/%s/edit"
