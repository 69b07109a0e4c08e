package model

type UserRole string

const (
	Student UserRole = "user"
	Admin   UserRole = "admin"
)

// Actor 调用方身份，由认证中间件解析后显式传入每个操作
type Actor struct {
	UserID string
	Email  string
	Role   UserRole
}

func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == Admin
}
