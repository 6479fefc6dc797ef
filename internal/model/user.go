package model

// UserRole 用户身份；账户本身由外部身份服务管理，这里只用于JWT声明
type UserRole string

const (
	Student  UserRole = "student"
	Educator UserRole = "educator"
	Admin    UserRole = "admin"
)
