package domain

import (
	"context"
	"time"
)

// User 学员记录；email / phone_number 全局唯一，version 用于乐观锁
type User struct {
	ID          uint64     `gorm:"column:user_id;primaryKey;autoIncrement" json:"userId"`
	FullName    string     `gorm:"column:full_name;size:100;not null" json:"fullName"`
	PhoneNumber string     `gorm:"column:phone_number;size:16;not null;uniqueIndex:uk_users_phone_number" json:"phoneNumber"`
	Email       string     `gorm:"column:email;size:150;not null;uniqueIndex:uk_users_email" json:"email"`
	CourseName  string     `gorm:"column:course_name;size:100;not null;index" json:"courseName"`
	Status      UserStatus `gorm:"column:status;size:32;not null;default:ACTIVE;index" json:"status"`
	CreatedAt   time.Time  `gorm:"column:created_at;not null;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;not null;autoUpdateTime" json:"updatedAt"`
	Version     int64      `gorm:"column:version;not null" json:"version"`
}

func (User) TableName() string { return "users" }

// UserResponse 对外返回的用户结构
type UserResponse struct {
	UserID      uint64     `json:"userId"`
	FullName    string     `json:"fullName"`
	PhoneNumber string     `json:"phoneNumber"`
	Email       string     `json:"email"`
	CourseName  string     `json:"courseName"`
	Status      UserStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Version     int64      `json:"version"`
}

func ToResponse(u User) UserResponse {
	return UserResponse{
		UserID:      u.ID,
		FullName:    u.FullName,
		PhoneNumber: u.PhoneNumber,
		Email:       u.Email,
		CourseName:  u.CourseName,
		Status:      u.Status,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
		Version:     u.Version,
	}
}

func ToResponses(us []User) []UserResponse {
	out := make([]UserResponse, 0, len(us))
	for _, u := range us {
		out = append(out, ToResponse(u))
	}
	return out
}

// UserRepository 持久化网关。Find* 查不到时返回 (nil, nil)。
// Save: ID 为 0 时插入，否则按 Version 做乐观锁更新（成功后 Version+1）。
type UserRepository interface {
	FindByID(ctx context.Context, id uint64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByPhoneNumber(ctx context.Context, phone string) (*User, error)

	ExistsByID(ctx context.Context, id uint64) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByPhoneNumber(ctx context.Context, phone string) (bool, error)

	FindAll(ctx context.Context, req PageRequest) (Page[User], error)
	FindByCourseName(ctx context.Context, course string) ([]User, error)
	FindByCourseNamePaged(ctx context.Context, course string, req PageRequest) (Page[User], error)
	FindByFullNameContaining(ctx context.Context, part string) ([]User, error)
	FindByCourseNameAndStatus(ctx context.Context, course string, status UserStatus) ([]User, error)

	CountByCourseName(ctx context.Context, course string) (int64, error)
	CountByStatus(ctx context.Context, status UserStatus) (int64, error)

	Save(ctx context.Context, u *User) error
	DeleteByID(ctx context.Context, id uint64) error

	// Transaction 在同一事务内执行 fn；fn 返回错误则回滚
	Transaction(ctx context.Context, fn func(tx UserRepository) error) error
}
