package domain

import "strings"

type UserStatus string

const (
	StatusActive              UserStatus = "ACTIVE"
	StatusInactive            UserStatus = "INACTIVE"
	StatusSuspended           UserStatus = "SUSPENDED"
	StatusPendingVerification UserStatus = "PENDING_VERIFICATION"
)

// AllStatuses 按声明顺序
var AllStatuses = []UserStatus{
	StatusActive,
	StatusInactive,
	StatusSuspended,
	StatusPendingVerification,
}

func (s UserStatus) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseUserStatus 去空格、忽略大小写
func ParseUserStatus(raw string) (UserStatus, error) {
	s := UserStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", Validation("Invalid status value: "+raw, nil)
	}
	return s, nil
}
