package domain

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// UserRequest 注册与全量更新共用的入参
// 校验规则按 tag 顺序执行，每个字段只报告第一个失败的规则
type UserRequest struct {
	FullName    string `json:"fullName"    validate:"notblank,min=2,max=100,fullname"`
	PhoneNumber string `json:"phoneNumber" validate:"notblank,phone"`
	Email       string `json:"email"       validate:"notblank,max=150,email"`
	CourseName  string `json:"courseName"  validate:"notblank,min=2,max=100"`
}

var (
	fullNamePattern = regexp.MustCompile(`^[a-zA-Z\s]+$`)
	phonePattern    = regexp.MustCompile(`^[+]?[0-9]{10,15}$`)
)

// 字段.规则 → 提示
var violationMessages = map[string]string{
	"fullName.notblank":    "Full name is required",
	"fullName.min":         "Full name must be between 2 and 100 characters",
	"fullName.max":         "Full name must be between 2 and 100 characters",
	"fullName.fullname":    "Full name should contain only letters and spaces",
	"phoneNumber.notblank": "Phone number is required",
	"phoneNumber.phone":    "Phone number should be 10-15 digits and may start with +",
	"email.notblank":       "Email is required",
	"email.max":            "Email must not exceed 150 characters",
	"email.email":          "Please provide a valid email address",
	"courseName.notblank":  "Course name is required",
	"courseName.min":       "Course name must be between 2 and 100 characters",
	"courseName.max":       "Course name must be between 2 and 100 characters",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("fullname", func(fl validator.FieldLevel) bool {
		return fullNamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

// Validate 返回 字段名 → 提示；全部通过时返回 nil
func (r UserRequest) Validate() map[string]string {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var fes validator.ValidationErrors
	if !errors.As(err, &fes) {
		return map[string]string{"request": err.Error()}
	}
	out := make(map[string]string, len(fes))
	for _, fe := range fes {
		msg, ok := violationMessages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = fe.Error()
		}
		out[fe.Field()] = msg
	}
	return out
}

// Normalized 去首尾空格，email 转小写
func (r UserRequest) Normalized() UserRequest {
	return UserRequest{
		FullName:    strings.TrimSpace(r.FullName),
		PhoneNumber: strings.TrimSpace(r.PhoneNumber),
		Email:       NormalizeEmail(r.Email),
		CourseName:  strings.TrimSpace(r.CourseName),
	}
}

func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
