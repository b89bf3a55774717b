package validator

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// 错误信息里使用 json 字段名
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Struct 按 validate 标签校验结构体
func Struct(s any) error {
	return instance().Struct(s)
}

// ginValidator 让 gin 的 ShouldBind 使用 validate 标签
type ginValidator struct{}

func (ginValidator) ValidateStruct(obj any) error {
	if obj == nil {
		return nil
	}
	v := reflect.ValueOf(obj)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	return instance().Struct(obj)
}

func (ginValidator) Engine() any {
	return instance()
}

// LazyInitGinValidator 替换 gin 默认的校验器
func LazyInitGinValidator() {
	binding.Validator = ginValidator{}
}

// FirstError 取第一条字段错误的简短描述
func FirstError(err error) string {
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		fe := errs[0]
		return fe.Namespace() + " failed on " + fe.Tag()
	}
	return err.Error()
}
