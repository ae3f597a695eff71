// Package validation 注册请求绑定使用的自定义校验标签
package validation

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var once sync.Once

// Register 向 gin 默认校验器注册自定义标签，重复调用无副作用
//
//	hhmm      "HH:MM" 24 小时制时间
//	weekdays  []int，每个元素在 0（周日）到 6 之间
func Register() error {
	var err error
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("gin 校验引擎类型不支持: %T", binding.Validator.Engine())
			return
		}
		err = RegisterOn(v)
	})
	return err
}

// RegisterOn 向指定校验器注册自定义标签
func RegisterOn(v *validator.Validate) error {
	if err := v.RegisterValidation("hhmm", validateHHMM); err != nil {
		return err
	}
	return v.RegisterValidation("weekdays", validateWeekdays)
}

func validateHHMM(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != 5 {
		return false
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}

func validateWeekdays(fl validator.FieldLevel) bool {
	f := fl.Field()
	if f.Kind() != reflect.Slice && f.Kind() != reflect.Array {
		return false
	}
	for i := 0; i < f.Len(); i++ {
		e := f.Index(i)
		switch e.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if d := e.Int(); d < 0 || d > 6 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
