package ez

import (
	"regexp"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	validatorsOnce sync.Once
	pagePathRe     = regexp.MustCompile(`^/?[a-z0-9][a-z0-9-]*/?$`)
)

// RegisterValidators 向 gin 的 validator 注册自定义 tag：ymd、pagepath（单段路径）
func RegisterValidators() {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("ymd", func(fl validator.FieldLevel) bool {
			_, err := time.Parse(time.DateOnly, fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("pagepath", func(fl validator.FieldLevel) bool {
			return pagePathRe.MatchString(fl.Field().String())
		})
	})
}
