// internal/validator/validator.go
package validator

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var Validate *validator.Validate

var dateYMDRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

func init() {
	Validate = validator.New()

	// В сообщениях об ошибках используем json-имена полей (card_name, issuer...)
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Строка не пустая и не из одних пробелов
	_ = Validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	// Дата вида "2024-01-31". Только форма: "2024-13-40" тоже проходит,
	// календарную корректность здесь не проверяем.
	_ = Validate.RegisterValidation("dateymd", func(fl validator.FieldLevel) bool {
		return dateYMDRe.MatchString(fl.Field().String())
	})
}
