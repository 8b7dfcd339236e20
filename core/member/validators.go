package member

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/neussi/comsas-uy1.com/core"
)

var (
	levelTag  = "memberlevel"
	levelText = "niveau d'étude invalide"

	dateTag  = "datetime"
	dateText = "date invalide (format attendu : AAAA-MM-JJ)"
)

// InitValidators registers the member validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(levelTag, func(fl validator.FieldLevel) bool {
		lvl := fl.Field().String()
		for _, l := range Levels {
			if l == lvl {
				return true
			}
		}
		return false
	})
	core.RegisterCustomTranslation(validate, translator, levelTag, levelText)
	core.RegisterCustomTranslation(validate, translator, dateTag, dateText, true)
}
