package contest

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/neussi/comsas-uy1.com/core"
)

var (
	slugTag  = "slug"
	slugText = "seuls les lettres minuscules, les chiffres et les tirets sont autorisés"

	matriculeTag  = "matricule"
	matriculeText = "le matricule ne doit contenir que des lettres, des chiffres, des tirets ou des barres obliques"
)

// InitValidators registers the contest validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(slugTag, func(fl validator.FieldLevel) bool {
		return slugRegex.MatchString(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, slugTag, slugText)
	_ = validate.RegisterValidation(matriculeTag, func(fl validator.FieldLevel) bool {
		return matriculeRegex.MatchString(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, matriculeTag, matriculeText)
}
