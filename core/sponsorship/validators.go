package sponsorship

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/neussi/comsas-uy1.com/core"
)

var (
	specialtyTag  = "specialty"
	specialtyText = "spécialité inconnue"

	domainsTag  = "domains"
	domainsText = "domaine professionnel inconnu"

	competenciesTag  = "competencies"
	competenciesText = "compétence inconnue"

	mentorLevelTag = "mentorlevel"
	menteeLevelTag = "menteelevel"
	levelText      = "niveau d'étude invalide"
)

// InitValidators registers the sponsorship validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(specialtyTag, choiceValidation(Specialties))
	core.RegisterCustomTranslation(validate, translator, specialtyTag, specialtyText)

	_ = validate.RegisterValidation(domainsTag, tagSetValidation(Domains))
	core.RegisterCustomTranslation(validate, translator, domainsTag, domainsText)

	_ = validate.RegisterValidation(competenciesTag, tagSetValidation(Competencies))
	core.RegisterCustomTranslation(validate, translator, competenciesTag, competenciesText)

	_ = validate.RegisterValidation(mentorLevelTag, choiceValidation(MentorLevels))
	core.RegisterCustomTranslation(validate, translator, mentorLevelTag, levelText)

	_ = validate.RegisterValidation(menteeLevelTag, choiceValidation(MenteeLevels))
	core.RegisterCustomTranslation(validate, translator, menteeLevelTag, levelText)
}

func choiceValidation(choices []Choice) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return hasChoice(choices, fl.Field().String())
	}
}

// tagSetValidation checks that every tag of a TagSet belongs to the vocabulary.
func tagSetValidation(vocabulary []Choice) validator.Func {
	return func(fl validator.FieldLevel) bool {
		tags, ok := fl.Field().Interface().(TagSet)
		if !ok {
			return false
		}
		for _, tag := range tags {
			if !hasChoice(vocabulary, tag) {
				return false
			}
		}
		return true
	}
}
