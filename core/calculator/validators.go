package calculator

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/campusdesk/portal/core"
	"github.com/campusdesk/portal/core/grade"
)

var (
	gradeSymbolTag  = "gradesymbol"
	gradeSymbolText = "unknown grade; expected one of A+, A, B+, B, C+, C, D, F"
)

// InitValidators registers the calculator's custom validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(gradeSymbolTag, gradeSymbolValidation)
	core.RegisterCustomTranslation(validate, translator, gradeSymbolTag, gradeSymbolText)
}

// gradeSymbolValidation accepts a symbol of the grade point table, or "" to clear the grade.
func gradeSymbolValidation(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return s == "" || grade.Symbol(s).Valid()
}
