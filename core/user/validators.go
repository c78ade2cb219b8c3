package user

import (
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/campusdesk/portal/core"
)

var (
	otpCodeTag   = "otpcode"
	otpCodeText  = "code must be a 6-digit number"
	otpCodeRegex = regexp.MustCompile(`^[0-9]{6}$`)

	domainNotAllowedText = "email domain is not allowed"

	// typo suggestions are only made for these and for the allowed domains
	knownMailDomains = []string{
		"gmail.com", "googlemail.com", "outlook.com", "hotmail.com", "live.com", "yahoo.com",
		"ymail.com", "icloud.com", "proton.me", "protonmail.com", "mail.com", "aol.com",
	}
	domainMinSim = .85
)

// InitValidators registers the sign-in validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(otpCodeTag, func(fl validator.FieldLevel) bool {
		return otpCodeRegex.MatchString(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, otpCodeTag, otpCodeText)
}

// checkEmailDomain rejects addresses outside allowed (when set) and addresses whose domain
// looks like a misspelt provider, suggesting the intended one.
func checkEmailDomain(email string, allowed []string) error {
	domain := email[strings.LastIndex(email, "@")+1:]

	candidates := knownMailDomains
	if len(allowed) > 0 {
		candidates = allowed
		for _, d := range allowed {
			if strings.EqualFold(d, domain) {
				return nil
			}
		}
	}

	var (
		best      string
		bestRatio float64
	)
	for _, d := range candidates {
		d = strings.ToLower(d)
		if d == domain {
			return nil
		}
		ratio := difflib.NewMatcher(strings.Split(domain, ""), strings.Split(d, "")).Ratio()
		if ratio > bestRatio {
			best, bestRatio = d, ratio
		}
	}

	var msg string
	switch {
	case bestRatio >= domainMinSim:
		msg = "did you mean " + email[:len(email)-len(domain)] + best + "?"
		if len(allowed) > 0 {
			msg = domainNotAllowedText + ", " + msg
		}
	case len(allowed) > 0:
		msg = domainNotAllowedText
	default:
		return nil
	}
	return core.NewValidationError(nil, core.FieldError{Field: "email", Error: msg})
}
