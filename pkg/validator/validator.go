package validator

import (
	"net/url"

	"github.com/go-playground/validator/v10"
)

var (
	// Validate - singleton экземпляр валидатора для переиспользования
	Validate *validator.Validate
)

var knownPriorities = map[string]struct{}{
	"critical": {},
	"high":     {},
	"normal":   {},
	"low":      {},
}

func init() {
	Validate = validator.New()

	// Регистрируем кастомные валидаторы
	_ = Validate.RegisterValidation("priority", validatePriority)
	_ = Validate.RegisterValidation("callback_url", validateCallbackURL)
}

// validatePriority проверяет, что строка — один из четырёх известных приоритетов
func validatePriority(fl validator.FieldLevel) bool {
	_, ok := knownPriorities[fl.Field().String()]
	return ok
}

// validateCallbackURL проверяет callback_url: абсолютный http/https URL с хостом.
// Достижимость адреса здесь не проверяется — это забота времени доставки.
func validateCallbackURL(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return true // обязательность решается на уровне delivery_mode
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
