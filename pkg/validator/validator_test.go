package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type prioritySubject struct {
	Priority string `validate:"omitempty,priority"`
}

type callbackSubject struct {
	CallbackURL string `validate:"omitempty,callback_url"`
}

func TestPriorityValidator(t *testing.T) {
	for _, p := range []string{"critical", "high", "normal", "low"} {
		assert.NoError(t, Validate.Struct(&prioritySubject{Priority: p}), p)
	}

	assert.Error(t, Validate.Struct(&prioritySubject{Priority: "urgent"}))
	assert.Error(t, Validate.Struct(&prioritySubject{Priority: "CRITICAL"}))
	assert.NoError(t, Validate.Struct(&prioritySubject{Priority: ""}))
}

func TestCallbackURLValidator(t *testing.T) {
	valid := []string{
		"http://monitor.local/hook",
		"https://example.com:8443/events",
	}
	for _, u := range valid {
		assert.NoError(t, Validate.Struct(&callbackSubject{CallbackURL: u}), u)
	}

	invalid := []string{
		"ftp://example.com/hook",
		"monitor.local/hook",
		"/relative/path",
		"http://",
	}
	for _, u := range invalid {
		assert.Error(t, Validate.Struct(&callbackSubject{CallbackURL: u}), u)
	}
}
