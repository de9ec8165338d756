package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryBackoff(t *testing.T) {
	tests := []struct {
		name  string
		retry int
		want  time.Duration
	}{
		{"первый ретрай", 1, 1 * time.Second},
		{"второй ретрай", 2, 5 * time.Second},
		{"третий ретрай", 3, 15 * time.Second},
		{"за пределами расписания — последняя ступень", 4, 15 * time.Second},
		{"некорректный номер — первая ступень", 0, 1 * time.Second},
		{"отрицательный номер — первая ступень", -1, 1 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RetryBackoff(tt.retry))
		})
	}
}

func TestPgInterval(t *testing.T) {
	assert.Equal(t, "30 seconds", PgInterval(30*time.Second))
	assert.Equal(t, "90 seconds", PgInterval(90*time.Second))
	assert.Equal(t, "0 seconds", PgInterval(500*time.Millisecond))
}
