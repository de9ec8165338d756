package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopJob struct{}

func (noopJob) Run(ctx context.Context) {}

func TestSchedulerAcceptsCommonSpecFormats(t *testing.T) {
	s := NewScheduler(context.Background())

	// стандартный 5-польный формат — как в конфиге по умолчанию
	_, err := s.Add("0 3 * * *", noopJob{})
	require.NoError(t, err)

	// 6-польный формат с секундами
	_, err = s.Add("30 0 3 * * *", noopJob{})
	require.NoError(t, err)

	// дескрипторы
	_, err = s.Add("@every 1h", noopJob{})
	require.NoError(t, err)

	_, err = s.Add("not a cron spec", noopJob{})
	assert.Error(t, err)
}
