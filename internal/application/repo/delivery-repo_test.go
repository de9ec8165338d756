package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

// fakeDB записывает Exec-вызовы и отдаёт управляемый CommandTag
type fakeDB struct {
	tag     pgconn.CommandTag
	execErr error
	rowScan func(dest ...any) error

	execSQL  []string
	execArgs [][]any
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = append(f.execSQL, sql)
	f.execArgs = append(f.execArgs, args)
	return f.tag, f.execErr
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected Query")
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return fakeRow{scan: f.rowScan}
}

func (f *fakeDB) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeDB) Close() {}

func TestMarkDeliveredKeepsTerminalStatus(t *testing.T) {
	f := &fakeDB{tag: pgconn.NewCommandTag("UPDATE 0")}
	r := NewRepo(f, zap.NewNop().Sugar())

	// подписчик успел подтвердить доставку — переход в delivered не выполняется,
	// но это не ошибка
	err := r.MarkDelivered(context.Background(), uuid.Must(uuid.NewV4()))
	require.NoError(t, err)

	require.Len(t, f.execSQL, 1)
	assert.Contains(t, f.execSQL[0], "status = 'pending'")
}

func TestMarkDeadLetterKeepsTerminalStatus(t *testing.T) {
	t.Run("доставка подтверждена во время попытки — dead letter не создаётся", func(t *testing.T) {
		f := &fakeDB{tag: pgconn.NewCommandTag("UPDATE 0")}
		r := NewRepo(f, zap.NewNop().Sugar())

		moved, err := r.MarkDeadLetter(context.Background(), uuid.Must(uuid.NewV4()), "timeout")
		require.NoError(t, err)
		assert.False(t, moved)

		require.Len(t, f.execSQL, 1)
		assert.Contains(t, f.execSQL[0], "status = 'pending'")
	})

	t.Run("pending-доставка уходит в dead letter", func(t *testing.T) {
		f := &fakeDB{tag: pgconn.NewCommandTag("UPDATE 1")}
		r := NewRepo(f, zap.NewNop().Sugar())

		moved, err := r.MarkDeadLetter(context.Background(), uuid.Must(uuid.NewV4()), "timeout")
		require.NoError(t, err)
		assert.True(t, moved)
	})
}

func TestReclaimDeliveryStaleLease(t *testing.T) {
	f := &fakeDB{tag: pgconn.NewCommandTag("UPDATE 0")}
	r := NewRepo(f, zap.NewNop().Sugar())

	id := uuid.Must(uuid.NewV4())
	leasedUntil := time.Now().Add(30 * time.Second)

	claimed, err := r.ReclaimDelivery(context.Background(), id, leasedUntil, 30*time.Second)
	require.NoError(t, err)
	assert.False(t, claimed)

	// лизинг сравнивается по метке резервирования
	require.Len(t, f.execArgs, 1)
	assert.Equal(t, id, f.execArgs[0][0])
	assert.Equal(t, leasedUntil, f.execArgs[0][1])
	assert.Contains(t, f.execSQL[0], "next_attempt_at = $2")
}

func TestAcknowledgeDeliveryTerminalNoop(t *testing.T) {
	f := &fakeDB{
		tag: pgconn.NewCommandTag("UPDATE 0"),
		rowScan: func(dest ...any) error {
			*(dest[0].(*string)) = "acknowledged"
			return nil
		},
	}
	r := NewRepo(f, zap.NewNop().Sugar())

	// повторный ack уже подтверждённой доставки — no-op без ошибки
	err := r.AcknowledgeDelivery(context.Background(), uuid.Must(uuid.NewV4()))
	require.NoError(t, err)
	assert.Contains(t, f.execSQL[0], "status IN ('pending', 'delivered')")
}
