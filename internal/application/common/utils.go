package common

import (
	"fmt"
	"time"
)

const Version = "0.1.0"

// Фиксированное расписание повторов push-доставки:
// попытка 1 — сразу, ретрай 1 через 1s, ретрай 2 через 5s, ретрай 3 через 15s.
// Дальше ретраев нет — доставка уходит в dead letter.
var retrySchedule = []time.Duration{
	1 * time.Second,
	5 * time.Second,
	15 * time.Second,
}

// RetryBackoff возвращает задержку перед ретраем с номером retry (1-based).
// Для номеров за пределами расписания возвращает последнюю ступень —
// решение о dead letter принимает вызывающий по ceiling'у, не эта функция.
func RetryBackoff(retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	if retry > len(retrySchedule) {
		retry = len(retrySchedule)
	}
	return retrySchedule[retry-1]
}

func PgInterval(d time.Duration) string {
	sec := int64(d / time.Second)
	return fmt.Sprintf("%d seconds", sec)
}
