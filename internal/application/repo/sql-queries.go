package repo

// EVENTS

const insertEventQuery = `
INSERT INTO events (id, event_type, source, payload, priority, metadata, published_at, expires_at)
VALUES ($1, $2, $3, ($4)::jsonb, $5, ($6)::jsonb, $7, $8)
ON CONFLICT (id) DO NOTHING
RETURNING id;`

const getEventQuery = `
SELECT id, event_type, source, payload, priority, metadata, published_at, expires_at
FROM events
WHERE id = $1`

const deleteExpiredEventsQuery = `DELETE FROM events WHERE expires_at < now()`

// SUBSCRIPTIONS

const insertSubscriptionQuery = `
INSERT INTO subscriptions (id, subscriber, event_types, filter, delivery_mode, callback_url, active, created_at)
VALUES ($1, $2, $3, ($4)::jsonb, $5, $6, true, now())
RETURNING id;`

// Идемпотентность повторной подписки: ключ — (subscriber, нормализованный event_types)
const findActiveSubscriptionQuery = `
SELECT id FROM subscriptions
WHERE subscriber = $1 AND event_types = $2 AND active`

const deactivateSubscriptionQuery = `
UPDATE subscriptions SET active = false WHERE id = $1 AND active`

// cardinality(event_types) = 0 означает подписку на все типы
const listActiveSubscriptionsQuery = `
SELECT id, subscriber, event_types, filter, delivery_mode, callback_url, active, created_at, last_delivery_at
FROM subscriptions
WHERE active AND (cardinality(event_types) = 0 OR $1 = ANY(event_types))`

const touchSubscriptionDeliveryQuery = `
UPDATE subscriptions SET last_delivery_at = now() WHERE id = $1`

// DELIVERIES

const insertDeliveryQuery = `
INSERT INTO deliveries (id, event_id, subscription_id, subscriber, status, retry_count, next_attempt_at, created_at)
VALUES ($1, $2, $3, $4, 'pending', 0, now(), now())
ON CONFLICT (event_id, subscription_id) DO NOTHING`

// Резервирование пачки push-доставок к исполнению. Лизинг тот же, что у
// outbox-паттерна: next_attempt_at сдвигается вперёд внутри той же транзакции,
// FOR UPDATE SKIP LOCKED исключает выдачу строки двум воркерам.
const reservePushBatchQuery = `
WITH picked AS (
	SELECT d.id
	FROM deliveries d
	JOIN subscriptions s ON s.id = d.subscription_id
	WHERE d.status = 'pending'
		AND s.delivery_mode = 'push'
		AND d.next_attempt_at <= now()
	ORDER BY d.next_attempt_at
	FOR UPDATE OF d SKIP LOCKED
	LIMIT $2
)
UPDATE deliveries AS d
SET next_attempt_at = now() + $1::interval
FROM picked, subscriptions s, events e
WHERE d.id = picked.id AND s.id = d.subscription_id AND e.id = d.event_id
RETURNING d.id, d.event_id, d.subscription_id, d.subscriber, d.retry_count, d.next_attempt_at,
	s.callback_url,
	e.event_type, e.source, e.payload, e.priority, e.metadata, e.published_at, e.expires_at;`

// Повторный захват лизинга перед исполнением. Лизинг берётся при
// резервировании, но задание может пролежать в канале дольше лизинга; к тому
// моменту строку мог перерезервировать следующий тик. Сравнение next_attempt_at
// с меткой резервирования оставляет доставку ровно одному воркеру: у опоздавшей
// копии метка устарела и UPDATE не находит строку.
const reclaimDeliveryQuery = `
UPDATE deliveries
SET next_attempt_at = now() + $3::interval
WHERE id = $1 AND status = 'pending' AND next_attempt_at = $2`

// Guard по статусу: ack разрешён в любой момент, в том числе между push-попыткой
// и её фиксацией — уже подтверждённая доставка из acknowledged не выводится
const markDeliveredQuery = `
UPDATE deliveries
SET status = 'delivered', delivered_at = now(), error_message = NULL
WHERE id = $1 AND status = 'pending'`

// Ретрай: статус остаётся pending, счётчик растёт, попытка переносится
const markFailedWithBackoffQuery = `
UPDATE deliveries
SET retry_count = retry_count + 1, next_attempt_at = $2, error_message = $3
WHERE id = $1`

// Ceiling ретраев уже исчерпан, счётчик не трогаем. Guard по статусу:
// доставка, подтверждённая во время последней попытки, в dead letter не уходит
const markDeadLetterQuery = `
UPDATE deliveries
SET status = 'dead_letter', error_message = $2
WHERE id = $1 AND status = 'pending'`

// Pull-выдача: видимость ограничивается claimed_until, статус не меняется.
// Порядок: приоритет события (critical раньше), затем published_at по возрастанию.
const pollDeliveriesQuery = `
WITH picked AS (
	SELECT d.id
	FROM deliveries d
	JOIN subscriptions s ON s.id = d.subscription_id
	JOIN events e ON e.id = d.event_id
	WHERE d.subscriber = $1
		AND d.status = 'pending'
		AND s.delivery_mode = 'pull'
		AND (d.claimed_until IS NULL OR d.claimed_until <= now())
	ORDER BY
		CASE e.priority WHEN 'critical' THEN 0 WHEN 'high' THEN 1 WHEN 'normal' THEN 2 ELSE 3 END,
		e.published_at
	FOR UPDATE OF d SKIP LOCKED
	LIMIT $3
),
claimed AS (
	UPDATE deliveries AS d
	SET claimed_until = now() + $2::interval
	FROM picked, events e
	WHERE d.id = picked.id AND e.id = d.event_id
	RETURNING d.id AS delivery_id, d.retry_count,
		e.id AS event_id, e.event_type, e.source, e.payload, e.priority, e.metadata, e.published_at, e.expires_at
)
SELECT delivery_id, retry_count, event_id, event_type, source, payload, priority, metadata, published_at, expires_at
FROM claimed
ORDER BY
	CASE priority WHEN 'critical' THEN 0 WHEN 'high' THEN 1 WHEN 'normal' THEN 2 ELSE 3 END,
	published_at;`

const acknowledgeDeliveryQuery = `
UPDATE deliveries
SET status = 'acknowledged', acknowledged_at = now()
WHERE id = $1 AND status IN ('pending', 'delivered')`

const getDeliveryStatusQuery = `SELECT status FROM deliveries WHERE id = $1`

const replayDeadLetterQuery = `
UPDATE deliveries
SET status = 'pending', retry_count = 0, next_attempt_at = now(), error_message = NULL, claimed_until = NULL
WHERE id = $1 AND status = 'dead_letter'`

// AUDIT / STATS

const busStatsQuery = `
SELECT
	(SELECT count(*) FROM events),
	(SELECT count(*) FROM events WHERE published_at >= now() - interval '1 hour'),
	(SELECT count(DISTINCT subscriber) FROM subscriptions WHERE active),
	coalesce(
		(SELECT count(*) FILTER (WHERE status IN ('delivered', 'acknowledged'))::float8
			/ nullif(count(*) FILTER (WHERE status <> 'pending'), 0)
		FROM deliveries), 1.0)`

const auditDeliveriesForEventsQuery = `
SELECT id, event_id, subscription_id, subscriber, status, retry_count, next_attempt_at,
	delivered_at, acknowledged_at, coalesce(error_message, ''), created_at
FROM deliveries
WHERE event_id = ANY(($1)::uuid[])
ORDER BY created_at`
