package domain

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// EventStoreConnected — имя события о подключении внешнего магазина.
const EventStoreConnected = "woo.store.connected"

// StoreConnectedEvent — событие о подключении WooCommerce-магазина.
//
// Бэкенд публикует его в двух формах: поля на верхнем уровне
// или вложенные в объект "payload". DecodeEvent приводит обе формы к этой структуре.
type StoreConnectedEvent struct {
	Event          string    `json:"event"`
	Version        int       `json:"version"`
	Timestamp      time.Time `json:"timestamp"`
	StoreID        int64     `json:"store_id"`
	OrganizationID int64     `json:"organization_id"`
	SiteURL        string    `json:"site_url"`
}

// NestedStoreConnectedEvent — та же полезная нагрузка, вложенная в "payload".
type NestedStoreConnectedEvent struct {
	Event     string              `json:"event"`
	Version   int                 `json:"version"`
	Timestamp time.Time           `json:"timestamp"`
	Payload   StoreConnectedEvent `json:"payload"`
}

// DecodeEvent разбирает тело сообщения.
//
// Правила:
//   - тело не JSON или JSON не-объект → ErrMalformedInput
//   - store_id ищется сначала на верхнем уровне, затем в payload.store_id;
//     вложенное значение используется, только если верхнего ключа нет или он null
//   - store_id должен быть положительным целым (число или числовая строка),
//     иначе ErrMissingIdentifier
//
// Остальные поля необязательны.
func DecodeEvent(body []byte) (StoreConnectedEvent, error) {
	var ev StoreConnectedEvent

	if !gjson.ValidBytes(body) {
		return ev, ErrMalformedInput
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return ev, ErrMalformedInput
	}

	raw := root.Get("store_id")
	if !present(raw) {
		raw = root.Get("payload.store_id")
	}
	storeID, ok := parseStoreID(raw)
	if !ok {
		return ev, ErrMissingIdentifier
	}

	lookup := func(path string) gjson.Result {
		if r := root.Get(path); present(r) {
			return r
		}
		return root.Get("payload." + path)
	}

	ev.StoreID = storeID
	ev.Event = lookup("event").String()
	ev.Version = int(lookup("version").Int())
	ev.OrganizationID = lookup("organization_id").Int()
	ev.SiteURL = lookup("site_url").String()

	if ts := lookup("timestamp").String(); ts != "" {
		// Некорректный timestamp не мешает обработке
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			ev.Timestamp = t
		}
	}

	return ev, nil
}

// present — ключ есть и не равен null.
func present(r gjson.Result) bool {
	return r.Exists() && r.Type != gjson.Null
}

func parseStoreID(r gjson.Result) (int64, bool) {
	switch r.Type {
	case gjson.Number:
		if id, err := strconv.ParseInt(r.Raw, 10, 64); err == nil {
			if id <= 0 {
				return 0, false
			}
			return id, true
		}
		// Дробная или экспоненциальная запись; float64(MaxInt64) == 2^63
		if r.Num != math.Trunc(r.Num) || r.Num <= 0 || r.Num >= math.MaxInt64 {
			return 0, false
		}
		return int64(r.Num), true
	case gjson.String:
		id, err := strconv.ParseInt(strings.TrimSpace(r.Str), 10, 64)
		if err != nil || id <= 0 {
			return 0, false
		}
		return id, true
	default:
		return 0, false
	}
}

// NewStoreConnectedEvent создаёт событие для публикации.
func NewStoreConnectedEvent(storeID, organizationID int64, siteURL string) StoreConnectedEvent {
	return StoreConnectedEvent{
		Event:          EventStoreConnected,
		Version:        1,
		Timestamp:      time.Now().UTC().Truncate(time.Second),
		StoreID:        storeID,
		OrganizationID: organizationID,
		SiteURL:        siteURL,
	}
}

// Nested возвращает событие во вложенной форме.
func (e StoreConnectedEvent) Nested() NestedStoreConnectedEvent {
	return NestedStoreConnectedEvent{
		Event:     e.Event,
		Version:   e.Version,
		Timestamp: e.Timestamp,
		Payload:   e,
	}
}
