// Package cli реализует инструмент командной строки StoreSync.
//
// # Обзор
//
// CLI — утилита оператора: публикует тестовые события в брокер,
// вызывает операции бэкенда напрямую, проверяет поиск callback URL
// и состояние запущенного воркера.
//
// # Ключевые компоненты
//
// ## Env
//
// Параметры по умолчанию берутся из тех же переменных окружения,
// что и у воркера (RABBITMQ_URL, BACKEND_URL, SERVICE_TOKEN, ...).
// Флаги командной строки их переопределяют.
//
// ## Client
//
// HTTP-клиент служебного сервера воркера (/healthz, /readyz).
//
//	client := cli.NewClient("http://localhost:8082")
//	ready, err := client.Ready()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: storesync store sync 123 --json | jq .
//
// ## Commands
//
// Cobra-команды:
//   - event: publish
//   - store: sync, register-webhooks
//   - callback: resolve
//   - topology
//   - status
//
// Каждая группа создаётся через фабричную функцию (NewEventCmd и т.д.),
// принимающую замыкания для ленивого создания зависимостей и Output
// после парсинга PersistentFlags.
package cli
