// Package worker держит воркер подключённым к брокеру.
//
// # Обзор
//
// Worker — stateless цикл переподключения. Каждая итерация открывает
// сессию (соединение, топология, consumer) и потребляет сообщения,
// пока сессия жива:
//
//	w := worker.New(worker.Config{
//	    Connect:       connect,
//	    MaxRetries:    cfg.MaxConnectRetries,
//	    ReconnectWait: cfg.ReconnectWait(),
//	    Logger:        logger,
//	})
//
//	if err := w.Run(ctx); err != nil {
//	    // ErrReconnectsExhausted
//	}
//
// # Переподключение
//
// Любая ошибка сессии (не удалось подключиться, разрыв соединения,
// не подтверждённая переопубликация) приводит к паузе ReconnectWait
// и новой попытке. MaxRetries ограничивает число неудачных попыток
// подряд (0 — без ограничения); счётчик сбрасывается, как только
// сессия дошла до потребления.
//
// # Остановка
//
// Единственный сигнал остановки — отмена ctx. Сообщение в обработке
// доводится до решения, затем consumer снимается, соединение
// закрывается и Run возвращает nil.
package worker
