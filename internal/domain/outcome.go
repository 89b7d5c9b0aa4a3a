package domain

// Step — шаг онбординга магазина.
type Step string

const (
	// StepSyncCategories — синхронизация категорий товаров.
	StepSyncCategories Step = "sync_categories"

	// StepRegisterWebhooks — регистрация webhook-подписок.
	StepRegisterWebhooks Step = "register_webhooks"

	// StepUnknown — шаг не определён (например, паника в workflow).
	StepUnknown Step = "unknown"
)

// Class — классификация результата вызова бэкенда.
type Class string

const (
	// ClassSuccess — 2xx.
	ClassSuccess Class = "success"

	// ClassAuthDenied — 401/403. Повтор не поможет.
	ClassAuthDenied Class = "auth_denied"

	// ClassNotFound — 404, магазина нет на бэкенде. Повтор не поможет.
	ClassNotFound Class = "not_found"

	// ClassTransient — прочие не-2xx, сетевые ошибки, таймауты.
	ClassTransient Class = "transient"
)

// IsFatal возвращает true для классов, которые нельзя повторять.
func (c Class) IsFatal() bool {
	return c == ClassAuthDenied || c == ClassNotFound
}

// Outcome — результат выполнения workflow для одного store_id.
//
// Completed, если Class == ClassSuccess; иначе Step указывает
// на первый упавший шаг.
type Outcome struct {
	Step   Step
	Class  Class
	Detail string
}

// Completed возвращает успешный результат.
func Completed() Outcome {
	return Outcome{Class: ClassSuccess}
}

// Failed возвращает результат с ошибкой на шаге step.
func Failed(step Step, class Class, detail string) Outcome {
	return Outcome{Step: step, Class: class, Detail: detail}
}

// IsCompleted проверяет, что оба шага прошли успешно.
func (o Outcome) IsCompleted() bool {
	return o.Class == ClassSuccess
}

// String — "completed" или "<step>:<class>".
func (o Outcome) String() string {
	if o.IsCompleted() {
		return "completed"
	}
	return string(o.Step) + ":" + string(o.Class)
}
