package event

import "github.com/itsneelabh/evel/core"

// optional is a value that may be assigned once. Later assignments are
// ignored and logged.
type optional[T any] struct {
	value T
	set   bool
}

func (o *optional[T]) assign(v T, field string, logger core.Logger) {
	if o.set {
		logger.Warn("Ignoring second assignment of set-once field", map[string]interface{}{
			"field":    field,
			"existing": o.value,
			"ignored":  v,
		})
		return
	}
	o.value = v
	o.set = true
}

// ptr returns nil when unset so omitempty drops the key.
func (o optional[T]) ptr() *T {
	if !o.set {
		return nil
	}
	v := o.value
	return &v
}

func (o optional[T]) get() (T, bool) {
	return o.value, o.set
}
