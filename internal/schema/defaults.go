package schema

// Defaults returns the document every record falls back to. Slices are
// empty rather than nil so they encode as [].
func Defaults() Document {
	return Document{
		Todos:              []Todo{},
		Routine:            []Slot{},
		TimeSessions:       []Session{},
		CurrentStatsPeriod: PeriodToday,
		Theme:              ThemeLight,
	}
}

// Default returns the default value of k, or nil for unknown keys.
func Default(k Key) any {
	v, _ := Defaults().Value(k)
	return v
}

// IsDefault reports whether the canonical value v equals the default of k.
func IsDefault(k Key, v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case []Todo:
		return len(x) == 0
	case []Slot:
		return len(x) == 0
	case []Session:
		return len(x) == 0
	case TimerState:
		return x.Seconds == 0 && !x.IsRunning && !x.IsBreak && x.CurrentTask == "" && x.StartTime == nil
	case Period:
		return x == PeriodToday
	case Theme:
		return x == ThemeLight
	case string:
		return x == ""
	case bool:
		return !x
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	}
	return false
}

// HasData reports whether a raw remote document carries anything worth
// pulling: it exists and at least one tracked key normalizes to a
// non-default value. Unknown keys are ignored.
func HasData(raw map[string]any) bool {
	return std.HasData(raw)
}

func (n Normalizer) HasData(raw map[string]any) bool {
	if raw == nil {
		return false
	}
	for _, k := range Keys {
		v, ok := raw[string(k)]
		if !ok || v == nil {
			continue
		}
		if !IsDefault(k, n.Value(k, v)) {
			return true
		}
	}
	return false
}
