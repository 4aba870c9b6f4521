// Package schema defines the tracked records, their canonical Go shapes and
// the normalizer that coerces arbitrary or legacy input into those shapes.
//
// Every value that enters the local or remote replica passes through this
// package. Normalization is pure and total: it never returns an error and
// never panics, it substitutes defaults instead.
package schema

// Key names one independently readable and writable record.
type Key string

const (
	KeyTodos              Key = "todos"
	KeyRoutine            Key = "routine"
	KeyTimeSessions       Key = "timeSessions"
	KeyTimerState         Key = "timerState"
	KeyCurrentStatsPeriod Key = "currentStatsPeriod"
	KeyUsername           Key = "username"
	KeyIsLoggedIn         Key = "isLoggedIn"
	KeyTheme              Key = "theme"
	KeyEmail              Key = "email"
	KeyUID                Key = "uid"
)

// Keys is the fixed set of tracked records, in display order.
var Keys = []Key{
	KeyTodos,
	KeyRoutine,
	KeyTimeSessions,
	KeyTimerState,
	KeyCurrentStatsPeriod,
	KeyUsername,
	KeyIsLoggedIn,
	KeyTheme,
	KeyEmail,
	KeyUID,
}

// Known reports whether k is one of the tracked records.
func (k Key) Known() bool {
	for _, known := range Keys {
		if k == known {
			return true
		}
	}
	return false
}

func (k Key) String() string { return string(k) }

// ParseKey converts s to a Key, reporting whether it is a tracked record.
func ParseKey(s string) (Key, bool) {
	k := Key(s)
	return k, k.Known()
}
