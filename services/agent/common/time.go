package common

import "time"

// ToMillis converts a time to epoch milliseconds
func ToMillis(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}

// FromMillis converts epoch milliseconds to a time
func FromMillis(ms int64) time.Time {
	return time.Unix(0, ms*int64(time.Millisecond))
}
