package common

// CloneStrings returns a copy of the provided string map
func CloneStrings(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}

	result := make(map[string]string, len(m))
	for k, v := range m {
		result[k] = v
	}

	return result
}

// CloneValues returns a shallow copy of the provided map
func CloneValues(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}

	result := make(map[string]interface{}, len(m))
	for k, v := range m {
		result[k] = v
	}

	return result
}

// Clone returns a copy of the record that shares no maps with the original
func (r ErrorRecord) Clone() ErrorRecord {
	r.Tags = CloneStrings(r.Tags)
	r.Context.Extra = CloneValues(r.Context.Extra)

	return r
}

// Clone returns a copy of the alert that shares no slices with the original
func (a AlertEvent) Clone() AlertEvent {
	a.Channels = append([]string(nil), a.Channels...)
	a.Notifications = append(make([]NotificationAttempt, 0, len(a.Notifications)), a.Notifications...)

	return a
}
