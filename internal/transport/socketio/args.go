package socketio

// Clients send either a bare value or an object such as {"value": 30}.

func firstMap(args []any) (map[string]interface{}, bool) {
	if len(args) == 0 {
		return nil, false
	}
	m, ok := args[0].(map[string]interface{})
	return m, ok
}

func argNumber(args []any, key string) (float64, bool) {
	if len(args) == 0 {
		return 0, false
	}
	v := args[0]
	if m, ok := v.(map[string]interface{}); ok {
		v = m[key]
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func argString(args []any, key string) (string, bool) {
	if len(args) == 0 {
		return "", false
	}
	v := args[0]
	if m, ok := v.(map[string]interface{}); ok {
		v = m[key]
	}
	s, ok := v.(string)
	return s, ok && s != ""
}
