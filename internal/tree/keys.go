package tree

// Non-printable keys are stored under symbolic names so the config file
// stays readable and diff-friendly. The mapping is applied on encode and
// inverted on decode; unknown key strings pass through unchanged in both
// directions.
var keyNames = map[string]string{
	" ":    "space",
	"\t":   "tab",
	"\r":   "enter",
	"\x1b": "escape",
	"\x7f": "backspace",
}

var namedKeys = func() map[string]string {
	inv := make(map[string]string, len(keyNames))
	for k, name := range keyNames {
		inv[name] = k
	}
	return inv
}()

// EncodeKey maps a logical key character to its stored form.
func EncodeKey(key string) string {
	if name, ok := keyNames[key]; ok {
		return name
	}
	return key
}

// DecodeKey maps a stored key string back to its logical character.
func DecodeKey(stored string) string {
	if key, ok := namedKeys[stored]; ok {
		return key
	}
	return stored
}
