package endpoint

// MustParse is a convenience for tests and CLI argument parsing. It
// panics if s does not parse. Never call this from library code paths
// that handle caller-supplied input.
func MustParse(s string) Endpoint {
	e, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return e
}
