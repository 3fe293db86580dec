package ports

// RuleLoader reads rule definitions from a config source. A missing file
// or malformed document is not an error: the loader returns whatever it
// could read plus human-readable warnings for what it could not.
type RuleLoader interface {
	LoadRules(path string) (rules []map[string]interface{}, warnings []string, err error)
}
