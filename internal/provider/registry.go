package provider

// AllAdapters constructs one instance of every supported provider,
// resolving each home directory from its environment variable or
// platform default.
func AllAdapters() []Adapter {
	return []Adapter{
		NewClaudeAdapter(),
		NewCodexAdapter(),
		NewOpenCodeAdapter(),
		NewGeminiAdapter(),
		NewKimiAdapter(),
	}
}
