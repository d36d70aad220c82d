package config

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: GetDefaultDataDir(),
	}
}

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		ActiveProvider: "openai",
		Providers: []ProviderConfig{
			{ID: "openai", Name: "OpenAI", Enabled: true, Model: "gpt-4o-mini"},
			{ID: "anthropic", Name: "Anthropic", Enabled: false, Model: "claude-sonnet-4-20250514"},
			{ID: "gemini", Name: "Gemini", Enabled: false, Model: "gemini-2.0-flash"},
		},
		Search: SearchConfig{
			BaseURL:    "https://api.exa.ai/search",
			NumResults: 3,
		},
	}
}

const systemConfigTemplate = `# canopy system settings
# Points at the directory holding the canvas database, user config and
# credentials.

data_directory = ""
`

const userConfigTemplate = `# canopy user configuration

active_provider = "openai"

[[providers]]
id = "openai"
name = "OpenAI"
enabled = true
model = "gpt-4o-mini"

[[providers]]
id = "anthropic"
name = "Anthropic"
enabled = false
model = "claude-sonnet-4-20250514"

[[providers]]
id = "gemini"
name = "Gemini"
enabled = false
model = "gemini-2.0-flash"

[search]
base_url = "https://api.exa.ai/search"
num_results = 3
`
