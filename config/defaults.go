package config

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: "~/.local/share/chathub",
	}
}

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		Ollama: OllamaConfig{
			Host:         "http://localhost:11434",
			DefaultModel: "llama3.1:latest",
		},
		ToolCallingEnabled: true,
		NotificationsOn:    true,
	}
}

func GenerateSystemConfigTemplate() string {
	return `# Chathub System Configuration
# Location: ~/.config/chathub/settings.toml
# This file uses TOML format: https://toml.io

# Directory where conversations and user config are stored
data_directory = "~/.local/share/chathub"
`
}

func GenerateUserConfigTemplate() string {
	return `# Chathub User Configuration
# Location: <data_directory>/config.toml
# This file uses TOML format: https://toml.io

[ollama]
# Ollama server URL
host = "http://localhost:11434"

# Default model to use when starting a new conversation
default_model = "llama3.1:latest"

# Default system prompt for new conversations (optional)
# Example: "You are a helpful coding assistant."
default_system_prompt = ""

# Let capable models call built-in tools (web search, URL reader,
# calculator, current date/time) while answering
tool_calling_enabled = true

# Desktop notification when a model finishes responding in the background
notifications = true

# Request extended thinking from models that support it
think = false

# Maximum tool-calling round trips per user message (0 uses the built-in default)
max_tool_iterations = 0

# How API keys are stored: "plaintext" (credentials.toml, 0600) or
# "ssh_key" (credentials.enc, AES-256-GCM keyed off an SSH key signature)
credential_security = "plaintext"

# SSH private key used when credential_security = "ssh_key".
# Leave empty to auto-detect a key in ~/.ssh (or create ~/.ssh/chathub_ed25519)
ssh_key_path = ""
`
}
