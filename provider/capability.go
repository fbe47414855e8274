package provider

import "strings"

// ToolSupport describes whether a model can do native tool calling. It is
// a closed set of variants rather than a bare bool so callers can treat
// "we don't know this model" differently from "this model cannot".
type ToolSupport int

const (
	// ToolSupportUnknown means the model family is not in the capability
	// table. Callers should fall back to non-agentic chat.
	ToolSupportUnknown ToolSupport = iota

	// ToolSupportNative means the model family handles the tools field of
	// the chat API and emits structured tool calls.
	ToolSupportNative

	// ToolSupportNone means the family is known not to support tools, or
	// produces broken output when offered them.
	ToolSupportNone
)

func (s ToolSupport) String() string {
	switch s {
	case ToolSupportNative:
		return "native"
	case ToolSupportNone:
		return "none"
	default:
		return "unknown"
	}
}

// Capability is the resolved descriptor for one model. It is computed once
// per conversation setup and carried around instead of re-matching the
// model name at every decision point.
type Capability struct {
	Model       string // the model name as configured, e.g. "llama3.1:8b"
	Family      string // canonical family the model resolved to, "" when unknown
	ToolSupport ToolSupport
}

// CanToolCall reports whether the agentic path may be entered for this
// model. Unknown families are treated as unable.
func (c Capability) CanToolCall() bool {
	return c.ToolSupport == ToolSupportNative
}

// familySupport maps canonical model families to their tool support. The
// entries come from Ollama documentation and community testing; families
// absent from the table resolve to ToolSupportUnknown.
var familySupport = map[string]ToolSupport{
	"llama3.3":  ToolSupportNative,
	"llama3.2":  ToolSupportNative,
	"llama3.1":  ToolSupportNative,
	"qwen":      ToolSupportNative, // qwen2.5-coder, qwen3
	"mistral":   ToolSupportNative, // mistral, mistral-nemo
	"command-r": ToolSupportNative,
	"nemotron":  ToolSupportNative,
	"granite3":  ToolSupportNative,

	"llama3-gradient": ToolSupportNone,
	"llama3":          ToolSupportNone, // original llama3, not 3.1/3.2/3.3
	"codellama":       ToolSupportNone,
	"deepseek":        ToolSupportNone, // no tool support under Ollama
	"phi":             ToolSupportNone,
	"gemma":           ToolSupportNone,
}

// familyOrder lists families from most to least specific. "llama3.2" must
// be tried before "llama3", otherwise every 3.x model would resolve to the
// unsupported base family.
var familyOrder = []string{
	"llama3.3", "llama3.2", "llama3.1",
	"llama3-gradient",
	"command-r", "qwen", "mistral", "nemotron", "granite3",
	"codellama",
	"llama3",
	"deepseek", "phi", "gemma",
}

// CanonicalFamily resolves a model name to its canonical family, or ""
// when the name matches no known family. Matching is case-insensitive on
// the name prefix, so "Llama3.1:8b-instruct-q4" resolves to "llama3.1".
func CanonicalFamily(modelName string) string {
	name := strings.ToLower(modelName)
	for _, family := range familyOrder {
		if strings.HasPrefix(name, family) {
			return family
		}
	}
	return ""
}

// ResolveCapability computes the capability descriptor for a model.
//
// Cloud providers advertise tool calling for every chat model, so OpenAI
// and Anthropic models always resolve to ToolSupportNative. Ollama models
// go through the family table.
func ResolveCapability(providerType ProviderType, modelName string) Capability {
	cap := Capability{Model: modelName}

	if providerType == ProviderTypeOpenAI || providerType == ProviderTypeAnthropic {
		cap.ToolSupport = ToolSupportNative
		return cap
	}

	family := CanonicalFamily(modelName)
	if family == "" {
		cap.ToolSupport = ToolSupportUnknown
		return cap
	}

	cap.Family = family
	cap.ToolSupport = familySupport[family]
	return cap
}
