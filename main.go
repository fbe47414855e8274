package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"chathub/chat"
	"chathub/config"
	"chathub/notify"
	"chathub/provider"
	"chathub/storage"
	"chathub/stream"
	"chathub/tools"
)

const (
	Version = "v0.01.00"
	License = "Apache-2.0"
)

func main() {
	// Validate environment variables first
	if config.HasAnyEnvVar() && !config.HasAllEnvVars() {
		missingVar := config.GetMissingEnvVar()
		fmt.Fprintf(os.Stderr, "Missing environment variable: %s\n\n"+
			"When using environment variables, all 3 must be set:\n"+
			"  CHATHUB_OLLAMA_HOST\n"+
			"  CHATHUB_OLLAMA_MODEL\n"+
			"  CHATHUB_DATA_DIR\n\n"+
			"Set the missing variable(s) before launching chathub.\n",
			missingVar)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize debug logging after config is loaded
	config.InitDebugLog(cfg.DataDir())

	store, err := storage.NewConversationStore(cfg.DataDir())
	if err != nil {
		fmt.Printf("Failed to open conversation store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	creds, err := openCredentials(cfg)
	if err != nil {
		fmt.Printf("Failed to load credentials: %v\n", err)
		os.Exit(1)
	}

	providers, err := buildProviders(cfg, creds)
	if err != nil {
		fmt.Printf("Failed to initialize providers: %v\n", err)
		os.Exit(1)
	}

	registry := buildRegistry(creds)

	controller, err := stream.NewController(stream.Config{
		Providers:     providers,
		Registry:      registry,
		Store:         store,
		Notifier:      notifier(cfg),
		MaxIterations: cfg.MaxToolIterations,
		Think:         cfg.Think,
	})
	if err != nil {
		fmt.Printf("Failed to initialize controller: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runREPL(ctx, controller, store, cfg); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openCredentials builds the credential store for the configured security
// method. For ssh_key, a missing key path falls back to the first key found
// in ~/.ssh, creating a dedicated one when none exists; a passphrase-
// protected key prompts for the passphrase before the first decrypt.
func openCredentials(cfg *config.Config) (*config.CredentialStore, error) {
	keyPath := cfg.SSHKeyPath

	if cfg.CredentialSecurity == config.SecuritySSHKey && keyPath == "" {
		found, err := config.FindSSHKeys()
		if err != nil {
			return nil, fmt.Errorf("scanning for SSH keys: %w", err)
		}
		if len(found) > 0 {
			keyPath = found[0]
		} else {
			keyPath, err = config.CreateEncryptionKey("")
			if err != nil {
				return nil, fmt.Errorf("creating encryption key: %w", err)
			}
		}
	}

	creds := config.NewCredentialStore(cfg.CredentialSecurity, keyPath)

	if cfg.CredentialSecurity == config.SecuritySSHKey {
		protected, err := config.IsSSHKeyEncrypted(keyPath)
		if err != nil {
			return nil, fmt.Errorf("checking SSH key: %w", err)
		}
		if protected {
			fmt.Printf("Passphrase for %s: ", keyPath)
			passphrase, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Println()
			if err != nil {
				return nil, fmt.Errorf("reading passphrase: %w", err)
			}
			creds.SetPassphrase(string(passphrase))
		}
	}

	if err := creds.Load(cfg.DataDir()); err != nil {
		return nil, err
	}
	return creds, nil
}

// notifier picks the configured completion notifier.
func notifier(cfg *config.Config) notify.Notifier {
	if !cfg.NotificationsOn {
		return notify.Unavailable{}
	}
	return notify.Desktop{}
}

// buildProviders constructs one provider per configured backend. Ollama is
// always available; cloud providers are added only when an API key is stored.
func buildProviders(cfg *config.Config, creds *config.CredentialStore) (map[string]chat.Provider, error) {
	providers := make(map[string]chat.Provider)

	ollamaProv, err := provider.NewProvider(provider.Config{
		Type:    provider.ProviderTypeOllama,
		BaseURL: cfg.OllamaHost,
		Model:   cfg.DefaultModel,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama provider: %w", err)
	}
	providers[string(provider.ProviderTypeOllama)] = ollamaProv

	for _, pt := range []provider.ProviderType{provider.ProviderTypeOpenAI, provider.ProviderTypeAnthropic} {
		key := creds.Get(string(pt))
		if key == "" {
			continue
		}
		prov, err := provider.NewProvider(provider.Config{
			Type:   pt,
			APIKey: key,
		})
		if err != nil {
			return nil, fmt.Errorf("%s provider: %w", pt, err)
		}
		providers[string(pt)] = prov
	}

	return providers, nil
}

// buildRegistry wires the built-in tool executors. Web search is only
// registered when a Serper API key is stored.
func buildRegistry(creds *config.CredentialStore) *tools.Registry {
	toolList := []tools.Tool{
		tools.NewReadURL(0),
		tools.NewCalculator(),
		tools.NewDateTime(),
	}

	if key := creds.Get("serper"); key != "" {
		toolList = append(toolList, tools.NewWebSearch(tools.WebSearchConfig{APIKey: key}))
	}

	return tools.NewRegistry(toolList...)
}

// runREPL reads user turns from stdin and streams each exchange to stdout.
func runREPL(ctx context.Context, controller *stream.Controller, store *storage.ConversationStore, cfg *config.Config) error {
	conv := resumeOrCreate(store, cfg)

	fmt.Printf("chathub %s (model %s via %s, tool calling %v)\n", Version, conv.Model, conv.Provider, conv.ToolCallingEnabled)
	fmt.Println("Type a message and press enter. /new, /list, /search <q>, /export, /tools, /quit.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/new":
			conv = chat.NewConversation(conv.Provider, conv.Model)
			conv.SystemPrompt = cfg.DefaultSystemPrompt
			conv.ToolCallingEnabled = cfg.ToolCallingEnabled
			fmt.Println("Started a new conversation.")
			continue
		case line == "/list":
			metas, err := store.List()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			for _, meta := range metas {
				fmt.Printf("  %s  %s (%d messages)\n", meta.UpdatedAt.Format("2006-01-02 15:04"), meta.Title, meta.MessageCount)
			}
			continue
		case strings.HasPrefix(line, "/search "):
			matches, err := store.Search(strings.TrimPrefix(line, "/search "))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			for _, m := range matches {
				fmt.Printf("  [%s] %s: %s\n", m.Title, m.Role, m.Preview)
			}
			continue
		case line == "/export":
			if len(conv.Messages) == 0 {
				fmt.Println("Nothing to export yet.")
				continue
			}
			path := storage.GenerateExportPath(conv.Title)
			if err := storage.WriteConversationJSON(conv, path); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			fmt.Printf("Exported to %s\n", path)
			continue
		case line == "/tools":
			conv.ToolCallingEnabled = !conv.ToolCallingEnabled
			fmt.Printf("Tool calling %v for this conversation.\n", conv.ToolCallingEnabled)
			continue
		}

		if err := streamExchange(ctx, controller, conv, line); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
}

// streamExchange sends one user turn and prints assistant output as it
// arrives, including tool activity markers from the agentic path.
func streamExchange(ctx context.Context, controller *stream.Controller, conv *chat.Conversation, text string) error {
	var lastStatus string
	var printed int

	for snap := range controller.Send(ctx, conv, text) {
		if snap.Err != nil {
			return snap.Err
		}

		msgs := snap.Conversation.Messages
		if len(msgs) == 0 {
			continue
		}
		last := msgs[len(msgs)-1]

		if last.Status != "" && last.Status != lastStatus {
			if printed > 0 {
				fmt.Println()
				printed = 0
			}
			fmt.Printf("  [%s]\n", last.Status)
			lastStatus = last.Status
		}

		if last.Role == chat.RoleAssistant && len(last.Content) > printed {
			fmt.Print(last.Content[printed:])
			printed = len(last.Content)
		}

		if snap.Done {
			*conv = snap.Conversation
			fmt.Println()
			for _, ref := range snap.References {
				fmt.Printf("  ref: %s\n", ref.URL)
			}
		}
	}

	return ctx.Err()
}

// resumeOrCreate reopens the last conversation if one exists, otherwise
// starts fresh with the configured defaults.
func resumeOrCreate(store *storage.ConversationStore, cfg *config.Config) *chat.Conversation {
	if id, err := store.LastOpen(); err == nil && id != "" {
		if conv, err := store.Load(id); err == nil {
			if config.Debug && config.DebugLog != nil {
				config.DebugLog.Printf("Resumed conversation %s (%d messages)", conv.ID, len(conv.Messages))
			}
			return conv
		}
	}

	conv := chat.NewConversation(string(provider.ProviderTypeOllama), cfg.DefaultModel)
	conv.SystemPrompt = cfg.DefaultSystemPrompt
	conv.ToolCallingEnabled = cfg.ToolCallingEnabled
	conv.CreatedAt = time.Now()
	return conv
}
