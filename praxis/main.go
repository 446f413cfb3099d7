package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/manifoldco/promptui"

	"github.com/soen-app/praxis/internal/cache"
	"github.com/soen-app/praxis/internal/citations"
	"github.com/soen-app/praxis/internal/config"
	"github.com/soen-app/praxis/internal/ledger"
	"github.com/soen-app/praxis/internal/maintenance"
	"github.com/soen-app/praxis/internal/router"
	"github.com/soen-app/praxis/internal/rules"
	"github.com/soen-app/praxis/internal/server"
	"github.com/soen-app/praxis/internal/signals"
	"github.com/soen-app/praxis/internal/stats"
	"github.com/soen-app/praxis/pkg/envelope"
	pkgLogger "github.com/soen-app/praxis/pkg/logger"
	"github.com/soen-app/praxis/pkg/provider"
	"github.com/soen-app/praxis/pkg/provider/anthropic"
	"github.com/soen-app/praxis/pkg/provider/gemini"
	"github.com/soen-app/praxis/pkg/provider/ollama"
	"github.com/soen-app/praxis/pkg/provider/openai"
	"github.com/soen-app/praxis/pkg/provider/perplexity"
)

const grokDefaultBaseURL = "https://api.x.ai/v1"

// resolveStringFlag returns the non-empty value, preferring short flag over long flag
func resolveStringFlag(shortVal, longVal string) string {
	if shortVal != "" {
		return shortVal
	}
	return longVal
}

func printUsage() {
	fmt.Println("praxis - feature-aware AI request router with cost-optimized fallback")
	fmt.Println()
	fmt.Println("Available Features:")
	fmt.Println("  chat                    Conversational assistant (never cached)")
	fmt.Println("  task_parsing            Natural language to structured task JSON")
	fmt.Println("  vision                  Describe an image file")
	fmt.Println("  briefing                Personal daily briefing")
	fmt.Println("  web_research            Search-backed answer with citations")
	fmt.Println("  image_generation        Generate an image from a prompt")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  praxis                                      # Interactive chat mode")
	fmt.Println("  praxis \"plan my morning\"                    # One-shot chat")
	fmt.Println("  praxis -F task_parsing \"dentist tue 3pm\"    # Parse into a task")
	fmt.Println("  praxis -F web_research \"Go 1.24 changes\"    # Cited research answer")
	fmt.Println("  praxis -F vision photo.jpg                  # Describe an image")
	fmt.Println("  praxis -f prompts.txt                       # Multi-turn from file")
	fmt.Println("  praxis -serve                               # Run the HTTP service")
	fmt.Println("  praxis -v \"why is my day overbooked\"        # Verbose debug logging")
	fmt.Println()
}

func main() {
	ctx := context.Background()

	// Define command line flags
	var settingsPath = flag.String("settings", "", "Path to settings file")
	var serve = flag.Bool("serve", false, "Run the HTTP routing service")
	var addr = flag.String("addr", "", "Listen address for -serve (overrides settings)")
	var rulesPath = flag.String("rules", "", "Routing rules file (overrides settings)")
	var feature = flag.String("F", "", "Feature to invoke (chat, task_parsing, vision, briefing, web_research, image_generation)")
	var featureLong = flag.String("feature", "", "Feature to invoke (chat, task_parsing, vision, briefing, web_research, image_generation)")
	var user = flag.String("u", "", "User id for accounting and quotas")
	var userLong = flag.String("user", "", "User id for accounting and quotas")
	var tier = flag.String("tier", "pro", "Subscription tier (free, plus, pro)")
	var promptFile = flag.String("f", "", "File containing multi-turn prompts separated by '----'")
	var verbose = flag.Bool("v", false, "Enable verbose logging (debug level)")
	var verboseLong = flag.Bool("verbose", false, "Enable verbose logging (debug level)")
	var help = flag.Bool("h", false, "Show this help message")
	var helpLong = flag.Bool("help", false, "Show this help message")

	// Custom usage function
	flag.Usage = func() {
		printUsage()
		fmt.Println("Flags:")
		flag.PrintDefaults()
	}

	// Parse flags
	flag.Parse()

	// Handle help flag
	if *help || *helpLong {
		flag.Usage()
		return
	}

	resolvedFeature := resolveStringFlag(*feature, *featureLong)
	if resolvedFeature == "" {
		resolvedFeature = string(envelope.FeatureChat)
	}
	resolvedUser := resolveStringFlag(*user, *userLong)
	if resolvedUser == "" {
		resolvedUser = "local"
	}
	resolvedVerbose := *verbose || *verboseLong

	// Get remaining arguments as the request input
	args := flag.Args()

	// Load settings
	settings, err := config.LoadSettings(*settingsPath)
	if err != nil {
		fmt.Printf("⚠️  Warning: failed to load settings: %v\n", err)
		settings = config.GetDefaultSettings()
	}

	// Override settings with command line arguments
	if *addr != "" {
		settings.Server.Addr = *addr
	}
	if *rulesPath != "" {
		settings.Router.RulesPath = *rulesPath
	}

	// Initialize structured logger based on settings
	logLevel := settings.LogLevel
	if resolvedVerbose {
		logLevel = "debug"
	}
	pkgLogger.SetGlobalLogLevel(pkgLogger.LogLevel(logLevel))
	logger := pkgLogger.NewLogger(pkgLogger.LogLevel(logLevel))

	// Validate settings
	if err := config.ValidateSettings(settings); err != nil {
		logger.Error("Settings validation failed", "error", err)
		os.Exit(1)
	}

	stack, err := buildStack(ctx, settings)
	if err != nil {
		logger.Error("Failed to build routing stack", "error", err)
		os.Exit(1)
	}
	defer stack.close()

	if *serve {
		runServe(stack, settings, logger)
		return
	}

	if *promptFile != "" {
		executeMultiTurnFile(ctx, stack.router, *promptFile, resolvedUser, envelope.Tier(*tier))
		return
	}

	if len(args) > 0 {
		// One-shot mode: route a single request and exit
		payload, err := buildPayload(envelope.FeatureType(resolvedFeature), strings.Join(args, " "))
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			os.Exit(1)
		}
		payload = enrichBriefing(ctx, stack.signals, resolvedUser, payload)
		req := envelope.NewRequest(resolvedUser, envelope.Tier(*tier), payload)
		executeRequest(ctx, stack.router, req)
		return
	}

	// Interactive mode: start REPL
	startInteractiveMode(ctx, stack.router, stack.signals, resolvedUser, envelope.Tier(*tier))
}

// stack bundles the wired routing components and their teardown.
type stack struct {
	router    *router.Router
	scheduler *maintenance.Scheduler
	ledger    ledger.Ledger
	signals   signals.Source
	cacheStop func()
	watchStop context.CancelFunc
}

func (s *stack) close() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	if s.watchStop != nil {
		s.watchStop()
	}
	if s.cacheStop != nil {
		s.cacheStop()
	}
	if s.ledger != nil {
		_ = s.ledger.Close()
	}
}

// buildStack wires cache, ledger, rules, adapters and quotas into a router
// according to the settings.
func buildStack(ctx context.Context, settings *config.Settings) (*stack, error) {
	s := &stack{}

	// Usage ledger
	switch settings.Ledger.Backend {
	case "sqlite":
		led, err := ledger.NewSQLite(settings.Ledger.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open usage ledger: %w", err)
		}
		s.ledger = led
	default:
		s.ledger = ledger.NewMemory()
	}
	s.signals = signals.NewLedgerSource(s.ledger)

	// Response cache
	var store cache.Store
	switch settings.Cache.Backend {
	case "redis":
		rc := cache.NewRedis(settings.Cache.RedisAddr, 0)
		store = rc
		s.cacheStop = func() { _ = rc.Close() }
	default:
		store = cache.NewMemory()
	}

	// Routing rules with latency-informed ordering
	table, err := rules.Load(settings.Router.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load routing rules: %w", err)
	}
	tracker := stats.NewTracker()
	selector := rules.NewSelector(table, s.ledger, tracker)
	if settings.Router.WatchRules {
		watchCtx, cancel := context.WithCancel(ctx)
		s.watchStop = cancel
		go func() {
			if err := selector.Watch(watchCtx, settings.Router.RulesPath); err != nil && watchCtx.Err() == nil {
				pkgLogger.NewComponentLogger("main").Warn("rules watcher stopped", "error", err)
			}
		}()
	}

	// Provider adapters
	adapters, err := buildAdapters(ctx, settings)
	if err != nil {
		return nil, err
	}

	// Per-tier quotas
	quota, err := buildQuota(settings)
	if err != nil {
		return nil, err
	}

	// Nightly rollup verification only applies to the sqlite ledger
	var verifier maintenance.RollupVerifier
	if sq, ok := s.ledger.(*ledger.SQLite); ok {
		verifier = sq
	}
	s.scheduler = maintenance.New(store, verifier)
	s.scheduler.Start()

	s.router = router.New(router.Params{
		Selector:       selector,
		Adapters:       adapters,
		Cache:          store,
		Ledger:         s.ledger,
		Quota:          quota,
		Latency:        tracker,
		Titles:         citations.NewResolver(),
		AttemptTimeout: time.Duration(settings.Router.AttemptTimeoutSec) * time.Second,
	})
	return s, nil
}

// buildAdapters constructs one adapter per enabled provider. Grok speaks the
// OpenAI wire protocol and is served by the compatible client with its own
// endpoint.
func buildAdapters(ctx context.Context, settings *config.Settings) (provider.Registry, error) {
	adapters := provider.Registry{}
	for name, ps := range settings.Providers {
		if !ps.Enabled {
			continue
		}
		cfg, err := ps.Resolve(name)
		if err != nil {
			return nil, err
		}

		var adapter provider.Adapter
		switch name {
		case "openai":
			adapter, err = openai.New(cfg)
		case "grok":
			if cfg.BaseURL == "" {
				cfg.BaseURL = grokDefaultBaseURL
			}
			adapter, err = openai.NewCompatible("grok", cfg)
		case "anthropic":
			adapter, err = anthropic.New(cfg)
		case "gemini":
			adapter, err = gemini.New(ctx, cfg)
		case "perplexity":
			adapter, err = perplexity.New(cfg)
		case "ollama":
			adapter, err = ollama.New(cfg)
		default:
			return nil, fmt.Errorf("unsupported provider: %s", name)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create %s adapter: %w", name, err)
		}
		adapters[name] = adapter
	}
	return adapters, nil
}

func buildQuota(settings *config.Settings) (*router.Quota, error) {
	if len(settings.Quotas) == 0 {
		return nil, nil
	}
	tiers := make(map[envelope.Tier]router.TierQuota, len(settings.Quotas))
	for name, qs := range settings.Quotas {
		t := envelope.Tier(name)
		if !t.Known() {
			return nil, fmt.Errorf("quota for unknown tier: %s", name)
		}
		tiers[t] = router.TierQuota{
			DailyRequests:    qs.DailyRequests,
			MonthlyBudgetUSD: qs.MonthlyBudgetUSD,
			BudgetRule:       qs.BudgetRule,
		}
	}
	return router.NewQuota(tiers)
}

// runServe runs the HTTP service until interrupted.
func runServe(s *stack, settings *config.Settings, logger *pkgLogger.Logger) {
	srv := server.New(s.router)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Shutting down")
		s.close()
		os.Exit(0)
	}()

	fmt.Printf("🚀 praxis routing service listening on %s\n", settings.Server.Addr)
	if err := srv.Run(settings.Server.Addr); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// buildPayload turns raw CLI input into the payload for the chosen feature.
// The vision feature takes an image file path instead of text.
func buildPayload(feature envelope.FeatureType, input string) (envelope.Payload, error) {
	switch feature {
	case envelope.FeatureChat:
		return envelope.ChatPayload{Message: input}, nil
	case envelope.FeatureTaskParsing:
		return envelope.TaskPayload{Text: input}, nil
	case envelope.FeatureWebResearch:
		return envelope.ResearchPayload{Query: input}, nil
	case envelope.FeatureBriefing:
		return envelope.BriefingPayload{Date: time.Now().Format("2006-01-02"), Style: input}, nil
	case envelope.FeatureImageGeneration:
		return envelope.ImagePayload{Prompt: input}, nil
	case envelope.FeatureVision:
		data, err := os.ReadFile(input)
		if err != nil {
			return nil, fmt.Errorf("failed to read image file '%s': %w", input, err)
		}
		return envelope.VisionPayload{
			ImageBase64: base64.StdEncoding.EncodeToString(data),
			MediaType:   mediaTypeFor(input),
			Prompt:      "Describe this image.",
		}, nil
	default:
		return nil, fmt.Errorf("unknown feature: %s", feature)
	}
}

// enrichBriefing folds the user's activity signals into a briefing payload so
// the model summarizes observed usage instead of inventing numbers. Signal
// failures are non-fatal and leave the payload unchanged.
func enrichBriefing(ctx context.Context, src signals.Source, userID string, payload envelope.Payload) envelope.Payload {
	bp, ok := payload.(envelope.BriefingPayload)
	if !ok || src == nil {
		return payload
	}
	sigs, err := src.Signals(ctx, userID)
	if err != nil {
		fmt.Printf("⚠️  Warning: failed to collect activity signals: %v\n", err)
		return payload
	}
	bp.Sections = append(signals.Lines(sigs), bp.Sections...)
	return bp
}

func mediaTypeFor(path string) string {
	switch {
	case strings.HasSuffix(path, ".png"):
		return "image/png"
	case strings.HasSuffix(path, ".webp"):
		return "image/webp"
	case strings.HasSuffix(path, ".gif"):
		return "image/gif"
	default:
		return "image/jpeg"
	}
}

func executeRequest(ctx context.Context, r *router.Router, req *envelope.Request) {
	fmt.Print("\n")

	resp := r.Route(ctx, req)
	if !resp.Success {
		fmt.Printf("❌ Request failed (%s): %s\n", resp.Failure, resp.Detail)
		os.Exit(1)
	}

	printResponse(resp)
}

func printResponse(resp *envelope.Response) {
	fmt.Printf("✅ Response:\n%s\n", resp.Content)
	for _, c := range resp.Citations {
		if c.Title != "" {
			fmt.Printf("  🔗 %s (%s)\n", c.Title, c.URL)
		} else {
			fmt.Printf("  🔗 %s\n", c.URL)
		}
	}
	served := resp.Provider + "/" + resp.Model
	if resp.CacheHit {
		served += " (cached)"
	}
	fmt.Printf("\n📊 %s | %d in / %d out tokens | $%.6f | %s\n",
		served, resp.TokensIn, resp.TokensOut, resp.CostUSD, resp.Latency.Round(time.Millisecond))
}

func executeMultiTurnFile(ctx context.Context, r *router.Router, filePath, userID string, tier envelope.Tier) {
	// Read the file content
	content, err := os.ReadFile(filePath)
	if err != nil {
		fmt.Printf("❌ Failed to read prompt file '%s': %v\n", filePath, err)
		os.Exit(1)
	}

	// Split prompts by "----" separator
	prompts := strings.Split(string(content), "----")

	if len(prompts) == 0 {
		fmt.Printf("❌ No prompts found in file '%s'\n", filePath)
		os.Exit(1)
	}

	fmt.Printf("🗂️  Routing %d turns from file: %s\n\n", len(prompts), filePath)

	for i, prompt := range prompts {
		prompt = strings.TrimSpace(prompt)
		if prompt == "" {
			continue // Skip empty prompts
		}

		fmt.Printf("🔄 Turn %d/%d:\n", i+1, len(prompts))
		fmt.Printf("📝 Prompt: %s\n", prompt)
		fmt.Print("\n")

		req := envelope.NewRequest(userID, tier, envelope.ChatPayload{Message: prompt})
		resp := r.Route(ctx, req)
		if !resp.Success {
			fmt.Printf("❌ Turn %d failed (%s): %s\n", i+1, resp.Failure, resp.Detail)
			continue
		}

		printResponse(resp)
		fmt.Printf("%s\n\n", strings.Repeat("─", 60))
	}

	fmt.Println("🏁 All turns completed.")
}

// session holds the interactive REPL state.
type session struct {
	router  *router.Router
	signals signals.Source
	userID  string
	tier    envelope.Tier
	feature envelope.FeatureType
}

func startInteractiveMode(ctx context.Context, r *router.Router, src signals.Source, userID string, tier envelope.Tier) {
	sess := &session{router: r, signals: src, userID: userID, tier: tier, feature: envelope.FeatureChat}

	// Configure readline with enhanced features
	config := &readline.Config{
		Prompt:              "> ",
		HistoryFile:         "/tmp/praxis_history",
		AutoComplete:        createAutoCompleter(),
		InterruptPrompt:     "^C",
		EOFPrompt:           "exit",
		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	}

	// Create readline instance
	rl, err := readline.NewEx(config)
	if err != nil {
		fmt.Printf("❌ Failed to initialize interactive mode: %v\n", err)
		fmt.Println("💡 Please use one-shot mode instead: praxis \"your request here\"")
		return
	}
	defer rl.Close()

	fmt.Println("\n🚀 Welcome to Praxis Interactive Mode!")
	fmt.Println("💬 Commands start with '/', everything else is routed to the current feature!")
	fmt.Println("⌨️ Use arrow keys to navigate, Ctrl+R for history search, Tab for completion.")
	fmt.Println(strings.Repeat("=", 60))

	for {
		fmt.Print("\n") // Add newline before prompt
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			} else {
				continue
			}
		} else if err == io.EOF {
			break
		}

		userInput := strings.TrimSpace(line)

		if userInput == "" {
			continue
		}

		// Handle commands that start with /
		if strings.HasPrefix(userInput, "/") {
			if handleSlashCommand(ctx, userInput, sess) {
				break // Command requested exit
			}
			continue // Command was handled, get next input
		}

		payload, err := buildPayload(sess.feature, userInput)
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			continue
		}
		payload = enrichBriefing(ctx, sess.signals, sess.userID, payload)
		req := envelope.NewRequest(sess.userID, sess.tier, payload)
		resp := sess.router.Route(ctx, req)
		if !resp.Success {
			fmt.Printf("❌ Error (%s): %s\n", resp.Failure, resp.Detail)
			continue
		}
		printResponse(resp)
	}
}

// SlashCommand represents a command that starts with /
type SlashCommand struct {
	Name        string
	Description string
	Handler     func(context.Context, *session, []string) bool // Returns true if should exit
}

// getSlashCommands returns all available slash commands
func getSlashCommands() []SlashCommand {
	return []SlashCommand{
		{
			Name:        "help",
			Description: "Show available commands and usage information",
			Handler: func(ctx context.Context, s *session, args []string) bool {
				showInteractiveHelp()
				return false
			},
		},
		{
			Name:        "feature",
			Description: "Switch the feature for subsequent requests",
			Handler: func(ctx context.Context, s *session, args []string) bool {
				if len(args) == 0 {
					fmt.Printf("📋 Current feature: %s\n", s.feature)
					return false
				}
				f := envelope.FeatureType(args[0])
				if !f.Known() {
					fmt.Printf("❌ Unknown feature: %s\n", args[0])
					return false
				}
				s.feature = f
				fmt.Printf("📋 Feature switched to: %s\n", f)
				return false
			},
		},
		{
			Name:        "usage",
			Description: "Show your usage for the current day and month",
			Handler: func(ctx context.Context, s *session, args []string) bool {
				showUsage(ctx, s)
				return false
			},
		},
		{
			Name:        "quit",
			Description: "Exit the interactive session",
			Handler: func(ctx context.Context, s *session, args []string) bool {
				fmt.Println("👋 Goodbye!")
				return true
			},
		},
		{
			Name:        "exit",
			Description: "Exit the interactive session (alias for quit)",
			Handler: func(ctx context.Context, s *session, args []string) bool {
				fmt.Println("👋 Goodbye!")
				return true
			},
		},
	}
}

// handleSlashCommand processes commands that start with /
// Returns true if the command requests program exit, false otherwise
func handleSlashCommand(ctx context.Context, input string, s *session) bool {
	// Check if this is just "/" - show command selector
	if strings.TrimSpace(input) == "/" {
		return showCommandSelector(ctx, s)
	}

	parts := strings.Fields(input)
	if len(parts) == 0 {
		return false
	}

	commandName := strings.TrimPrefix(parts[0], "/")
	commands := getSlashCommands()

	// Find and execute the command
	for _, cmd := range commands {
		if cmd.Name == commandName {
			return cmd.Handler(ctx, s, parts[1:])
		}
	}

	// Command not found - show available commands
	fmt.Printf("❌ Unknown command: /%s\n", commandName)
	fmt.Println("💡 Available commands:")
	for _, cmd := range commands {
		fmt.Printf("  /%s - %s\n", cmd.Name, cmd.Description)
	}
	fmt.Println("\n💡 Tip: Type just '/' to see an interactive command selector!")
	return false
}

// showCommandSelector shows an interactive command selector using promptui
func showCommandSelector(ctx context.Context, s *session) bool {
	commands := getSlashCommands()

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}?",
		Active:   "▸ {{ .Name | cyan }} - {{ .Description | faint }}",
		Inactive: "  {{ .Name | cyan }} - {{ .Description | faint }}",
		Selected: "{{ .Name | red | cyan }}",
		Details: `
--------- Command Details ----------
{{ "Name:" | faint }}	{{ .Name }}
{{ "Description:" | faint }}	{{ .Description }}`,
	}

	searcher := func(input string, index int) bool {
		command := commands[index]
		name := strings.ReplaceAll(strings.ToLower(command.Name), " ", "")
		input = strings.ReplaceAll(strings.ToLower(input), " ", "")

		return strings.Contains(name, input)
	}

	prompt := promptui.Select{
		Label:     "Choose a command",
		Items:     commands,
		Templates: templates,
		Size:      10,
		Searcher:  searcher,
	}

	i, _, err := prompt.Run()
	if err != nil {
		if err == promptui.ErrInterrupt {
			fmt.Println("\nCancelled.")
			return false
		}
		fmt.Printf("Command selection failed: %v\n", err)
		return false
	}

	// Execute the selected command
	return commands[i].Handler(ctx, s, nil)
}

// showUsage displays the session user's ledger aggregates
func showUsage(ctx context.Context, s *session) {
	fmt.Printf("\n📊 Usage for %s (%s tier):\n", s.userID, s.tier)
	for _, window := range []ledger.Window{ledger.WindowDay, ledger.WindowMonth} {
		agg, err := s.router.Usage(ctx, s.userID, window)
		if err != nil {
			fmt.Printf("  ❌ %s: lookup failed: %v\n", window, err)
			continue
		}
		fmt.Printf("  %-5s: %d requests, %d tokens, $%.4f, %.0f%% cache hits\n",
			window, agg.Requests, agg.Tokens, agg.CostUSD, agg.CacheHitRate*100)
	}
}

// createAutoCompleter creates an autocompletion function for readline
func createAutoCompleter() *readline.PrefixCompleter {
	commands := getSlashCommands()
	var pcItems []readline.PrefixCompleterInterface

	// Add slash commands dynamically
	for _, cmd := range commands {
		pcItems = append(pcItems, readline.PcItem("/"+cmd.Name))
	}

	// Add the interactive slash command selector
	pcItems = append(pcItems, readline.PcItem("/"))

	// Feature names for /feature completion
	features := []string{
		"chat", "task_parsing", "vision", "briefing", "web_research", "image_generation",
	}
	for _, f := range features {
		pcItems = append(pcItems, readline.PcItem("/feature "+f))
	}

	return readline.NewPrefixCompleter(pcItems...)
}

// filterInput filters input runes to handle special keys
func filterInput(r rune) (rune, bool) {
	switch r {
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func showInteractiveHelp() {
	commands := getSlashCommands()

	fmt.Println("\n📚 Interactive Commands:")
	fmt.Println("  /                - Show interactive command selector")
	for _, cmd := range commands {
		fmt.Printf("  /%-15s - %s\n", cmd.Name, cmd.Description)
	}

	fmt.Println("\n⌨️  Enhanced Features:")
	fmt.Println("  Ctrl+C           - Cancel current input")
	fmt.Println("  Ctrl+R           - Search command history")
	fmt.Println("  Tab              - Auto-complete commands and feature names")
	fmt.Println("  Arrow keys       - Navigate input and history")

	fmt.Println("\n💡 Example requests:")
	fmt.Println("  > what should I focus on this afternoon")
	fmt.Println("  > /feature task_parsing")
	fmt.Println("  > dentist appointment tuesday 3pm remind me the day before")
	fmt.Println("  > /feature web_research")
	fmt.Println("  > best practices for spaced repetition scheduling")
}
