package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vesal/haggler/config"
	"github.com/vesal/haggler/internal/agent"
	"github.com/vesal/haggler/internal/llm"
	"github.com/vesal/haggler/internal/market"
	"github.com/vesal/haggler/internal/notify"
	"github.com/vesal/haggler/internal/storage"
)

const usage = `usage:
  haggler search <query>
  haggler rank <request>
  haggler negotiate <context> <goal> <budget> [session-id]
  haggler chat <message>
  haggler set-token <token>`

// marketplaceTokenCredential is the name the marketplace API token is
// stored under in the encrypted credential store.
const marketplaceTokenCredential = "marketplace_token"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config.LoadEnvFile()

	if missing := config.CheckRequiredConfig(); len(missing) > 0 {
		log.Fatal().Msgf("missing required config: %s", strings.Join(missing, ", "))
	}

	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	// Database path (optional, defaults to haggler.db)
	dbPath := os.Getenv("HAGGLER_DB_PATH")
	if dbPath == "" {
		dbPath = "haggler.db"
	}
	keyPassphrase := os.Getenv("HAGGLER_DB_KEY")
	if keyPassphrase == "" {
		keyPassphrase = "haggler-dev"
		log.Warn().Msg("HAGGLER_DB_KEY not set, using development key")
	}
	encryptionKey, err := storage.DeriveKey(keyPassphrase)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to derive encryption key")
	}

	store, err := storage.NewSQLiteStore(dbPath, encryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize store")
	}
	defer store.Close()
	log.Info().Str("dbPath", dbPath).Msg("store initialized")

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, model, err := newCompletionClient(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize completion backend")
	}
	cached := llm.NewCachedClient(client, model, store)

	a := agent.New(cached)

	command, args := os.Args[1], os.Args[2:]
	switch command {
	case "search":
		err = runSearch(ctx, store, strings.Join(args, " "))
	case "rank":
		err = runRank(ctx, a, store, strings.Join(args, " "))
	case "negotiate":
		err = runNegotiate(ctx, a, store, args)
	case "chat":
		err = runChat(ctx, a, strings.Join(args, " "))
	case "set-token":
		err = runSetToken(store, args[0])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", command).Msg("command failed")
	}
}

// newCompletionClient picks the backend from LLM_BACKEND (together is the
// default) and returns it with its model label for cache keying.
func newCompletionClient(ctx context.Context) (llm.CompletionClient, string, error) {
	if os.Getenv("LLM_BACKEND") == "gemini" {
		gemini, err := llm.NewGeminiClient(ctx, os.Getenv("LLM_MODEL"))
		if err != nil {
			return nil, "", err
		}
		return gemini, gemini.Model(), nil
	}
	together := llm.NewTogetherClient(llm.TogetherOpts{
		APIKey: os.Getenv("TOGETHER_API_KEY"),
		Model:  os.Getenv("LLM_MODEL"),
	})
	return together, together.Model(), nil
}

// marketplaceToken resolves the marketplace API token. An env-supplied
// token takes precedence and is persisted encrypted for later runs;
// otherwise the stored credential is used.
func marketplaceToken(store storage.SessionStore) string {
	if token := os.Getenv("MARKETPLACE_TOKEN"); token != "" {
		if err := store.SetCredential(marketplaceTokenCredential, token); err != nil {
			log.Warn().Err(err).Msg("failed to persist marketplace token")
		}
		return token
	}
	token, err := store.GetCredential(marketplaceTokenCredential)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read stored marketplace token")
		return ""
	}
	return token
}

func runSetToken(store storage.SessionStore, token string) error {
	if err := store.SetCredential(marketplaceTokenCredential, token); err != nil {
		return err
	}
	log.Info().Msg("marketplace token saved")
	return nil
}

func runSearch(ctx context.Context, store storage.SessionStore, query string) error {
	client := market.NewSearchClient(market.ClientOpts{
		BaseURL: os.Getenv("MARKETPLACE_BASE_URL"),
		Auth:    marketplaceToken(store),
	})
	listings, err := client.SearchAll(ctx, query, 3)
	if err != nil {
		return err
	}
	id, err := store.SaveSearch(query, listings)
	if err != nil {
		return err
	}
	log.Info().Int64("searchID", id).Int("count", len(listings)).Msg("search saved")
	for _, l := range listings {
		fmt.Printf("%.2f\t%s\t%s\n", l.Price, l.Description, l.URL)
	}
	return nil
}

// runRank ranks the most recent saved search against the request, then
// validates the ranked subset and prints the drafted first messages.
func runRank(ctx context.Context, a *agent.Agent, store storage.SessionStore, request string) error {
	search, err := store.LatestSearch()
	if err != nil {
		return err
	}
	if search == nil {
		return fmt.Errorf("no saved search, run `haggler search` first")
	}

	ranked, err := a.Rank(ctx, request, search.Listings)
	if err != nil {
		return err
	}
	if len(ranked) == 0 {
		fmt.Println("no relevant listings")
		return nil
	}

	// Validate only the listings the model ranked
	byURL := make(map[string]market.Listing, len(search.Listings))
	for _, l := range search.Listings {
		byURL[l.URL] = l
	}
	var candidates []market.Listing
	for _, r := range ranked {
		if l, ok := byURL[r.URL]; ok {
			candidates = append(candidates, l)
		}
	}

	verdicts, err := a.Validate(ctx, request, candidates)
	if err != nil {
		return err
	}
	for i, v := range verdicts {
		fmt.Printf("%d. %s\n   relevant: %d\n   reasoning: %s\n", i+1, v.ItemID, v.Relevant, v.Reasoning)
		if v.IsRelevant() && v.FirstMessage != agent.NoActionMessage {
			fmt.Printf("   first message: %s\n", v.FirstMessage)
		}
	}
	return nil
}

// runNegotiate drives an interactive negotiation: the seller's messages are
// read from stdin, the assistant's turns come from the model. The session
// is persisted between runs under its id.
func runNegotiate(ctx context.Context, a *agent.Agent, store storage.SessionStore, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("negotiate needs <context> <goal> <budget>")
	}
	itemContext, goal := args[0], args[1]
	budget, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("budget must be a number: %w", err)
	}

	var session *storage.StoredSession
	if len(args) > 3 {
		session, err = store.GetSession(args[3])
		if err != nil {
			return err
		}
	}
	if session == nil {
		session = &storage.StoredSession{
			ID:      uuid.NewString(),
			Context: itemContext,
			Goal:    goal,
			Budget:  budget,
		}
	}
	if session.Ended {
		return fmt.Errorf("session %s has already ended", session.ID)
	}
	log.Info().Str("sessionID", session.ID).Msg("negotiation session")

	notifier := newNotifier()

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("seller> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		session.Turns = append(session.Turns, agent.Turn{Role: agent.RoleSeller, Content: line})

		result, err := a.Negotiate(ctx, agent.NegotiationRequest{
			Context: session.Context,
			Goal:    session.Goal,
			Budget:  session.Budget,
			History: session.Turns,
		})
		if err != nil {
			return err
		}

		session.Turns = append(session.Turns, result.Turn)
		session.Ended = result.ConversationEnded
		if err := store.SaveSession(session); err != nil {
			return err
		}

		fmt.Printf("assistant> %s\n", result.Turn.Content)
		if result.Turn.Offer != nil {
			fmt.Printf("(current offer: %.2f)\n", *result.Turn.Offer)
		}

		if result.ConversationEnded {
			notifyEnd(notifier, session, result.Turn)
			return nil
		}
		fmt.Println("seller> ")
	}
	return scanner.Err()
}

func newNotifier() *notify.Notifier {
	botToken := os.Getenv("BOT_TOKEN")
	chatIDStr := os.Getenv("NOTIFY_CHAT_ID")
	if botToken == "" || chatIDStr == "" {
		return nil
	}
	chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
	if err != nil {
		log.Warn().Err(err).Msg("NOTIFY_CHAT_ID must be a valid integer, notifications disabled")
		return nil
	}
	notifier, err := notify.NewNotifier(botToken, chatID)
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize notifier, notifications disabled")
		return nil
	}
	return notifier
}

func notifyEnd(notifier *notify.Notifier, session *storage.StoredSession, lastTurn agent.Turn) {
	if notifier == nil {
		return
	}
	var err error
	if agent.IsAcceptanceMessage(lastTurn.Content) {
		price := session.Budget
		if offer := lastOffer(session.Turns); offer != nil {
			price = *offer
		}
		err = notifier.NotifyDealAgreed(session.Context, price)
	} else {
		err = notifier.NotifyConversationEnded(session.Context)
	}
	if err != nil {
		log.Warn().Err(err).Msg("failed to send notification")
	}
}

// lastOffer returns the most recent assistant offer in the history, if any.
func lastOffer(turns []agent.Turn) *float64 {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == agent.RoleAssistant && turns[i].Offer != nil {
			return turns[i].Offer
		}
	}
	return nil
}

func runChat(ctx context.Context, a *agent.Agent, message string) error {
	response, err := a.Chat(ctx, message)
	if err != nil {
		return err
	}
	fmt.Println(response)
	return nil
}
