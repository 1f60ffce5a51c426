package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/andrewtitoo/ReMissionCapstone/internal/analytics"
	"github.com/andrewtitoo/ReMissionCapstone/internal/api"
	"github.com/andrewtitoo/ReMissionCapstone/internal/identity"
	"github.com/andrewtitoo/ReMissionCapstone/internal/insight"
	"github.com/andrewtitoo/ReMissionCapstone/internal/model"
	"github.com/andrewtitoo/ReMissionCapstone/internal/session"
	"github.com/andrewtitoo/ReMissionCapstone/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("load .env failed: %v", err)
	}

	args := os.Args[1:]
	command := "dashboard"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command = args[0]
		args = args[1:]
	}

	app, err := newApp()
	if err != nil {
		log.Fatalf("init failed: %v", err)
	}
	defer app.close()

	ctx := context.Background()
	switch command {
	case "dashboard":
		err = app.runDashboard(ctx)
	case "log":
		err = app.runLog(ctx, args)
	case "insights":
		err = app.runInsights(ctx)
	case "bot":
		err = app.runBot(ctx, args)
	case "whoami":
		err = app.runWhoami(ctx, args)
	case "help", "-h", "--help":
		usage()
	default:
		usage()
		err = fmt.Errorf("unknown command %q", command)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", command, err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: remission [command] [flags]

commands:
  dashboard   fetch logs, show aggregates and insights (default)
  log         submit one symptom log entry
  insights    show the CHIIP analysis summary
  bot         send one message to CHIIP
  whoami      show or validate the active user id`)
}

type app struct {
	store    storage.Storage
	gateway  *api.Client
	identity *identity.Store
}

func newApp() (*app, error) {
	engine := envOrDefault("REMISSION_STORE", storage.EngineJSON)
	dataFile := envOrDefault("REMISSION_DATA_FILE", defaultDataFile(engine))

	st, err := storage.NewByEngine(engine, dataFile)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	gateway := api.NewClient(api.Config{
		BaseURL: envOrDefault("REMISSION_API_BASE_URL", "http://localhost:5000"),
		Timeout: time.Duration(parseEnvInt("REMISSION_TIMEOUT_SECONDS", 15)) * time.Second,
	})

	var opts []identity.Option
	if parseEnvBool("REMISSION_LOCAL_IDENTITY_FALLBACK", false) {
		opts = append(opts, identity.WithLocalFallback())
	}

	return &app{
		store:    st,
		gateway:  gateway,
		identity: identity.New(st, gateway, opts...),
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		log.Printf("storage close failed: %v", err)
	}
}

func (a *app) runDashboard(ctx context.Context) error {
	orch := session.NewOrchestrator(a.gateway, a.identity, session.Config{})
	defer orch.Close()

	if err := orch.Run(ctx); err != nil {
		fmt.Println(orch.ErrorMessage())
		return err
	}

	snapshot, ok := orch.Snapshot()
	if !ok {
		fmt.Println(orch.ErrorMessage())
		return nil
	}

	fmt.Printf("Entries: %d (flare days %d, non-flare %d)\n",
		snapshot.TotalEntries, snapshot.FlareDays, snapshot.NonFlareDays)
	if snapshot.HasAverages {
		fmt.Printf("Averages: pain %.1f  stress %.1f  sleep %.1fh\n",
			snapshot.Averages.Pain, snapshot.Averages.Stress, snapshot.Averages.Sleep)
	} else {
		fmt.Println("Averages: no data yet")
	}
	if snapshot.HasAdherence {
		fmt.Printf("Adherence: exercise %.1f%%  medication %.1f%%\n",
			snapshot.Adherence.ExercisePct, snapshot.Adherence.MedicationPct)
	}
	b := snapshot.Buckets
	fmt.Printf("Pain vs exercise: high/ex %d  high/rest %d  low/ex %d  low/rest %d\n",
		b.HighPainExercised, b.HighPainRested, b.LowPainExercised, b.LowPainRested)

	if len(snapshot.RecentEntries) > 0 {
		fmt.Println("Recent pain trend:")
		for _, point := range analytics.SeriesFor(snapshot.RecentEntries, analytics.FieldPain, 0) {
			fmt.Printf("  %-7s %.0f\n", point.Label, point.Value)
		}
	}

	fmt.Println("Insights:")
	for _, ins := range orch.Insights() {
		fmt.Printf("  - %s\n", ins.Text)
	}
	return nil
}

func (a *app) runLog(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("log", flag.ExitOnError)
	pain := fs.Int("pain", 5, "pain level 0-10")
	stress := fs.Int("stress", 5, "stress level 0-10")
	sleep := fs.Float64("sleep", 7, "sleep hours 0-24")
	exercise := fs.Bool("exercise", false, "exercise done today")
	types := fs.String("types", "", "comma-separated exercise types")
	medication := fs.Bool("medication", false, "medication taken today")
	flare := fs.Bool("flare", false, "flare-up experienced")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id, err := a.identity.Resolve(ctx)
	if err != nil {
		return err
	}

	entry := model.SymptomLogEntry{
		LoggedAt:       time.Now(),
		PainLevel:      *pain,
		StressLevel:    *stress,
		SleepHours:     *sleep,
		ExerciseDone:   *exercise,
		ExerciseTypes:  splitTags(*types),
		TookMedication: *medication,
		FlareUp:        *flare,
	}
	if err := a.gateway.SubmitLog(ctx, id, entry); err != nil {
		fmt.Println(session.UserMessage(err))
		return err
	}
	fmt.Println("Your symptoms have been logged successfully!")
	return nil
}

func (a *app) runInsights(ctx context.Context) error {
	id, err := a.identity.Resolve(ctx)
	if err != nil {
		return err
	}

	summary, err := a.gateway.FetchInsightSummary(ctx, id)
	switch {
	case err == nil:
		if summary.Classification != "" {
			fmt.Printf("Status: %s\n", summary.Classification)
		}
		if len(summary.Insights) > 0 {
			for _, line := range summary.Insights {
				fmt.Printf("  - %s\n", line)
			}
		} else {
			fmt.Println(summary.SummaryText)
		}
		return nil
	case api.IsKind(err, api.KindNoData):
		fmt.Println(session.UserMessage(err))
		return nil
	case api.IsKind(err, api.KindServiceUnavailable):
		// Analysis endpoint down; fall back to a locally computed trend
		// summary over whatever logs are reachable.
		entries, ferr := a.gateway.FetchLogs(ctx, id)
		if ferr != nil && !api.IsKind(ferr, api.KindNoData) {
			fmt.Println(session.UserMessage(err))
			return err
		}
		fmt.Println(insight.TrendSummary(analytics.SortByLoggedAt(entries)))
		return nil
	default:
		fmt.Println(session.UserMessage(err))
		return err
	}
}

func (a *app) runBot(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("bot", flag.ExitOnError)
	message := fs.String("message", "", "message to send to CHIIP")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id, err := a.identity.Resolve(ctx)
	if err != nil {
		return err
	}

	summary, err := a.gateway.FetchInsightSummary(ctx, id)
	if err != nil && !api.IsKind(err, api.KindNoData) {
		fmt.Println(session.UserMessage(err))
		return err
	}

	conv := session.NewConversation(a.gateway, id, summary)
	if strings.TrimSpace(*message) != "" {
		if _, err := conv.Send(ctx, *message); err != nil {
			fmt.Println(session.UserMessage(err))
			return err
		}
	}

	for _, turn := range conv.Turns() {
		fmt.Printf("[%s] %s\n", turn.Speaker, turn.Text)
	}
	return nil
}

func (a *app) runWhoami(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ExitOnError)
	validate := fs.String("validate", "", "adopt this user id after backend validation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if strings.TrimSpace(*validate) != "" {
		id, err := a.identity.Validate(ctx, *validate)
		if err != nil {
			return err
		}
		fmt.Printf("Adopted user id %s\n", id)
		return nil
	}

	id, err := a.identity.Resolve(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("User id: %s\n", id)
	return nil
}

func defaultDataFile(engine string) string {
	switch engine {
	case storage.EngineSQLite:
		return "data/remission.db"
	default:
		return "data/remission.json"
	}
}

func splitTags(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	var tags []string
	for _, tag := range strings.Split(v, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func envOrDefault(key string, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func parseEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func parseEnvBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}
