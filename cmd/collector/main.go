package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clipscout-backend/internal/app"
	"clipscout-backend/internal/config"
	"clipscout-backend/internal/database"
	"clipscout-backend/internal/middleware"
	"clipscout-backend/internal/models"
	"clipscout-backend/internal/repository"
	"clipscout-backend/internal/services"
	"clipscout-backend/internal/worker"
	"clipscout-backend/migrations"
)

const usage = `usage: collector <command> [flags]

commands:
  collect   run one collection pass in the foreground
  rate      rate pending records in the foreground
  token     print an operator API token
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.Load()
	slog.SetDefault(cfg.NewLogger(os.Stderr))

	var err error
	switch os.Args[1] {
	case "collect":
		err = runCollect(cfg, os.Args[2:])
	case "rate":
		err = runRate(cfg, os.Args[2:])
	case "token":
		err = runToken(cfg, os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		slog.Error("command failed", slog.String("command", os.Args[1]), slog.Any("error", err))
		os.Exit(1)
	}
}

func runCollect(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("collect", flag.ExitOnError)
	var (
		category = fs.String("category", "mixed", "heartwarming, funny, traumatic or mixed")
		target   = fs.Int("target", 10, "number of videos to accept")
		captions = fs.Bool("require-captions", false, "only accept captioned videos")
		region   = fs.String("region", "", "search region override")
		attempts = fs.Int("max-attempts", 0, "attempt budget override")
	)
	fs.Parse(args)

	req := models.StartCollectionRequest{
		Category:        *category,
		Target:          *target,
		RequireCaptions: *captions,
		Region:          *region,
		MaxAttempts:     *attempts,
	}
	mode, err := models.ParseMode(req.Category)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer sess.close()

	release, err := sess.locks.Acquire(ctx, models.RunKindCollection)
	if err != nil {
		return fmt.Errorf("cannot start collection: %w", err)
	}
	defer release()

	run, err := sess.startRun(ctx, models.RunKindCollection, req)
	if err != nil {
		return err
	}

	events := make(chan models.ProgressEvent, 64)
	done := make(chan struct{})
	go func() {
		logEvents(events)
		close(done)
	}()

	result, runErr := sess.components.Collector.Run(ctx, services.RunOptions{
		RunID:           run.ID.String(),
		Target:          req.Target,
		Mode:            mode,
		RequireCaptions: req.RequireCaptions,
		Region:          req.Region,
		MaxAttempts:     req.MaxAttempts,
	}, events)
	close(events)
	<-done

	res := repository.RunResult{State: models.RunAborted}
	if result != nil {
		res = repository.RunResult{
			State:      result.State,
			StopReason: result.StopReason,
			Collected:  len(result.Records),
			Checked:    result.Stats.Checked,
			Rejected:   result.Stats.Rejected,
			Attempts:   result.Stats.Attempts,
		}
	}
	sess.finishRun(run, res, runErr)
	if result != nil {
		printJSON(result)
	}
	return runErr
}

func runRate(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("rate", flag.ExitOnError)
	maxItems := fs.Int("max", 10, "maximum records to rate")
	fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer sess.close()

	release, err := sess.locks.Acquire(ctx, models.RunKindRating)
	if err != nil {
		return fmt.Errorf("cannot start rating: %w", err)
	}
	defer release()

	run, err := sess.startRun(ctx, models.RunKindRating, models.StartRatingRequest{MaxItems: *maxItems})
	if err != nil {
		return err
	}

	events := make(chan models.ProgressEvent, 64)
	done := make(chan struct{})
	go func() {
		logEvents(events)
		close(done)
	}()

	summary, runErr := sess.components.Rater.RateBatch(ctx, *maxItems, events)
	close(events)
	<-done

	res := repository.RunResult{State: models.RunAborted}
	if summary != nil {
		res = repository.RunResult{
			State:      summary.State,
			StopReason: summary.StopReason,
			Collected:  summary.Promoted,
			Checked:    summary.Rated,
			Rejected:   summary.Discarded,
		}
		printJSON(summary)
	}
	sess.finishRun(run, res, runErr)
	return runErr
}

func runToken(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	var (
		subject = fs.String("subject", "operator", "token subject")
		ttl     = fs.Duration("ttl", 24*time.Hour, "token lifetime")
	)
	fs.Parse(args)

	token, err := middleware.NewJWTAuth(cfg.JWTSecret).GenerateAccessToken(*subject, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

// session holds the wiring for one foreground command. Foreground passes take
// the same per-kind lock as the server's worker pool.
type session struct {
	components *app.Components
	locks      *worker.RunLocks
	close      func()
}

func openSession(ctx context.Context, cfg *config.Config) (*session, error) {
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, err
	}
	closeAll := func() {
		redisClients.Close()
		pool.Close()
	}

	if err := database.RunMigrations(pool, migrations.FS); err != nil {
		closeAll()
		return nil, err
	}

	components, err := app.New(ctx, cfg, pool, redisClients.Queue)
	if err != nil {
		closeAll()
		return nil, err
	}
	return &session{
		components: components,
		locks:      worker.NewRunLocks(redisClients.Queue),
		close:      closeAll,
	}, nil
}

func (s *session) startRun(ctx context.Context, kind models.RunKind, settings interface{}) (*models.Run, error) {
	cfgJSON, _ := json.Marshal(settings)
	run := &models.Run{Kind: kind, ConfigJSON: cfgJSON}
	if err := s.components.Runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	if err := s.components.Runs.MarkRunning(ctx, run.ID); err != nil {
		return nil, fmt.Errorf("failed to mark run running: %w", err)
	}
	slog.Info("run started", slog.String("run_id", run.ID.String()), slog.String("kind", string(kind)))
	return run, nil
}

func (s *session) finishRun(run *models.Run, res repository.RunResult, runErr error) {
	if runErr != nil {
		res.ErrorMessage = runErr.Error()
	}
	if err := s.components.Runs.Finish(context.Background(), run.ID, res); err != nil {
		slog.Error("failed to record run result", slog.String("run_id", run.ID.String()), slog.Any("error", err))
	}
}

func logEvents(events <-chan models.ProgressEvent) {
	for ev := range events {
		slog.Info(ev.Type,
			slog.Int("attempt", ev.Attempt),
			slog.Int("current", ev.Current),
			slog.Int("target", ev.Target),
			slog.String("category", string(ev.Category)),
			slog.String("query", ev.Query),
			slog.String("video_id", ev.VideoID),
			slog.String("reason", ev.Reason),
		)
	}
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
