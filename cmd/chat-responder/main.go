package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/lumokit/chat-responder/internal/biz/domain"
	"github.com/lumokit/chat-responder/internal/biz/usecase"
	"github.com/lumokit/chat-responder/internal/conf"
	"github.com/lumokit/chat-responder/internal/data"
	"github.com/lumokit/chat-responder/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := conf.LoadFromEnv()
	if cfg.Debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
		log.Println("Debug logging enabled")
	}
	if cfg.Bot.ID == "" {
		log.Println("BOT_ID not set, mention and reply triggers will not match")
	}

	repos, err := data.NewRepositories(cfg.Data.DBPath)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()
	if err := seed(ctx, cfg, repos); err != nil {
		log.Fatalf("Failed to seed responders: %v", err)
	}

	subst := usecase.NewSubstitutor(repos.History, repos.Variables)
	gate := usecase.NewMonitorGate(repos.Completion, repos.History, subst)
	counter := usecase.NewQuantitativeCounter()

	pipeline := service.NewMessagePipeline(
		usecase.NewContextBuilder(repos.History, cfg.Bot.ID, cfg.Bot.Name),
		usecase.NewTriggerEvaluator(repos.History, gate, counter),
		usecase.NewExpander(subst, repos.History),
		gate,
		counter,
		repos.Configs,
		repos.Completion,
		repos.History,
		repos.Dispatcher,
		cfg.Bot.ID, cfg.Bot.Name,
	)

	scheduler := service.NewTimedScheduler(pipeline, repos.Configs)
	timed, err := repos.Configs.ListTimed(ctx)
	if err != nil {
		log.Fatalf("Failed to list timed configs: %v", err)
	}
	for _, c := range timed {
		scheduler.Arm(c)
	}

	maintenance := service.NewMaintenance(repos.History, cfg.Data.Retention)
	if err := maintenance.Start(); err != nil {
		log.Fatalf("Failed to start maintenance: %v", err)
	}

	log.Printf("chat-responder up: %d timed configs armed, db at %s", len(timed), cfg.Data.DBPath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	scheduler.Stop()
	maintenance.Stop()
}

// seed loads the YAML responder file into storage: variable definitions,
// configurations, then chat bindings.
func seed(ctx context.Context, cfg *conf.Config, repos *data.Repositories) error {
	file, err := conf.LoadResponders(cfg.RespondersPath)
	if err != nil {
		return err
	}

	for _, v := range file.Variables {
		if err := repos.Variables.DefineVariable(ctx, v.Name, v.Default); err != nil {
			return err
		}
	}

	for i := range file.Responders {
		spec := &file.Responders[i]
		rc, err := spec.ToDomain()
		if err != nil {
			return err
		}
		id, err := repos.Configs.Save(ctx, rc, spec.Global)
		if err != nil {
			return err
		}
		for _, b := range spec.Bindings {
			if err := repos.Configs.Assign(ctx, id, domain.ResponderKind(spec.Kind), b.ContextKey()); err != nil {
				return err
			}
		}
	}
	return nil
}
