package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/atelierline/concierge/agent/contract"
	"github.com/atelierline/concierge/agent/handlers"
	"github.com/atelierline/concierge/agent/history"
	"github.com/atelierline/concierge/agent/llm"
	"github.com/atelierline/concierge/agent/orchestrator"
	"github.com/atelierline/concierge/agent/prompt"
	"github.com/atelierline/concierge/agent/router"
	configx "github.com/atelierline/concierge/pkg/config"
	_ "github.com/atelierline/concierge/pkg/logger/autoload"
	qstashx "github.com/atelierline/concierge/pkg/qstash"
	"github.com/atelierline/concierge/store"
)

type AppConfig struct {
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	CustomerID  int64  `envconfig:"CUSTOMER_ID"`

	// HistoryBackend selects "memory" (default) or "upstash".
	HistoryBackend string `envconfig:"HISTORY_BACKEND" default:"memory"`

	// QStashEnabled turns on order/return notification events.
	QStashEnabled bool `envconfig:"QSTASH_ENABLED" default:"false"`
}

func main() {
	appCfg := configx.MustNew[AppConfig]("")

	llmCfg := configx.MustNew[llm.Config]("OPENROUTER")
	completer, err := llm.NewCompleter(*llmCfg)
	if err != nil {
		panic(err)
	}

	db := store.Open(appCfg.DatabaseURL)
	defer db.Close()
	dataStore, err := store.NewPG(db)
	if err != nil {
		panic(err)
	}

	var events contractx.EventPublisher
	if appCfg.QStashEnabled {
		qstashCfg := configx.MustNew[qstashx.Config]("QSTASH")
		events = qstashx.MustNew(*qstashCfg)
	}

	var hist history.Store
	switch appCfg.HistoryBackend {
	case "upstash":
		upstashCfg := configx.MustNew[history.UpstashConfig]("UPSTASH_REDIS")
		hist, err = history.NewUpstashStore(*upstashCfg)
		if err != nil {
			panic(err)
		}
	default:
		hist = history.NewMemoryStore()
	}

	prompts := prompt.LoadSet()

	registry, err := handlers.NewRegistry(handlers.Deps{
		Completer: completer,
		Prompts:   prompts,
		Opts:      llmCfg.Defaults(),
		Events:    events,
	})
	if err != nil {
		panic(err)
	}

	classifier, err := router.New(completer, prompts.Router, llmCfg.RouterOptions())
	if err != nil {
		panic(err)
	}

	orch, err := orchestrator.New(classifier, registry, hist, dataStore)
	if err != nil {
		panic(err)
	}

	log.Info().Int64("customer_id", appCfg.CustomerID).Msg("concierge ready")
	runREPL(orch, appCfg.CustomerID)
}

// runREPL reads one message per line from stdin and prints the reply as JSON.
func runREPL(orch *orchestrator.Orchestrator, customerID int64) {
	conv := contractx.Context{CustomerID: customerID}
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("Type a message (ctrl-D to exit):")
	for scanner.Scan() {
		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}

		reply := orch.ProcessMessage(context.Background(), message, customerID, conv)
		out, err := json.MarshalIndent(reply, "", "  ")
		if err != nil {
			log.Error().Err(err).Msg("reply marshal failed")
			continue
		}
		fmt.Println(string(out))
	}
	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Msg("stdin read failed")
	}
}
