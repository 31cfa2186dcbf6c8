// Command orchestratord runs the Plan/Act Loop behind a small HTTP
// surface: POST /chat accepts one ChatInput and returns the resulting
// RunResult. It wires every concrete collaborator package together the
// way a deployed orchestrator process would, following the teacher's
// flag/env-driven single-binary wiring convention rather than a DI
// framework.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/redis/go-redis/v9"

	"github.com/vector-copilot/orchestrator/config"
	"github.com/vector-copilot/orchestrator/eventsink"
	"github.com/vector-copilot/orchestrator/eventsink/redisstream"
	"github.com/vector-copilot/orchestrator/modelgateway"
	"github.com/vector-copilot/orchestrator/modelgateway/anthropic"
	"github.com/vector-copilot/orchestrator/modelgateway/bedrock"
	"github.com/vector-copilot/orchestrator/modelgateway/openai"
	"github.com/vector-copilot/orchestrator/orchestrator"
	"github.com/vector-copilot/orchestrator/proposals"
	"github.com/vector-copilot/orchestrator/telemetry"
	"github.com/vector-copilot/orchestrator/templates"
	"github.com/vector-copilot/orchestrator/toolcache"
	"github.com/vector-copilot/orchestrator/toolcache/redisstore"
	"github.com/vector-copilot/orchestrator/tools"
	"github.com/vector-copilot/orchestrator/workingset"
)

const systemPrompt = `You are the Vector copilot. Respond with exactly one tool call per turn, using the tool dialect described in your tool catalog.`

func main() {
	cfg, err := config.Load(os.Getenv("ORCHESTRATOR_CONFIG"))
	if err != nil {
		log.Fatalf("orchestratord: load config: %v", err)
	}

	registry, err := tools.NewRegistry(tools.BuiltinSpecs()...)
	if err != nil {
		log.Fatalf("orchestratord: build tool registry: %v", err)
	}

	gateway := buildGateway(cfg)

	cache, sessions := buildCache()
	sink := buildSink()

	loop := &orchestrator.Loop{
		Registry:     registry,
		Gateway:      gateway,
		Builder:      workingset.NewBuilder(),
		Mapper:       proposals.NewMapper(nil, cfg.CatalogEnabled),
		Cache:        cache,
		Sessions:     sessions,
		Sink:         sink,
		Templates:    templates.Match,
		Config:       cfg,
		SystemPrompt: systemPrompt,
		TaskStates:   orchestrator.NewInMemoryTaskStateStore(),
		Logger:       buildLogger(),
		Metrics:      buildMetrics(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/chat", chatHandler(loop))

	addr := os.Getenv("ORCHESTRATOR_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	log.Printf("orchestratord: listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("orchestratord: %v", err)
	}
}

// chatHandler decodes one wire ChatInput, runs it through the Plan/Act
// Loop, and encodes the resulting RunResult. It deliberately does not
// reuse orchestrator.ChatInput as the wire type: the wire body is a flat
// JSON shape a plugin client sends, decoupled from the Go-internal type
// so either can evolve independently.
func chatHandler(loop *orchestrator.Loop) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body wireChatInput
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
		defer cancel()

		res, err := loop.Run(ctx, body.toChatInput())
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(res)
	}
}

type wireChatInput struct {
	ProjectID     string `json:"projectId"`
	Message       string `json:"message"`
	Mode          string `json:"mode"`
	ModelOverride string `json:"modelOverride"`
	WorkflowID    string `json:"workflowId"`
	Provider      string `json:"provider"`
}

func (w wireChatInput) toChatInput() orchestrator.ChatInput {
	return orchestrator.ChatInput{
		ProjectID:     w.ProjectID,
		Message:       w.Message,
		Mode:          w.Mode,
		ModelOverride: w.ModelOverride,
		WorkflowID:    w.WorkflowID,
		Provider:      w.Provider,
	}
}

// buildGateway registers whichever providers have credentials present in
// the environment, wraps each in the retry and adaptive-rate-limit
// middleware, and leaves the gateway empty (failing fast at Complete time)
// if none are configured.
func buildGateway(cfg config.Config) *modelgateway.Gateway {
	gw := modelgateway.NewGateway()

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		model := envOr("ANTHROPIC_MODEL", "claude-sonnet-4-5")
		client, err := anthropic.NewFromAPIKey(key, model)
		if err != nil {
			log.Printf("orchestratord: anthropic adapter disabled: %v", err)
		} else {
			gw.RegisterProvider("anthropic", client)
		}
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		model := envOr("OPENAI_MODEL", "gpt-4o")
		client, err := openai.NewFromAPIKey(key, model)
		if err != nil {
			log.Printf("orchestratord: openai adapter disabled: %v", err)
		} else {
			gw.RegisterProvider("openai", client)
		}
	}
	if model := os.Getenv("BEDROCK_MODEL"); model != "" {
		if awsCfg, err := awsconfig.LoadDefaultConfig(context.Background()); err != nil {
			log.Printf("orchestratord: bedrock adapter disabled: %v", err)
		} else {
			client, err := bedrock.New(bedrock.Options{
				Runtime:      bedrockruntime.NewFromConfig(awsCfg),
				DefaultModel: model,
			})
			if err != nil {
				log.Printf("orchestratord: bedrock adapter disabled: %v", err)
			} else {
				gw.RegisterProvider("bedrock", client)
			}
		}
	}
	if cfg.DefaultProvider != "" {
		gw.SetDefault(cfg.DefaultProvider)
	}

	gw.Use(func(next modelgateway.Client) modelgateway.Client {
		return modelgateway.WithRetry(next, modelgateway.RetryPolicy{
			MaxRetries: cfg.MaxRetries,
			BaseDelay:  cfg.RetryDelay,
			MaxDelay:   cfg.RetryMax,
		})
	})
	limiter := modelgateway.NewAdaptiveRateLimiter(60000, 200000)
	gw.Use(limiter.Middleware)

	return gw
}

// buildCache returns a Redis-backed Tool-Result Cache/session store when
// REDIS_URL is set, else an in-process one; both satisfy the same
// interfaces so the loop never knows which backend it got.
func buildCache() (toolcache.Cache, toolcache.SessionStore) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		mem := toolcache.NewInMemory()
		return mem, mem
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("orchestratord: invalid REDIS_URL, falling back to in-memory cache: %v", err)
		mem := toolcache.NewInMemory()
		return mem, mem
	}
	store, err := redisstore.New(redis.NewClient(opts), "vector:")
	if err != nil {
		log.Printf("orchestratord: redis cache disabled, falling back to in-memory: %v", err)
		mem := toolcache.NewInMemory()
		return mem, mem
	}
	return store, store
}

// buildSink returns a Redis Streams-backed event sink when REDIS_URL is
// set, else an in-process fan-out bus.
func buildSink() eventsink.Sink {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		return eventsink.NewBus(256, nil)
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("orchestratord: invalid REDIS_URL, falling back to in-process event sink: %v", err)
		return eventsink.NewBus(256, nil)
	}
	sink, err := redisstream.New(redisstream.Options{Client: redis.NewClient(opts)}, func(streamKey string, err error) {
		log.Printf("orchestratord: event publish failed for %s: %v", streamKey, err)
	})
	if err != nil {
		log.Printf("orchestratord: redis event sink disabled, falling back to in-process: %v", err)
		return eventsink.NewBus(256, nil)
	}
	return sink
}

// buildLogger returns a Clue-backed logger when OTEL_ENABLED is set, else
// a no-op one (orchestrator.Loop already defaults to no-op on a nil
// Logger, but building it explicitly here keeps the choice visible).
func buildLogger() telemetry.Logger {
	if os.Getenv("OTEL_ENABLED") == "" {
		return telemetry.NewNoopLogger()
	}
	return telemetry.NewClueLogger()
}

func buildMetrics() telemetry.Metrics {
	if os.Getenv("OTEL_ENABLED") == "" {
		return telemetry.NewNoopMetrics()
	}
	return telemetry.NewClueMetrics()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
