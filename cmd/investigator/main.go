// Command investigator is the entrypoint binary: it loads config, wires
// per-tenant data source and lineage adapters, constructs the
// orchestrator, serves Prometheus metrics, and runs a periodic sweep for
// investigations that stalled without reaching a terminal status.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/jordigilh/investigator/internal/config"
	"github.com/jordigilh/investigator/pkg/datasource"
	_ "github.com/jordigilh/investigator/pkg/datasource/api"
	_ "github.com/jordigilh/investigator/pkg/datasource/document"
	_ "github.com/jordigilh/investigator/pkg/datasource/file"
	_ "github.com/jordigilh/investigator/pkg/datasource/sql"
	"github.com/jordigilh/investigator/pkg/judge"
	"github.com/jordigilh/investigator/pkg/lineage"
	"github.com/jordigilh/investigator/pkg/llm"
	"github.com/jordigilh/investigator/pkg/metrics"
	"github.com/jordigilh/investigator/pkg/orchestrator"
	"github.com/jordigilh/investigator/pkg/orchestrator/store"
	"github.com/jordigilh/investigator/pkg/safety"
	sharedbreaker "github.com/jordigilh/investigator/pkg/shared/circuitbreaker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the investigator's YAML config file")
	storePath := flag.String("store", "investigator.db", "path to the sqlite event-log/finding store")
	flag.Parse()

	log := logrus.New()
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	configureLogging(log, cfg.Logging)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, closeStore, err := build(ctx, cfg, *storePath, log)
	if err != nil {
		log.WithError(err).Fatal("failed to wire the investigator")
	}
	defer closeStore()

	cronSched := cron.New()
	if _, err := cronSched.AddFunc("@every 5m", func() { rescanStale(ctx, svc, cfg, log) }); err != nil {
		log.WithError(err).Fatal("failed to schedule the stale-investigation rescan")
	}
	cronSched.Start()
	defer cronSched.Stop()

	go serveMetrics(cfg.Server.MetricsPort, log)

	log.WithField("metrics_port", cfg.Server.MetricsPort).Info("investigator started")
	<-ctx.Done()
	log.Info("shutting down")
}

// build wires every collaborator and returns the orchestrator.Service and
// a close function for the durable store.
func build(ctx context.Context, cfg *config.Config, storePath string, log *logrus.Logger) (*orchestrator.Service, func() error, error) {
	st, err := store.NewSQLiteStore(ctx, storePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	investigationLLM, err := llm.NewClient(llmConfig(cfg.LLM))
	if err != nil {
		return nil, nil, fmt.Errorf("build investigation LLM client: %w", err)
	}
	judgeCompleter, err := llm.NewClient(llmConfig(cfg.JudgeLLM))
	if err != nil {
		return nil, nil, fmt.Errorf("build judge LLM client: %w", err)
	}
	completer, ok := judgeCompleter.(llm.TextCompleter)
	if !ok {
		return nil, nil, fmt.Errorf("judge LLM client does not implement TextCompleter")
	}
	qualityJudge := judge.NewJudge(completer)

	validator := safety.NewValidator(0)
	breaker := safety.NewCircuitBreaker(toSafetyBreakerConfig(cfg.CircuitBreaker))

	engine := orchestrator.NewEngine(st, validator, breaker, investigationLLM, qualityJudge,
		cfg.Orchestrator.HypothesisLimit, cfg.Orchestrator.ReflexionEnabled, log)
	engine = engine.WithMetrics(metrics.New(prometheus.DefaultRegisterer))

	adapters, err := buildAdapters(cfg.DataSources)
	if err != nil {
		return nil, nil, err
	}
	lineageProviders := buildLineageProviders(cfg.Lineage, log)

	svc := orchestrator.NewService(engine, st, adapters, lineageProviders, log)
	return svc, st.Close, nil
}

func llmConfig(c config.LLMConfig) llm.Config {
	return llm.Config{
		Provider:    c.Provider,
		Endpoint:    c.Endpoint,
		Model:       c.Model,
		APIKey:      os.Getenv("ANTHROPIC_API_KEY"),
		Temperature: float64(c.Temperature),
		MaxTokens:   c.MaxTokens,
		RetryCount:  c.RetryCount,
	}
}

func toSafetyBreakerConfig(c config.CircuitBreakerConfig) safety.CircuitBreakerConfig {
	return safety.CircuitBreakerConfig{
		MaxTotalQueries:         c.MaxTotalQueries,
		MaxQueriesPerHypothesis: c.MaxQueriesPerHypothesis,
		MaxRetries:              c.MaxRetries,
		MaxConsecutiveFailures:  c.MaxConsecutiveFailures,
		MaxDuration:             c.MaxWallClock,
	}
}

// buildAdapters constructs one SQLAdapter per configured data source,
// keyed by tenant, each guarded by its own transport-level circuit
// breaker so a flapping data source can't be hammered by repeated
// connection attempts across investigations.
func buildAdapters(sources []config.DataSourceConfig) (map[string]datasource.SQLAdapter, error) {
	breakerMgr := sharedbreaker.NewManager(gobreaker.Settings{
		MaxRequests: 2,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool { return counts.ConsecutiveFailures >= 3 },
	})

	adapters := make(map[string]datasource.SQLAdapter, len(sources))
	for _, src := range sources {
		adapter, err := datasource.New(datasource.Config{
			TenantID: src.TenantID,
			Type:     datasource.SourceType(src.Type),
			Endpoint: src.Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("build adapter for tenant %s: %w", src.TenantID, err)
		}
		sqlAdapter, ok := adapter.(datasource.SQLAdapter)
		if !ok {
			return nil, fmt.Errorf("tenant %s: source type %q is not SQL-shaped", src.TenantID, src.Type)
		}
		adapters[src.TenantID] = datasource.WrapSQLAdapter(sqlAdapter, breakerMgr, src.TenantID)
	}
	return adapters, nil
}

// buildLineageProviders constructs a lineage.Composite per tenant from
// its configured provider names. A tenant with no lineage config gets no
// entry — pkg/contextengine treats a nil provider as "no lineage
// available" and skips lineage-derived probes.
func buildLineageProviders(configs []config.LineageConfig, log *logrus.Logger) map[string]lineage.Provider {
	providers := make(map[string]lineage.Provider, len(configs))
	for _, lc := range configs {
		var tenantProviders []lineage.Provider
		for _, name := range lc.Providers {
			switch name {
			case "openlineage":
				if lc.OpenLineageEndpoint != "" {
					tenantProviders = append(tenantProviders, lineage.NewOpenLineageProvider(lc.OpenLineageEndpoint))
				}
			}
		}
		if len(tenantProviders) == 0 {
			continue
		}
		providers[lc.TenantID] = lineage.NewComposite(log, tenantProviders...)
	}
	return providers
}

// rescanStale flags every investigation that has been pending longer
// than the configured investigation timeout — most likely because the
// process restarted mid-run and lost its in-flight goroutine. It only
// surfaces these for operator attention; actually resuming one would
// need its tenant's adapter re-resolved and handed back into Engine.Run,
// which a supervising process (not this sweep) is better placed to do.
func rescanStale(ctx context.Context, svc *orchestrator.Service, cfg *config.Config, log *logrus.Logger) {
	ids, err := svc.StalePending(ctx, time.Now().UTC().Add(-cfg.Orchestrator.InvestigationTimeout))
	if err != nil {
		log.WithError(err).Warn("failed to list stale pending investigations")
		return
	}
	for _, id := range ids {
		log.WithField("investigation_id", id).Warn("investigation has been pending past its timeout without reaching a terminal status")
	}
}

func serveMetrics(port string, log *logrus.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.WithError(err).Error("metrics server stopped")
	}
}

func configureLogging(log *logrus.Logger, cfg config.LoggingConfig) {
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		log.SetLevel(level)
	}
	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
}
