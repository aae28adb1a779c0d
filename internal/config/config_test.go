package config

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config", func() {
	var (
		tempDir    string
		configFile string
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "config-test")
		Expect(err).NotTo(HaveOccurred())
		configFile = filepath.Join(tempDir, "config.yaml")
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	Describe("Load", func() {
		Context("when config file exists with valid content", func() {
			BeforeEach(func() {
				validConfig := `
server:
  metrics_port: "9090"

orchestrator:
  max_concurrent_investigations: 4
  investigation_timeout: "10m"
  hypothesis_limit: 5
  reflexion_enabled: true

circuit_breaker:
  max_total_queries: 40
  max_queries_per_hypothesis: 8
  max_retries: 3
  max_consecutive_failures: 3
  max_wall_clock: "5m"

llm:
  provider: "anthropic"
  endpoint: "https://api.anthropic.com"
  model: "claude-opus-4"
  timeout: "60s"
  retry_count: 2
  temperature: 0.2
  max_tokens: 2000

judge_llm:
  provider: "anthropic"
  endpoint: "https://api.anthropic.com"
  model: "claude-haiku-4"
  timeout: "30s"
  retry_count: 2
  temperature: 0.0
  max_tokens: 800

data_sources:
  - tenant_id: "tenant-a"
    type: "postgresql"
    endpoint: "postgres://localhost:5432/warehouse"

lineage:
  - tenant_id: "tenant-a"
    providers:
      - "openlineage"
      - "sql_static"
    openlineage_endpoint: "http://localhost:5000"

logging:
  level: "info"
  format: "json"
`
				err := os.WriteFile(configFile, []byte(validConfig), 0644)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should load configuration successfully", func() {
				config, err := Load(configFile)
				Expect(err).NotTo(HaveOccurred())
				Expect(config).NotTo(BeNil())

				Expect(config.Server.MetricsPort).To(Equal("9090"))

				Expect(config.Orchestrator.MaxConcurrentInvestigations).To(Equal(4))
				Expect(config.Orchestrator.InvestigationTimeout).To(Equal(10 * time.Minute))
				Expect(config.Orchestrator.HypothesisLimit).To(Equal(5))
				Expect(config.Orchestrator.ReflexionEnabled).To(BeTrue())

				Expect(config.CircuitBreaker.MaxTotalQueries).To(Equal(40))
				Expect(config.CircuitBreaker.MaxQueriesPerHypothesis).To(Equal(8))
				Expect(config.CircuitBreaker.MaxRetries).To(Equal(3))
				Expect(config.CircuitBreaker.MaxConsecutiveFailures).To(Equal(3))
				Expect(config.CircuitBreaker.MaxWallClock).To(Equal(5 * time.Minute))

				Expect(config.LLM.Provider).To(Equal("anthropic"))
				Expect(config.LLM.Model).To(Equal("claude-opus-4"))
				Expect(config.LLM.Timeout).To(Equal(60 * time.Second))
				Expect(config.LLM.Temperature).To(Equal(float32(0.2)))
				Expect(config.LLM.MaxTokens).To(Equal(2000))

				Expect(config.JudgeLLM.Model).To(Equal("claude-haiku-4"))

				Expect(config.DataSources).To(HaveLen(1))
				Expect(config.DataSources[0].TenantID).To(Equal("tenant-a"))
				Expect(config.DataSources[0].Type).To(Equal("postgresql"))

				Expect(config.Lineage).To(HaveLen(1))
				Expect(config.Lineage[0].Providers).To(ContainElements("openlineage", "sql_static"))

				Expect(config.Logging.Level).To(Equal("info"))
				Expect(config.Logging.Format).To(Equal("json"))
			})
		})

		Context("when config file has minimal content", func() {
			BeforeEach(func() {
				minimalConfig := `
llm:
  endpoint: "http://localhost:11434"
  model: "test-model"
  provider: "anthropic"
`
				err := os.WriteFile(configFile, []byte(minimalConfig), 0644)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should load with defaults for missing values", func() {
				config, err := Load(configFile)
				Expect(err).NotTo(HaveOccurred())

				Expect(config.LLM.Endpoint).To(Equal("http://localhost:11434"))
				Expect(config.LLM.Model).To(Equal("test-model"))

				Expect(config.Orchestrator.MaxConcurrentInvestigations).To(Equal(5))
				Expect(config.CircuitBreaker.MaxTotalQueries).To(Equal(50))
				Expect(config.LLM.Provider).To(Equal("anthropic"))
			})
		})

		Context("when config file does not exist", func() {
			It("should return an error", func() {
				_, err := Load("/nonexistent/config.yaml")
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("failed to read config file"))
			})
		})

		Context("when config file has invalid YAML", func() {
			BeforeEach(func() {
				invalidConfig := `
server:
  metrics_port: "8080"
  invalid_yaml: [
llm:
  endpoint: "test"
`
				err := os.WriteFile(configFile, []byte(invalidConfig), 0644)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return an error", func() {
				_, err := Load(configFile)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("failed to parse config file"))
			})
		})

		Context("when config has invalid duration formats", func() {
			BeforeEach(func() {
				invalidDurationConfig := `
llm:
  endpoint: "http://localhost:11434"
  model: "test"
  timeout: "invalid-duration"
  provider: "anthropic"

orchestrator:
  investigation_timeout: "not-a-duration"
`
				err := os.WriteFile(configFile, []byte(invalidDurationConfig), 0644)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return an error", func() {
				_, err := Load(configFile)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("failed to parse config file"))
			})
		})
	})

	Describe("validate", func() {
		var config *Config

		BeforeEach(func() {
			config = &Config{
				Server: ServerConfig{
					MetricsPort: "9090",
				},
				Orchestrator: OrchestratorConfig{
					MaxConcurrentInvestigations: 5,
					InvestigationTimeout:        10 * time.Minute,
					HypothesisLimit:             5,
				},
				CircuitBreaker: CircuitBreakerConfig{
					MaxTotalQueries:         50,
					MaxQueriesPerHypothesis: 10,
					MaxRetries:              3,
					MaxConsecutiveFailures:  3,
					MaxWallClock:            10 * time.Minute,
				},
				LLM: LLMConfig{
					Provider:    "anthropic",
					Endpoint:    "https://api.anthropic.com",
					Model:       "claude-opus-4",
					Timeout:     30 * time.Second,
					RetryCount:  3,
					Temperature: 0.3,
					MaxTokens:   500,
				},
				Logging: LoggingConfig{
					Level:  "info",
					Format: "json",
				},
			}
		})

		Context("when config is valid", func() {
			It("should pass validation", func() {
				err := validate(config)
				Expect(err).NotTo(HaveOccurred())
			})
		})

		Context("when LLM provider is invalid", func() {
			BeforeEach(func() {
				config.LLM.Provider = "invalid"
			})

			It("should return validation error", func() {
				err := validate(config)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("unsupported LLM provider"))
			})
		})

		Context("when LLM endpoint is missing", func() {
			BeforeEach(func() {
				config.LLM.Endpoint = ""
			})

			It("should set default endpoint", func() {
				err := validate(config)
				Expect(err).NotTo(HaveOccurred())
				Expect(config.LLM.Endpoint).To(Equal("https://api.anthropic.com"))
			})
		})

		Context("when LLM model is missing", func() {
			BeforeEach(func() {
				config.LLM.Model = ""
			})

			It("should return validation error", func() {
				err := validate(config)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("LLM model is required"))
			})
		})

		Context("when LLM temperature is out of range", func() {
			BeforeEach(func() {
				config.LLM.Temperature = 1.5
			})

			It("should return validation error", func() {
				err := validate(config)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("LLM temperature must be between 0.0 and 1.0"))
			})
		})

		Context("when LLM max tokens is invalid", func() {
			BeforeEach(func() {
				config.LLM.MaxTokens = 0
			})

			It("should return validation error", func() {
				err := validate(config)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("LLM max tokens must be greater than 0"))
			})
		})

		Context("when hypothesis limit is zero", func() {
			BeforeEach(func() {
				config.Orchestrator.HypothesisLimit = 0
			})

			It("should return validation error", func() {
				err := validate(config)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("hypothesis limit must be greater than 0"))
			})
		})

		Context("when max concurrent investigations is invalid", func() {
			BeforeEach(func() {
				config.Orchestrator.MaxConcurrentInvestigations = 0
			})

			It("should return validation error", func() {
				err := validate(config)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("max concurrent investigations must be greater than 0"))
			})
		})

		Context("when max concurrent investigations is negative", func() {
			BeforeEach(func() {
				config.Orchestrator.MaxConcurrentInvestigations = -1
			})

			It("should return validation error", func() {
				err := validate(config)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("max concurrent investigations must be greater than 0"))
			})
		})

		Context("when circuit breaker max total queries is invalid", func() {
			BeforeEach(func() {
				config.CircuitBreaker.MaxTotalQueries = 0
			})

			It("should return validation error", func() {
				err := validate(config)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("max total queries must be greater than 0"))
			})
		})

		Context("when LLM retry count is negative", func() {
			BeforeEach(func() {
				config.LLM.RetryCount = -1
			})

			It("should pass validation", func() {
				err := validate(config)
				Expect(err).NotTo(HaveOccurred())
			})
		})

		Context("when investigation timeout is negative", func() {
			BeforeEach(func() {
				config.Orchestrator.InvestigationTimeout = -1 * time.Minute
			})

			It("should pass validation", func() {
				err := validate(config)
				Expect(err).NotTo(HaveOccurred())
			})
		})
	})

	Describe("loadFromEnv", func() {
		var config *Config

		BeforeEach(func() {
			config = &Config{}
			os.Clearenv()
		})

		Context("when environment variables are set", func() {
			BeforeEach(func() {
				os.Setenv("LLM_ENDPOINT", "http://test:8080")
				os.Setenv("LLM_MODEL", "test-model")
				os.Setenv("LLM_PROVIDER", "anthropic")
				os.Setenv("METRICS_PORT", "9999")
				os.Setenv("LOG_LEVEL", "debug")
			})

			AfterEach(func() {
				os.Clearenv()
			})

			It("should load values from environment", func() {
				err := loadFromEnv(config)
				Expect(err).NotTo(HaveOccurred())

				Expect(config.LLM.Endpoint).To(Equal("http://test:8080"))
				Expect(config.LLM.Model).To(Equal("test-model"))
				Expect(config.LLM.Provider).To(Equal("anthropic"))
				Expect(config.Server.MetricsPort).To(Equal("9999"))
				Expect(config.Logging.Level).To(Equal("debug"))
			})
		})

		Context("when no environment variables are set", func() {
			It("should not modify config", func() {
				originalConfig := *config
				err := loadFromEnv(config)
				Expect(err).NotTo(HaveOccurred())
				Expect(*config).To(Equal(originalConfig))
			})
		})
	})
})
