package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nimasrn/webhook-intake/pkg/signature"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// webhookPayload mirrors what the intake endpoint expects on the wire.
type webhookPayload struct {
	MessageID string `json:"message_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	TS        string `json:"ts"`
	Text      string `json:"text"`
}

// SimulateRequest represents a request to emit a batch of signed deliveries
type SimulateRequest struct {
	Count int `json:"count" binding:"required"`
	// Senders bounds the sender pool; fewer senders means more
	// traffic per sender in /stats
	Senders int `json:"senders"`
}

// SimulateResponse represents the outcome of a simulation run
type SimulateResponse struct {
	Sent       int       `json:"sent"`
	Duplicates int       `json:"duplicates"`
	Accepted   int       `json:"accepted"`
	Rejected   int       `json:"rejected"`
	ProviderID string    `json:"provider_id"`
	FinishedAt time.Time `json:"finished_at"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status        string    `json:"status"`
	ProviderID    string    `json:"provider_id"`
	Timestamp     time.Time `json:"timestamp"`
	DuplicateRate float64   `json:"duplicate_rate"`
}

// MockProvider simulates an upstream SMS provider pushing webhook
// deliveries into the intake service.
type MockProvider struct {
	target        string
	secret        string
	sigHeader     string
	duplicateRate float64
	badSigRate    float64
	minDelay      time.Duration
	maxDelay      time.Duration
	providerID    string
	client        *http.Client
	rng           *rand.Rand
}

// NewMockProvider creates a new mock provider instance
func NewMockProvider(target, secret, sigHeader string, duplicateRate, badSigRate float64, minDelay, maxDelay time.Duration) *MockProvider {
	return &MockProvider{
		target:        target,
		secret:        secret,
		sigHeader:     sigHeader,
		duplicateRate: duplicateRate,
		badSigRate:    badSigRate,
		minDelay:      minDelay,
		maxDelay:      maxDelay,
		providerID:    "MOCK_PROVIDER_" + uuid.New().String()[:8],
		client:        &http.Client{Timeout: 10 * time.Second},
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *MockProvider) randomDelay() time.Duration {
	delta := m.maxDelay - m.minDelay
	if delta <= 0 {
		return m.minDelay
	}
	return m.minDelay + time.Duration(m.rng.Int63n(int64(delta)))
}

func (m *MockProvider) randomMsisdn(pool int) string {
	if pool < 1 {
		pool = 1
	}
	return fmt.Sprintf("+1415555%04d", m.rng.Intn(pool))
}

func (m *MockProvider) randomText() string {
	texts := []string{
		"Your verification code is 482913",
		"Hello from the simulator",
		"Reminder: appointment tomorrow at 10:00",
		"Your package is out for delivery",
		"Balance low: please top up",
	}
	return texts[m.rng.Intn(len(texts))]
}

func (m *MockProvider) newPayload(senders int) *webhookPayload {
	return &webhookPayload{
		MessageID: uuid.New().String(),
		From:      m.randomMsisdn(senders),
		To:        "+14155550100",
		TS:        time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		Text:      m.randomText(),
	}
}

// deliver signs the serialized payload and posts it to the intake
// endpoint. The mac covers the exact bytes that go on the wire.
func (m *MockProvider) deliver(p *webhookPayload) (int, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequest(http.MethodPost, m.target, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	sig := signature.Compute(m.secret, body)
	if m.rng.Float64() < m.badSigRate {
		// corrupt the mac to exercise the rejection path
		sig = signature.Compute(m.secret+"x", body)
	}
	req.Header.Set(m.sigHeader, sig)

	resp, err := m.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

// run emits count deliveries, replaying a fraction of them to exercise
// the idempotent path on the receiving side.
func (m *MockProvider) run(req *SimulateRequest) *SimulateResponse {
	resp := &SimulateResponse{ProviderID: m.providerID}

	var replayable []*webhookPayload
	for i := 0; i < req.Count; i++ {
		time.Sleep(m.randomDelay())

		var p *webhookPayload
		if len(replayable) > 0 && m.rng.Float64() < m.duplicateRate {
			p = replayable[m.rng.Intn(len(replayable))]
			resp.Duplicates++
		} else {
			p = m.newPayload(req.Senders)
			replayable = append(replayable, p)
		}

		status, err := m.deliver(p)
		resp.Sent++
		if err != nil {
			resp.Rejected++
			log.Warn().
				Str("message_id", p.MessageID).
				Err(err).
				Msg("delivery failed")
			continue
		}

		if status == http.StatusOK {
			resp.Accepted++
			log.Info().
				Str("message_id", p.MessageID).
				Str("from", p.From).
				Int("status", status).
				Msg("delivery accepted")
		} else {
			resp.Rejected++
			log.Warn().
				Str("message_id", p.MessageID).
				Int("status", status).
				Msg("delivery rejected")
		}
	}

	resp.FinishedAt = time.Now()
	return resp
}

// Handler struct holds the mock provider and routes
type Handler struct {
	provider *MockProvider
}

func NewHandler(provider *MockProvider) *Handler {
	return &Handler{provider: provider}
}

// Simulate handles a batch simulation request
func (h *Handler) Simulate(c *gin.Context) {
	var req SimulateRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	log.Info().
		Int("count", req.Count).
		Int("senders", req.Senders).
		Msg("Received simulation request")

	c.JSON(http.StatusOK, h.provider.run(&req))
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:        "healthy",
		ProviderID:    h.provider.providerID,
		Timestamp:     time.Now(),
		DuplicateRate: h.provider.duplicateRate,
	})
}

// UpdateConfig allows changing provider configuration at runtime
func (h *Handler) UpdateConfig(c *gin.Context) {
	var config struct {
		DuplicateRate *float64 `json:"duplicate_rate"`
		BadSigRate    *float64 `json:"bad_sig_rate"`
	}

	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if config.DuplicateRate != nil && *config.DuplicateRate >= 0 && *config.DuplicateRate <= 1.0 {
		h.provider.duplicateRate = *config.DuplicateRate
		log.Info().Float64("rate", *config.DuplicateRate).Msg("Updated duplicate rate")
	}
	if config.BadSigRate != nil && *config.BadSigRate >= 0 && *config.BadSigRate <= 1.0 {
		h.provider.badSigRate = *config.BadSigRate
		log.Info().Float64("rate", *config.BadSigRate).Msg("Updated bad signature rate")
	}

	c.JSON(http.StatusOK, gin.H{
		"duplicate_rate": h.provider.duplicateRate,
		"bad_sig_rate":   h.provider.badSigRate,
	})
}

// SetupRouter configures all routes
func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	// Add request logging middleware
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Msg("Request processed")
	})

	// API routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/simulate", handler.Simulate)
		v1.GET("/health", handler.HealthCheck)
		v1.PUT("/config", handler.UpdateConfig)
	}

	// Root health check
	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Get configuration from environment
	port := getEnv("PORT", "8082")
	target := getEnv("TARGET_URL", "http://localhost:8080/webhook")
	secret := getEnv("WEBHOOK_SECRET", "")
	sigHeader := getEnv("WEBHOOK_SIGNATURE_HEADER", "X-Signature")
	duplicateRate := getEnvFloat("DUPLICATE_RATE", 0.1)
	badSigRate := getEnvFloat("BAD_SIG_RATE", 0)
	minDelay := getEnvDuration("MIN_DELAY", 10*time.Millisecond)
	maxDelay := getEnvDuration("MAX_DELAY", 100*time.Millisecond)

	if secret == "" {
		log.Fatal().Msg("WEBHOOK_SECRET is required")
	}

	log.Info().
		Str("port", port).
		Str("target", target).
		Float64("duplicate_rate", duplicateRate).
		Float64("bad_sig_rate", badSigRate).
		Msg("Starting Mock Webhook Provider")

	// Create mock provider
	provider := NewMockProvider(target, secret, sigHeader, duplicateRate, badSigRate, minDelay, maxDelay)
	handler := NewHandler(provider)
	router := SetupRouter(handler)

	// Setup HTTP server
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
