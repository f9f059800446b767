package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/despamly/despamly/internal/config"
	"github.com/despamly/despamly/internal/core"
	"github.com/despamly/despamly/internal/factory"
	"github.com/despamly/despamly/internal/logging"
	"github.com/despamly/despamly/internal/utils"
)

var (
	// Estimator flags
	statisticalProvider = flag.String("provider", "ngram", "Statistical estimator provider (ngram, openai, bedrock, gemini)")
	ngramModelPath      = flag.String("ngram-model", "", "Path to the n-gram model file")
	featureModelPath    = flag.String("feature-model", "", "Path to the feature model file (bundled model if empty)")
	maxTextSize         = flag.Int("max-text-size", 4096, "Maximum message size to score")
	maxTokens           = flag.Int("max-tokens", 1000, "Maximum tokens for LLM response")
	temperature         = flag.Float64("temperature", 0.1, "Temperature for LLM generation")
	topP                = flag.Float64("top-p", 0.9, "Top-p for LLM generation")

	// Bedrock flags
	bedrockRegion  = flag.String("bedrock-region", "us-east-1", "AWS region for Bedrock")
	bedrockModelID = flag.String("bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Gemini flags
	geminiAPIKey    = flag.String("gemini-api-key", "", "API key for Google Gemini")
	geminiModelName = flag.String("gemini-model", "gemini-pro", "Gemini model name")

	// OpenAI flags
	openaiAPIKey    = flag.String("openai-api-key", "", "API key for OpenAI")
	openaiModelName = flag.String("openai-model", "gpt-4", "OpenAI model name")

	// Policy flags
	policyMode      = flag.String("mode", "delete_only", "Policy mode (notify_only, delete_only, delete_and_ban)")
	deleteThreshold = flag.Float64("delete-threshold", 0.85, "Score threshold for deletion")
	kickThreshold   = flag.Float64("kick-threshold", 0.95, "Score threshold for kick and ban")
	whitelist       = flag.String("whitelist", "", "Comma-separated list of whitelisted sender names")
	senderName      = flag.String("sender", "", "Sender name for whitelist matching")

	// Input flags
	inputFile  = flag.String("file", "", "Input message file (use stdin if not specified)")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog    = flag.Bool("json-log", false, "Output logs in JSON format")
	configFile = flag.String("config", "", "Path to config file (overrides command line flags)")
)

func main() {
	flag.Parse()

	var cfg *config.Config
	var err error

	// Initialize logger
	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Load configuration from file if specified
	if *configFile != "" {
		cfg, err = config.New()
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
	} else {
		// Create config from command line flags
		cfg = createConfigFromFlags()
	}

	// Build the estimator ensemble
	estimatorFactory := factory.NewEstimatorFactory(cfg, logger)
	estimators, err := estimatorFactory.CreateEstimators()
	if err != nil {
		logger.Fatal("Failed to create estimators", zap.Error(err))
	}

	// Build the tenant policy to score against
	mode, err := core.ParsePolicyMode(*policyMode)
	if err != nil {
		logger.Fatal("Invalid policy mode", zap.Error(err))
	}
	policy := core.TenantPolicy{
		Mode:            mode,
		DeleteThreshold: *deleteThreshold,
		KickThreshold:   *kickThreshold,
		IsActive:        true,
	}
	if *whitelist != "" {
		for _, entry := range strings.Split(*whitelist, ",") {
			policy.Whitelist = append(policy.Whitelist, strings.TrimSpace(entry))
		}
	}
	if err := policy.Validate(); err != nil {
		logger.Fatal("Invalid policy thresholds", zap.Error(err))
	}

	// Read message text from file or stdin
	var reader io.Reader
	if *inputFile != "" {
		file, err := os.Open(*inputFile)
		if err != nil {
			logger.Fatal("Failed to open input file", zap.Error(err), zap.String("file", *inputFile))
		}
		defer file.Close()
		reader = file
		logger.Info("Reading message from file", zap.String("file", *inputFile))
	} else {
		reader = os.Stdin
		logger.Info("Reading message from stdin")
	}

	raw, err := io.ReadAll(reader)
	if err != nil {
		logger.Fatal("Failed to read message", zap.Error(err))
	}

	processor := utils.NewTextProcessor(cfg.GetEstimators().MaxTextSize, logger)
	text := processor.Normalize(string(raw))

	// Print message summary
	fmt.Printf("\n=== Message Summary ===\n")
	fmt.Printf("Sender: %s\n", *senderName)
	fmt.Printf("Text length: %d bytes\n", len(text))
	fmt.Printf("\n")

	fmt.Printf("=== Analysis ===\n")
	fmt.Printf("Statistical provider: %s\n", cfg.GetEstimators().StatisticalProvider)
	fmt.Printf("Policy mode: %s\n", mode)
	fmt.Printf("Delete threshold: %.2f\n", policy.DeleteThreshold)
	fmt.Printf("Kick threshold: %.2f\n", policy.KickThreshold)

	startTime := time.Now()

	// A whitelisted sender is approved without scoring
	if *senderName != "" && policy.IsWhitelisted(*senderName) {
		fmt.Printf("\n=== Results ===\n")
		fmt.Printf("Verdict: approve (sender is whitelisted)\n")
		fmt.Printf("Processing time: %v\n", time.Since(startTime))
		return
	}

	ctx := context.Background()
	msgCtx := &core.MessageContext{SenderName: *senderName, Timestamp: startTime}

	keyword := scoreOrNeutral(ctx, estimators.Keyword, core.EstimatorKeyword, text, msgCtx, logger)
	statistical := scoreOrNeutral(ctx, estimators.Statistical, core.EstimatorStatistical, text, msgCtx, logger)
	feature := scoreOrNeutral(ctx, estimators.Feature, core.EstimatorFeature, text, msgCtx, logger)

	aggregator := core.NewScoreAggregator()
	result := aggregator.Aggregate(keyword, statistical, feature, msgCtx)

	engine := core.NewPolicyEngine(logger)
	verdict, err := engine.Decide(result, policy)
	if err != nil {
		logger.Fatal("Failed to decide verdict", zap.Error(err))
	}
	duration := time.Since(startTime)

	// Print results
	fmt.Printf("\n=== Results ===\n")
	for _, score := range result.Scores() {
		degraded := ""
		if score.Degraded() {
			degraded = " (degraded)"
		}
		fmt.Printf("%s: %.4f (confidence %.4f)%s\n", score.Estimator, score.Probability, score.Confidence, degraded)
	}
	fmt.Printf("Weighted score: %.4f\n", result.WeightedScore())
	fmt.Printf("Max score: %.4f\n", result.MaxScore())
	fmt.Printf("Governing score: %.4f\n", result.GoverningScore())
	fmt.Printf("All high: %t\n", result.AllHigh())
	fmt.Printf("Verdict: %s\n", verdict)
	fmt.Printf("Processing time: %v\n", duration)

	// Close any resources that need closing
	if closer, ok := estimators.Statistical.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close statistical estimator", zap.Error(err))
		}
	}
}

// scoreOrNeutral runs one estimator, substituting the neutral score on failure.
func scoreOrNeutral(ctx context.Context, est core.Estimator, slot string, text string, msgCtx *core.MessageContext, logger *zap.Logger) core.FilterScore {
	score, err := est.Score(ctx, text, msgCtx)
	if err != nil {
		logger.Warn("Estimator failed, using neutral score",
			zap.String("estimator", slot),
			zap.Error(err))
		return core.NeutralScore(slot, err.Error())
	}
	return score
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()

	// Set estimator configuration
	v.Set("estimators.statistical_provider", *statisticalProvider)
	v.Set("estimators.ngram_model_path", *ngramModelPath)
	v.Set("estimators.feature_model_path", *featureModelPath)
	v.Set("estimators.max_text_size", *maxTextSize)

	// Set provider-specific configuration
	switch *statisticalProvider {
	case "bedrock":
		v.Set("bedrock.region", *bedrockRegion)
		v.Set("bedrock.model_id", *bedrockModelID)
		v.Set("bedrock.max_tokens", *maxTokens)
		v.Set("bedrock.temperature", *temperature)
		v.Set("bedrock.top_p", *topP)
	case "gemini":
		v.Set("gemini.api_key", *geminiAPIKey)
		v.Set("gemini.model_name", *geminiModelName)
		v.Set("gemini.max_tokens", *maxTokens)
		v.Set("gemini.temperature", *temperature)
		v.Set("gemini.top_p", *topP)
	case "openai":
		v.Set("openai.api_key", *openaiAPIKey)
		v.Set("openai.model_name", *openaiModelName)
		v.Set("openai.max_tokens", *maxTokens)
		v.Set("openai.temperature", *temperature)
		v.Set("openai.top_p", *topP)
	}

	// Set moderation defaults
	v.Set("moderation.default_mode", *policyMode)
	v.Set("moderation.delete_threshold", *deleteThreshold)
	v.Set("moderation.kick_threshold", *kickThreshold)

	return config.NewFromViper(v)
}
