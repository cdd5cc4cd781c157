package processor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/avast/retry-go/v4"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/coverlane/coverlane/internal/partnersrv/config"
)

const generatorSystemPrompt = `You are an insurance underwriting assistant. Given a
consumer product, decide whether it is eligible for affinity insurance coverage and,
if so, which risk profile applies and which coverage modules and exclusions the
guarantees document should carry.

Respond with ONLY a JSON object of this shape, no markdown, no commentary:
{
  "eligible": true or false,
  "reason": "why the product is or is not coverable",
  "risk_profile": "risk profile code such as ELECTRONIC_PRODUCTS, or null",
  "coverage_modules": ["module", ...],
  "exclusions": ["exclusion", ...],
  "assurmax_caps": null or {"per_item_cap": number, "pack_cap": number}
}`

// openAIGenerator authors classifications with OpenAI chat completions.
type openAIGenerator struct {
	client      openai.Client
	model       string
	maxAttempts int
}

// NewOpenAIGenerator builds the production generator from service config.
func NewOpenAIGenerator(cfg *config.GeneratorConfig) Generator {
	return &openAIGenerator{
		client:      openai.NewClient(option.WithAPIKey(cfg.APIKey())),
		model:       cfg.Model,
		maxAttempts: cfg.MaxAttempts,
	}
}

func (g *openAIGenerator) Generate(ctx context.Context, input *GenerateInput) (*Classification, error) {
	prompt := fmt.Sprintf(
		"Product: %s\nBrand: %s\nCategory: %s\nDescription: %s\nPrice: %.2f %s\nMarket: %s",
		input.ProductName, orUnknown(input.Brand), orUnknown(input.Category),
		input.Description, input.Price, input.Currency, MarketForCurrency(input.Currency),
	)

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(generatorSystemPrompt),
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(g.model),
		Seed:  openai.Int(0),
	}

	var classification *Classification
	err := retry.Do(
		func() error {
			completion, err := g.client.Chat.Completions.New(ctx, params)
			if err != nil {
				return err
			}
			if len(completion.Choices) == 0 {
				return fmt.Errorf("empty completion")
			}
			c, err := parseClassification(completion.Choices[0].Message.Content)
			if err != nil {
				log.Ctx(ctx).Warn().Err(err).Str("product", input.ProductName).Msg("generator returned malformed classification, retrying")
				return err
			}
			classification = c
			return nil
		},
		retry.Attempts(uint(g.maxAttempts)),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return classification, nil
}

// parseClassification validates and normalizes the raw model response into a
// Classification with a self-contained guarantees document.
func parseClassification(raw string) (*Classification, error) {
	body := stripCodeFences(raw)

	var doc any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("classification is not valid JSON: %w", err)
	}
	if err := validateClassification(doc); err != nil {
		return nil, fmt.Errorf("classification failed schema validation: %w", err)
	}

	parsed := gjson.Parse(body)
	eligible := parsed.Get("eligible").Bool()
	reason := parsed.Get("reason").String()
	riskProfile := parsed.Get("risk_profile").String()

	// The guarantees document is the classification minus the decision
	// fields, normalized so every consumer sees the same keys.
	guarantees := `{}`
	guarantees, _ = sjson.Set(guarantees, "risk_profile", riskProfile)
	guarantees, _ = sjson.Set(guarantees, "eligible", eligible)

	if modules := parsed.Get("coverage_modules"); modules.Exists() {
		guarantees, _ = sjson.SetRaw(guarantees, "coverage_modules", modules.Raw)
	} else {
		guarantees, _ = sjson.SetRaw(guarantees, "coverage_modules", `[]`)
	}
	if exclusions := parsed.Get("exclusions"); exclusions.Exists() {
		guarantees, _ = sjson.SetRaw(guarantees, "exclusions", exclusions.Raw)
	} else {
		guarantees, _ = sjson.SetRaw(guarantees, "exclusions", `[]`)
	}
	if caps := parsed.Get("assurmax_caps"); caps.Exists() && caps.Type != gjson.Null {
		guarantees, _ = sjson.SetRaw(guarantees, "caps", caps.Raw)
	}

	return &Classification{
		Eligible:    eligible,
		Reason:      reason,
		RiskProfile: riskProfile,
		Guarantees:  json.RawMessage(guarantees),
	}, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
