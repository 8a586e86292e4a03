package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/goxtopia/PaiCard-Trade-card-generator/constants"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/imaging"
)

// VisionAnalyzer asks a multimodal model about a card image, either one
// question per attribute or a single JSON answer.
type VisionAnalyzer struct {
	transport Transport
	image     imaging.Options
	logger    *slog.Logger
}

func NewVisionAnalyzer(transport Transport, image imaging.Options, logger *slog.Logger) *VisionAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &VisionAnalyzer{transport: transport, image: image, logger: logger}
}

func (v *VisionAnalyzer) Name() string { return "vision:" + v.transport.Model() }

func (v *VisionAnalyzer) Analyze(ctx context.Context, req AnalyzeRequest) (CardAttributes, error) {
	start := time.Now()
	jpeg, err := imaging.PrepareFile(req.ImagePath, v.image)
	if err != nil {
		return CardAttributes{}, fmt.Errorf("prepare image: %w", err)
	}

	var attrs CardAttributes
	if req.SingleCall {
		attrs, err = v.analyzeSingle(ctx, jpeg, req.SingleCallPrompt)
	} else {
		attrs, err = v.analyzeMulti(ctx, jpeg, MergePrompts(req.Prompts))
	}
	if err != nil {
		return CardAttributes{}, err
	}

	v.logger.Info("llm.analyze.ok",
		"model", v.transport.Model(),
		"single_call", req.SingleCall,
		"rarity", attrs.Rarity,
		"name", attrs.Name,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return attrs, nil
}

// analyzeMulti asks every attribute in order; any failure aborts the whole card.
func (v *VisionAnalyzer) analyzeMulti(ctx context.Context, jpeg []byte, prompts map[string]string) (CardAttributes, error) {
	answers := make(map[string]string, len(AttributeOrder))
	for _, attr := range AttributeOrder {
		out, err := v.transport.Complete(ctx, jpeg, prompts[attr])
		if err != nil {
			return CardAttributes{}, fmt.Errorf("ask %s: %w", attr, err)
		}
		answers[attr] = out
	}
	return attributesFromAnswers(answers), nil
}

func (v *VisionAnalyzer) analyzeSingle(ctx context.Context, jpeg []byte, instruction string) (CardAttributes, error) {
	out, err := v.transport.Complete(ctx, jpeg, BuildSingleCallPrompt(instruction))
	if err != nil {
		return CardAttributes{}, fmt.Errorf("single call: %w", err)
	}
	return ParseSingleCallAnswer(out, v.logger)
}

// ParseSingleCallAnswer decodes a JSON answer, tolerating code fences and
// numeric stats.
func ParseSingleCallAnswer(answer string, logger *slog.Logger) (CardAttributes, error) {
	if logger == nil {
		logger = slog.Default()
	}
	normalized, dropped, err := NormalizeCardJSON([]byte(StripCodeFences(answer)))
	if err != nil {
		return CardAttributes{}, err
	}
	if len(dropped) > 0 {
		logger.Warn("llm.analyze.normalize", "dropped", dropped)
	}
	if err := validateCompiled(cardSchema(), normalized); err != nil {
		return CardAttributes{}, err
	}

	var raw map[string]string
	if err := json.Unmarshal(normalized, &raw); err != nil {
		return CardAttributes{}, fmt.Errorf("unmarshal card: %w", err)
	}
	return CardAttributes{
		Rarity:      CleanRarity(orDefault(raw[AttrRarity], string(constants.RarityN))),
		Name:        orDefault(raw[AttrName], "Unknown"),
		Description: orDefault(raw[AttrDescription], "No Data"),
		Atk:         CleanNumber(raw[AttrAtk]),
		Def:         CleanNumber(raw[AttrDef]),
	}, nil
}
