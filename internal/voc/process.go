package voc

import "github.com/haasonsaas/resolvr/pkg/models"

// Processor runs the full VOC pipeline against one inbound turn with a
// tenant's configured entity prefixes.
type Processor struct {
	prefixes EntityPrefixes
}

// NewProcessor builds a Processor for a tenant's entity prefix set. Pass
// the zero value of EntityPrefixes to fall back to DefaultEntityPrefixes.
func NewProcessor(prefixes EntityPrefixes) *Processor {
	if len(prefixes.OrderNumber) == 0 && len(prefixes.ReturnID) == 0 && len(prefixes.PaymentID) == 0 {
		prefixes = DefaultEntityPrefixes()
	}
	return &Processor{prefixes: prefixes}
}

// Process runs language detection, entity extraction, urgency, and risk
// flags over one turn's text and returns the combined VOCResult. Every
// step is a pure function of text and ctx — deterministic, no I/O, no
// LLM call, safe to run on every inbound message.
func (p *Processor) Process(text string, ctx models.VOCContext) models.VOCResult {
	return models.VOCResult{
		DetectedLanguages: DetectLanguage(text),
		Entities:          ExtractEntities(text, p.prefixes),
		Urgency:           ComputeUrgency(text, ctx),
		RiskFlags:         ComputeRiskFlags(text, ctx),
	}
}
