package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"bigfive-core/internal/domain"
	"bigfive-core/internal/llm"
)

// PracticalImpactContext es el contexto por defecto de los textos PRACTICAL_IMPACT.
const PracticalImpactContext = "TRABALHO"

type TextDraftRequest struct {
	ConfigName string
	TraitKey   string
	TraitName  string
	Band       domain.Band
	Category   domain.TextCategory
	Context    string
}

// TextDrafter redacta un texto interpretativo para una combinacion rasgo/banda/categoria.
type TextDrafter interface {
	Draft(ctx context.Context, req TextDraftRequest) (string, error)
}

var bandLabels = map[domain.Band]string{
	domain.BandVeryLow:  "Muito Baixo",
	domain.BandLow:      "Baixo",
	domain.BandAverage:  "Médio",
	domain.BandHigh:     "Alto",
	domain.BandVeryHigh: "Muito Alto",
}

// PlaceholderText es el texto que se guarda cuando no hay redactor o este falla.
func PlaceholderText(req TextDraftRequest) string {
	name := req.TraitName
	if name == "" {
		name = req.TraitKey
	}
	return fmt.Sprintf("Texto %s para %s em nível %s (Placeholder - Config: %s)",
		req.Category, name, bandLabels[req.Band], req.ConfigName)
}

// LLMTextDrafter pide el texto a un LLM y espera {"text": "..."}.
type LLMTextDrafter struct {
	client llm.LLMClient
	logger *zap.Logger
}

func NewLLMTextDrafter(client llm.LLMClient, logger *zap.Logger) *LLMTextDrafter {
	return &LLMTextDrafter{client: client, logger: logger}
}

// DraftSystemPrompt acompana a cada pedido de borrador.
const DraftSystemPrompt = "Você é psicometrista e escreve para relatórios de desenvolvimento profissional. Nunca faça diagnóstico clínico."

const draftPromptTemplate = `Você redige textos interpretativos de um relatório Big Five.
Traço: %s (%s)
Nível: %s
Categoria: %s
Contexto: %s

Responda APENAS com JSON no formato {"text": "..."} com no máximo 3 frases, em português, sem diagnóstico clínico.`

func (d *LLMTextDrafter) Draft(ctx context.Context, req TextDraftRequest) (string, error) {
	prompt := fmt.Sprintf(draftPromptTemplate,
		req.TraitName, req.TraitKey, bandLabels[req.Band], req.Category, req.Context)
	raw, err := d.client.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("draft %s/%s/%s: %w", req.TraitKey, req.Band, req.Category, err)
	}

	cleaned := cleanLLMJSONResponse(raw)
	candidate := extractFirstJSONObject(cleaned)
	if candidate == "" {
		candidate = cleaned
	}
	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		d.logger.Debug("llm draft not json", zap.String("raw", raw))
		return "", fmt.Errorf("parse draft: %w", err)
	}
	text := strings.TrimSpace(parsed.Text)
	if text == "" {
		return "", fmt.Errorf("parse draft: empty text")
	}
	return text, nil
}
