// Package summarize annotates speeches with Gemini generated synopses.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	generativelanguage "google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/option"
)

const promptTemplate = "Fasse die folgende Rede aus dem Deutschen Bundestag sachlich, kompakt " +
	"und in höchstens fünf Sätzen zusammen. Konzentriere dich auf zentrale " +
	"Argumente, Beschlüsse und Forderungen. Rede:\n\n%s"

// Safety categories relaxed for parliamentary text unless the operator opts
// back into the API defaults.
var textualSafetyCategories = []string{
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_CIVIC_INTEGRITY",
}

// Gemini is a client for the Gemini text summarization endpoint
type Gemini struct {
	service              *generativelanguage.Service
	model                string
	timeout              time.Duration
	maxRetries           int
	enableSafetySettings bool
}

// NewGemini creates a summarizer backed by the Generative Language API
func NewGemini(ctx context.Context, apiKey, baseURL, model string, timeout time.Duration, maxRetries int, enableSafetySettings bool) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("summarize: a Gemini API key must be provided")
	}
	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithEndpoint(baseURL))
	}
	service, err := generativelanguage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("summarize: failed to create Gemini service: %v", err)
	}
	if maxRetries < 1 {
		maxRetries = 1
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Gemini{
		service:              service,
		model:                model,
		timeout:              timeout,
		maxRetries:           maxRetries,
		enableSafetySettings: enableSafetySettings,
	}, nil
}

// Summarize generates a short synopsis for one speech body
func (g *Gemini) Summarize(ctx context.Context, speechText string) (string, error) {
	request := &generativelanguage.GenerateContentRequest{
		Contents: []*generativelanguage.Content{
			{
				Role:  "user",
				Parts: []*generativelanguage.Part{{Text: fmt.Sprintf(promptTemplate, strings.TrimSpace(speechText))}},
			},
		},
		GenerationConfig: &generativelanguage.GenerationConfig{
			Temperature:     0.2,
			TopK:            32,
			TopP:            0.95,
			MaxOutputTokens: 512,
		},
	}
	if !g.enableSafetySettings {
		for _, category := range textualSafetyCategories {
			request.SafetySettings = append(request.SafetySettings, &generativelanguage.SafetySetting{
				Category:  category,
				Threshold: "BLOCK_NONE",
			})
		}
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		response, err := g.generate(ctx, request)
		if err != nil {
			lastErr = err
			log.Printf("Gemini request failed (attempt %d/%d): %v", attempt, g.maxRetries, err)
			continue
		}
		return extractText(response)
	}
	return "", fmt.Errorf("summarize: failed to generate summary via Gemini: %w", lastErr)
}

func (g *Gemini) generate(ctx context.Context, request *generativelanguage.GenerateContentRequest) (*generativelanguage.GenerateContentResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.service.Models.GenerateContent(g.modelName(), request).Context(ctx).Do()
}

func (g *Gemini) modelName() string {
	if strings.HasPrefix(g.model, "models/") {
		return g.model
	}
	return "models/" + g.model
}

// extractText pulls the first non-empty candidate text out of a response
func extractText(response *generativelanguage.GenerateContentResponse) (string, error) {
	for _, candidate := range response.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text := strings.TrimSpace(part.Text); text != "" {
				return text, nil
			}
		}
	}
	return "", errors.New("summarize: Gemini response did not contain any text")
}
