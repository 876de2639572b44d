// Package diagnosis identifies crop diseases from leaf and stem photos.
package diagnosis

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/tidwall/gjson"

	"github.com/lox/agroconnect/internal/ids"
	"github.com/lox/agroconnect/internal/metrics"
	"github.com/lox/agroconnect/internal/models"
)

const DefaultModel = openai.ChatModelGPT4oMini

var (
	ErrEmptyImage       = errors.New("empty image")
	ErrUnsupportedImage = errors.New("unsupported image type")
)

// FixedDiagnosis is returned when no vision model is configured.
var FixedDiagnosis = models.Diagnosis{
	Condition:  "Early Leaf Blight",
	Confidence: 89,
	Solution:   "Apply copper-based fungicide and ensure proper spacing between plants for better air circulation. Remove affected leaves to prevent spread.",
	Source:     "fixed",
}

const prompt = `You are an agronomist. Examine this crop photo for diseases, nutrient deficiencies or pest damage.
Reply with a single JSON object and nothing else:
{"condition": "<short name of the problem, or Healthy>", "confidence": <integer 0-100>, "solution": "<one or two sentences of practical treatment advice>"}`

// completeFunc sends the prompt and an image data URL to a vision model and
// returns its text reply.
type completeFunc func(ctx context.Context, dataURL string) (string, error)

// Analyzer diagnoses crop photos with an OpenAI vision model, or returns
// FixedDiagnosis when constructed without an API key.
type Analyzer struct {
	complete completeFunc
}

// NewAnalyzer creates an analyzer. An empty apiKey disables model calls.
func NewAnalyzer(apiKey, model string) *Analyzer {
	if apiKey == "" {
		return &Analyzer{}
	}
	if model == "" {
		model = DefaultModel
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Analyzer{
		complete: func(ctx context.Context, dataURL string) (string, error) {
			resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
				Model: model,
				Messages: []openai.ChatCompletionMessageParamUnion{
					openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
						openai.TextContentPart(prompt),
						openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
					}),
				},
			})
			if err != nil {
				return "", fmt.Errorf("chat completion: %w", err)
			}
			if len(resp.Choices) == 0 {
				return "", errors.New("no choices returned")
			}
			return resp.Choices[0].Message.Content, nil
		},
	}
}

// Enabled reports whether a vision model is configured.
func (a *Analyzer) Enabled() bool {
	return a.complete != nil
}

// Analyze diagnoses image. mimeType may be empty, in which case it is sniffed.
func (a *Analyzer) Analyze(ctx context.Context, image []byte, mimeType string) (*models.Diagnosis, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(image)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, mimeType)
	}

	id, err := ids.New()
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}

	if !a.Enabled() {
		d := FixedDiagnosis
		d.ID = id
		metrics.Diagnoses.WithLabelValues(d.Source, "ok").Inc()
		return &d, nil
	}

	log.Printf("diagnosis: analyzing %s image (%d bytes)", mimeType, len(image))
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)
	text, err := a.complete(ctx, dataURL)
	if err != nil {
		metrics.Diagnoses.WithLabelValues("openai", "error").Inc()
		return nil, fmt.Errorf("analyze image: %w", err)
	}

	d, err := ParseReply(text)
	if err != nil {
		metrics.Diagnoses.WithLabelValues("openai", "error").Inc()
		return nil, err
	}
	d.ID = id
	metrics.Diagnoses.WithLabelValues(d.Source, "ok").Inc()
	return d, nil
}

// ParseReply extracts a diagnosis from a model reply. The JSON object may be
// wrapped in prose or a code fence.
func ParseReply(text string) (*models.Diagnosis, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("parse reply: no JSON object in %q", text)
	}
	body := text[start : end+1]
	if !gjson.Valid(body) {
		return nil, fmt.Errorf("parse reply: invalid JSON in %q", body)
	}

	fields := gjson.GetMany(body, "condition", "confidence", "solution")
	condition := strings.TrimSpace(fields[0].String())
	if condition == "" {
		return nil, errors.New("parse reply: missing condition")
	}

	confidence := int(fields[1].Float())
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}

	return &models.Diagnosis{
		Condition:  condition,
		Confidence: confidence,
		Solution:   strings.TrimSpace(fields[2].String()),
		Source:     "openai",
	}, nil
}
