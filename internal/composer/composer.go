// Package composer turns a curated batch of articles into structured
// newsletter content through a generative language model.
package composer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"

	"github.com/ainewz/pipeline/internal/logger"
	"github.com/ainewz/pipeline/internal/models"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// Newsletter is the structured composition output. Field requirements are
// enforced with the validator after parsing: a model response that drops a
// required field is rejected, never patched up.
type Newsletter struct {
	Subject           string    `json:"subject" validate:"required"`
	Opening           string    `json:"opening" validate:"required"`
	Sections          []Section `json:"sections" validate:"required,min=1,dive"`
	CallToAction      string    `json:"call_to_action"`
	EstimatedReadTime string    `json:"estimated_read_time"`
	Tags              []string  `json:"tags"`
}

type Section struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
	Type    string `json:"type" validate:"required,oneof=main trend summary"`
}

// Options describe one composition run.
type Options struct {
	Topic string `validate:"required"`
	Style string `validate:"omitempty,oneof=professional casual technical creative"`
	Length string `validate:"omitempty,oneof=short medium long"`
}

type Client struct {
	client   *resty.Client
	validate *validator.Validate
	apiKey   string
	model    string
	baseURL  string
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewClient(apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		client:   resty.New().SetTimeout(timeout),
		validate: validator.New(),
		apiKey:   apiKey,
		model:    model,
		baseURL:  defaultBaseURL,
	}
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = strings.TrimRight(url, "/")
}

// Compose generates newsletter content from the curated batch. A response
// that is not valid JSON matching the schema gets exactly one retry with a
// clarified prompt; a second failure is returned to the caller.
func (c *Client) Compose(ctx context.Context, opts Options, batch *models.CuratedBatch) (*Newsletter, error) {
	if opts.Style == "" {
		opts.Style = "professional"
	}
	if opts.Length == "" {
		opts.Length = "medium"
	}
	if err := c.validate.Struct(opts); err != nil {
		return nil, fmt.Errorf("invalid composition options: %w", err)
	}

	prompt := buildPrompt(opts, batch)

	raw, err := c.callModel(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("model call: %w", err)
	}

	nl, parseErr := c.parseNewsletter(raw)
	if parseErr == nil {
		return nl, nil
	}

	logger.Warn().Err(parseErr).Msg("composition response malformed, retrying with clarified prompt")

	raw, err = c.callModel(ctx, prompt+retryClarification(parseErr))
	if err != nil {
		return nil, fmt.Errorf("model retry: %w", err)
	}

	nl, parseErr = c.parseNewsletter(raw)
	if parseErr != nil {
		return nil, fmt.Errorf("composition failed after retry: %w", parseErr)
	}
	return nl, nil
}

func (c *Client) callModel(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	req := generateRequest{
		Contents: []content{{
			Parts: []part{{Text: prompt}},
		}},
	}

	var resp generateResponse
	_, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&resp).
		Post(url)
	if err != nil {
		return "", fmt.Errorf("api request: %w", err)
	}

	if resp.Error != nil {
		return "", fmt.Errorf("api error: %s", resp.Error.Message)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty model response")
	}

	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// parseNewsletter decodes the model output strictly. The only tolerated
// deviation is a markdown code fence around the JSON; anything else fails.
func (c *Client) parseNewsletter(raw string) (*Newsletter, error) {
	clean := strings.TrimSpace(raw)
	if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```json")
		clean = strings.TrimPrefix(clean, "```")
		clean = strings.TrimSuffix(strings.TrimSpace(clean), "```")
		clean = strings.TrimSpace(clean)
	}

	var nl Newsletter
	if err := json.Unmarshal([]byte(clean), &nl); err != nil {
		return nil, fmt.Errorf("parse newsletter json: %w", err)
	}
	if err := c.validate.Struct(nl); err != nil {
		return nil, fmt.Errorf("newsletter schema: %w", err)
	}
	return &nl, nil
}

func buildPrompt(opts Options, batch *models.CuratedBatch) string {
	var b strings.Builder

	fmt.Fprintf(&b, `Create a newsletter about %q.

Style: %s. Length: %s.

Respond with ONLY a JSON object using exactly this structure:
{
  "subject": "newsletter subject line",
  "opening": "opening paragraph",
  "sections": [
    {"title": "section title", "content": "section content", "type": "main|trend|summary"}
  ],
  "call_to_action": "call to action text",
  "estimated_read_time": "X minutes",
  "tags": ["tag1", "tag2"]
}
`, opts.Topic, opts.Style, opts.Length)

	if batch != nil && len(batch.Articles) > 0 {
		b.WriteString("\nCurated articles (summarize succinctly, cite inline as [1], [2], ...):\n")
		for i, a := range batch.Articles {
			fmt.Fprintf(&b, "- [%d] %s\n  Link: %s\n", i+1, a.Title, a.URL)
			if a.Summary != "" {
				summary := a.Summary
				if len(summary) > 300 {
					summary = summary[:300] + "..."
				}
				fmt.Fprintf(&b, "  Summary: %s\n", summary)
			}
			if len(a.Tags) > 0 {
				fmt.Fprintf(&b, "  Tags: %s\n", strings.Join(a.Tags, ", "))
			}
		}
		b.WriteString("\nInclude the curated articles as a summary section with one bullet per article.\n")
	}

	return b.String()
}

func retryClarification(parseErr error) string {
	return fmt.Sprintf(`

Your previous response could not be used: %v.
Respond again with ONLY the JSON object described above. No markdown fences,
no commentary, no fields beyond the schema. Every section needs a non-empty
title, content and a type of "main", "trend" or "summary".`, parseErr)
}
