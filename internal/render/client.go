package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/planvista/planvista-backend/internal/imagecodec"
)

// Prompt is the fixed instruction sent with every floor plan.
const Prompt = "You are given a 2D architectural floor plan. Transform it into a photorealistic 3D bird's-eye view visualization that faithfully follows the exact room layout, walls, and dimensions shown in the floor plan. Show each room with realistic furniture, flooring textures, and warm interior lighting. Preserve the spatial arrangement from the 2D plan; do not invent rooms or rearrange the layout. Make it look like a professional architectural 3D rendering."

// ProviderError carries the provider's status and raw body so a failed
// generation can be diagnosed from the client.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (status %d): %s", e.StatusCode, e.Body)
}

// Client calls the Gemini image-generation endpoint. One render is one
// request; failures surface immediately and retries are left to the user.
type Client struct {
	BaseURL string
	Model   string
	APIKey  string
	HTTP    *http.Client

	limiter *rate.Limiter
}

func NewClient(baseURL, model, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		Model:   model,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 60 * time.Second},
		// The image model is slow and quota-limited; smooth out bursts.
		limiter: rate.NewLimiter(rate.Every(time.Second), 2),
	}
}

// Configured reports whether an API key is present. Missing configuration is
// a request-time 500, not a boot failure.
func (c *Client) Configured() bool {
	return c.APIKey != ""
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Render sends the source image (a data URL) with the fixed prompt and
// returns the rendered image as a data URL. The first inline image part
// wins; a text-only response is a hard failure carrying the raw body.
func (c *Client) Render(ctx context.Context, sourceImage string) (string, error) {
	img, err := imagecodec.ParseDataURL(sourceImage)
	if err != nil {
		return "", fmt.Errorf("parse source image: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	reqBody := generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: Prompt},
				{InlineData: &inlineData{
					MIMEType: img.MIME,
					Data:     base64.StdEncoding.EncodeToString(img.Bytes),
				}},
			},
		}},
		GenerationConfig: generationConfig{ResponseModalities: []string{"TEXT", "IMAGE"}},
	}

	b, _ := json.Marshal(reqBody)
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.BaseURL, c.Model, c.APIKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("build render request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("render request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read render response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &ProviderError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", &ProviderError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	for _, cand := range out.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData != nil && p.InlineData.Data != "" {
				mime := p.InlineData.MIMEType
				if mime == "" {
					mime = "image/png"
				}
				return "data:" + mime + ";base64," + p.InlineData.Data, nil
			}
		}
	}

	// Text-only or unrecognized shape: reject instead of guessing.
	return "", &ProviderError{StatusCode: resp.StatusCode, Body: string(body)}
}
