package transform

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-image-1"

	// Bound on the secondary download when the provider answers with a URL
	// instead of inline bytes.
	urlFetchTimeout = 30 * time.Second

	maxErrorBody = 4 << 10
)

type OpenAIClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// OpenAIOption adjusts an OpenAIClient at construction time.
type OpenAIOption func(*OpenAIClient)

// WithBaseURL points the client at a non-default API endpoint.
func WithBaseURL(baseURL string) OpenAIOption {
	return func(c *OpenAIClient) { c.baseURL = baseURL }
}

// WithModel selects the image model to request.
func WithModel(model string) OpenAIOption {
	return func(c *OpenAIClient) { c.model = model }
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(hc *http.Client) OpenAIOption {
	return func(c *OpenAIClient) { c.client = hc }
}

func NewOpenAIClient(apiKey string, opts ...OpenAIOption) *OpenAIClient {
	c := &OpenAIClient{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type imageEditResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
		URL     string `json:"url"`
	} `json:"data"`
}

// Transform submits the image and prompt to the provider's image-edit endpoint
// and returns the transformed PNG bytes. The provider may answer with either
// inline base64 bytes or a URL; a URL is fetched with a bounded timeout. A
// response carrying neither is an error. No retries are attempted.
func (c *OpenAIClient) Transform(ctx context.Context, image []byte, prompt string) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="image"; filename="input.png"`)
	hdr.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return nil, fmt.Errorf("openai: build form: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("openai: build form: %w", err)
	}
	_ = mw.WriteField("model", c.model)
	_ = mw.WriteField("prompt", prompt)
	_ = mw.WriteField("size", fmt.Sprintf("%dx%d", EditImageSize, EditImageSize))
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("openai: build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/images/edits", &body)
	if err != nil {
		return nil, fmt.Errorf("openai: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai: edit request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("openai: edit request failed: %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}

	var editResp imageEditResponse
	if err := json.NewDecoder(resp.Body).Decode(&editResp); err != nil {
		return nil, fmt.Errorf("openai: decode response: %w", err)
	}
	if len(editResp.Data) == 0 {
		return nil, fmt.Errorf("openai: no image returned")
	}

	item := editResp.Data[0]
	switch {
	case item.B64JSON != "":
		decoded, err := base64.StdEncoding.DecodeString(item.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("openai: decode image payload: %w", err)
		}
		return decoded, nil
	case item.URL != "":
		return c.fetchImage(ctx, item.URL)
	default:
		return nil, fmt.Errorf("openai: no image returned")
	}
}

func (c *OpenAIClient) fetchImage(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, urlFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("openai: create image fetch: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai: fetch image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai: fetch image: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai: read image body: %w", err)
	}
	return data, nil
}
