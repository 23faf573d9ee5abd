package volc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultBase = "https://ark.cn-beijing.volces.com"

// ArkClient is a thin HTTP client for the Ark images API. With Mock set it
// returns canned data without touching the network, which keeps local
// development usable without credentials.
type ArkClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Mock       bool
}

// NewArkClient builds a client for the given endpoint and key. An empty
// baseURL selects the default Ark endpoint.
func NewArkClient(baseURL, apiKey string, timeout time.Duration, mock bool) *ArkClient {
	if baseURL == "" {
		baseURL = defaultBase
	}
	return &ArkClient{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
		Mock:       mock,
	}
}

// HasCredentials reports whether an API key is configured.
func (c *ArkClient) HasCredentials() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// ImageGenParams describes one images-API call. ImageInputs carries
// reference images (URLs or data URLs); when present the model renders the
// prompt around the referenced subject instead of from scratch.
type ImageGenParams struct {
	Model       string
	Prompt      string
	Size        string
	ImageInputs []string
}

// GenerateImages submits an image generation request and returns the
// resulting image sources, each either an https URL or a data URL.
func (c *ArkClient) GenerateImages(ctx context.Context, p ImageGenParams) ([]string, error) {
	if c.Mock {
		// 1x1 PNG pixel base64
		pixel := "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR4nGNgYAAAAAMAASsJTYQAAAAASUVORK5CYII="
		return []string{"data:image/png;base64," + pixel}, nil
	}
	if p.Size == "" {
		p.Size = "1024x1024"
	}
	body := map[string]any{
		"model":           p.Model,
		"prompt":          p.Prompt,
		"size":            p.Size,
		"response_format": "b64_json",
	}
	if len(p.ImageInputs) > 0 {
		body["image"] = p.ImageInputs
	}

	var resp struct {
		Data []struct {
			URL    string `json:"url"`
			B64    string `json:"b64_json"`
			Format string `json:"format"`
		} `json:"data"`
	}
	if err := c.postJSON(ctx, "/api/v3/images/generations", body, &resp); err != nil {
		return nil, err
	}
	sources := make([]string, 0, len(resp.Data))
	for _, d := range resp.Data {
		if d.URL != "" {
			sources = append(sources, d.URL)
			continue
		}
		if d.B64 != "" {
			format := d.Format
			if format == "" {
				format = "jpeg"
			}
			sources = append(sources, "data:image/"+format+";base64,"+d.B64)
		}
	}
	if len(sources) == 0 {
		return nil, errors.New("no images returned")
	}
	return sources, nil
}

// FetchImage resolves an image source returned by GenerateImages into raw
// bytes. Data URLs are decoded locally; anything else is fetched over HTTP.
func (c *ArkClient) FetchImage(ctx context.Context, src string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(src, "data:"); ok {
		_, payload, found := strings.Cut(rest, ";base64,")
		if !found {
			return nil, fmt.Errorf("unsupported data URL encoding")
		}
		return base64.StdEncoding.DecodeString(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d fetching image", res.StatusCode)
	}
	return io.ReadAll(res.Body)
}

func (c *ArkClient) postJSON(ctx context.Context, path string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, strings.NewReader(string(b)))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	logrus.WithField("path", path).Debug("ark request")
	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	bodyBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("http %d: %s", res.StatusCode, string(bodyBytes))
	}
	return json.Unmarshal(bodyBytes, out)
}
