package volc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *ArkClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewArkClient(srv.URL, "test-key", 5*time.Second, false)
}

func TestGenerateImagesSendsReferenceInputs(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/images/generations", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"b64_json": base64.StdEncoding.EncodeToString([]byte("img")), "format": "jpeg"}},
		})
	})

	sources, err := c.GenerateImages(context.Background(), ImageGenParams{
		Model:       "m",
		Prompt:      "a scene",
		ImageInputs: []string{"data:image/jpeg;base64,abcd"},
	})
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Contains(t, sources[0], "data:image/jpeg;base64,")

	assert.Equal(t, "m", got["model"])
	assert.Equal(t, "a scene", got["prompt"])
	assert.Equal(t, "1024x1024", got["size"], "default size applies")
	assert.Equal(t, []any{"data:image/jpeg;base64,abcd"}, got["image"])
}

func TestGenerateImagesOmitsImageFieldWithoutInputs(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"url": "https://img.example/1.jpg"}},
		})
	})

	sources, err := c.GenerateImages(context.Background(), ImageGenParams{Model: "m", Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://img.example/1.jpg"}, sources)
	assert.NotContains(t, got, "image")
}

func TestGenerateImagesUpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
	})

	_, err := c.GenerateImages(context.Background(), ImageGenParams{Model: "m", Prompt: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 429")
}

func TestGenerateImagesEmptyResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{}})
	})

	_, err := c.GenerateImages(context.Background(), ImageGenParams{Model: "m", Prompt: "p"})
	assert.Error(t, err)
}

func TestGenerateImagesMockMode(t *testing.T) {
	c := NewArkClient("", "", time.Second, true)
	sources, err := c.GenerateImages(context.Background(), ImageGenParams{Model: "m", Prompt: "p"})
	require.NoError(t, err)
	require.Len(t, sources, 1)

	data, err := c.FetchImage(context.Background(), sources[0])
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestFetchImageDataURL(t *testing.T) {
	c := NewArkClient("", "", time.Second, false)
	payload := base64.StdEncoding.EncodeToString([]byte("hello"))

	data, err := c.FetchImage(context.Background(), "data:image/jpeg;base64,"+payload)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	_, err = c.FetchImage(context.Background(), "data:image/jpeg;hex,00ff")
	assert.Error(t, err)
}

func TestFetchImageHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("img-bytes"))
	}))
	t.Cleanup(srv.Close)

	c := NewArkClient("", "", 5*time.Second, false)
	data, err := c.FetchImage(context.Background(), srv.URL+"/1.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("img-bytes"), data)
}

func TestHasCredentials(t *testing.T) {
	assert.False(t, NewArkClient("", "  ", time.Second, false).HasCredentials())
	assert.True(t, NewArkClient("", "key", time.Second, false).HasCredentials())
}
