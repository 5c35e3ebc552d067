package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ゲートウェイAPIのエラー応答
type APIError struct {
	Gateway    string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api returned status %d: %s", e.Gateway, e.StatusCode, e.Body)
}

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// JSONをPOSTして2xxなら応答をoutにデコードする
func postJSON(ctx context.Context, hc *http.Client, gateway, url string, headers map[string]string, in any, out any, setAuth func(*http.Request)) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if setAuth != nil {
		setAuth(req)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Gateway: gateway, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// 署名比較は定数時間で
func equalSignature(expected, got string) bool {
	if got == "" {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(got))
}
