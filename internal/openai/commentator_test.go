package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/option"
)

func TestDescribe(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  The index beat the baseline.  "}}]}`)
	}))
	defer srv.Close()

	c := NewCommentator("test-key", "", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	got, err := c.Describe(context.Background(), "Crypto Index: 100.00 → 121.50")
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if got != "The index beat the baseline." {
		t.Errorf("Describe = %q", got)
	}
	if body["model"] != DefaultModel {
		t.Errorf("model = %v, want %s", body["model"], DefaultModel)
	}
}

func TestDescribe_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[]}`)
	}))
	defer srv.Close()

	c := NewCommentator("k", "m", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	if _, err := c.Describe(context.Background(), "   "); err == nil {
		t.Error("expected error for empty summary")
	}
	if _, err := c.Describe(context.Background(), "summary"); err == nil {
		t.Error("expected error for empty choices")
	}
}
