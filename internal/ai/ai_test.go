package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkersClientRewrite(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody workersRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"result":  map[string]string{"response": "A patch is out. Apply it now."},
		})
	}))
	defer srv.Close()

	c := NewWorkersClient("acct-123", "tok-456", "@cf/test-model")
	c.baseURL = srv.URL

	got, err := c.Rewrite(context.Background(), "Patch Tuesday", "Long article body here.")
	require.NoError(t, err)

	assert.Equal(t, "A patch is out. Apply it now.", got)
	assert.Equal(t, "Bearer tok-456", gotAuth)
	assert.Equal(t, "/accounts/acct-123/ai/run/@cf/test-model", gotPath)
	require.Len(t, gotBody.Messages, 2)
	assert.Equal(t, "system", gotBody.Messages[0].Role)
	assert.Equal(t, "user", gotBody.Messages[1].Role)
	assert.Contains(t, gotBody.Messages[1].Content, "Patch Tuesday")
}

func TestWorkersClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"errors":  []map[string]string{{"message": "model overloaded"}},
		})
	}))
	defer srv.Close()

	c := NewWorkersClient("acct", "tok", "")
	c.baseURL = srv.URL

	_, err := c.Rewrite(context.Background(), "t", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestWorkersClientTransportError(t *testing.T) {
	c := NewWorkersClient("acct", "tok", "")
	c.baseURL = "http://127.0.0.1:1"
	c.http = &http.Client{Timeout: time.Second}

	_, err := c.Rewrite(context.Background(), "t", "b")
	assert.Error(t, err)
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "strips markdown and label",
			in:   "## Briefing\n**Summary:** Attackers exploited the flaw. Vendors shipped fixes.",
			want: "Attackers exploited the flaw. Vendors shipped fixes.",
		},
		{
			name: "removes note lines",
			in:   "Note: this summary was machine generated.\nThe botnet grew by half. Operators moved infrastructure.",
			want: "The botnet grew by half. Operators moved infrastructure.",
		},
		{
			name: "cuts unfinished trailing sentence",
			in:   "The campaign targeted routers. Researchers traced the operators. Meanwhile the",
			want: "The campaign targeted routers. Researchers traced the operators.",
		},
		{
			name: "strips code fences",
			in:   "```\nThe exploit chain is public.\n```",
			want: "The exploit chain is public.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestClampBody(t *testing.T) {
	assert.Equal(t, "short", clampBody("short"))

	long := strings.Repeat("A sentence here. ", 800)
	got := clampBody(long)
	assert.LessOrEqual(t, len([]rune(got)), maxBodyRunes)
	assert.True(t, strings.HasSuffix(got, "."), "prefers ending at a sentence break")
}
