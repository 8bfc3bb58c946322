package linkedin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(serverURL string, httpClient *http.Client) *Client {
	c := NewClient(httpClient, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	c.SetBaseURL(serverURL)
	return c
}

// TestGetMemberID_Success はプロフィール取得の正常系を検証する。
func TestGetMemberID_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/me" {
			t.Errorf("path = %s, want /v2/me", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer token-1" {
			t.Errorf("Authorization = %q", auth)
		}
		w.Write([]byte(`{"id":"member-42"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.Client())

	memberID, err := client.GetMemberID(context.Background(), "token-1")
	if err != nil {
		t.Fatalf("GetMemberID() error = %v", err)
	}
	if memberID != "member-42" {
		t.Errorf("memberID = %q, want %q", memberID, "member-42")
	}
}

// TestGetMemberID_Unauthorized は401応答でErrUnauthorizedとなることを検証する。
func TestGetMemberID_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.Client())

	_, err := client.GetMemberID(context.Background(), "expired-token")
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

// TestCreatePost_Success は投稿作成の正常系とリクエスト形式を検証する。
func TestCreatePost_Success(t *testing.T) {
	var gotBody map[string]any
	var gotRestli string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/ugcPosts" {
			t.Errorf("path = %s, want /v2/ugcPosts", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		gotRestli = r.Header.Get("X-Restli-Protocol-Version")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"urn:li:share:999"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.Client())

	postID, err := client.CreatePost(context.Background(), "token-1", "member-42", "投稿テキスト")
	if err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}
	if postID != "urn:li:share:999" {
		t.Errorf("postID = %q", postID)
	}

	if gotRestli != "2.0.0" {
		t.Errorf("X-Restli-Protocol-Version = %q, want 2.0.0", gotRestli)
	}
	if gotBody["author"] != "urn:li:person:member-42" {
		t.Errorf("author = %v", gotBody["author"])
	}
	if gotBody["lifecycleState"] != "PUBLISHED" {
		t.Errorf("lifecycleState = %v", gotBody["lifecycleState"])
	}

	content, _ := gotBody["specificContent"].(map[string]any)
	share, _ := content["com.linkedin.ugc.ShareContent"].(map[string]any)
	commentary, _ := share["shareCommentary"].(map[string]any)
	if commentary["text"] != "投稿テキスト" {
		t.Errorf("shareCommentary.text = %v", commentary["text"])
	}
	if share["shareMediaCategory"] != "NONE" {
		t.Errorf("shareMediaCategory = %v", share["shareMediaCategory"])
	}

	vis, _ := gotBody["visibility"].(map[string]any)
	if vis["com.linkedin.ugc.MemberNetworkVisibility"] != "PUBLIC" {
		t.Errorf("visibility = %v", vis)
	}
}

// TestCreatePost_Unauthorized は401応答でErrUnauthorizedとなることを検証する。
func TestCreatePost_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.Client())

	_, err := client.CreatePost(context.Background(), "expired-token", "member-42", "text")
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

// TestCreatePost_UpstreamError は5xx応答でエラーとなることを検証する。
func TestCreatePost_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"internal error"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.Client())

	if _, err := client.CreatePost(context.Background(), "token-1", "member-42", "text"); err == nil {
		t.Error("CreatePost() should fail on upstream error")
	}
}
