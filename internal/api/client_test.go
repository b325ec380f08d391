package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/neilotoole/slogt"

	"github.com/verdantchat/verdant/internal/model"
)

func TestBearerHeader(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(model.User{ID: "u1"})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok-123", slogt.New(t))
	if _, err := c.Me(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want Bearer tok-123", got)
	}
}

func TestLoginInstallsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			var body struct {
				Email string `json:"email"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			if body.Email != "ada@example.com" {
				t.Errorf("email = %q, want normalized lowercase", body.Email)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"token": "fresh",
				"user":  model.User{ID: "u1", Username: "ada"},
			})
		case "/api/users/me":
			if r.Header.Get("Authorization") != "Bearer fresh" {
				t.Errorf("token not installed after login: %q", r.Header.Get("Authorization"))
			}
			json.NewEncoder(w).Encode(model.User{ID: "u1"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "", slogt.New(t))
	token, user, err := c.Login(context.Background(), "  Ada@Example.COM ", "hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if token != "fresh" || user.Username != "ada" {
		t.Errorf("Login = (%q, %q)", token, user.Username)
	}
	if _, err := c.Me(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestErrorMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"message": "admins only"})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", slogt.New(t))
	err := c.DeleteGroup(context.Background(), "g1")
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("got %T, want *Error", err)
	}
	if apiErr.Status != http.StatusForbidden || apiErr.Message != "admins only" {
		t.Errorf("Error = %+v", apiErr)
	}
}

func TestGroupsPaging(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("page"); got != "3" {
			t.Errorf("page = %q, want 3", got)
		}
		if got := r.URL.Query().Get("limit"); got != "15" {
			t.Errorf("limit = %q, want 15", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"groups": []map[string]any{
				{"_id": "g1", "name": "ops", "members": []model.User{{ID: "u1"}}},
			},
			"pages": 0,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", slogt.New(t))
	groups, page, err := c.Groups(context.Background(), 3, 15)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || groups[0].GroupID != "g1" {
		t.Fatalf("groups = %+v", groups)
	}
	if diff := cmp.Diff(model.Page{Current: 3, Total: 1}, page); diff != "" {
		t.Errorf("page mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupEndpointForcesShape(t *testing.T) {
	// The payload omits isGroup; the endpoint decides the shape.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"_id":     "g1",
			"name":    "ops",
			"members": []model.User{{ID: "u1"}},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", slogt.New(t))
	g, err := c.Group(context.Background(), "g1")
	if err != nil {
		t.Fatal(err)
	}
	if g.Name != "ops" {
		t.Errorf("Name = %q", g.Name)
	}
}

func TestPrivateChatRejectsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"_id":     "p1",
			"members": []model.User{{ID: "u1"}},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", slogt.New(t))
	if _, err := c.PrivateChat(context.Background(), "u2"); err == nil {
		t.Error("expected error for private chat without two members")
	}
}

func TestMemberActionBody(t *testing.T) {
	var gotPath string
	var gotBody struct {
		MemberID string `json:"memberId"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", slogt.New(t))
	if err := c.PromoteAdmin(context.Background(), "g1", "u9"); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/api/groups/g1/promote-admin" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody.MemberID != "u9" {
		t.Errorf("memberId = %q, want u9", gotBody.MemberID)
	}
}

func TestMessagesPaging(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/messages/c1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"messages": []map[string]any{{"_id": "m1", "chat": "c1", "content": "hi"}},
			"pages":    4,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", slogt.New(t))
	msgs, page, err := c.Messages(context.Background(), "c1", 2, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].ChatID != "c1" {
		t.Fatalf("messages = %+v", msgs)
	}
	if page.Total != 4 || page.Current != 2 {
		t.Errorf("page = %+v", page)
	}
}
