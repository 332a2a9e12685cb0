package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irachat/irachat/internal/docstore"
)

func TestCurrentIdentity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/users/me", r.URL.Path)
		switch r.Header.Get("Authorization") {
		case "Bearer good-token":
			json.NewEncoder(w).Encode(map[string]string{
				"id":          "u1",
				"phoneNumber": "+256700000000",
				"displayName": "John Doe",
			})
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)

	// No token means signed out, not an error.
	identity, err := client.CurrentIdentity(context.Background())
	require.NoError(t, err)
	assert.Nil(t, identity)

	// A rejected token also means signed out.
	client.SetToken("stale-token")
	identity, err = client.CurrentIdentity(context.Background())
	require.NoError(t, err)
	assert.Nil(t, identity)

	client.SetToken("good-token")
	identity, err = client.CurrentIdentity(context.Background())
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, "u1", identity.ID)
	assert.Equal(t, "+256700000000", identity.PhoneNumber)
	assert.Equal(t, "good-token", identity.Token)
}

func TestSignOutDropsTokenEvenOnServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.SetToken("tok")

	require.NoError(t, client.SignOut(context.Background()))
	assert.Empty(t, client.currentToken())
}

func TestQueryEncodesFilterAndOrder(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chats", r.URL.Path)
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "c1", "fields": map[string]any{"name": "Alpha"}},
			{"id": "c2", "fields": map[string]any{"name": "Beta"}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	docs, err := client.Query(context.Background(), "chats",
		docstore.Filter{Field: "participantIds", Op: "array-contains", Value: "u1"},
		docstore.OrderBy{Field: "updatedAt", Desc: true})
	require.NoError(t, err)

	require.Len(t, docs, 2)
	assert.Equal(t, "c1", docs[0].ID)
	assert.Equal(t, "Alpha", docs[0].String("name"))

	query, err := url.ParseQuery(gotQuery)
	require.NoError(t, err)
	assert.Equal(t, "participantIds", query.Get("field"))
	assert.Equal(t, "array-contains", query.Get("op"))
	assert.Equal(t, "u1", query.Get("value"))
	assert.Equal(t, "updatedAt", query.Get("order_by"))
	assert.Equal(t, "true", query.Get("desc"))
}

func TestGetMapsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "no such document"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Get(context.Background(), "users", "missing")
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestSetSendsMergeFlagAndBody(t *testing.T) {
	var gotPath, gotMerge string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		gotPath = r.URL.Path
		gotMerge = r.URL.Query().Get("merge")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	err := client.Set(context.Background(), "users", "u1", map[string]any{"bio": "hi"}, true)
	require.NoError(t, err)

	assert.Equal(t, "/api/users/u1", gotPath)
	assert.Equal(t, "true", gotMerge)
	assert.Equal(t, "hi", gotBody["bio"])
}

func TestBatchDelete(t *testing.T) {
	var gotBody struct {
		IDs []string `json:"ids"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/chats/c1/messages/batch-delete", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	err := client.BatchDelete(context.Background(), "chats/c1/messages", []string{"m1", "m2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2"}, gotBody.IDs)
}

func TestServerErrorsCarryTheMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "username already taken"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	err := client.Set(context.Background(), "users", "u1", map[string]any{}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")
	assert.Contains(t, err.Error(), "username already taken")
}

func TestUnauthorizedIsSentinel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.SetToken("stale")
	err := client.Delete(context.Background(), "chats", "c1")
	assert.ErrorIs(t, err, ErrUnauthorized)
}
