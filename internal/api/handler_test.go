package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookmanager/internal/app"
	"bookmanager/internal/config"
	internaldb "bookmanager/internal/db"
	"bookmanager/internal/middleware"
)

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()
	writeDB, readDB := internaldb.OpenTestSQLite(t)

	cfg := &config.Config{CORSAllowedOrigins: []string{"*"}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	application := app.New(app.Deps{Cfg: cfg, WriteDB: writeDB, ReadDB: readDB, Logger: logger})

	handler := NewRouter(
		NewAPIHandler(
			application.Services.Books,
			application.Services.Registration,
			application.Services.Credentials,
			logger,
		),
		middleware.Auth(application.Authenticator, nil, nil),
		cfg.CORSAllowedOrigins,
	)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

// doJSON performs a request with an optional API key and decodes the JSON
// response body into a generic map.
func doJSON(t *testing.T, srv *httptest.Server, method, path, apiKey string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Api-Key "+apiKey)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp.StatusCode, decoded
}

func register(t *testing.T, srv *httptest.Server, username string) (principalID, apiKey string) {
	t.Helper()
	status, body := doJSON(t, srv, http.MethodPost, "/api/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, status)
	principalID, _ = body["id"].(string)
	apiKey, _ = body["api_key"].(string)
	require.NotEmpty(t, principalID)
	require.NotEmpty(t, apiKey)
	return principalID, apiKey
}

func TestRegister_ReturnsKeyOnce(t *testing.T) {
	srv := setupServer(t)

	status, body := doJSON(t, srv, http.MethodPost, "/api/register", "", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, "alice@example.com", body["email"])
	assert.NotEmpty(t, body["api_key"])

	// The key never appears again: listing shows metadata only.
	_, keys := doJSON(t, srv, http.MethodGet, "/apikeys", body["api_key"].(string), nil)
	data := keys["data"].([]interface{})
	require.Len(t, data, 1)
	entry := data[0].(map[string]interface{})
	assert.NotContains(t, entry, "key")
	assert.NotContains(t, entry, "key_hash")
}

func TestRegister_DuplicateUsernameConflicts(t *testing.T) {
	srv := setupServer(t)
	register(t, srv, "alice")

	status, body := doJSON(t, srv, http.MethodPost, "/api/register", "", map[string]string{
		"username": "alice",
		"password": "password123",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.NotEmpty(t, body["message"])
}

func TestRegister_MissingFields(t *testing.T) {
	srv := setupServer(t)

	status, _ := doJSON(t, srv, http.MethodPost, "/api/register", "", map[string]string{
		"email": "x@example.com",
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestBooks_RequireAuthentication(t *testing.T) {
	srv := setupServer(t)

	status, _ := doJSON(t, srv, http.MethodGet, "/books", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doJSON(t, srv, http.MethodPost, "/books", "not-a-real-key", map[string]string{
		"title": "T", "author": "A",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestBooks_CreateAndGet(t *testing.T) {
	srv := setupServer(t)
	aliceID, aliceKey := register(t, srv, "alice")

	status, book := doJSON(t, srv, http.MethodPost, "/books", aliceKey, map[string]string{
		"title":  "T",
		"author": "A",
		"isbn":   "1234567890123",
	})
	require.Equal(t, http.StatusCreated, status)
	assert.NotEmpty(t, book["id"])
	assert.Equal(t, aliceID, book["owner"])
	assert.Equal(t, "1234567890123", book["isbn"])
	assert.NotEmpty(t, book["created_at"])

	status, fetched := doJSON(t, srv, http.MethodGet, "/books/"+book["id"].(string), aliceKey, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "T", fetched["title"])
}

func TestBooks_CrossTenantGetIsNotFound(t *testing.T) {
	srv := setupServer(t)
	_, aliceKey := register(t, srv, "alice")
	_, bobKey := register(t, srv, "bob")

	status, book := doJSON(t, srv, http.MethodPost, "/books", aliceKey, map[string]string{
		"title": "T", "author": "A", "isbn": "1234567890123",
	})
	require.Equal(t, http.StatusCreated, status)
	id := book["id"].(string)

	status, _ = doJSON(t, srv, http.MethodGet, "/books/"+id, bobKey, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doJSON(t, srv, http.MethodPut, "/books/"+id, bobKey, map[string]string{
		"title": "X", "author": "Y",
	})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doJSON(t, srv, http.MethodDelete, "/books/"+id, bobKey, nil)
	assert.Equal(t, http.StatusNotFound, status)

	_, list := doJSON(t, srv, http.MethodGet, "/books", bobKey, nil)
	assert.Empty(t, list["data"])
}

func TestBooks_InvalidISBNRejected(t *testing.T) {
	srv := setupServer(t)
	_, aliceKey := register(t, srv, "alice")

	status, body := doJSON(t, srv, http.MethodPost, "/books", aliceKey, map[string]string{
		"title": "T", "author": "A", "isbn": "1234",
	})
	require.Equal(t, http.StatusBadRequest, status)

	fields := body["fields"].([]interface{})
	require.Len(t, fields, 1)
	fe := fields[0].(map[string]interface{})
	assert.Equal(t, "isbn", fe["field"])
}

func TestBooks_ISBNPrefixStripped(t *testing.T) {
	srv := setupServer(t)
	_, aliceKey := register(t, srv, "alice")

	status, book := doJSON(t, srv, http.MethodPost, "/books", aliceKey, map[string]string{
		"title": "T", "author": "A", "isbn": "ISBN 1234567890",
	})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "1234567890", book["isbn"])
}

func TestBooks_ValidationAggregates(t *testing.T) {
	srv := setupServer(t)
	_, aliceKey := register(t, srv, "alice")

	status, body := doJSON(t, srv, http.MethodPost, "/books", aliceKey, map[string]string{
		"isbn": "bad",
	})
	require.Equal(t, http.StatusBadRequest, status)

	fields := body["fields"].([]interface{})
	require.Len(t, fields, 3)
	names := map[string]bool{}
	for _, f := range fields {
		names[f.(map[string]interface{})["field"].(string)] = true
	}
	assert.True(t, names["title"])
	assert.True(t, names["author"])
	assert.True(t, names["isbn"])
}

func TestBooks_EmptyListIsOK(t *testing.T) {
	srv := setupServer(t)
	_, aliceKey := register(t, srv, "alice")

	status, body := doJSON(t, srv, http.MethodGet, "/books", aliceKey, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["data"])
}

func TestBooks_UpdateIsFullReplace(t *testing.T) {
	srv := setupServer(t)
	_, aliceKey := register(t, srv, "alice")

	status, book := doJSON(t, srv, http.MethodPost, "/books", aliceKey, map[string]string{
		"title":          "T",
		"author":         "A",
		"published_date": "2021-01-01",
		"isbn":           "1234567890123",
	})
	require.Equal(t, http.StatusCreated, status)
	id := book["id"].(string)

	status, updated := doJSON(t, srv, http.MethodPut, "/books/"+id, aliceKey, map[string]string{
		"title":  "Updated",
		"author": "B",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Updated", updated["title"])
	assert.Nil(t, updated["isbn"])
	assert.Nil(t, updated["published_date"])
	assert.Equal(t, book["owner"], updated["owner"])
	assert.Equal(t, book["created_at"], updated["created_at"])
}

func TestBooks_DeleteThenGone(t *testing.T) {
	srv := setupServer(t)
	_, aliceKey := register(t, srv, "alice")

	status, book := doJSON(t, srv, http.MethodPost, "/books", aliceKey, map[string]string{
		"title": "T", "author": "A",
	})
	require.Equal(t, http.StatusCreated, status)
	id := book["id"].(string)

	status, _ = doJSON(t, srv, http.MethodDelete, "/books/"+id, aliceKey, nil)
	require.Equal(t, http.StatusNoContent, status)

	status, _ = doJSON(t, srv, http.MethodGet, "/books/"+id, aliceKey, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPIKeys_RevokedKeyStopsAuthenticating(t *testing.T) {
	srv := setupServer(t)
	_, aliceKey := register(t, srv, "alice")

	_, keys := doJSON(t, srv, http.MethodGet, "/apikeys", aliceKey, nil)
	data := keys["data"].([]interface{})
	require.Len(t, data, 1)
	credID := data[0].(map[string]interface{})["id"].(string)

	status, _ := doJSON(t, srv, http.MethodDelete, "/apikeys/"+credID, aliceKey, nil)
	require.Equal(t, http.StatusNoContent, status)

	status, _ = doJSON(t, srv, http.MethodGet, "/books", aliceKey, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAPIKeys_CannotRevokeForeignKey(t *testing.T) {
	srv := setupServer(t)
	_, aliceKey := register(t, srv, "alice")
	_, bobKey := register(t, srv, "bob")

	_, keys := doJSON(t, srv, http.MethodGet, "/apikeys", aliceKey, nil)
	credID := keys["data"].([]interface{})[0].(map[string]interface{})["id"].(string)

	status, _ := doJSON(t, srv, http.MethodDelete, "/apikeys/"+credID, bobKey, nil)
	assert.Equal(t, http.StatusNotFound, status)

	// Alice's key still works.
	status, _ = doJSON(t, srv, http.MethodGet, "/books", aliceKey, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestBooks_MalformedJSONBody(t *testing.T) {
	srv := setupServer(t)
	_, aliceKey := register(t, srv, "alice")

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/books", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Api-Key "+aliceKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
