// Package api exposes the HTTP surface of the book catalog: registration,
// book CRUD, and API key management.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"bookmanager/internal/domain"
	"bookmanager/internal/middleware"
	"bookmanager/internal/service"
)

// APIHandler holds the services behind the HTTP endpoints.
type APIHandler struct {
	books        *service.BookService
	registration *service.RegistrationService
	credentials  *service.CredentialService
	logger       *slog.Logger
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(books *service.BookService, registration *service.RegistrationService, credentials *service.CredentialService, logger *slog.Logger) *APIHandler {
	return &APIHandler{books: books, registration: registration, credentials: credentials, logger: logger}
}

// NewRouter assembles the chi router: public registration, then the
// authenticated book and API key routes behind the authorization gate.
func NewRouter(h *APIHandler, auth func(http.Handler) http.Handler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	r.Post("/api/register", h.Register)

	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Route("/books", func(r chi.Router) {
			r.Get("/", h.ListBooks)
			r.Post("/", h.CreateBook)
			r.Get("/{bookID}", h.GetBook)
			r.Put("/{bookID}", h.UpdateBook)
			r.Delete("/{bookID}", h.DeleteBook)
		})
		r.Route("/apikeys", func(r chi.Router) {
			r.Get("/", h.ListAPIKeys)
			r.Delete("/{credentialID}", h.RevokeAPIKey)
		})
	})

	return r
}

// === Registration ===

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	APIKey   string `json:"api_key"`
}

// Register creates a principal and returns its API key. The key appears in
// this response only; it is not retrievable afterwards.
func (h *APIHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, domain.ErrValidation("invalid JSON body"))
		return
	}

	p, rawKey, err := h.registration.Register(r.Context(), domain.RegisterRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, registerResponse{
		ID:       p.ID,
		Username: p.Username,
		Email:    p.Email,
		APIKey:   rawKey,
	})
}

// === Books ===

type bookRequest struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	PublishedDate string `json:"published_date"`
	ISBN          string `json:"isbn"`
}

func (req bookRequest) payload() domain.BookPayload {
	return domain.BookPayload{
		Title:         req.Title,
		Author:        req.Author,
		PublishedDate: req.PublishedDate,
		ISBN:          req.ISBN,
	}
}

type bookResponse struct {
	ID            string  `json:"id"`
	Owner         string  `json:"owner"`
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	PublishedDate *string `json:"published_date"`
	ISBN          *string `json:"isbn"`
	CreatedAt     string  `json:"created_at"`
}

type bookListResponse struct {
	Data          []bookResponse `json:"data"`
	NextPageToken string         `json:"next_page_token,omitempty"`
}

// CreateBook stores a new book owned by the caller.
func (h *APIHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, domain.ErrValidation("invalid JSON body"))
		return
	}
	book, err := h.books.Create(r.Context(), req.payload())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, bookToAPI(book))
}

// ListBooks returns the caller's books. An empty list is a 200, not a 404.
func (h *APIHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	books, total, err := h.books.List(r.Context(), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	data := make([]bookResponse, len(books))
	for i, b := range books {
		data[i] = bookToAPI(&b)
	}
	h.writeJSON(w, http.StatusOK, bookListResponse{
		Data:          data,
		NextPageToken: domain.NextPageToken(page.Offset(), page.Limit(), total),
	})
}

// GetBook returns one of the caller's books.
func (h *APIHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.books.Get(r.Context(), chi.URLParam(r, "bookID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, bookToAPI(book))
}

// UpdateBook replaces the book's full attribute set.
func (h *APIHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, domain.ErrValidation("invalid JSON body"))
		return
	}
	book, err := h.books.Update(r.Context(), chi.URLParam(r, "bookID"), req.payload())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, bookToAPI(book))
}

// DeleteBook permanently removes one of the caller's books.
func (h *APIHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	if err := h.books.Delete(r.Context(), chi.URLParam(r, "bookID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// === API keys ===

type apiKeyResponse struct {
	ID        string  `json:"id"`
	KeyPrefix string  `json:"key_prefix"`
	Revoked   bool    `json:"revoked"`
	CreatedAt string  `json:"created_at"`
	RevokedAt *string `json:"revoked_at,omitempty"`
}

type apiKeyListResponse struct {
	Data          []apiKeyResponse `json:"data"`
	NextPageToken string           `json:"next_page_token,omitempty"`
}

// ListAPIKeys returns the caller's credentials. Secrets are never included.
func (h *APIHandler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	creds, total, err := h.credentials.List(r.Context(), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	data := make([]apiKeyResponse, len(creds))
	for i, c := range creds {
		data[i] = credentialToAPI(c)
	}
	h.writeJSON(w, http.StatusOK, apiKeyListResponse{
		Data:          data,
		NextPageToken: domain.NextPageToken(page.Offset(), page.Limit(), total),
	})
}

// RevokeAPIKey revokes one of the caller's credentials.
func (h *APIHandler) RevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	if err := h.credentials.Revoke(r.Context(), chi.URLParam(r, "credentialID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// === helpers ===

func bookToAPI(b *domain.Book) bookResponse {
	resp := bookResponse{
		ID:        b.ID,
		Owner:     b.OwnerID,
		Title:     b.Title,
		Author:    b.Author,
		ISBN:      b.ISBN,
		CreatedAt: b.CreatedAt.Format(timeLayout),
	}
	if b.PublishedDate != nil {
		d := b.PublishedDate.Format(dateLayout)
		resp.PublishedDate = &d
	}
	return resp
}

func credentialToAPI(c domain.Credential) apiKeyResponse {
	resp := apiKeyResponse{
		ID:        c.ID,
		KeyPrefix: c.KeyPrefix,
		Revoked:   c.Revoked,
		CreatedAt: c.CreatedAt.Format(timeLayout),
	}
	if c.RevokedAt != nil {
		t := c.RevokedAt.Format(timeLayout)
		resp.RevokedAt = &t
	}
	return resp
}

const (
	timeLayout = "2006-01-02T15:04:05Z07:00"
	dateLayout = "2006-01-02"
)

// pageFromQuery extracts a PageRequest from optional max_results/page_token
// query parameters.
func pageFromQuery(r *http.Request) domain.PageRequest {
	page := domain.PageRequest{PageToken: r.URL.Query().Get("page_token")}
	if v := r.URL.Query().Get("max_results"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page.MaxResults = n
		}
	}
	return page
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *APIHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBodyFrom(err)
	if body.Code == http.StatusInternalServerError {
		h.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.RequestIDFromContext(r.Context()),
			"error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(body.Code)
	_ = json.NewEncoder(w).Encode(body)
}
