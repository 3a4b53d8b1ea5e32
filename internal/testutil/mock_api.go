// Package testutil provides a configurable paginated JSON API for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Default paths served by MockAPI.
const (
	ItemsPath = "/api/items"
	LoginPath = "/api/login"
)

// MockResponse defines a canned response for a path or page.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a paginated JSON API backed by httptest.
//
// GET ItemsPath?page=N returns
//
//	{"page": N, "per_page": P, "total": T, "data": [...]}
//
// and POST LoginPath accepts {"username": ..., "password": ...}.
type MockAPI struct {
	server *httptest.Server

	mu         sync.Mutex
	handlers   map[string]http.HandlerFunc
	total      int
	perPage    int
	username   string
	password   string
	token      string
	reqToken   bool
	pageStatus map[int]int
	pageBody   map[int]string
	pageDelay  map[int]time.Duration

	pageRequests  int
	loginRequests int
	requested     []int
	inFlight      int
	maxInFlight   int
	lastHeader    http.Header
}

// NewMockAPI creates a mock serving total records in pages of perPage.
func NewMockAPI(total, perPage int) *MockAPI {
	m := &MockAPI{
		handlers:   make(map[string]http.HandlerFunc),
		total:      total,
		perPage:    perPage,
		pageStatus: make(map[int]int),
		pageBody:   make(map[int]string),
		pageDelay:  make(map[int]time.Duration),
	}

	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		handler, ok := m.handlers[r.URL.Path]
		m.mu.Unlock()
		if ok {
			handler(w, r)
			return
		}

		switch r.URL.Path {
		case ItemsPath:
			m.servePage(w, r)
		case LoginPath:
			m.serveLogin(w, r)
		default:
			http.NotFound(w, r)
		}
	}))

	return m
}

// URL returns the mock server base URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// ItemsURL returns the URL of the paginated collection.
func (m *MockAPI) ItemsURL() string {
	return m.server.URL + ItemsPath
}

// LoginURL returns the URL of the login endpoint.
func (m *MockAPI) LoginURL() string {
	return m.server.URL + LoginPath
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// RequireAuth makes the login endpoint accept username/password and issue
// token, and makes every page request require "Bearer <token>".
func (m *MockAPI) RequireAuth(username, password, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.username = username
	m.password = password
	m.token = token
	m.reqToken = true
}

// SetPageStatus makes page respond with status and an error body.
func (m *MockAPI) SetPageStatus(page, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageStatus[page] = status
}

// SetPageBody replaces the body of page verbatim.
func (m *MockAPI) SetPageBody(page int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageBody[page] = body
}

// SetPageDelay delays the response for page.
func (m *MockAPI) SetPageDelay(page int, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageDelay[page] = d
}

// SetHandler overrides the handler for path.
func (m *MockAPI) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a canned response for path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// PageRequests returns the number of collection requests received.
func (m *MockAPI) PageRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pageRequests
}

// LoginRequests returns the number of login requests received.
func (m *MockAPI) LoginRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loginRequests
}

// RequestedPages returns the requested page numbers, sorted.
func (m *MockAPI) RequestedPages() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	pages := append([]int(nil), m.requested...)
	sort.Ints(pages)
	return pages
}

// MaxInFlight returns the highest number of concurrent page requests seen.
func (m *MockAPI) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}

// LastRequestHeader returns the headers of the most recent page request.
func (m *MockAPI) LastRequestHeader() http.Header {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastHeader
}

// Item returns the record the mock serves at global index i (0-based).
func Item(i int) map[string]any {
	parity := "even"
	if i%2 == 1 {
		parity = "odd"
	}
	return map[string]any{
		"id":   i,
		"name": fmt.Sprintf("item-%d", i),
		"meta": map[string]any{"index": i, "tags": []string{parity}},
	}
}

func (m *MockAPI) servePage(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	m.mu.Lock()
	m.pageRequests++
	m.requested = append(m.requested, page)
	m.lastHeader = r.Header.Clone()
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	delay := m.pageDelay[page]
	status, hasStatus := m.pageStatus[page]
	body, hasBody := m.pageBody[page]
	reqToken, token := m.reqToken, m.token
	total, perPage := m.total, m.perPage
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if delay > 0 {
		time.Sleep(delay)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if reqToken && r.Header.Get("Authorization") != "Bearer "+token {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"unauthorized"}`))
		return
	}
	if hasStatus {
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"error":"status %d"}`, status)
		return
	}
	if hasBody {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
		return
	}

	if pp, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil && pp > 0 {
		perPage = pp
	}

	start := (page - 1) * perPage
	end := start + perPage
	if end > total {
		end = total
	}
	data := make([]map[string]any, 0, perPage)
	for i := start; i < end; i++ {
		data = append(data, Item(i))
	}

	resp := map[string]any{
		"page":     page,
		"per_page": perPage,
		"total":    total,
		"data":     data,
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

func (m *MockAPI) serveLogin(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.loginRequests++
	username, password, token := m.username, m.password, m.token
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var creds map[string]string
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad request"}`))
		return
	}
	if creds["username"] != username || creds["password"] != password || strings.TrimSpace(token) == "" {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid credentials"}`))
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"token": token})
}
