// Package prerendertest provides an in-memory cache store served over
// httptest for exercising cachectl against the real wire format.
package prerendertest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/prerender-tools/cachectl/pkg/config"
)

// Item is a stored render as the store API reports it. An empty Variant is
// omitted from the listing.
type Item struct {
	URL        string `json:"url"`
	Variant    string `json:"variant,omitempty"`
	StatusCode int    `json:"statusCode"`
	CachedAt   string `json:"cachedAt"`
	ExpiresAt  string `json:"expiresAt"`
}

// Recache is one recache request received by the store.
type Recache struct {
	URL       string
	UserAgent string
}

// Reply overrides the store's answer for a request.
type Reply struct {
	Status int
	Body   string
}

// Store is a fake cache store. The zero value is not usable; call New.
type Store struct {
	Server *httptest.Server

	mu          sync.Mutex
	items       []Item
	recaches    []Recache
	deletes     []string
	lists       int
	recacheFail map[string]int
	deleteReply map[string]Reply
	listReply   *Reply
	mobileUA    string
}

// New starts a fake store seeded with items. Call Close when done.
func New(items ...Item) *Store {
	s := &Store{
		items:       append([]Item(nil), items...),
		recacheFail: map[string]int{},
		deleteReply: map[string]Reply{},
		mobileUA:    config.DefaultMobileUA,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Close shuts the server down.
func (s *Store) Close() { s.Server.Close() }

// URL is the base URL of the store.
func (s *Store) URL() string { return s.Server.URL }

// Config returns a config pointed at the store.
func (s *Store) Config() *config.Config {
	cfg := config.Default()
	cfg.BaseURL = s.Server.URL
	cfg.APIBase = s.Server.URL + "/api/cache"
	cfg.HTTP.Timeout = 5 * time.Second
	return cfg
}

// FailRecache makes recache requests for pageURL under userAgent answer
// with status.
func (s *Store) FailRecache(pageURL, userAgent string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recacheFail[pageURL+"\x00"+userAgent] = status
}

// ReplyDelete overrides the reply to a delete of pageURL. The entry is
// kept.
func (s *Store) ReplyDelete(pageURL string, r Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteReply[pageURL] = r
}

// ReplyList overrides the reply to listing requests.
func (s *Store) ReplyList(r Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listReply = &r
}

// Recaches returns the recache requests received so far, in arrival order.
func (s *Store) Recaches() []Recache {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Recache(nil), s.recaches...)
}

// RecachesFor returns how many recache requests targeted pageURL.
func (s *Store) RecachesFor(pageURL string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.recaches {
		if r.URL == pageURL {
			n++
		}
	}
	return n
}

// Deletes returns the URLs deletes were requested for, in arrival order.
func (s *Store) Deletes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deletes...)
}

// Lists returns how many listing requests were served.
func (s *Store) Lists() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lists
}

// Items returns the current contents.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Item(nil), s.items...)
}

func (s *Store) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/cache" {
		switch r.Method {
		case http.MethodGet:
			s.handleList(w)
		case http.MethodDelete:
			s.handleDelete(w, r.URL.Query().Get("url"))
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}
	s.handleRecache(w, r)
}

func (s *Store) handleList(w http.ResponseWriter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	if s.listReply != nil {
		w.WriteHeader(s.listReply.Status)
		_, _ = w.Write([]byte(s.listReply.Body))
		return
	}
	writeJSON(w, map[string]any{"success": true, "items": s.items})
}

func (s *Store) handleDelete(w http.ResponseWriter, pageURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, pageURL)
	if reply, ok := s.deleteReply[pageURL]; ok {
		w.WriteHeader(reply.Status)
		_, _ = w.Write([]byte(reply.Body))
		return
	}
	kept := s.items[:0]
	for _, it := range s.items {
		if it.URL != pageURL {
			kept = append(kept, it)
		}
	}
	s.items = kept
	writeJSON(w, map[string]any{"success": true})
}

func (s *Store) handleRecache(w http.ResponseWriter, r *http.Request) {
	pageURL := strings.TrimPrefix(r.URL.RequestURI(), "/")
	ua := r.Header.Get("User-Agent")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.recaches = append(s.recaches, Recache{URL: pageURL, UserAgent: ua})
	if status, ok := s.recacheFail[pageURL+"\x00"+ua]; ok {
		w.WriteHeader(status)
		return
	}

	variant := "desktop"
	if ua == s.mobileUA {
		variant = "mobile"
	}
	now := time.Now().UTC()
	kept := s.items[:0]
	for _, it := range s.items {
		if it.URL != pageURL || it.Variant != variant {
			kept = append(kept, it)
		}
	}
	s.items = append(kept, Item{
		URL:        pageURL,
		Variant:    variant,
		StatusCode: http.StatusOK,
		CachedAt:   now.Format(time.RFC3339),
		ExpiresAt:  now.Add(24 * time.Hour).Format(time.RFC3339),
	})
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("<html></html>"))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
