// Package forgetest provides an in-process fake of the GitHub repository API.
package forgetest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gorilla/mux"
)

// Repository is the subset of the GitHub repository payload the fake serves.
type Repository struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Owner    Owner  `json:"owner"`
	Stars    int    `json:"stargazers_count"`
	Language string `json:"language"`
	Size     int    `json:"size"`
	CloneURL string `json:"clone_url"`
}

// Owner is the repository owner.
type Owner struct {
	Login string `json:"login"`
}

// Server is a fake GitHub API backed by httptest.
type Server struct {
	*httptest.Server

	mu       sync.RWMutex
	repos    map[string]Repository
	requests int
	failures []int
}

// NewServer starts a fake GitHub API. Close it when done.
func NewServer() *Server {
	s := &Server{repos: make(map[string]Repository)}

	router := mux.NewRouter()
	router.HandleFunc("/repos/{owner}/{repo}", s.handleGetRepo).Methods("GET")
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	s.Server = httptest.NewServer(router)
	return s
}

// AddRepository registers a repository under its FullName.
func (s *Server) AddRepository(repo Repository) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.repos[repo.FullName] = repo
}

// FailNext makes the next n repository lookups answer with status.
func (s *Server) FailNext(n, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < n; i++ {
		s.failures = append(s.failures, status)
	}
}

// Requests returns how many repository lookups were served.
func (s *Server) Requests() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requests
}

func (s *Server) handleGetRepo(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	fullName := fmt.Sprintf("%s/%s", vars["owner"], vars["repo"])

	s.mu.Lock()
	s.requests++
	repo, exists := s.repos[fullName]
	failure := 0
	if len(s.failures) > 0 {
		failure, s.failures = s.failures[0], s.failures[1:]
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if failure != 0 {
		w.WriteHeader(failure)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": http.StatusText(failure)})
		return
	}
	if !exists {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"message":           "Not Found",
			"documentation_url": "https://docs.github.com/rest/repos/repos#get-a-repository",
		})
		return
	}
	_ = json.NewEncoder(w).Encode(repo)
}
