// Package main provides end-to-end tests for the algoflow service.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"algoflow/internal/api"
	"algoflow/internal/auth"
	"algoflow/internal/cfg"
	"algoflow/internal/db"
)

// TestE2EWorkflow tests the complete workflow:
// 1. Create two algorithms, one public and one private
// 2. Save their graphs, which builds the node index
// 3. Search titles, nodes, and both together
// 4. Delete one and check nothing of it is left
func TestE2EWorkflow(t *testing.T) {
	config := &cfg.Config{
		Listen:         ":0",
		DBURL:          filepath.Join(t.TempDir(), "algoflow.db"),
		JWTSigningKey:  []byte("test-secret-key"),
		JWTIssuer:      "algoflow-test",
		AccessTokenTTL: 15 * time.Minute,
		CORSOrigins:    []string{"*"},
		Debug:          true,
		Version:        "test",
	}

	database, err := db.Open(config.DBURL)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := auth.NewTokenService(config.JWTSigningKey, config.JWTIssuer, config.AccessTokenTTL)

	handler := api.NewHandler(database, config, tokens, log)
	router := api.NewRouter(handler)
	wrappedHandler := api.WithDefaults(router, log, config.Debug, config.CORSOrigins)

	ts := httptest.NewServer(wrappedHandler)
	defer ts.Close()

	accessToken, err := tokens.GenerateAccessToken(1)
	if err != nil {
		t.Fatalf("Failed to mint token: %v", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}

	// Helper to make API calls
	apiCall := func(method, path string, body interface{}, token string) (int, map[string]interface{}) {
		var bodyReader io.Reader
		if body != nil {
			b, _ := json.Marshal(body)
			bodyReader = bytes.NewReader(b)
		}

		req, _ := http.NewRequestWithContext(context.Background(), method, ts.URL+path, bodyReader)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		defer resp.Body.Close()

		var result map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&result)
		return resp.StatusCode, result
	}

	t.Run("Health", func(t *testing.T) {
		status, data := apiCall("GET", "/health", nil, "")
		if status != http.StatusOK {
			t.Errorf("Expected 200, got %d", status)
		}
		if data["status"] != "ok" {
			t.Errorf("Expected status=ok, got %v", data["status"])
		}
	})

	t.Run("CreateRequiresAuth", func(t *testing.T) {
		status, _ := apiCall("POST", "/api/v1/algorithms", map[string]interface{}{"title": "x"}, "")
		if status != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", status)
		}
	})

	var publicID, privateID float64
	t.Run("CreateAlgorithms", func(t *testing.T) {
		status, data := apiCall("POST", "/api/v1/algorithms", map[string]interface{}{
			"title":       "Sort demo",
			"description": "sorting walkthrough",
			"categories":  []int{3},
		}, accessToken)
		if status != http.StatusCreated {
			t.Fatalf("Expected 201, got %d: %v", status, data)
		}
		publicID = data["id"].(float64)

		status, data = apiCall("POST", "/api/v1/algorithms", map[string]interface{}{
			"title": "Graph walk",
		}, accessToken)
		if status != http.StatusCreated {
			t.Fatalf("Expected 201, got %d: %v", status, data)
		}
		privateID = data["id"].(float64)
	})

	idPath := func(id float64) string {
		return "/api/v1/algorithms/" + jsonNumber(id)
	}

	t.Run("UpdateGraphs", func(t *testing.T) {
		// The editor sends the document as a string.
		doc := `{"cells":[{"id":"1","type":"start","props":{"label":"sort input"}},{"id":"2","type":"end"}]}`
		status, data := apiCall("PUT", idPath(publicID)+"/graph", map[string]interface{}{
			"graph": doc, "public": true,
		}, accessToken)
		if status != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %v", status, data)
		}
		if data["graph"] != doc {
			t.Errorf("Expected stored graph %q, got %v", doc, data["graph"])
		}

		status, data = apiCall("PUT", idPath(privateID)+"/graph", map[string]interface{}{
			"graph":  map[string]interface{}{"cells": []interface{}{map[string]interface{}{"id": "a", "type": "process", "props": map[string]string{"label": "then sort neighbours"}}}},
			"public": false,
		}, accessToken)
		if status != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %v", status, data)
		}
	})

	t.Run("MalformedGraph", func(t *testing.T) {
		status, data := apiCall("PUT", idPath(publicID)+"/graph", map[string]interface{}{
			"graph": `{"cells":[{"id":"1"}]}`, "public": true,
		}, accessToken)
		if status != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d: %v", status, data)
		}

		_, data = apiCall("GET", idPath(publicID)+"/nodes", nil, "")
		if nodes, _ := data["nodes"].([]interface{}); len(nodes) != 2 {
			t.Errorf("Expected 2 nodes after rejected update, got %v", data["nodes"])
		}
	})

	t.Run("PlainSearch", func(t *testing.T) {
		status, data := apiCall("GET", "/api/v1/algorithms/search", nil, "")
		if status != http.StatusOK || data["searched"] != false {
			t.Errorf("Expected searched=false, got %d: %v", status, data)
		}

		_, data = apiCall("GET", "/api/v1/algorithms/search?category_id=3", nil, "")
		algs, _ := data["algorithms"].([]interface{})
		if data["searched"] != true || len(algs) != 1 {
			t.Errorf("Expected one algorithm in category 3, got %v", data)
		}
	})

	t.Run("ThoroughSearchPublic", func(t *testing.T) {
		status, data := apiCall("GET", "/api/v1/algorithms/thorough-search?keyword=sort&search_all_algorithms=true", nil, "")
		if status != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %v", status, data)
		}
		results, _ := data["results"].(map[string]interface{})
		if len(results) != 1 {
			t.Fatalf("Expected 1 public result, got %v", results)
		}
		entry, _ := results[jsonNumber(publicID)].(map[string]interface{})
		if entry["title"] != "Sort demo" {
			t.Errorf("Expected title=Sort demo, got %v", entry["title"])
		}
		if nodes, _ := entry["nodes"].([]interface{}); len(nodes) != 1 {
			t.Errorf("Expected 1 node, got %v", entry["nodes"])
		}
	})

	t.Run("ThoroughSearchAll", func(t *testing.T) {
		_, data := apiCall("GET", "/api/v1/algorithms/thorough-search?keyword=sort&search_all_algorithms=true", nil, accessToken)
		results, _ := data["results"].(map[string]interface{})
		if len(results) != 2 {
			t.Fatalf("Expected 2 results, got %v", results)
		}
		entry, _ := results[jsonNumber(privateID)].(map[string]interface{})
		if entry["title"] != "Graph walk" {
			t.Errorf("Expected backfilled title=Graph walk, got %v", entry["title"])
		}
	})

	t.Run("ThoroughSearchEmptyKeyword", func(t *testing.T) {
		status, _ := apiCall("GET", "/api/v1/algorithms/thorough-search?keyword=", nil, "")
		if status != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", status)
		}
	})

	t.Run("OtherUserCannotDelete", func(t *testing.T) {
		other, _ := tokens.GenerateAccessToken(2)
		status, _ := apiCall("DELETE", idPath(publicID), nil, other)
		if status != http.StatusForbidden {
			t.Errorf("Expected 403, got %d", status)
		}
	})

	t.Run("DeleteCascades", func(t *testing.T) {
		status, _ := apiCall("DELETE", idPath(publicID), nil, accessToken)
		if status != http.StatusNoContent {
			t.Fatalf("Expected 204, got %d", status)
		}

		for _, path := range []string{idPath(publicID), idPath(publicID) + "/graph", idPath(publicID) + "/nodes"} {
			if status, _ := apiCall("GET", path, nil, ""); status != http.StatusNotFound {
				t.Errorf("GET %s: expected 404, got %d", path, status)
			}
		}

		_, data := apiCall("GET", "/api/v1/algorithms/thorough-search?keyword=sort", nil, "")
		if results, _ := data["results"].(map[string]interface{}); len(results) != 0 {
			t.Errorf("Expected no public results after delete, got %v", results)
		}

		status, _ = apiCall("DELETE", idPath(publicID), nil, accessToken)
		if status != http.StatusNotFound {
			t.Errorf("Expected 404 on second delete, got %d", status)
		}
	})
}

func jsonNumber(f float64) string {
	b, _ := json.Marshal(int64(f))
	return string(b)
}
