package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"algoflow/internal/lifecycle"
	"algoflow/internal/model"
	"algoflow/internal/search"
)

// maxGraphBody bounds the size of a graph document upload.
const maxGraphBody = 8 << 20

// ----- Requests / responses -----

type AlgorithmRequest struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Description string  `json:"description" validate:"max=10000"`
	Public      bool    `json:"public"`
	Version     string  `json:"version" validate:"max=10"`
	Categories  []int64 `json:"categories" validate:"omitempty,dive,gt=0"`
}

func (req AlgorithmRequest) fields() lifecycle.Fields {
	return lifecycle.Fields{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Version:     req.Version,
		Public:      req.Public,
		Categories:  req.Categories,
	}
}

type UpdateGraphRequest struct {
	// Graph is the document, either as an object or as a string holding
	// the serialized object.
	Graph  json.RawMessage `json:"graph" validate:"required"`
	Public bool            `json:"public"`
}

type AlgorithmsResponse struct {
	Algorithms []*model.Algorithm `json:"algorithms"`
}

type SearchResponse struct {
	Searched   bool               `json:"searched"`
	Algorithms []*model.Algorithm `json:"algorithms"`
}

type ThoroughSearchResponse struct {
	Results map[int64]*model.AlgorithmHits `json:"results"`
}

type NodesResponse struct {
	Nodes []*model.Node `json:"nodes"`
}

type CategoriesResponse struct {
	Categories []int64 `json:"categories"`
}

// ----- Helpers -----

// pathID parses the {id} path value, writing a 400 when it is not a
// positive integer.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	return positiveInt(w, r.PathValue("id"), "id")
}

func positiveInt(w http.ResponseWriter, s, name string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name, nil)
		return 0, false
	}
	return id, true
}

// queryID reads an optional id query parameter; absent or empty is 0.
func queryID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name, nil)
		return 0, false
	}
	return id, true
}

func queryBool(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return false
	}
	return true
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// ----- Reads -----

func (h *Handler) ListAlgorithms(w http.ResponseWriter, r *http.Request) {
	// Private algorithms are only listed for authenticated callers.
	includePrivate := queryBool(r, "list_all_algorithms") && ClaimsFromContext(r.Context()) != nil

	algs, err := h.lifecycle.List(r.Context(), includePrivate)
	if err != nil {
		h.writeServiceError(w, r, "failed to list algorithms", err)
		return
	}
	writeJSON(w, http.StatusOK, AlgorithmsResponse{Algorithms: nonNil(algs)})
}

func (h *Handler) ListUserAlgorithms(w http.ResponseWriter, r *http.Request) {
	userID, ok := positiveInt(w, r.PathValue("user_id"), "user_id")
	if !ok {
		return
	}
	algs, err := h.lifecycle.ListByUser(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, "failed to list algorithms", err)
		return
	}
	writeJSON(w, http.StatusOK, AlgorithmsResponse{Algorithms: nonNil(algs)})
}

func (h *Handler) GetAlgorithm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	alg, err := h.lifecycle.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "failed to get algorithm", err)
		return
	}
	writeJSON(w, http.StatusOK, alg)
}

func (h *Handler) GetGraph(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	g, err := h.lifecycle.GetGraph(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "failed to get graph", err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *Handler) ListNodes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	nodes, err := h.lifecycle.ListNodes(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "failed to list nodes", err)
		return
	}
	writeJSON(w, http.StatusOK, NodesResponse{Nodes: nonNil(nodes)})
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	cats, err := h.lifecycle.Categories(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "failed to list categories", err)
		return
	}
	writeJSON(w, http.StatusOK, CategoriesResponse{Categories: nonNil(cats)})
}

// ----- Search -----

func (h *Handler) SearchAlgorithms(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := queryID(w, r, "category_id")
	if !ok {
		return
	}
	userID, ok := queryID(w, r, "user_id")
	if !ok {
		return
	}

	res, err := h.engine.Search(r.Context(), search.Query{
		Keyword:    r.URL.Query().Get("keyword"),
		CategoryID: categoryID,
		UserID:     userID,
	})
	if err != nil {
		h.writeServiceError(w, r, "search failed", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Searched: res.Performed, Algorithms: nonNil(res.Algorithms)})
}

func (h *Handler) ThoroughSearch(w http.ResponseWriter, r *http.Request) {
	scope := model.ScopePublic
	if queryBool(r, "search_all_algorithms") && ClaimsFromContext(r.Context()) != nil {
		scope = model.ScopeAll
	}

	results, err := h.aggregate.ThoroughSearch(r.Context(), r.URL.Query().Get("keyword"), scope)
	if err != nil {
		h.writeServiceError(w, r, "search failed", err)
		return
	}
	writeJSON(w, http.StatusOK, ThoroughSearchResponse{Results: results})
}

// ----- Writes -----

func (h *Handler) CreateAlgorithm(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated", nil)
		return
	}

	var req AlgorithmRequest
	if !h.decode(w, r, &req) {
		return
	}

	alg, err := h.lifecycle.Create(r.Context(), lifecycle.NewAlgorithm{
		UserID: claims.UserID,
		Fields: req.fields(),
	})
	if err != nil {
		h.writeServiceError(w, r, "failed to create algorithm", err)
		return
	}
	writeJSON(w, http.StatusCreated, alg)
}

func (h *Handler) UpdateAlgorithm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req AlgorithmRequest
	if !h.decode(w, r, &req) {
		return
	}

	alg, err := h.lifecycle.UpdateMetadata(r.Context(), id, req.fields())
	if err != nil {
		h.writeServiceError(w, r, "failed to update algorithm", err)
		return
	}
	writeJSON(w, http.StatusOK, alg)
}

func (h *Handler) UpdateGraph(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxGraphBody)
	var req UpdateGraphRequest
	if !h.decode(w, r, &req) {
		return
	}

	g, err := h.lifecycle.UpdateGraph(r.Context(), id, req.Graph, req.Public, time.Now().UTC())
	if err != nil {
		h.writeServiceError(w, r, "failed to update graph", err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *Handler) DeleteAlgorithm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.lifecycle.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, r, "failed to delete algorithm", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
