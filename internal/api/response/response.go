package response

import (
	"encoding/json"
	"net/http"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Error: message})
}

// ItemsResponse wraps an unpaginated list.
type ItemsResponse struct {
	Items any `json:"items"`
}

func WriteItems(w http.ResponseWriter, items any) {
	WriteJSON(w, http.StatusOK, ItemsResponse{Items: items})
}

// Page wraps a list with page-based pagination metadata.
type Page struct {
	Items   any  `json:"items"`
	Page    int  `json:"page"`
	HasMore bool `json:"has_more"`
}

// WritePage writes a paginated JSON response.
func WritePage(w http.ResponseWriter, items any, page int, hasMore bool) {
	WriteJSON(w, http.StatusOK, Page{Items: items, Page: page, HasMore: hasMore})
}
