package ml

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRemoteModelPredict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req remoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		preds := make([]float64, len(req.Rows))
		for i, row := range req.Rows {
			preds[i] = row[0] * 2
		}
		json.NewEncoder(w).Encode(remoteResponse{Predictions: preds})
	}))
	defer server.Close()

	model := NewRemoteModel(server.URL, []string{"price"}, time.Second)
	preds, err := model.Predict(context.Background(), [][]float64{{1}, {4}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if preds[0] != 2 || preds[1] != 8 {
		t.Fatalf("unexpected predictions: %v", preds)
	}
}

func TestRemoteModelErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(remoteResponse{Error: "feature mismatch"})
	}))
	defer server.Close()

	model := NewRemoteModel(server.URL, nil, time.Second)
	if _, err := model.Predict(context.Background(), [][]float64{{1}}); err == nil {
		t.Fatal("expected error")
	}
}
