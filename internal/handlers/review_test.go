package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/huangang/peerreview/internal/services"
)

type formData struct {
	Session      services.SessionState `json:"session"`
	ReloadDrafts bool                  `json:"reload_drafts"`
	Ratees       []struct {
		Username  string            `json:"username"`
		Finalized bool              `json:"finalized"`
		Drafts    map[string]string `json:"drafts"`
	} `json:"ratees"`
	Remaining int `json:"remaining"`
}

func TestReviewHandler_Unbound(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "GET", "/api/reviews/form", browserA, "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, expected %d", w.Code, http.StatusUnauthorized)
	}
}

func TestReviewHandler_SubmissionFlow(t *testing.T) {
	s := newTestServer(t)
	s.bind(t, browserA, "alice")

	var form formData
	decode(t, s.do(t, "GET", "/api/reviews/form", browserA, "load-1", nil), &form)
	if len(form.Ratees) != 3 || form.Remaining != 3 {
		t.Fatalf("form = %+v, expected 3 open ratees", form)
	}

	// Drafts keep what was typed and report bad fields inline.
	var drafts struct {
		Errors services.FieldErrors `json:"errors"`
	}
	w := s.do(t, "PUT", "/api/reviews/bob/drafts", browserA, "load-1", gin.H{"values": gin.H{"q": "11", "s": "5"}})
	if w.Code != http.StatusOK {
		t.Fatalf("drafts status = %d, body = %s", w.Code, w.Body.String())
	}
	decode(t, w, &drafts)
	if len(drafts.Errors) != 1 || drafts.Errors[0].Kind != services.OutOfRange {
		t.Errorf("draft errors = %+v, expected one out_of_range", drafts.Errors)
	}

	decode(t, s.do(t, "GET", "/api/reviews/form", browserA, "load-2", nil), &form)
	if !form.ReloadDrafts {
		t.Error("a new page load from the same browser should reload drafts")
	}
	for _, r := range form.Ratees {
		if r.Username == "bob" && r.Drafts["q"] != "11" {
			t.Errorf("bob drafts = %v, expected the typed value", r.Drafts)
		}
	}

	var invalid struct {
		Errors services.FieldErrors `json:"errors"`
	}
	w = s.do(t, "POST", "/api/reviews/bob/validate", browserA, "", gin.H{"values": gin.H{"q": "8"}})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("validate status = %d, expected 422", w.Code)
	}
	decode(t, w, &invalid)
	if len(invalid.Errors) != 1 || invalid.Errors[0].Metric != "s" {
		t.Errorf("validate errors = %+v, expected missing s", invalid.Errors)
	}

	var preview struct {
		Scores map[string]float64 `json:"scores"`
	}
	w = s.do(t, "POST", "/api/reviews/bob/validate", browserA, "", gin.H{"values": gin.H{"q": "8", "s": "7.5"}})
	if w.Code != http.StatusOK {
		t.Fatalf("validate status = %d, body = %s", w.Code, w.Body.String())
	}
	decode(t, w, &preview)
	if preview.Scores["s"] != 7.5 {
		t.Errorf("preview = %v", preview.Scores)
	}

	w = s.do(t, "POST", "/api/reviews/bob/confirm", browserA, "", gin.H{"values": gin.H{"q": "8", "s": "7.5"}})
	if w.Code != http.StatusCreated {
		t.Fatalf("confirm status = %d, body = %s", w.Code, w.Body.String())
	}

	w = s.do(t, "POST", "/api/reviews/bob/confirm", browserA, "", gin.H{"values": gin.H{"q": "9", "s": "9"}})
	if w.Code != http.StatusConflict {
		t.Errorf("second confirm status = %d, expected 409", w.Code)
	}
	w = s.do(t, "PUT", "/api/reviews/bob/drafts", browserA, "", gin.H{"values": gin.H{"q": "9"}})
	if w.Code != http.StatusConflict {
		t.Errorf("drafts after confirm status = %d, expected 409", w.Code)
	}

	decode(t, s.do(t, "GET", "/api/reviews/form", browserA, "load-2", nil), &form)
	if form.Remaining != 2 {
		t.Errorf("remaining = %d, expected 2", form.Remaining)
	}
	for _, r := range form.Ratees {
		if r.Username == "bob" && (!r.Finalized || len(r.Drafts) != 0) {
			t.Errorf("bob = %+v, expected finalized without drafts", r)
		}
	}
}

func TestReviewHandler_BadRequests(t *testing.T) {
	s := newTestServer(t)
	s.bind(t, browserA, "alice")

	tests := []struct {
		name     string
		method   string
		path     string
		body     interface{}
		expected int
	}{
		{"unknown ratee", "POST", "/api/reviews/mallory/confirm", gin.H{"values": gin.H{"q": "5", "s": "5"}}, http.StatusNotFound},
		{"missing values", "POST", "/api/reviews/bob/confirm", gin.H{}, http.StatusBadRequest},
		{"unknown metric", "POST", "/api/reviews/bob/confirm", gin.H{"values": gin.H{"q": "5", "s": "5", "x": "5"}}, http.StatusUnprocessableEntity},
		{"unparseable score", "POST", "/api/reviews/bob/validate", gin.H{"values": gin.H{"q": "ten", "s": "5"}}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, browserA, "", tt.body)
			if w.Code != tt.expected {
				t.Errorf("status = %d, expected %d, body = %s", w.Code, tt.expected, w.Body.String())
			}
		})
	}
}
