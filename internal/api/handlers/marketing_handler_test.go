package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/velorize/backend-go/internal/repository"
)

func marketingRouter(svc *stubMarketing) *gin.Engine {
	h := NewMarketingHandler(svc)
	r := newTestEngine()
	r.GET("/events/:id/impact", h.EventImpact)
	r.GET("/impact", h.ImpactSummary)
	return r
}

func TestMarketingEventImpact(t *testing.T) {
	w, payload := perform(t, marketingRouter(&stubMarketing{}), http.MethodGet, "/events/12/impact", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	event, _ := payload["event"].(map[string]interface{})
	if event["id"] != 12.0 {
		t.Errorf("event = %v", event)
	}

	w, _ = perform(t, marketingRouter(&stubMarketing{err: repository.ErrNotFound}), http.MethodGet, "/events/12/impact", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing event status = %d, want 404", w.Code)
	}
}

func TestMarketingImpactSummary(t *testing.T) {
	svc := &stubMarketing{}
	w, payload := perform(t, marketingRouter(svc), http.MethodGet, "/impact?from=2024-01-01&to=2024-03-31", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	if svc.from == nil || !svc.from.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) || svc.to == nil {
		t.Errorf("range = %v..%v", svc.from, svc.to)
	}
	if events, ok := payload["events"].([]interface{}); !ok || len(events) != 0 {
		t.Errorf("events = %v, want empty list", payload["events"])
	}

	w, _ = perform(t, marketingRouter(&stubMarketing{}), http.MethodGet, "/impact?from=2024-04-01&to=2024-03-31", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("inverted range status = %d, want 400", w.Code)
	}
}
