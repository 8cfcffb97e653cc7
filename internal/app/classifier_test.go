package app

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marianacarhol/reto-multiagentes-sub000/internal/domain"
)

func TestClassifier_Classify_Fallback(t *testing.T) {
	t.Parallel()

	quiet := log.New(io.Discard, "", 0)
	classifier := NewClassifier("", time.Second, quiet)

	tests := []struct {
		name         string
		in           ClassifyInput
		wantPriority domain.Priority
		wantScore    int
	}{
		{
			name:         "danger keyword escalates to high",
			in:           ClassifyInput{Text: "water leak in the bathroom", MinutesToSLA: 500},
			wantPriority: domain.PriorityHigh,
			wantScore:    95,
		},
		{
			name:         "spanish danger keyword escalates to high",
			in:           ClassifyInput{Text: "hay humo en el pasillo", MinutesToSLA: 500},
			wantPriority: domain.PriorityHigh,
			wantScore:    95,
		},
		{
			name:         "vip close to sla is high",
			in:           ClassifyInput{Text: "extra towels please", VIP: true, MinutesToSLA: 15},
			wantPriority: domain.PriorityHigh,
			wantScore:    80,
		},
		{
			name:         "close to sla without vip is medium",
			in:           ClassifyInput{Text: "extra towels please", MinutesToSLA: 15},
			wantPriority: domain.PriorityMedium,
			wantScore:    65,
		},
		{
			name:         "everything else is low",
			in:           ClassifyInput{Text: "extra towels please", MinutesToSLA: 120},
			wantPriority: domain.PriorityLow,
			wantScore:    30,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := classifier.Classify(context.Background(), tt.in)
			if got.Priority != tt.wantPriority || got.Score != tt.wantScore {
				t.Fatalf("got %s/%d, want %s/%d", got.Priority, got.Score, tt.wantPriority, tt.wantScore)
			}
			if got.Model != "rules_v1" {
				t.Fatalf("expected rules_v1 model, got %q", got.Model)
			}
		})
	}
}

func TestClassifier_Classify_Service(t *testing.T) {
	t.Parallel()

	quiet := log.New(io.Discard, "", 0)

	t.Run("uses the scoring service when healthy", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/predict" || r.Method != http.MethodPost {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"priority":"medium","score":72.4,"proba":{"medium":0.7},"needs_review":true,"model":"gb_v2"}`))
		}))
		defer srv.Close()

		classifier := NewClassifier(srv.URL, time.Second, quiet)
		got := classifier.Classify(context.Background(), ClassifyInput{Text: "room service", MinutesToSLA: 500})
		if got.Priority != domain.PriorityMedium || got.Score != 72 {
			t.Fatalf("got %s/%d, want medium/72", got.Priority, got.Score)
		}
		if !got.NeedsReview || got.Model != "gb_v2" {
			t.Fatalf("expected needs_review and gb_v2 model, got %+v", got)
		}
	})

	t.Run("falls back on a server error", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		classifier := NewClassifier(srv.URL, time.Second, quiet)
		got := classifier.Classify(context.Background(), ClassifyInput{Text: "room service", MinutesToSLA: 500})
		if got.Priority != domain.PriorityLow || got.Model != "rules_v1" {
			t.Fatalf("expected rules fallback, got %+v", got)
		}
	})

	t.Run("falls back on an invalid priority", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"priority":"urgent","score":99}`))
		}))
		defer srv.Close()

		classifier := NewClassifier(srv.URL, time.Second, quiet)
		got := classifier.Classify(context.Background(), ClassifyInput{Text: "fire in the kitchen", MinutesToSLA: 500})
		if got.Priority != domain.PriorityHigh || got.Score != 95 {
			t.Fatalf("expected danger-keyword fallback, got %+v", got)
		}
	})

	t.Run("falls back when the service is unreachable", func(t *testing.T) {
		t.Parallel()
		classifier := NewClassifier("http://127.0.0.1:1", 200*time.Millisecond, quiet)
		got := classifier.Classify(context.Background(), ClassifyInput{Text: "towels", MinutesToSLA: 500})
		if got.Model != "rules_v1" {
			t.Fatalf("expected rules fallback, got %+v", got)
		}
	})
}

func TestClassifyType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		explicit string
		text     string
		items    []string
		want     domain.TicketType
	}{
		{name: "explicit type wins", explicit: "maintenance", text: "una cerveza bien fria", want: domain.TypeMaintenance},
		{name: "invalid explicit type is ignored", explicit: "laundry", text: "a glass of wine", want: domain.TypeBeverage},
		{name: "maintenance keyword beats beverage keyword", text: "the shower has no agua caliente", want: domain.TypeMaintenance},
		{name: "beverage keyword in item names", text: "", items: []string{"Jugo de Naranja"}, want: domain.TypeBeverage},
		{name: "defaults to food", text: "una pizza margarita", want: domain.TypeFood},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ClassifyType(tt.explicit, tt.text, tt.items); got != tt.want {
				t.Fatalf("ClassifyType(%q, %q, %v) = %s, want %s", tt.explicit, tt.text, tt.items, got, tt.want)
			}
		})
	}
}
