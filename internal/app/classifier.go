package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/marianacarhol/reto-multiagentes-sub000/internal/domain"
)

// Classifier assigns a priority tier to a request, preferring the external
// scoring service and falling back to deterministic local rules when the
// service is unreachable or returns garbage.
type Classifier struct {
	client  *http.Client
	baseURL string
	logger  *log.Logger
}

func NewClassifier(baseURL string, timeout time.Duration, logger *log.Logger) *Classifier {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Classifier{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

type ClassifyInput struct {
	Text         string
	Domain       string
	VIP          bool
	RecentSpend  float64
	MinutesToSLA float64
}

type PriorityResult struct {
	Priority    domain.Priority
	Score       int
	NeedsReview bool
	Model       string
}

type predictRequest struct {
	Text     string  `json:"text"`
	Domain   string  `json:"domain"`
	VIP      int     `json:"vip"`
	Spend30d float64 `json:"spend30d"`
	EtaToSLA float64 `json:"eta_to_sla_min"`
}

type predictResponse struct {
	Priority    string             `json:"priority"`
	Score       float64            `json:"score"`
	Proba       map[string]float64 `json:"proba"`
	NeedsReview bool               `json:"needs_review"`
	Model       string             `json:"model"`
}

// Classify never fails: any scorer problem degrades to the local rules.
func (c *Classifier) Classify(ctx context.Context, in ClassifyInput) PriorityResult {
	if c.baseURL == "" {
		return fallbackPriority(in)
	}

	result, err := c.predict(ctx, in)
	if err != nil {
		c.logger.Printf("WARN: priority service unavailable, using fallback rules: %v", err)
		return fallbackPriority(in)
	}
	return result
}

func (c *Classifier) predict(ctx context.Context, in ClassifyInput) (PriorityResult, error) {
	vip := 0
	if in.VIP {
		vip = 1
	}
	body, err := json.Marshal(predictRequest{
		Text:     in.Text,
		Domain:   in.Domain,
		VIP:      vip,
		Spend30d: in.RecentSpend,
		EtaToSLA: in.MinutesToSLA,
	})
	if err != nil {
		return PriorityResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return PriorityResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return PriorityResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return PriorityResult{}, fmt.Errorf("priority service status %d", resp.StatusCode)
	}

	var decoded predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return PriorityResult{}, fmt.Errorf("decode priority response: %w", err)
	}

	priority := domain.Priority(decoded.Priority)
	switch priority {
	case domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh:
	default:
		return PriorityResult{}, fmt.Errorf("invalid priority %q", decoded.Priority)
	}

	return PriorityResult{
		Priority:    priority,
		Score:       int(decoded.Score),
		NeedsReview: decoded.NeedsReview,
		Model:       decoded.Model,
	}, nil
}

var dangerKeywords = []string{
	"leak", "smoke", "fire", "shock", "blood",
	"fuga", "humo", "fuego", "incendio", "sangre",
}

func fallbackPriority(in ClassifyInput) PriorityResult {
	text := strings.ToLower(in.Text)
	for _, kw := range dangerKeywords {
		if strings.Contains(text, kw) {
			return PriorityResult{Priority: domain.PriorityHigh, Score: 95, Model: "rules_v1"}
		}
	}
	if in.MinutesToSLA < 30 && in.VIP {
		return PriorityResult{Priority: domain.PriorityHigh, Score: 80, Model: "rules_v1"}
	}
	if in.MinutesToSLA < 30 {
		return PriorityResult{Priority: domain.PriorityMedium, Score: 65, Model: "rules_v1"}
	}
	return PriorityResult{Priority: domain.PriorityLow, Score: 30, Model: "rules_v1"}
}

var maintenanceKeywords = []string{
	"leak", "broken", "repair", "toilet", "shower", "plumb",
	"fuga", "goteo", "descompuesto", "reparar", "aire acondicionado",
	"clima", "foco", "luz", "televisor", "regadera", "agua caliente",
}

var beverageKeywords = []string{
	"drink", "beer", "wine", "coffee", "juice", "soda", "cocktail", "water",
	"bebida", "cerveza", "vino", "cafe", "café", "jugo", "refresco",
	"coctel", "agua mineral",
}

// ClassifyType derives the request type from an explicit field when given,
// otherwise from free text plus item names. Maintenance keywords win over
// beverage keywords; food is the default.
func ClassifyType(explicit, text string, itemNames []string) domain.TicketType {
	switch domain.TicketType(explicit) {
	case domain.TypeFood, domain.TypeBeverage, domain.TypeMaintenance:
		return domain.TicketType(explicit)
	}

	haystack := strings.ToLower(text + " " + strings.Join(itemNames, " "))
	for _, kw := range maintenanceKeywords {
		if strings.Contains(haystack, kw) {
			return domain.TypeMaintenance
		}
	}
	for _, kw := range beverageKeywords {
		if strings.Contains(haystack, kw) {
			return domain.TypeBeverage
		}
	}
	return domain.TypeFood
}
