package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/veralingo/veralingo-backend/internal/logger"
	"github.com/veralingo/veralingo-backend/internal/types"
	"github.com/veralingo/veralingo-backend/internal/utils"
)

// AdviceClient calls the external AI endpoint that writes the short
// motivational message. It is opaque to this service: any model details live
// behind the HTTP contract.
type AdviceClient interface {
	Generate(ctx context.Context, snapshot *LearnerSnapshot) (*AdviceResult, error)
}

// LearnerSnapshot is the normalized payload sent to the advice endpoint.
type LearnerSnapshot struct {
	Skills         map[types.Skill]types.SkillMastery `json:"skills"`
	Courses        []types.CourseProgress             `json:"courses"`
	Flashcards     types.FlashcardMastery             `json:"flashcards"`
	WeeklyProgress float64                            `json:"weekly_progress_pct"`
	ConsistencyPct float64                            `json:"consistency_pct"`
	CurrentStreak  int                                `json:"current_streak"`
	DataPoints     int                                `json:"data_points"`
}

type AdviceResult struct {
	Message string
	Tone    string
}

type adviceHTTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Tone    string `json:"tone"`
}

type adviceClient struct {
	httpClient *http.Client
	log        *logger.Logger
	apiKey     string
	endpoint   string
}

func NewAdviceClient(log *logger.Logger) (AdviceClient, error) {
	serviceLog := log.With("service", "AdviceClient")
	endpoint := utils.GetEnv("ADVICE_API_URL", "", log)
	if endpoint == "" {
		return nil, fmt.Errorf("ADVICE_API_URL is not set")
	}
	apiKey := utils.GetEnv("ADVICE_API_KEY", "", log)
	timeout := utils.GetEnvAsDuration("ADVICE_TIMEOUT", 30*time.Second, log)
	return &adviceClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log:      serviceLog,
		apiKey:   apiKey,
		endpoint: endpoint,
	}, nil
}

func (c *adviceClient) Generate(ctx context.Context, snapshot *LearnerSnapshot) (*AdviceResult, error) {
	body, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("advice request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read advice response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("advice endpoint returned %d", resp.StatusCode)
	}

	var parsed adviceHTTPResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode advice response: %w", err)
	}
	if !parsed.Success || parsed.Message == "" {
		return nil, fmt.Errorf("advice endpoint reported failure")
	}
	return &AdviceResult{Message: parsed.Message, Tone: parsed.Tone}, nil
}
