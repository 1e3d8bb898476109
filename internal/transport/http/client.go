package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"staar-quiz-service/internal/domain"
)

// Client talks to a remote question store. It satisfies app.QuestionBackend so a local
// session can play against a server.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *Client) ListPublicQuestions(ctx context.Context) ([]domain.PublicQuestion, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/questions", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get questions: unexpected status %d", resp.StatusCode)
	}
	var questions []domain.PublicQuestion
	if err := json.NewDecoder(resp.Body).Decode(&questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return questions, nil
}

func (c *Client) CheckAnswer(ctx context.Context, questionID, selectedOption int) (domain.CheckResult, error) {
	body, err := json.Marshal(checkRequest{QuestionID: &questionID, SelectedOption: &selectedOption})
	if err != nil {
		return domain.CheckResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/check", bytes.NewReader(body))
	if err != nil {
		return domain.CheckResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.CheckResult{}, fmt.Errorf("check answer: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return domain.CheckResult{}, fmt.Errorf("question %d: %w", questionID, domain.ErrQuestionNotFound)
	case http.StatusServiceUnavailable:
		return domain.CheckResult{}, domain.ErrStoreUnavailable
	default:
		var e errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return domain.CheckResult{}, fmt.Errorf("check answer: status %d: %s", resp.StatusCode, e.Error)
	}

	var result domain.CheckResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.CheckResult{}, fmt.Errorf("decode check result: %w", err)
	}
	return result, nil
}
