package trivia

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Question source response codes.
const (
	codeSuccess        = 0
	codeNoResults      = 1
	codeInvalidParam   = 2
	codeTokenNotFound  = 3
	codeTokenExhausted = 4
)

type Question struct {
	Prompt    string
	Correct   string
	Incorrect []string
	Type      string // "multiple" or "boolean"
}

// TokenStore persists per-guild continuation tokens. The token keeps the
// question source from repeating questions across fetches.
type TokenStore interface {
	GetTriviaToken(guildID string) (string, error)
	SetTriviaToken(guildID, token string) error
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenStore

	// RetryBackoff is the fixed wait before the single token-renewal retry.
	RetryBackoff time.Duration
}

func NewClient(baseURL string, tokens TokenStore) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         &http.Client{Timeout: 10 * time.Second},
		tokens:       tokens,
		RetryBackoff: 5 * time.Second,
	}
}

// FetchQuestions retrieves count questions for a category, attaching the
// guild's continuation token. On a token-invalid or token-exhausted answer it
// backs off, requests a fresh token and retries exactly once.
func (c *Client) FetchQuestions(ctx context.Context, guildID string, categoryID, count int) ([]Question, error) {
	token, err := c.tokens.GetTriviaToken(guildID)
	if err != nil {
		return nil, err
	}
	if token == "" {
		if token, err = c.renewToken(ctx, guildID); err != nil {
			return nil, err
		}
	}

	questions, code, err := c.fetch(ctx, categoryID, count, token)
	if err != nil {
		return nil, err
	}
	if code == codeSuccess {
		return questions, nil
	}
	if code != codeTokenNotFound && code != codeTokenExhausted {
		return nil, fmt.Errorf("question source refused request: code %d", code)
	}

	// Token went stale. Wait out the source's rate window, renew, retry once.
	log.Printf("[INFO] Trivia token for guild %s is stale (code %d), renewing", guildID, code)
	select {
	case <-time.After(c.RetryBackoff):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if token, err = c.renewToken(ctx, guildID); err != nil {
		return nil, err
	}
	questions, code, err = c.fetch(ctx, categoryID, count, token)
	if err != nil {
		return nil, err
	}
	if code != codeSuccess {
		return nil, fmt.Errorf("question source refused request after token renewal: code %d", code)
	}
	return questions, nil
}

func (c *Client) fetch(ctx context.Context, categoryID, count int, token string) ([]Question, int, error) {
	q := url.Values{}
	q.Set("amount", strconv.Itoa(count))
	if categoryID > 0 {
		q.Set("category", strconv.Itoa(categoryID))
	}
	if token != "" {
		q.Set("token", token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api.php?"+q.Encode(), nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch questions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("fetch questions: http %d", resp.StatusCode)
	}

	var parsed struct {
		ResponseCode int `json:"response_code"`
		Results      []struct {
			Type             string   `json:"type"`
			Question         string   `json:"question"`
			CorrectAnswer    string   `json:"correct_answer"`
			IncorrectAnswers []string `json:"incorrect_answers"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, 0, fmt.Errorf("decode questions: %w", err)
	}
	if parsed.ResponseCode != codeSuccess {
		return nil, parsed.ResponseCode, nil
	}

	questions := make([]Question, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		incorrect := make([]string, len(r.IncorrectAnswers))
		for i, a := range r.IncorrectAnswers {
			incorrect[i] = html.UnescapeString(a)
		}
		questions = append(questions, Question{
			Prompt:    html.UnescapeString(r.Question),
			Correct:   html.UnescapeString(r.CorrectAnswer),
			Incorrect: incorrect,
			Type:      r.Type,
		})
	}
	return questions, codeSuccess, nil
}

func (c *Client) renewToken(ctx context.Context, guildID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api_token.php?command=request", nil)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request token: http %d", resp.StatusCode)
	}

	var parsed struct {
		ResponseCode int    `json:"response_code"`
		Token        string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	if parsed.ResponseCode != codeSuccess || parsed.Token == "" {
		return "", fmt.Errorf("request token: code %d", parsed.ResponseCode)
	}

	if err := c.tokens.SetTriviaToken(guildID, parsed.Token); err != nil {
		return "", err
	}
	return parsed.Token, nil
}
