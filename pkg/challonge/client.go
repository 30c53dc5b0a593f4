// Package challonge is a thin client for the Challonge REST API v1.
package challonge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://api.challonge.com/v1"

// APIError carries the HTTP status and message reported by Challonge.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("challonge api %d: %s", e.Status, e.Message)
}

type Tournament struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	URL               string `json:"full_challonge_url"`
	State             string `json:"state"`
	ParticipantsCount int    `json:"participants_count"`
}

type Participant struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Username    string `json:"username"`
}

// EffectiveName prefers the display name, falling back through name and
// username.
func (p *Participant) EffectiveName() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if p.Name != "" {
		return p.Name
	}
	if p.Username != "" {
		return p.Username
	}
	return fmt.Sprintf("Participant #%d", p.ID)
}

type Match struct {
	ID                 int64  `json:"id"`
	State              string `json:"state"`
	Player1ID          *int64 `json:"player1_id"`
	Player2ID          *int64 `json:"player2_id"`
	WinnerID           *int64 `json:"winner_id"`
	ScoresCSV          string `json:"scores_csv"`
	SuggestedPlayOrder int    `json:"suggested_play_order"`
}

// HasParticipant reports whether the given participant plays in this match.
func (m *Match) HasParticipant(id int64) bool {
	return (m.Player1ID != nil && *m.Player1ID == id) ||
		(m.Player2ID != nil && *m.Player2ID == id)
}

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SetBaseURL overrides the API endpoint, used by tests.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

func (c *Client) Tournament(slug string) (*Tournament, error) {
	var envelope struct {
		Tournament Tournament `json:"tournament"`
	}
	path := fmt.Sprintf("/tournaments/%s.json", url.PathEscape(slug))
	if err := c.do(http.MethodGet, path, nil, nil, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Tournament, nil
}

func (c *Client) Participants(slug string) ([]Participant, error) {
	var envelopes []struct {
		Participant Participant `json:"participant"`
	}
	path := fmt.Sprintf("/tournaments/%s/participants.json", url.PathEscape(slug))
	if err := c.do(http.MethodGet, path, nil, nil, &envelopes); err != nil {
		return nil, err
	}
	participants := make([]Participant, 0, len(envelopes))
	for _, e := range envelopes {
		participants = append(participants, e.Participant)
	}
	return participants, nil
}

// Matches lists bracket matches. state is one of open, pending, complete or
// all.
func (c *Client) Matches(slug, state string) ([]Match, error) {
	params := url.Values{}
	if state != "" && state != "all" {
		params.Set("state", state)
	}
	var envelopes []struct {
		Match Match `json:"match"`
	}
	path := fmt.Sprintf("/tournaments/%s/matches.json", url.PathEscape(slug))
	if err := c.do(http.MethodGet, path, params, nil, &envelopes); err != nil {
		return nil, err
	}
	matches := make([]Match, 0, len(envelopes))
	for _, e := range envelopes {
		matches = append(matches, e.Match)
	}
	return matches, nil
}

// ReportResult marks a bracket match as won with the given scores.
func (c *Client) ReportResult(slug string, matchID, winnerID int64, score string) (*Match, error) {
	body := map[string]interface{}{
		"match": map[string]interface{}{
			"winner_id":  winnerID,
			"scores_csv": score,
		},
	}
	var envelope struct {
		Match Match `json:"match"`
	}
	path := fmt.Sprintf("/tournaments/%s/matches/%d.json", url.PathEscape(slug), matchID)
	if err := c.do(http.MethodPut, path, nil, body, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Match, nil
}

func (c *Client) do(method, path string, params url.Values, body, out interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path+"?"+params.Encode(), reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &APIError{Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return "unreadable error body"
	}
	var parsed struct {
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(data, &parsed); err == nil && len(parsed.Errors) > 0 {
		msg := parsed.Errors[0]
		for _, e := range parsed.Errors[1:] {
			msg += "; " + e
		}
		return msg
	}
	return string(data)
}
