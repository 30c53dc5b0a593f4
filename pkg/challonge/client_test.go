package challonge

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("test-key")
	c.SetBaseURL(srv.URL)
	return c
}

func TestTournament(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tournaments/spring-cup.json" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("api_key"); got != "test-key" {
			t.Errorf("api_key = %q, want test-key", got)
		}
		io.WriteString(w, `{"tournament":{"id":5,"name":"Spring Cup","state":"underway","full_challonge_url":"https://challonge.com/spring-cup","participants_count":8}}`)
	})

	tournament, err := client.Tournament("spring-cup")
	if err != nil {
		t.Fatalf("Tournament: %v", err)
	}
	if tournament.Name != "Spring Cup" || tournament.State != "underway" {
		t.Errorf("got %+v", tournament)
	}
	if tournament.ParticipantsCount != 8 {
		t.Errorf("participants_count = %d, want 8", tournament.ParticipantsCount)
	}
}

func TestParticipantsUnwrapsEnvelopes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"participant":{"id":11,"name":"TNC"}},{"participant":{"id":22,"name":"BTK"}}]`)
	})

	participants, err := client.Participants("spring-cup")
	if err != nil {
		t.Fatalf("Participants: %v", err)
	}
	if len(participants) != 2 || participants[0].ID != 11 || participants[1].Name != "BTK" {
		t.Errorf("got %+v", participants)
	}
}

func TestMatchesStateFilter(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("state"); got != "open" {
			t.Errorf("state = %q, want open", got)
		}
		io.WriteString(w, `[{"match":{"id":101,"state":"open","player1_id":11,"player2_id":22}}]`)
	})

	matches, err := client.Matches("spring-cup", "open")
	if err != nil {
		t.Fatalf("Matches: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if !matches[0].HasParticipant(11) || !matches[0].HasParticipant(22) {
		t.Errorf("match players not decoded: %+v", matches[0])
	}
	if matches[0].HasParticipant(33) {
		t.Error("HasParticipant(33) must be false")
	}
}

func TestReportResult(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		if r.URL.Path != "/tournaments/spring-cup/matches/101.json" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body struct {
			Match struct {
				WinnerID  int64  `json:"winner_id"`
				ScoresCSV string `json:"scores_csv"`
			} `json:"match"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Match.WinnerID != 22 || body.Match.ScoresCSV != "2-1" {
			t.Errorf("body = %+v", body.Match)
		}
		io.WriteString(w, `{"match":{"id":101,"state":"complete","winner_id":22,"scores_csv":"2-1"}}`)
	})

	match, err := client.ReportResult("spring-cup", 101, 22, "2-1")
	if err != nil {
		t.Fatalf("ReportResult: %v", err)
	}
	if match.State != "complete" || match.WinnerID == nil || *match.WinnerID != 22 {
		t.Errorf("got %+v", match)
	}
}

func TestAPIErrorDecoding(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"errors":["Tournament not found","Check the slug"]}`)
	})

	_, err := client.Tournament("missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Status != 404 {
		t.Errorf("status = %d, want 404", apiErr.Status)
	}
	if apiErr.Message != "Tournament not found; Check the slug" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestAPIErrorUnparsedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "upstream exploded")
	})

	_, err := client.Tournament("spring-cup")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Message != "upstream exploded" {
		t.Errorf("message = %q", apiErr.Message)
	}
}
