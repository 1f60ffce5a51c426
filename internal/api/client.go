// Package api is the single point of contact with the ReMission
// backend. Every operation takes domain inputs and returns either a
// typed payload or a *Failure from the taxonomy in errors.go.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/andrewtitoo/ReMissionCapstone/internal/model"
)

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = "http://localhost:5000"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    cfg.Timeout,
		httpClient: httpClient,
	}
}

// ProvisionIdentity asks the backend to assign a fresh anonymous
// identity.
func (c *Client) ProvisionIdentity(ctx context.Context) (string, error) {
	const op = "provision-identity"
	raw, err := c.do(ctx, op, http.MethodPost, "/api/auto-assign-user", map[string]any{})
	if err != nil {
		return "", err
	}
	userID := strings.TrimSpace(gjson.GetBytes(raw, "user_id").String())
	if userID == "" {
		return "", fail(op, KindMalformed, "response missing user_id", nil)
	}
	return userID, nil
}

// ValidateIdentity checks a user-supplied identity against the backend.
func (c *Client) ValidateIdentity(ctx context.Context, id string) error {
	const op = "validate-identity"
	id = strings.TrimSpace(id)
	if id == "" {
		return fail(op, KindInvalidIdentity, "identity is empty", nil)
	}
	_, err := c.do(ctx, op, http.MethodGet, "/api/validate-user/"+url.PathEscape(id), nil)
	if IsKind(err, KindNotFound) {
		return fail(op, KindInvalidIdentity, "identity unknown to the backend", nil)
	}
	return err
}

// FetchLogs returns the user's log entries in server-supplied order.
// Callers must re-sort by timestamp before aggregating. An empty result
// set surfaces as a NoData failure, not as entries.
func (c *Client) FetchLogs(ctx context.Context, id string) ([]model.SymptomLogEntry, error) {
	const op = "fetch-logs"
	raw, err := c.do(ctx, op, http.MethodGet, "/api/symptom-logs?user_id="+url.QueryEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var records []logRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fail(op, KindMalformed, "response is not a log array", err)
	}
	if len(records) == 0 {
		return nil, fail(op, KindNoData, "no logs recorded yet", nil)
	}

	entries := make([]model.SymptomLogEntry, 0, len(records))
	for _, rec := range records {
		entry, err := rec.toEntry()
		if err != nil {
			return nil, fail(op, KindMalformed, "log record has an invalid field", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// SubmitLog validates the entry locally and posts it. The server
// remains the authority on acceptance.
func (c *Client) SubmitLog(ctx context.Context, id string, entry model.SymptomLogEntry) error {
	const op = "submit-log"
	if err := ValidateEntry(entry); err != nil {
		return fail(op, KindRejected, err.Error(), nil)
	}

	body := map[string]any{
		"user_id":         id,
		"pain_level":      entry.PainLevel,
		"stress_level":    entry.StressLevel,
		"sleep_hours":     entry.SleepHours,
		"exercise_done":   entry.ExerciseDone,
		"took_medication": entry.TookMedication,
		"flare_up":        entry.FlareUp,
	}
	if len(entry.ExerciseTypes) > 0 {
		// The backend stores a single comma-joined column; the array
		// form is kept alongside for newer revisions.
		body["exercise_type"] = strings.Join(entry.ExerciseTypes, ",")
		body["exercise_types"] = entry.ExerciseTypes
	}
	if !entry.LoggedAt.IsZero() {
		body["logged_at"] = entry.LoggedAt.UTC().Format(time.RFC3339)
	}

	_, err := c.do(ctx, op, http.MethodPost, "/api/log-symptoms", body)
	return err
}

// FetchInsightSummary retrieves the CHIIP analysis for the user and
// normalizes the two response shapes observed across backend revisions
// into one.
func (c *Client) FetchInsightSummary(ctx context.Context, id string) (model.InsightSummary, error) {
	const op = "fetch-insight-summary"
	raw, err := c.do(ctx, op, http.MethodPost, "/api/bot-analysis", map[string]any{"user_id": id})
	if err != nil {
		if IsKind(err, KindNotFound) {
			// The analysis endpoint 404s when the user has no logs;
			// that is an empty state, not an unknown identity.
			return model.InsightSummary{}, fail(op, KindNoData, "no logs available for analysis", nil)
		}
		return model.InsightSummary{}, err
	}

	summary := model.InsightSummary{
		Classification: strings.TrimSpace(gjson.GetBytes(raw, "classification").String()),
	}
	if insights := gjson.GetBytes(raw, "insights"); insights.IsArray() {
		for _, item := range insights.Array() {
			if text := strings.TrimSpace(item.String()); text != "" {
				summary.Insights = append(summary.Insights, text)
			}
		}
	}
	summary.SummaryText = strings.TrimSpace(gjson.GetBytes(raw, "analysis_summary").String())
	if summary.SummaryText == "" && len(summary.Insights) > 0 {
		summary.SummaryText = strings.Join(summary.Insights, " ")
	}
	if summary.SummaryText == "" && len(summary.Insights) == 0 {
		return model.InsightSummary{}, fail(op, KindMalformed, "response carries neither analysis_summary nor insights", nil)
	}
	return summary, nil
}

// SendBotMessage posts one free-text turn to CHIIP and returns the
// reply. Blank input is rejected before any network round-trip.
func (c *Client) SendBotMessage(ctx context.Context, id string, text string) (string, error) {
	const op = "send-bot-message"
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fail(op, KindRejected, "message text is empty", nil)
	}

	raw, err := c.do(ctx, op, http.MethodPost, "/api/bot-response", map[string]any{
		"user_id": id,
		"message": text,
	})
	if err != nil {
		return "", err
	}
	reply := strings.TrimSpace(gjson.GetBytes(raw, "response").String())
	if reply == "" {
		return "", fail(op, KindMalformed, "response missing reply text", nil)
	}
	return reply, nil
}

// do performs one request and maps transport and HTTP-level failures
// into the taxonomy. A nil payload sends no body.
func (c *Client) do(ctx context.Context, op string, method string, path string, payload any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fail(op, KindMalformed, "encode request body", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fail(op, KindMalformed, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fail(op, KindServiceUnavailable, "backend unreachable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fail(op, KindServiceUnavailable, "read response", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return respBody, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, fail(op, KindNotFound, serverMessage(respBody), httpStatusError(resp.StatusCode, respBody))
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, fail(op, KindRejected, serverMessage(respBody), httpStatusError(resp.StatusCode, respBody))
	case resp.StatusCode >= 500:
		return nil, fail(op, KindServiceUnavailable, "backend error", httpStatusError(resp.StatusCode, respBody))
	default:
		return nil, fail(op, KindMalformed, fmt.Sprintf("unexpected status %d", resp.StatusCode), httpStatusError(resp.StatusCode, respBody))
	}
}

func httpStatusError(status int, body []byte) error {
	return fmt.Errorf("status=%d body=%s", status, strings.TrimSpace(string(body)))
}

// serverMessage pulls the human-readable error the backend attaches, if
// any.
func serverMessage(body []byte) string {
	for _, key := range []string{"error", "message"} {
		if msg := strings.TrimSpace(gjson.GetBytes(body, key).String()); msg != "" {
			return msg
		}
	}
	return "request refused"
}
