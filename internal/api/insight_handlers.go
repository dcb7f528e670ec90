package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourname/inkjournal/internal"
	"github.com/yourname/inkjournal/internal/auth"
	"github.com/yourname/inkjournal/internal/insight"
	"github.com/yourname/inkjournal/internal/llm"
	"github.com/yourname/inkjournal/internal/response"
)

// --- Request Structs ---
type InsightRequest struct {
	Mode    string          `json:"mode"`
	Force   FlexBool        `json:"force"`
	Entries json.RawMessage `json:"entries,omitempty"`
}

// FlexBool accepts true, "true", "1" and 1. Anything else is false.
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*b = FlexBool(t)
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		*b = FlexBool(s == "true" || s == "1")
	case float64:
		*b = FlexBool(t == 1)
	default:
		*b = false
	}
	return nil
}

// ClientEntries decodes the optional entries array leniently: a malformed
// array yields nothing, and an entry whose date cannot be read is dropped.
// Entries without any date are stamped with now.
func (r *InsightRequest) ClientEntries(now time.Time) []internal.JournalEntry {
	if len(r.Entries) == 0 {
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(r.Entries, &raw); err != nil {
		return nil
	}
	out := make([]internal.JournalEntry, 0, len(raw))
	for _, item := range raw {
		var fields map[string]any
		if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
			continue
		}
		date, ok := entryDate(firstPresent(fields, "createdAt", "date"), now)
		if !ok {
			continue
		}
		out = append(out, internal.JournalEntry{
			Date: date,
			Mood: stringValue(firstPresent(fields, "mood", "moodEmoji")),
			Text: stringValue(firstPresent(fields, "content", "text")),
		})
	}
	return out
}

// firstPresent returns the first key whose value is set and not empty.
func firstPresent(fields map[string]any, keys ...string) any {
	for _, k := range keys {
		v, ok := fields[k]
		if !ok || v == nil || v == "" || v == false {
			continue
		}
		return v
	}
	return nil
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// Zone-less date-times are server-local; a bare date is UTC midnight.
var entryDateLayouts = []struct {
	layout string
	loc    *time.Location
}{
	{time.RFC3339Nano, time.UTC},
	{"2006-01-02T15:04:05.999999999", time.Local},
	{"2006-01-02", time.UTC},
}

func entryDate(v any, now time.Time) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return now, true
	case float64:
		return time.UnixMilli(int64(t)), true
	case string:
		s := strings.TrimSpace(t)
		for _, l := range entryDateLayouts {
			if d, err := time.ParseInLocation(l.layout, s, l.loc); err == nil {
				return d, true
			}
		}
	}
	return time.Time{}, false
}

// insightResponder writes the mode-specific answer for a finished or failed generation.
type insightResponder interface {
	succeeded(c *gin.Context, app App, res insight.Result)
	failed(c *gin.Context, app App, err error)
}

func responderFor(mode insight.Mode) insightResponder {
	if mode == insight.ModeFutureYou {
		return futureYouResponder{}
	}
	return weeklyResponder{}
}

// --- Handlers ---
func PostInsightsAI(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body InsightRequest
		if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			HandleError(c, app.Logger(), err, http.StatusBadRequest, response.BadRequest(devOnly(app, err.Error())))
			return
		}

		mode := insight.ParseMode(body.Mode)
		responder := responderFor(mode)
		defer func() {
			if r := recover(); r != nil {
				responder.failed(c, app, fmt.Errorf("insight handler panic: %v", r))
			}
		}()

		req := insight.Request{
			Mode:          mode,
			Force:         bool(body.Force),
			Caller:        auth.IdentityFrom(c),
			ClientEntries: body.ClientEntries(time.Now()),
		}
		// A client that disconnects must not abort a generation already paid for.
		ctx := context.WithoutCancel(c.Request.Context())
		res, err := app.Insights().Generate(ctx, req)
		if err != nil {
			responder.failed(c, app, err)
			return
		}
		if res.Outcome == insight.OutcomeNoEntries {
			HandleSuccess(c, app.Logger(), response.NoEntries())
			return
		}
		responder.succeeded(c, app, res)
	}
}

type weeklyResponder struct{}

func (weeklyResponder) succeeded(c *gin.Context, app App, res insight.Result) {
	HandleSuccess(c, app.Logger(), res.Weekly)
}

func (weeklyResponder) failed(c *gin.Context, app App, err error) {
	var le *llm.Error
	if errors.As(err, &le) {
		reason, details := upstreamReason(le)
		app.Logger().Warnw("weekly insight upstream failure", "request_id", c.GetString("request_id"), "reason", reason, "status", le.Status, "code", le.Code)
		HandleError(c, app.Logger(), err, http.StatusBadGateway, response.UpstreamFailed(devOnly(app, details)))
		return
	}
	HandleError(c, app.Logger(), err, http.StatusInternalServerError, response.Unexpected(devOnly(app, err.Error())))
}

type futureYouResponder struct{}

func (futureYouResponder) succeeded(c *gin.Context, app App, res insight.Result) {
	HandleSuccess(c, app.Logger(), res.FutureYou)
}

// failed never surfaces an error: the future-self view always gets a message.
func (futureYouResponder) failed(c *gin.Context, app App, err error) {
	app.Logger().Errorw("future-self handler failure, returning fallback", "request_id", c.GetString("request_id"), "error", err)
	HandleSuccess(c, app.Logger(), &internal.FutureYouMessage{FutureYouMessage: insight.FallbackFutureYouMessage})
}

// upstreamReason maps an adapter failure to an internal reason code and a
// developer-facing detail string.
func upstreamReason(le *llm.Error) (string, string) {
	switch {
	case le.Kind == llm.KindMissingCredential:
		return "missing_api_key", "OPENAI_API_KEY missing"
	case le.Status == http.StatusUnauthorized || le.Status == http.StatusForbidden:
		return "auth_error", "OpenAI authentication error"
	case le.Status == http.StatusNotFound:
		return "model_not_found", "OpenAI model not found"
	case le.Kind == llm.KindRateLimited:
		return "rate_limit", "OpenAI rate limit"
	case le.Kind == llm.KindNetwork:
		return "network_error", "OpenAI network error"
	case le.Kind.IsParse():
		return "parse_error", le.Message
	default:
		return "openai_error", le.Message
	}
}

func devOnly(app App, details string) string {
	if app.Config().IsProduction() {
		return ""
	}
	return details
}
