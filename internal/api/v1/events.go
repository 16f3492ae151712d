package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/waxseal/waxseal/internal/chain"
	"github.com/waxseal/waxseal/internal/domain"
	"github.com/waxseal/waxseal/internal/export"
	"github.com/waxseal/waxseal/internal/server/middleware"
)

type RecordEventInput struct {
	Strict bool `query:"strict" default:"false" doc:"Fail the request when the audit store is unavailable instead of accepting best-effort"`
	Body   struct {
		Action     string         `json:"action" minLength:"1" maxLength:"255" doc:"Action name, open taxonomy (e.g. LOGIN, TIER_CHANGE)"`
		ResourceID string         `json:"resourceId,omitempty" maxLength:"255" doc:"Identifier of the affected resource"`
		Details    map[string]any `json:"details,omitempty" doc:"Structured payload, canonicalized before hashing"`
		Severity   string         `json:"severity,omitempty" enum:"INFO,WARNING,CRITICAL" doc:"Defaults to INFO"`
		Actor      string         `json:"actor,omitempty" maxLength:"255" doc:"Acting user; only honored for service principals recording on behalf of a user"`
	}
}

type RecordEventOutput struct {
	Status int
	Body   struct {
		Recorded bool           `json:"recorded"`
		Entry    *export.Record `json:"entry,omitempty"`
	}
}

type ListEventsInput struct {
	Actor  string    `query:"actor" doc:"Filter by actor"`
	Action string    `query:"action" doc:"Filter by action"`
	From   time.Time `query:"from" doc:"Inclusive lower createdAt bound (RFC 3339)"`
	To     time.Time `query:"to" doc:"Inclusive upper createdAt bound (RFC 3339)"`
	Order  string    `query:"order" enum:"asc,desc" default:"desc" doc:"Creation order"`
	Limit  int       `query:"limit" minimum:"1" maximum:"500" default:"50" doc:"Max results"`
	Offset int       `query:"offset" minimum:"0" default:"0" doc:"Offset for pagination"`
}

type ListEventsOutput struct {
	Body struct {
		Entries []export.Record `json:"entries"`
		Total   int64           `json:"total"`
	}
}

type HeadEventOutput struct {
	Body *export.Record
}

// RegisterEventRoutes wires event recording and listing. Recording is
// best-effort by default: the caller's business action already happened and
// must not be rolled back because the audit store is down. strict=true opts
// into surfacing the failure.
func RegisterEventRoutes(api huma.API, reader EntryReader, appender Appender, recorder Recorder) {
	huma.Register(api, huma.Operation{
		OperationID:   "record-audit-event",
		Method:        http.MethodPost,
		Path:          "/audit/events",
		Summary:       "Record an audit event on the hash chain",
		Tags:          []string{"Audit"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *RecordEventInput) (*RecordEventOutput, error) {
		actor, ok := middleware.ActorFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("missing actor")
		}

		// Only service principals may record on behalf of another actor.
		if input.Body.Actor != "" {
			role, _ := middleware.RoleFromContext(ctx)
			if role != middleware.RoleService {
				return nil, huma.Error403Forbidden("only service principals may set actor")
			}
			actor = input.Body.Actor
		}

		ip, _ := middleware.RemoteIPFromContext(ctx)
		ua, _ := middleware.UserAgentFromContext(ctx)

		req := chain.AppendRequest{
			Actor:      actor,
			Action:     input.Body.Action,
			ResourceID: input.Body.ResourceID,
			Details:    input.Body.Details,
			Severity:   domain.Severity(input.Body.Severity),
			IPAddress:  ip,
			UserAgent:  ua,
		}

		out := &RecordEventOutput{Status: http.StatusCreated}

		if input.Strict {
			entry, err := appender.Append(ctx, req)
			if err != nil {
				if errors.Is(err, domain.ErrInvalidInput) {
					return nil, huma.Error422UnprocessableEntity("invalid audit event", err)
				}
				return nil, huma.Error503ServiceUnavailable("audit store unavailable", err)
			}
			rec, err := export.FromEntry(entry)
			if err != nil {
				return nil, huma.Error500InternalServerError("failed to render entry", err)
			}
			out.Body.Recorded = true
			out.Body.Entry = &rec
			return out, nil
		}

		entry := recorder.Record(ctx, req)
		if entry == nil {
			// Failure already logged and alerted; the business action stands.
			out.Status = http.StatusAccepted
			return out, nil
		}

		rec, err := export.FromEntry(entry)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to render entry", err)
		}
		out.Body.Recorded = true
		out.Body.Entry = &rec
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-audit-events",
		Method:      http.MethodGet,
		Path:        "/audit/events",
		Summary:     "List audit entries",
		Tags:        []string{"Audit"},
	}, func(ctx context.Context, input *ListEventsInput) (*ListEventsOutput, error) {
		filter := domain.EntryFilter{
			Actor:  input.Actor,
			Action: input.Action,
			From:   input.From,
			To:     input.To,
		}

		order := domain.OrderDesc
		if input.Order == "asc" {
			order = domain.OrderAsc
		}

		entries, err := reader.List(ctx, filter, order, input.Limit, input.Offset)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list entries", err)
		}

		total, err := reader.Count(ctx, filter)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to count entries", err)
		}

		records, err := export.FromEntries(entries)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to render entries", err)
		}

		resp := &ListEventsOutput{}
		resp.Body.Entries = records
		resp.Body.Total = total
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-audit-head",
		Method:      http.MethodGet,
		Path:        "/audit/events/head",
		Summary:     "Get the current chain tail entry",
		Description: "The newest entry by creation order. Its entryHash anchors the whole chain; external timestamping services can notarize it.",
		Tags:        []string{"Audit"},
	}, func(ctx context.Context, _ *struct{}) (*HeadEventOutput, error) {
		entry, err := reader.Latest(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("chain is empty")
			}
			return nil, huma.Error500InternalServerError("failed to read tail", err)
		}

		rec, err := export.FromEntry(entry)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to render entry", err)
		}

		return &HeadEventOutput{Body: &rec}, nil
	})
}
