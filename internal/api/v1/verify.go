package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/waxseal/waxseal/internal/chain"
	"github.com/waxseal/waxseal/internal/server/middleware"
)

type VerifyInput struct {
	Body struct {
		Limit int `json:"limit,omitempty" minimum:"0" doc:"Check at most this many entries from the start of the chain; 0 checks all"`
	}
}

type VerifyOutput struct {
	Body *chain.Report
}

// RegisterVerifyRoutes wires the administrative verify trigger. A broken
// chain comes back as a 200 with valid=false and the offending entry id; a
// store read failure is a 503. The two outcomes are never conflated.
func RegisterVerifyRoutes(api huma.API, verifier Verifier) {
	huma.Register(api, huma.Operation{
		OperationID: "verify-audit-chain",
		Method:      http.MethodPost,
		Path:        "/audit/verify",
		Summary:     "Replay the hash chain and certify integrity",
		Tags:        []string{"Audit"},
	}, func(ctx context.Context, input *VerifyInput) (*VerifyOutput, error) {
		role, ok := middleware.RoleFromContext(ctx)
		if !ok || role != middleware.RoleAdmin {
			return nil, huma.Error403Forbidden("admin role required")
		}

		report, err := verifier.Verify(ctx, input.Body.Limit)
		if err != nil {
			return nil, huma.Error503ServiceUnavailable("could not read the chain", err)
		}

		return &VerifyOutput{Body: report}, nil
	})
}
