package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/votis/walletd/internal/executor"
	walleterr "github.com/votis/walletd/pkg/errors"
)

// errorBody is the JSON error shape. It carries the code and an opaque
// message only; upstream responses and secrets are never echoed.
type errorBody struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
	Retryable  bool   `json:"retryable,omitempty"`
}

func writeError(c *gin.Context, err error) {
	body := errorBody{
		Code:      walleterr.Code(err),
		Message:   err.Error(),
		Retryable: walleterr.IsRetryable(err),
	}

	var we *walleterr.WalletError
	if walleterr.As(err, &we) {
		body.Suggestion = we.Suggestion
	}

	c.JSON(walleterr.HTTPStatus(err), gin.H{"error": body})
}

// writeOutcome maps a signing outcome to a response. Fail-fast errors
// surface their own status; a retry-eligible failure becomes 202 when
// the work was queued, 503 when it was not.
func writeOutcome(c *gin.Context, outcome executor.Outcome) {
	if outcome.Err == nil {
		c.JSON(http.StatusOK, gin.H{
			"activity_id": outcome.ActivityID,
			"status":      outcome.Status,
			"result":      outcome.Result,
		})
		return
	}

	if outcome.Queued {
		c.JSON(http.StatusAccepted, gin.H{
			"status": "queued",
			"error": errorBody{
				Code:      walleterr.Code(outcome.Err),
				Message:   outcome.Err.Error(),
				Retryable: true,
			},
		})
		return
	}

	if walleterr.IsRetryable(outcome.Err) {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": errorBody{
				Code:      walleterr.Code(outcome.Err),
				Message:   outcome.Err.Error(),
				Retryable: true,
			},
		})
		return
	}

	writeError(c, outcome.Err)
}
