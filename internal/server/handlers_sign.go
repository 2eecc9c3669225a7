package server

import (
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/votis/walletd/internal/custody"
	"github.com/votis/walletd/internal/stamp"
	walleterr "github.com/votis/walletd/pkg/errors"
)

// maxOperationBody bounds inbound stamped bodies.
const maxOperationBody = 1 << 20

type operation struct {
	name         string
	activityType string
}

var (
	opSignTransaction       = operation{name: "sign-transaction", activityType: custody.ActivityTypeSignTransaction}
	opSignRawPayload        = operation{name: "sign-payload", activityType: custody.ActivityTypeSignRawPayload}
	opCreateAuthenticator   = operation{name: "create-authenticator", activityType: custody.ActivityTypeCreateAuthenticator}
	opCreateWallet          = operation{name: "create-wallet", activityType: custody.ActivityTypeCreateWallet}
	opCreateSubOrganization = operation{name: "signup", activityType: custody.ActivityTypeCreateSubOrganization}
)

// handleOperation submits one pre-stamped operation. The stamped body is
// the request body verbatim; the stamp arrives in X-Stamp or
// X-Stamp-WebAuthn, which also selects the auth mode forwarded upstream.
func (s *Server) handleOperation(op operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		authMode, encodedStamp, err := stampFromHeaders(c)
		if err != nil {
			writeError(c, err)
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxOperationBody))
		if err != nil {
			writeError(c, walleterr.Wrap(walleterr.ErrValidation, "reading request body"))
			return
		}

		outcome := s.executor.Execute(c.Request.Context(), op.activityType, body, encodedStamp, authMode)

		s.logger.Info("operation handled",
			zap.String("operation", op.name),
			zap.String("auth_mode", string(authMode)),
			zap.Bool("queued", outcome.Queued),
			zap.String("error_code", errorCodeOrEmpty(outcome.Err)))

		writeOutcome(c, outcome)
	}
}

// stampFromHeaders picks the stamp header. The WebAuthn header wins when
// both are present: a client-forwarded stamp means the client holds the
// credential, and the server must not substitute its own.
func stampFromHeaders(c *gin.Context) (stamp.AuthMode, string, error) {
	if v := c.GetHeader(stamp.HeaderClient); v != "" {
		return stamp.AuthModeClient, v, nil
	}
	if v := c.GetHeader(stamp.HeaderAPIKey); v != "" {
		return stamp.AuthModeAPIKey, v, nil
	}
	return "", "", walleterr.WithSuggestion(
		walleterr.Wrap(walleterr.ErrValidation, "missing stamp header"),
		"supply X-Stamp or X-Stamp-WebAuthn")
}

func errorCodeOrEmpty(err error) string {
	if err == nil {
		return ""
	}
	return walleterr.Code(err)
}
