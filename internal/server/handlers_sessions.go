package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/votis/walletd/internal/session"
	walleterr "github.com/votis/walletd/pkg/errors"
)

type createSessionRequest struct {
	OrganizationID  string `json:"organization_id"`
	UserID          string `json:"user_id"`
	TargetPublicKey string `json:"target_public_key"`
}

// sessionResponse is the non-secret session view plus whichever
// credential the purpose hands back to the caller.
type sessionResponse struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Purpose        string    `json:"purpose"`
	UserID         string    `json:"user_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`

	// Token is returned for read-only sessions.
	Token string `json:"token,omitempty"`
	// CredentialBundle is returned, still encrypted, for client
	// read-write sessions.
	CredentialBundle string `json:"credential_bundle,omitempty"`
	// SignerPublicKey identifies a server read-write session's key.
	// The private half never leaves the process.
	SignerPublicKey string `json:"signer_public_key,omitempty"`
}

func (s *Server) handleCreateReadOnlySession(c *gin.Context) {
	req, ok := s.bindSessionRequest(c)
	if !ok {
		return
	}

	sess, err := s.broker.ReadOnly(c.Request.Context(), req.OrganizationID, req.UserID)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := sessionView(sess)
	resp.Token = sess.Credentials.Token
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCreateClientSession(c *gin.Context) {
	req, ok := s.bindSessionRequest(c)
	if !ok {
		return
	}

	sess, err := s.broker.ReadWriteForClient(c.Request.Context(), req.OrganizationID, req.UserID, req.TargetPublicKey)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := sessionView(sess)
	resp.CredentialBundle = sess.Credentials.Bundle
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCreateServerSession(c *gin.Context) {
	req, ok := s.bindSessionRequest(c)
	if !ok {
		return
	}

	sess, err := s.broker.ReadWriteForServer(c.Request.Context(), req.OrganizationID, req.UserID)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := sessionView(sess)
	if sess.Credentials.Signer != nil {
		resp.SignerPublicKey = sess.Credentials.Signer.PublicKeyHex()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleInvalidateSession(c *gin.Context) {
	organizationID := c.Query("organization_id")
	if organizationID == "" {
		organizationID = s.organizationID
	}

	purpose, err := parsePurpose(c.Query("purpose"))
	if err != nil {
		writeError(c, err)
		return
	}

	if !s.broker.Invalidate(organizationID, purpose) {
		writeError(c, walleterr.WithDetails(walleterr.ErrSessionNotFound, map[string]string{
			"organization_id": organizationID,
			"purpose":         string(purpose),
		}))
		return
	}

	s.logger.Info("session invalidated",
		zap.String("organization_id", organizationID),
		zap.String("purpose", string(purpose)))
	c.Status(http.StatusNoContent)
}

// bindSessionRequest parses the body and fills in the default
// organization. An empty body is fine for server-side sessions.
func (s *Server) bindSessionRequest(c *gin.Context) (createSessionRequest, bool) {
	var req createSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, walleterr.Wrap(walleterr.ErrValidation, "parsing request body"))
			return req, false
		}
	}
	if req.OrganizationID == "" {
		req.OrganizationID = s.organizationID
	}
	return req, true
}

func sessionView(sess *session.Session) sessionResponse {
	return sessionResponse{
		ID:             sess.ID,
		OrganizationID: sess.Key.OrganizationID,
		Purpose:        string(sess.Key.Purpose),
		UserID:         sess.UserID,
		CreatedAt:      sess.CreatedAt,
		ExpiresAt:      sess.ExpiresAt,
	}
}

func parsePurpose(raw string) (session.Purpose, error) {
	switch raw {
	case "readonly", string(session.PurposeReadOnly):
		return session.PurposeReadOnly, nil
	case "client", string(session.PurposeReadWriteClient):
		return session.PurposeReadWriteClient, nil
	case "server", string(session.PurposeReadWriteServer):
		return session.PurposeReadWriteServer, nil
	default:
		return "", walleterr.WithSuggestion(
			walleterr.Wrap(walleterr.ErrValidation, "unknown session purpose"),
			"use readonly, client, or server")
	}
}
