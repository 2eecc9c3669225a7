package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/votis/walletd/internal/chains"
	"github.com/votis/walletd/internal/derive"
	walleterr "github.com/votis/walletd/pkg/errors"
)

func (s *Server) handleListChains(c *gin.Context) {
	var identifiers []string
	if c.Query("evm") == "true" {
		identifiers = s.registry.ListEVMCompatible()
	} else {
		identifiers = s.registry.List()
	}
	c.JSON(http.StatusOK, gin.H{"chains": identifiers})
}

// handleResolveChain resolves a symbol, alias, or name. A purely numeric
// identifier is treated as an EVM chain id and never misses: unknown ids
// synthesize a fallback spec.
func (s *Server) handleResolveChain(c *gin.Context) {
	spec, err := s.resolveSpec(c.Param("identifier"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, spec)
}

func (s *Server) resolveSpec(identifier string) (chains.Spec, error) {
	if id, err := strconv.ParseUint(identifier, 10, 64); err == nil {
		return s.registry.ResolveByChainID(id), nil
	}
	return s.registry.Resolve(identifier)
}

type addressPreviewRequest struct {
	Mnemonic   string `json:"mnemonic"`
	Passphrase string `json:"passphrase"`
}

// handleAddressPreview derives the address the chain's path produces
// for a supplied mnemonic. POST keeps the mnemonic out of URLs and
// access logs.
func (s *Server) handleAddressPreview(c *gin.Context) {
	identifier := c.Param("identifier")

	var req addressPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, walleterr.Wrap(walleterr.ErrValidation, "parsing request body"))
		return
	}

	spec, err := s.resolveSpec(identifier)
	if err != nil {
		writeError(c, err)
		return
	}

	key, err := derive.FromMnemonic(req.Mnemonic, req.Passphrase)
	if err != nil {
		writeError(c, err)
		return
	}

	preview, err := key.Preview(spec)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}
