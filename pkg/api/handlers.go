package api

import (
	"net/http"
	"sort"
	"strconv"

	echo "github.com/labstack/echo/v5"

	"github.com/monument-sim/monument/pkg/engine"
	"github.com/monument-sim/monument/pkg/services"
)

const (
	defaultChatLength = 20
	agentSecretHeader = "X-Agent-Secret"
)

func (s *Server) createNamespaceHandler(c *echo.Context) error {
	ns := c.Param("ns")
	var body CreateNamespaceBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	err := s.adminService.CreateNamespace(c.Request().Context(), ns, services.CreateNamespaceRequest{
		Width:            body.Width,
		Height:           body.Height,
		ScoringInterval:  body.ScoringInterval,
		Epoch:            body.Epoch,
		VisibilityRadius: body.VisibilityRadius,
		PointsEnabled:    body.PointsEnabled,
	})
	if err != nil {
		return mapEngineError(err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"namespace": ns, "status": "created"})
}

func (s *Server) resetNamespaceHandler(c *echo.Context) error {
	ns := c.Param("ns")
	if err := s.adminService.ResetNamespace(c.Request().Context(), ns); err != nil {
		return mapEngineError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"namespace": ns, "status": "reset"})
}

func (s *Server) registerActorHandler(c *echo.Context) error {
	ns := c.Param("ns")
	var body RegisterActorBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	resp, err := s.adminService.RegisterActor(c.Request().Context(), ns, services.RegisterActorRequest{
		ActorID:            body.ActorID,
		X:                  body.X,
		Y:                  body.Y,
		Facing:             body.Facing,
		Scopes:             body.Scopes,
		CustomInstructions: body.CustomInstructions,
	})
	if err != nil {
		return mapEngineError(err)
	}
	return c.JSON(http.StatusCreated, RegisterActorResponseBody{ActorID: resp.ActorID, Secret: resp.Secret})
}

func (s *Server) statusHandler(c *echo.Context) error {
	ns := c.Param("ns")
	h, ok := s.registry.Get(ns)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "namespace not found")
	}
	snap := h.Engine.Snapshot()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"namespace":    ns,
		"supertick_id": snap.SuperTickID,
		"context_hash": snap.ContextHash,
		"phase":        snap.Phase,
		"epoch":        snap.Epoch,
	})
}

func (s *Server) contextHandler(c *echo.Context) error {
	ns := c.Param("ns")
	actorID := c.Param("id")
	secret := c.Request().Header.Get(agentSecretHeader)

	chatLen := defaultChatLength
	if v := c.QueryParam("chat_length"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			chatLen = n
		}
	}

	hud, hash, err := s.contextService.Fetch(c.Request().Context(), ns, actorID, secret, chatLen)
	if err != nil {
		return mapEngineError(err)
	}

	h, _ := s.registry.Get(ns)
	snap := h.Engine.Snapshot()
	return c.JSON(http.StatusOK, ContextResponse{
		Namespace:   ns,
		SuperTickID: snap.SuperTickID,
		ContextHash: hash,
		Phase:       string(snap.Phase),
		HUD:         hud,
	})
}

func (s *Server) actionHandler(c *echo.Context) error {
	ns := c.Param("ns")
	actorID := c.Param("id")
	secret := c.Request().Header.Get(agentSecretHeader)

	var body ActionRequestBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	resp, err := s.actionService.Submit(c.Request().Context(), ns, engine.ActionRequest{
		ActorID:     actorID,
		SuperTickID: body.SuperTickID,
		ContextHash: body.ContextHash,
		Secret:      secret,
		Action:      body.Action,
		LLMInput:    body.LLMInput,
		LLMOutput:   body.LLMOutput,
	})
	if err != nil {
		return mapEngineError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) replayAuditHandler(c *echo.Context) error {
	ns := c.Param("ns")
	var fromTick, toTick int64
	if v := c.QueryParam("from_tick"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid from_tick")
		}
		fromTick = n
	}
	if v := c.QueryParam("to_tick"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid to_tick")
		}
		toTick = n
	}

	rows, err := s.replayService.Audit(c.Request().Context(), ns, fromTick, toTick)
	if err != nil {
		return mapEngineError(err)
	}
	return c.JSON(http.StatusOK, rows)
}

func (s *Server) replayRebuildHandler(c *echo.Context) error {
	ns := c.Param("ns")
	toTick, err := strconv.ParseInt(c.QueryParam("to_tick"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "to_tick is required")
	}

	tiles, err := s.replayService.Rebuild(c.Request().Context(), ns, toTick)
	if err != nil {
		return mapEngineError(err)
	}

	out := make([]RebuiltTile, 0, len(tiles))
	for coord, color := range tiles {
		out = append(out, RebuiltTile{X: coord.X, Y: coord.Y, Color: color})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Y < out[j].Y
	})
	return c.JSON(http.StatusOK, RebuildResponse{Namespace: ns, ToTick: toTick, Tiles: out})
}

func (s *Server) scoringHandler(c *echo.Context) error {
	ns := c.Param("ns")
	var body ScoringRequestBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	err := s.adjudicationService.Submit(c.Request().Context(), ns, engine.ScoringRequest{
		SelectedTiles:        body.SelectedTiles,
		ContributionsByActor: body.ContributionsByActor,
		Rationale:            body.Rationale,
		Feedback:             body.Feedback,
	})
	if err != nil {
		return mapEngineError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "committed"})
}
