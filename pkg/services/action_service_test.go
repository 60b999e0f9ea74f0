package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monument-sim/monument/pkg/engine"
)

func TestActionService_Submit(t *testing.T) {
	reg := testRegistry(t)
	admin := NewAdminService(reg)
	actions := NewActionService(reg)

	require.NoError(t, admin.CreateNamespace(context.Background(), "field", CreateNamespaceRequest{Width: 10, Height: 10}))
	resp, err := admin.RegisterActor(context.Background(), "field", RegisterActorRequest{
		ActorID: "runner", X: 1, Y: 1, Scopes: []string{"MOVE"},
	})
	require.NoError(t, err)

	h, ok := reg.Get("field")
	require.True(t, ok)
	snap := h.Engine.Snapshot()

	out, err := actions.Submit(context.Background(), "field", engine.ActionRequest{
		ActorID:     "runner",
		SuperTickID: snap.SuperTickID,
		ContextHash: snap.ContextHash,
		Secret:      resp.Secret,
		Action:      "MOVE N",
	})
	require.NoError(t, err)
	assert.Equal(t, "accepted", out.Status)
}

func TestActionService_Submit_NamespaceNotFound(t *testing.T) {
	reg := testRegistry(t)
	actions := NewActionService(reg)

	_, err := actions.Submit(context.Background(), "ghost-ns", engine.ActionRequest{ActorID: "x"})
	require.ErrorIs(t, err, ErrNamespaceNotFound)
}
