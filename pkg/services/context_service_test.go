package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monument-sim/monument/pkg/engine"
)

func TestContextService_Fetch(t *testing.T) {
	reg := testRegistry(t)
	admin := NewAdminService(reg)
	ctxSvc := NewContextService(reg, nil)

	require.NoError(t, admin.CreateNamespace(context.Background(), "hud-ns", CreateNamespaceRequest{Width: 8, Height: 8}))
	resp, err := admin.RegisterActor(context.Background(), "hud-ns", RegisterActorRequest{ActorID: "observer", X: 0, Y: 0})
	require.NoError(t, err)

	hud, hash, err := ctxSvc.Fetch(context.Background(), "hud-ns", "observer", resp.Secret, 10)
	require.NoError(t, err)
	assert.NotNil(t, hud)
	assert.NotEmpty(t, hash)
}

func TestContextService_Fetch_WrongSecret(t *testing.T) {
	reg := testRegistry(t)
	admin := NewAdminService(reg)
	ctxSvc := NewContextService(reg, nil)

	require.NoError(t, admin.CreateNamespace(context.Background(), "hud-ns2", CreateNamespaceRequest{Width: 8, Height: 8}))
	_, err := admin.RegisterActor(context.Background(), "hud-ns2", RegisterActorRequest{ActorID: "observer", X: 0, Y: 0})
	require.NoError(t, err)

	_, _, err = ctxSvc.Fetch(context.Background(), "hud-ns2", "observer", "wrong-secret", 10)
	require.ErrorIs(t, err, engine.ErrAuthFailed)
}

func TestContextService_Fetch_UnknownActor(t *testing.T) {
	reg := testRegistry(t)
	admin := NewAdminService(reg)
	ctxSvc := NewContextService(reg, nil)

	require.NoError(t, admin.CreateNamespace(context.Background(), "hud-ns3", CreateNamespaceRequest{Width: 8, Height: 8}))

	_, _, err := ctxSvc.Fetch(context.Background(), "hud-ns3", "ghost", "whatever", 10)
	require.ErrorIs(t, err, engine.ErrUnknownActor)
}

func TestContextService_Fetch_NamespaceNotFound(t *testing.T) {
	reg := testRegistry(t)
	ctxSvc := NewContextService(reg, nil)

	_, _, err := ctxSvc.Fetch(context.Background(), "nope", "actor", "secret", 10)
	require.ErrorIs(t, err, ErrNamespaceNotFound)
}
