package mcp

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthContextFunc_NoTokenConfigured(t *testing.T) {
	srv := NewServer(&ToolDeps{Sources: NewRegistry()}, Config{Listen: ":0"})
	fn := srv.authContextFunc()

	req := httptest.NewRequest("POST", "/mcp", nil)
	ctx := fn(context.Background(), req)
	assert.False(t, denied(ctx))
}

func TestAuthContextFunc_ValidBearer(t *testing.T) {
	srv := NewServer(&ToolDeps{Sources: NewRegistry()}, Config{Listen: ":0", AuthToken: "secret"})
	fn := srv.authContextFunc()

	req := httptest.NewRequest("POST", "/mcp", nil)
	req.Header.Set("Authorization", "Bearer secret")
	ctx := fn(context.Background(), req)
	assert.False(t, denied(ctx))
}

func TestAuthContextFunc_BearerCaseInsensitive(t *testing.T) {
	srv := NewServer(&ToolDeps{Sources: NewRegistry()}, Config{Listen: ":0", AuthToken: "secret"})
	fn := srv.authContextFunc()

	req := httptest.NewRequest("POST", "/mcp", nil)
	req.Header.Set("Authorization", "bearer secret")
	ctx := fn(context.Background(), req)
	assert.False(t, denied(ctx))
}

func TestAuthContextFunc_WrongToken(t *testing.T) {
	srv := NewServer(&ToolDeps{Sources: NewRegistry()}, Config{Listen: ":0", AuthToken: "secret"})
	fn := srv.authContextFunc()

	req := httptest.NewRequest("POST", "/mcp", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	ctx := fn(context.Background(), req)
	assert.True(t, denied(ctx))
}

func TestAuthContextFunc_MissingHeader(t *testing.T) {
	srv := NewServer(&ToolDeps{Sources: NewRegistry()}, Config{Listen: ":0", AuthToken: "secret"})
	fn := srv.authContextFunc()

	req := httptest.NewRequest("POST", "/mcp", nil)
	ctx := fn(context.Background(), req)
	assert.True(t, denied(ctx))
}

func TestAuthContextFunc_MalformedHeader(t *testing.T) {
	srv := NewServer(&ToolDeps{Sources: NewRegistry()}, Config{Listen: ":0", AuthToken: "secret"})
	fn := srv.authContextFunc()

	req := httptest.NewRequest("POST", "/mcp", nil)
	req.Header.Set("Authorization", "secret")
	ctx := fn(context.Background(), req)
	assert.True(t, denied(ctx))
}

func TestNewServer(t *testing.T) {
	deps := &ToolDeps{Sources: NewRegistry(), PageSize: 10}
	srv := NewServer(deps, Config{Listen: ":8080"})
	assert.NotNil(t, srv)
	assert.Equal(t, ":8080", srv.cfg.Listen)
	assert.NotNil(t, srv.log)
}
