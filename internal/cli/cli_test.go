package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postboard/internal/config"
)

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, fmt.Sprintf("postboard %s (%s)\n", Version, Commit), out.String())
}

func TestServeRejectsInvalidConfig(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"serve", "--api-base-url", "ftp://nowhere", "--listen", "127.0.0.1:0"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_base_url")
}

func TestResolveConfigFlagsOverride(t *testing.T) {
	cmd := &cobra.Command{Use: "serve"}
	opts := &serveOptions{}
	opts.bind(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--listen", ":9999", "--body-format", "markdown"}))

	cfg, err := opts.resolveConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, config.BodyFormatMarkdown, cfg.BodyFormat)
	assert.Equal(t, config.Default().APIBaseURL, cfg.APIBaseURL)
}

func TestResolveConfigNormalizesFlagValues(t *testing.T) {
	cmd := &cobra.Command{Use: "serve"}
	opts := &serveOptions{}
	opts.bind(cmd)
	require.NoError(t, cmd.ParseFlags([]string{
		"--body-format", "Markdown",
		"--log-format", "JSON",
		"--site-url", "https://posts.example.com",
	}))

	cfg, err := opts.resolveConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, config.BodyFormatMarkdown, cfg.BodyFormat)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "https://posts.example.com", cfg.SiteURL)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.ShutdownTimeout = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, cfg, http.NotFoundHandler(), zerolog.Nop())
	}()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestServeReportsListenError(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	cfg := config.Default()
	cfg.ListenAddr = listener.Addr().String()

	err = serve(context.Background(), cfg, http.NotFoundHandler(), zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen on")
}
