package httpclient

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/config"
)

func TestFromConfig(t *testing.T) {
	c := FromConfig(config.HTTPConfig{Timeout: 5, ResponseHeaderTimeout: 3})
	assert.Equal(t, 5*time.Second, c.Timeout)
	assert.Equal(t, 3*time.Second, c.ResponseHeaderTimeout)

	assert.Equal(t, DefaultConfig(), FromConfig(config.HTTPConfig{}))
}

func TestNew(t *testing.T) {
	cfg := FromConfig(config.HTTPConfig{Timeout: 7, ResponseHeaderTimeout: 2})
	hc := New(cfg)
	assert.Equal(t, 7*time.Second, hc.Timeout)

	tr, ok := hc.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, cfg.MaxIdleConnsPerHost, tr.MaxIdleConnsPerHost)
	assert.Equal(t, 2*time.Second, tr.ResponseHeaderTimeout)
	assert.True(t, tr.DisableCompression)
	assert.NotSame(t, http.DefaultTransport, tr)

	assert.Equal(t, DefaultConfig().Timeout, NewDefault().Timeout)
}
