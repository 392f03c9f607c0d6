package transport_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/transport"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newHTTP() *transport.HTTP {
	return transport.NewHTTP(transport.Config{Timeout: 5 * time.Second}, otelzap.New(zap.NewNop()))
}

func TestHTTP_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "application/xml", r.Header.Get("Accept"))
		assert.Equal(t, "secret", r.URL.Query().Get("pw"))
		_, _ = w.Write([]byte("<ok/>"))
	}))
	defer server.Close()

	body, err := newHTTP().Get(context.Background(), server.URL+"/rates?pw=secret", map[string]string{"Accept": "application/xml"})
	require.NoError(t, err)
	assert.Equal(t, "<ok/>", string(body))
}

func TestHTTP_Post(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "text/xml", r.Header.Get("Content-Type"))
		data, _ := io.ReadAll(r.Body)
		_, _ = w.Write(append([]byte("echo:"), data...))
	}))
	defer server.Close()

	body, err := newHTTP().Post(context.Background(), server.URL, []byte("<req/>"), map[string]string{"Content-Type": "text/xml"})
	require.NoError(t, err)
	assert.Equal(t, "echo:<req/>", string(body))
}

func TestHTTP_ErrorStatusKeepsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte("<Errors><Error/></Errors>"))
	}))
	defer server.Close()

	_, err := newHTTP().Get(context.Background(), server.URL+"/track?pw=secret", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shipper.ErrTransport))

	var te *shipper.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusUnprocessableEntity, te.StatusCode)
	assert.Equal(t, "<Errors><Error/></Errors>", string(te.Body))
	assert.NotContains(t, te.URL, "secret", "query strings are not kept")
	assert.False(t, te.Temporary())
}

func TestHTTP_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newHTTP().Get(context.Background(), url, nil)
	require.Error(t, err)

	var te *shipper.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 0, te.StatusCode)
	assert.True(t, shipper.IsRetryable(err))
}

func TestHTTP_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newHTTP().Get(ctx, server.URL, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestNewHTTP_NilLogger(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	body, err := transport.NewHTTP(transport.Config{}, nil).Get(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}
