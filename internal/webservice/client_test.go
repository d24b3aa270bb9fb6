package webservice

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rafaelreis-se/gym-nfse/internal/domain/emission"
)

type fakeHTTPClient struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (f *fakeHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return f.doFunc(req)
}

func httpResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestClient(doFunc func(req *http.Request) (*http.Response, error)) *Client {
	cfg := Config{URL: "https://nfse.example.gov.br/ws"}
	return NewClientWithHTTP(cfg, &fakeHTTPClient{doFunc: doFunc}, zap.NewNop())
}

func TestClient_Send_Success(t *testing.T) {
	var capturedBody string
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		data, _ := io.ReadAll(req.Body)
		capturedBody = string(data)
		return httpResponse(http.StatusOK, acceptedResponse), nil
	})

	result, err := client.Send(context.Background(), "<SignedRps><Rps/></SignedRps>")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "PRT-2025-000123", result.Protocol)

	// Payload travels inside the configured envelope
	assert.True(t, strings.HasPrefix(capturedBody, "<EnviarLoteRpsEnvio>"), "body = %s", capturedBody)
	assert.Contains(t, capturedBody, "<SignedRps><Rps/></SignedRps>")
}

func TestClient_Send_NetworkError(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	})

	_, err := client.Send(context.Background(), "<SignedRps/>")
	require.Error(t, err)

	var te *emission.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 0, te.StatusCode)
	assert.True(t, emission.IsRetryableWebservice(err))
}

func TestClient_Send_RemoteServerError(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return httpResponse(http.StatusInternalServerError, "oops"), nil
	})

	_, err := client.Send(context.Background(), "<SignedRps/>")
	require.Error(t, err)

	var te *emission.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusInternalServerError, te.StatusCode)
	assert.True(t, emission.IsRetryableWebservice(err))
}

func TestClient_Send_ClientErrorNotRetryable(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return httpResponse(http.StatusForbidden, "denied"), nil
	})

	_, err := client.Send(context.Background(), "<SignedRps/>")
	require.Error(t, err)

	assert.False(t, emission.IsRetryableWebservice(err))
}

func TestClient_QueryStatus_EscapesProtocol(t *testing.T) {
	var capturedBody string
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		data, _ := io.ReadAll(req.Body)
		capturedBody = string(data)
		return httpResponse(http.StatusOK, "<Resposta><Situacao>2</Situacao></Resposta>"), nil
	})

	result, err := client.QueryStatus(context.Background(), `PRT<&>1`)
	require.NoError(t, err)

	assert.Equal(t, StatusProcessing, result.Status)
	assert.Contains(t, capturedBody, "<Protocolo>PRT&lt;&amp;&gt;1</Protocolo>")
}

func TestClient_Cancel(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		data, _ := io.ReadAll(req.Body)
		assert.True(t, strings.HasPrefix(string(data), "<CancelarNfseEnvio>"))
		return httpResponse(http.StatusOK, "<Resposta><Sucesso>true</Sucesso></Resposta>"), nil
	})

	result, err := client.Cancel(context.Background(), "<Pedido/>")
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(Config{URL: "https://example"}, zap.NewNop())

	assert.Equal(t, DefaultEnvelopes(), client.config.Envelopes)
	assert.NotZero(t, client.config.Timeout)
}
