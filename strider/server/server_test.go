package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestRelay() (*Relay, *httptest.Server) {
	rl := New(Settings{JWTSecret: []byte("test-secret")})
	srv := httptest.NewServer(rl.Router())
	return rl, srv
}

func reservePin(t *testing.T, srv *httptest.Server, pw string) (pin, token string) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"pw": pw})
	resp, err := http.Post(srv.URL+"/reserve_pin", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, true, out["success"])
	return out["pin"].(string), out["token"].(string)
}

func pushS(t *testing.T, srv *httptest.Server, token string, data []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/push_s", bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestRootReturnsLivenessString(t *testing.T) {
	_, srv := newTestRelay()
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "Hello, World!", string(body))
}

func TestFullPushPullRoundTrip(t *testing.T) {
	_, srv := newTestRelay()
	defer srv.Close()

	pin, token := reservePin(t, srv, "1234")
	require.Len(t, pin, 6)

	resp := pushS(t, srv, token, []byte(`{"uuid":"X"}`))
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	pullResp, err := http.Get(srv.URL + "/pull?pin=" + pin + "&pw=1234")
	require.NoError(t, err)
	defer pullResp.Body.Close()
	require.Equal(t, http.StatusOK, pullResp.StatusCode)

	got, err := io.ReadAll(pullResp.Body)
	require.NoError(t, err)
	require.Contains(t, string(got), `{"uuid":"X"}`)
}

func TestPushWithoutValidTokenIsRejected(t *testing.T) {
	_, srv := newTestRelay()
	defer srv.Close()

	resp := pushS(t, srv, "not-a-real-token", []byte("data"))
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSecondPushAgainstConsumedPinIsRejected(t *testing.T) {
	_, srv := newTestRelay()
	defer srv.Close()

	_, token := reservePin(t, srv, "1234")

	first := pushS(t, srv, token, []byte("data"))
	first.Body.Close()
	require.Equal(t, http.StatusCreated, first.StatusCode)

	second := pushS(t, srv, token, []byte("more"))
	defer second.Body.Close()
	require.Equal(t, http.StatusBadRequest, second.StatusCode)
}

func TestPullWithWrongPasswordReinsertsJob(t *testing.T) {
	_, srv := newTestRelay()
	defer srv.Close()

	pin, token := reservePin(t, srv, "1234")
	resp := pushS(t, srv, token, []byte("payload"))
	resp.Body.Close()

	wrong, err := http.Get(srv.URL + "/pull?pin=" + pin + "&pw=0000")
	require.NoError(t, err)
	wrong.Body.Close()
	require.Equal(t, http.StatusBadRequest, wrong.StatusCode)

	right, err := http.Get(srv.URL + "/pull?pin=" + pin + "&pw=1234")
	require.NoError(t, err)
	defer right.Body.Close()
	require.Equal(t, http.StatusOK, right.StatusCode)
}

func TestSecondPullWithSamePinFails(t *testing.T) {
	_, srv := newTestRelay()
	defer srv.Close()

	pin, token := reservePin(t, srv, "1234")
	resp := pushS(t, srv, token, []byte("payload"))
	resp.Body.Close()

	first, err := http.Get(srv.URL + "/pull?pin=" + pin + "&pw=1234")
	require.NoError(t, err)
	first.Body.Close()
	require.Equal(t, http.StatusOK, first.StatusCode)

	second, err := http.Get(srv.URL + "/pull?pin=" + pin + "&pw=1234")
	require.NoError(t, err)
	defer second.Body.Close()
	require.Equal(t, http.StatusBadRequest, second.StatusCode)
}

func TestPullBeforePushIsNotReady(t *testing.T) {
	_, srv := newTestRelay()
	defer srv.Close()

	pin, _ := reservePin(t, srv, "1234")

	resp, err := http.Get(srv.URL + "/pull?pin=" + pin + "&pw=1234")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
