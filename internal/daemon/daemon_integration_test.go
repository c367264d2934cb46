package daemon

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/rudder/internal/config"
	"github.com/harun/rudder/internal/logger"
	"github.com/harun/rudder/pkg/gateway"
	"github.com/harun/rudder/pkg/schedule"
)

func reservePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port
}

// createIntegrationDaemon starts a full daemon with the gateway enabled on a
// reserved loopback port and every store rooted in a temp directory.
func createIntegrationDaemon(t *testing.T) *Daemon {
	t.Helper()

	tmpDir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.DataDir = tmpDir
	cfg.Gateway.Enabled = true
	cfg.Gateway.Host = "127.0.0.1"
	cfg.Gateway.Port = reservePort(t)
	cfg.Gateway.SharedSecret = "integration-secret"

	log, err := logger.New(logger.Config{Level: "debug", Console: false})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = log.Close()
	})

	d, err := New(cfg, log)
	require.NoError(t, err)

	require.NoError(t, d.Start())
	t.Cleanup(func() {
		_ = d.Stop()
	})

	return d
}

func rpcCall(t *testing.T, d *Daemon, method string, params map[string]interface{}) gateway.RPCResponse {
	t.Helper()

	body, err := json.Marshal(gateway.RPCRequest{
		ID:      "req-1",
		Method:  method,
		Params:  params,
		JSONRPC: "2.0",
	})
	require.NoError(t, err)

	url := fmt.Sprintf("http://127.0.0.1:%d/rpc", d.config.Gateway.Port)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Rudder-Secret", d.config.Gateway.SharedSecret)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var rpcResp gateway.RPCResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rpcResp))
	return rpcResp
}

func connectAuthenticatedGatewaySocket(t *testing.T, d *Daemon) *websocket.Conn {
	t.Helper()

	wsURL := fmt.Sprintf("ws://127.0.0.1:%d/ws", d.config.Gateway.Port)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
	})

	var challenge gateway.AuthChallenge
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&challenge))
	require.Equal(t, "auth.challenge", challenge.Event)
	require.NotEmpty(t, challenge.Challenge)

	signature := signGatewayChallenge(d.config.Gateway.SharedSecret, challenge.Challenge)
	require.NoError(t, conn.WriteJSON(gateway.AuthResponse{
		Method:    "auth.response",
		Signature: signature,
	}))

	var authResult gateway.AuthResult
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&authResult))
	require.True(t, authResult.Success, "gateway websocket authentication failed")

	return conn
}

func signGatewayChallenge(secret string, challenge string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(challenge))
	return hex.EncodeToString(mac.Sum(nil))
}

func waitForCondition(t *testing.T, timeout time.Duration, description string, fn func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}

	t.Fatalf("timed out waiting for condition: %s", description)
}

// writeScenarioFile drops a minimal scenario into the daemon's scenarios
// directory and returns its bare file name.
func writeScenarioFile(t *testing.T, d *Daemon, name string) string {
	t.Helper()

	doc := map[string]interface{}{
		"name": name,
		"steps": []map[string]interface{}{
			{"action": "sleep", "params": map[string]interface{}{"seconds": 0}},
		},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	dir := d.config.Scenarios.Dir
	require.NoError(t, os.MkdirAll(dir, 0755))
	fileName := name + ".json"
	require.NoError(t, os.WriteFile(filepath.Join(dir, fileName), data, 0644))

	return fileName
}

func TestIntegrationRPCQueueStatus(t *testing.T) {
	d := createIntegrationDaemon(t)

	resp := rpcCall(t, d, "queue.status", nil)
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(0), result["depth"])
	assert.Equal(t, false, result["busy"])
}

func TestIntegrationDaemonStatus(t *testing.T) {
	d := createIntegrationDaemon(t)

	resp := rpcCall(t, d, "daemon.status", nil)
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, result["running"])
	assert.Equal(t, false, result["browser_open"])
	assert.Equal(t, false, result["busy"])
	assert.Equal(t, float64(0), result["queue_depth"])
}

func TestIntegrationActionExecute(t *testing.T) {
	d := createIntegrationDaemon(t)

	resp := rpcCall(t, d, "action.execute", map[string]interface{}{
		"action": "sleep",
		"params": map[string]interface{}{"seconds": 0},
	})
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "sleep", result["action"])

	status := d.Status()
	assert.Equal(t, 0, status.QueueDepth)
	assert.False(t, status.BrowserOpen)
}

func TestIntegrationScenarioRunStreamsAndRecords(t *testing.T) {
	d := createIntegrationDaemon(t)

	conn := connectAuthenticatedGatewaySocket(t, d)

	resp := rpcCall(t, d, "scenario.run", map[string]interface{}{
		"scenario": map[string]interface{}{
			"name": "integration-smoke",
			"steps": []map[string]interface{}{
				{"action": "sleep", "params": map[string]interface{}{"seconds": 0}},
			},
		},
	})
	require.Nil(t, resp.Error)

	// The run's lifecycle events reach authenticated websocket clients.
	seen := map[string]bool{}
	deadline := time.Now().Add(3 * time.Second)
	for !seen["run.started"] || !seen["run.finished"] {
		require.True(t, time.Now().Before(deadline), "timed out waiting for run events, saw %v", seen)

		var msg gateway.EventMessage
		require.NoError(t, conn.SetReadDeadline(deadline))
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Stream == gateway.StreamTypeScenario {
			seen[msg.Event] = true
		}
	}

	// The same run landed in the history store via the recorder sink.
	histResp := rpcCall(t, d, "history.list", nil)
	require.Nil(t, histResp.Error)

	histResult, ok := histResp.Result.(map[string]interface{})
	require.True(t, ok)
	runs, ok := histResult["runs"].([]interface{})
	require.True(t, ok)
	require.Len(t, runs, 1)

	run, ok := runs[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "integration-smoke", run["scenario"])
	assert.Equal(t, "completed", run["status"])
}

func TestIntegrationScheduledJobRunsScenario(t *testing.T) {
	d := createIntegrationDaemon(t)

	fileName := writeScenarioFile(t, d, "nightly")

	addResp := rpcCall(t, d, "schedule.add", map[string]interface{}{
		"name":     "nightly smoke",
		"enabled":  true,
		"scenario": fileName,
		"spec":     map[string]interface{}{"kind": "every", "everyMs": 3600000},
	})
	require.Nil(t, addResp.Error)

	job, ok := addResp.Result.(map[string]interface{})
	require.True(t, ok)
	jobID, ok := job["id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, jobID)

	// Force the job now instead of waiting an hour.
	runResp := rpcCall(t, d, "schedule.run", map[string]interface{}{
		"id":   jobID,
		"mode": "force",
	})
	require.Nil(t, runResp.Error)

	waitForCondition(t, 3*time.Second, "job finished", func() bool {
		j := d.GetScheduler().GetJob(jobID)
		return j != nil && j.State.LastStatus != ""
	})

	j := d.GetScheduler().GetJob(jobID)
	require.NotNil(t, j)
	assert.Equal(t, "ok", j.State.LastStatus)
	assert.Empty(t, j.State.LastError)

	// The scheduled run went through the shared history store.
	waitForCondition(t, 2*time.Second, "history recorded", func() bool {
		runs, err := d.GetHistoryStore().List(d.ctx, 10)
		return err == nil && len(runs) == 1
	})

	runs, err := d.GetHistoryStore().List(d.ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "nightly", runs[0].Scenario)

	// The registry survived on disk.
	var persisted []*schedule.Job
	data, err := os.ReadFile(d.config.Schedule.Path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &persisted))
	require.Len(t, persisted, 1)
	assert.Equal(t, jobID, persisted[0].ID)
}
