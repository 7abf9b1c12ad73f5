package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photovault/internal/collision"
	"photovault/internal/database"
	"photovault/internal/objstore"
	"photovault/internal/syncer"
	"photovault/internal/upload"
	"photovault/pkg/cache"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	manager := database.NewManager(t.TempDir())
	backend, err := objstore.NewFilesystemBackend(t.TempDir())
	require.NoError(t, err)

	engine := syncer.NewEngine(manager, backend, syncer.Options{
		Enabled:        true,
		RemotePrefix:   "metadata",
		MaxRetries:     2,
		RetryBaseDelay: time.Millisecond,
		RetryMaxDelay:  5 * time.Millisecond,
	})
	orch := upload.NewOrchestrator(manager, backend, engine, upload.Options{})

	mux := http.NewServeMux()
	New(orch, cache.New(true, 8, time.Minute)).Register(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		engine.Wait()
		manager.Close()
	})
	return server
}

func multipartBody(t *testing.T, files map[string][]byte, captureTimes map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, data := range files {
		part, err := writer.CreateFormFile("photos", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	if len(captureTimes) > 0 {
		encoded, err := json.Marshal(captureTimes)
		require.NoError(t, err)
		require.NoError(t, writer.WriteField("capture_times", string(encoded)))
	}
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func doRequest(t *testing.T, method, url, user string, body *bytes.Buffer, contentType string) (*http.Response, map[string]interface{}) {
	t.Helper()

	if body == nil {
		body = &bytes.Buffer{}
	}
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if user != "" {
		req.Header.Set("X-Auth-User", user)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func submitBatch(t *testing.T, server *httptest.Server, user string, files map[string][]byte) (string, string) {
	t.Helper()

	body, contentType := multipartBody(t, files, nil)
	resp, decoded := doRequest(t, http.MethodPost, server.URL+"/api/batches", user, body, contentType)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	batchID, _ := decoded["batch_id"].(string)
	status, _ := decoded["status"].(string)
	require.NotEmpty(t, batchID)
	return batchID, status
}

func TestAuthRequired(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/photos/recent")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSubmitCommitAndList(t *testing.T) {
	server := newTestServer(t)

	body, contentType := multipartBody(t,
		map[string][]byte{"sunrise.jpg": []byte("jpeg-bytes")},
		map[string]string{"sunrise.jpg": "2024-06-01T07:00:00Z"},
	)
	resp, decoded := doRequest(t, http.MethodPost, server.URL+"/api/batches", "alice", body, contentType)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(upload.StatusDetected), decoded["status"])
	batchID := decoded["batch_id"].(string)

	resp, decoded = doRequest(t, http.MethodPost, server.URL+"/api/batches/"+batchID+"/commit", "alice", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(upload.StatusCompleted), decoded["status"])
	items := decoded["items"].([]interface{})
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	assert.Equal(t, "sunrise.jpg", item["filename"])
	assert.Equal(t, string(upload.ItemSucceeded), item["status"])

	// First listing misses the cache, the second hits it.
	req, err := http.NewRequest(http.MethodGet, server.URL+"/api/photos/recent?limit=5", nil)
	require.NoError(t, err)
	req.Header.Set("X-Auth-User", "alice")

	listResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer listResp.Body.Close()
	assert.Equal(t, "MISS", listResp.Header.Get("X-Cache"))
	var listing map[string]interface{}
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&listing))
	assert.Equal(t, float64(1), listing["count"])

	listResp2, err := http.DefaultClient.Do(req.Clone(req.Context()))
	require.NoError(t, err)
	defer listResp2.Body.Close()
	assert.Equal(t, "HIT", listResp2.Header.Get("X-Cache"))
}

func TestCollisionDecisionFlow(t *testing.T) {
	server := newTestServer(t)

	batchID, status := submitBatch(t, server, "bob", map[string][]byte{"dup.jpg": []byte("v1")})
	require.Equal(t, string(upload.StatusDetected), status)
	resp, _ := doRequest(t, http.MethodPost, server.URL+"/api/batches/"+batchID+"/commit", "bob", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Second batch with the same filename collides.
	batchID, status = submitBatch(t, server, "bob", map[string][]byte{"dup.jpg": []byte("v2-longer")})
	assert.Equal(t, string(upload.StatusAwaitingDecisions), status)

	resp, decoded := doRequest(t, http.MethodGet, server.URL+"/api/batches/"+batchID+"/collisions", "bob", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	collisions := decoded["collisions"].(map[string]interface{})
	require.Contains(t, collisions, "dup.jpg")

	// Committing without a decision is refused and reports the pending set.
	resp, decoded = doRequest(t, http.MethodPost, server.URL+"/api/batches/"+batchID+"/commit", "bob", nil, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	pending := decoded["pending"].([]interface{})
	assert.Equal(t, []interface{}{"dup.jpg"}, pending)

	decisionBody := bytes.NewBufferString(fmt.Sprintf(`{"dup.jpg": %q}`, collision.DecisionOverwrite))
	resp, decoded = doRequest(t, http.MethodPost, server.URL+"/api/batches/"+batchID+"/decisions", "bob", decisionBody, "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(upload.StatusDetected), decoded["status"])

	resp, decoded = doRequest(t, http.MethodPost, server.URL+"/api/batches/"+batchID+"/commit", "bob", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(upload.StatusCompleted), decoded["status"])
}

func TestInvalidDecisionValue(t *testing.T) {
	server := newTestServer(t)

	batchID, _ := submitBatch(t, server, "carol", map[string][]byte{"a.jpg": []byte("x")})

	body := bytes.NewBufferString(`{"a.jpg": "replace"}`)
	resp, _ := doRequest(t, http.MethodPost, server.URL+"/api/batches/"+batchID+"/decisions", "carol", body, "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBatchHandlesAreOwnerScoped(t *testing.T) {
	server := newTestServer(t)

	batchID, _ := submitBatch(t, server, "alice", map[string][]byte{"a.jpg": []byte("x")})

	resp, _ := doRequest(t, http.MethodGet, server.URL+"/api/batches/"+batchID, "mallory", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doRequest(t, http.MethodGet, server.URL+"/api/batches/"+batchID, "alice", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnknownBatchHandle(t *testing.T) {
	server := newTestServer(t)

	resp, _ := doRequest(t, http.MethodGet, server.URL+"/api/batches/does-not-exist", "alice", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatsEndpoint(t *testing.T) {
	server := newTestServer(t)

	resp, decoded := doRequest(t, http.MethodGet, server.URL+"/api/stats", "alice", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, decoded, "total_photos")
}
