package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/relayer/internal/testutil"
)

func (app *TestApp) request(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, app.Server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := app.Server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

// TestPollFlow covers the lifecycle: create, read, vote, duplicate vote,
// close by a stranger and by the creator, then results.
func TestPollFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	creator := testutil.Address(1)
	voter := testutil.Address(2)

	status, body := app.request(t, http.MethodPost, "/polls", map[string]any{
		"question": "Flow test poll",
		"options":  []string{"Option A", "Option B"},
		"creator":  creator,
	})
	require.Equal(t, http.StatusCreated, status, body)
	pollID := body["pollId"].(string)
	assert.Equal(t, true, body["blockchainConfirmed"])

	status, body = app.request(t, http.MethodGet, "/polls/"+pollID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Flow test poll", body["poll"].(map[string]any)["question"])

	status, body = app.request(t, http.MethodPost, "/vote", map[string]any{
		"voterPublicKey": voter,
		"pollId":         pollID,
		"voteChoice":     1,
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, float64(2), body["remainingVotes"])

	var stored int
	require.NoError(t, app.DB.QueryRow("SELECT option_index FROM poll_votes WHERE poll_id = $1 AND voter = $2", pollID, voter).Scan(&stored))
	assert.Equal(t, 1, stored)

	status, body = app.request(t, http.MethodPost, "/polls/"+pollID+"/vote", map[string]any{
		"voterAddress": voter,
		"optionIndex":  0,
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "ALREADY_VOTED", body["code"])

	status, _ = app.request(t, http.MethodPost, "/polls/"+pollID+"/close", map[string]any{"creatorAddress": voter})
	require.Equal(t, http.StatusForbidden, status)

	status, body = app.request(t, http.MethodPost, "/polls/"+pollID+"/close", map[string]any{"creatorAddress": creator})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["poll"].(map[string]any)["isActive"])

	status, body = app.request(t, http.MethodGet, "/polls/"+pollID+"/results", nil)
	require.Equal(t, http.StatusOK, status)
	results := body["results"].(map[string]any)
	assert.Equal(t, float64(1), results["totalVotes"])
	assert.Equal(t, false, results["isActive"])
	assert.NotNil(t, results["closedAt"])
}
