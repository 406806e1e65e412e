package handler_test

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTiers(t *testing.T) {
	e := newTestEnv(t)
	token := e.user(t, "user1", "Basic")

	var page pageBody
	decodeResponse(t, e.get(t, token, "/account_tiers"), &page)
	assert.Equal(t, 3, page.Count)
	require.Len(t, page.Results, 3)

	names := []any{page.Results[0]["name"], page.Results[1]["name"], page.Results[2]["name"]}
	assert.ElementsMatch(t, []any{"Basic", "Premium", "Enterprise"}, names)
}

func TestGetTier(t *testing.T) {
	e := newTestEnv(t)
	token := e.user(t, "user1", "Basic")
	enterprise, err := e.tiers.GetByName(t.Context(), "Enterprise")
	require.NoError(t, err)

	resp := e.get(t, token, "/account_tiers/"+strconv.FormatInt(enterprise.ID, 10))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	decodeResponse(t, resp, &body)
	assert.Equal(t, "Enterprise", body["name"])
	assert.EqualValues(t, 200, body["thumbnail_size_1"])
	assert.EqualValues(t, 400, body["thumbnail_size_2"])
	assert.Equal(t, true, body["link_to_original"])
	assert.EqualValues(t, 600, body["link_expiration_time"])
}

func TestGetTier_NotFound(t *testing.T) {
	e := newTestEnv(t)
	token := e.user(t, "user1", "Basic")

	for _, id := range []string{"9999", "abc"} {
		resp := e.get(t, token, "/account_tiers/"+id)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, id)
	}
}

func TestTiers_RequireAuth(t *testing.T) {
	e := newTestEnv(t)

	resp := e.get(t, "", "/account_tiers")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
