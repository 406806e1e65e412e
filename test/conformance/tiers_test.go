//go:build conformance

package conformance

import (
	"fmt"
	"net/http"
	"testing"
)

func TestTiers_List(t *testing.T) {
	status, raw := doJSON(t, apiURL("/account_tiers"))
	if status != http.StatusOK {
		t.Fatalf("expected status 200, got %d", status)
	}
	assertPageShape(t, raw)

	results, _ := raw["results"].([]any)
	for i, r := range results {
		tier, ok := r.(map[string]any)
		if !ok {
			t.Errorf("results[%d] should be object, got %T", i, r)
			continue
		}
		for _, key := range []string{"id", "name", "thumbnail_size_1", "thumbnail_size_2", "link_to_original", "link_expiration_time"} {
			if _, ok := tier[key]; !ok {
				t.Errorf("results[%d] missing %q", i, key)
			}
		}
	}
}

func TestTiers_GetEach(t *testing.T) {
	_, raw := doJSON(t, apiURL("/account_tiers"))
	results, _ := raw["results"].([]any)
	for _, r := range results {
		tier, _ := r.(map[string]any)
		id, _ := tier["id"].(float64)
		status, got := doJSON(t, apiURL(fmt.Sprintf("/account_tiers/%d", int64(id))))
		if status != http.StatusOK {
			t.Errorf("tier %v: expected status 200, got %d", tier["name"], status)
			continue
		}
		if got["name"] != tier["name"] {
			t.Errorf("expected name %v, got %v", tier["name"], got["name"])
		}
	}
}

func TestTiers_NotFound_404(t *testing.T) {
	status, raw := doJSON(t, apiURL("/account_tiers/999999"))
	if status != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", status)
	}
	assertDetail(t, raw)
}
