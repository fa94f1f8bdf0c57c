// internal/publish/orchestrator_test.go
package publish

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"menuscan/internal/common/auth"
	"menuscan/internal/common/errors"
	"menuscan/internal/common/logger"
	"menuscan/internal/draft"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func publishableMenu() *draft.Menu {
	m := draft.NewMenu("Lunch", "en")
	it := draft.NewItem()
	it.Name = "Doro Wat"
	it.Prices = []string{"250"}
	it.Ingredients = []string{"chicken", "berbere"}
	m.Sections = []draft.Section{{Name: "Imported", Items: []draft.Item{it}}}
	return m
}

// menuBackend is a scriptable stand-in for the menus API.
type menuBackend struct {
	t              *testing.T
	createStatus   int
	publishStatus  int
	createCalls    atomic.Int64
	publishCalls   atomic.Int64
	lastCreateBody wireMenu
}

func (b *menuBackend) server() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /menus/addis-red-sea", func(w http.ResponseWriter, r *http.Request) {
		b.createCalls.Add(1)
		require.NoError(b.t, json.NewDecoder(r.Body).Decode(&b.lastCreateBody))
		if b.createStatus != 0 && b.createStatus != http.StatusOK {
			w.WriteHeader(b.createStatus)
			return
		}
		w.Write([]byte(`{"menu":{"id":"menu-7","slug":"lunch","restaurant_slug":"addis-red-sea"}}`))
	})
	mux.HandleFunc("POST /menus/addis-red-sea/publish/menu-7", func(w http.ResponseWriter, r *http.Request) {
		b.publishCalls.Add(1)
		if b.publishStatus != 0 && b.publishStatus != http.StatusOK {
			w.WriteHeader(b.publishStatus)
			return
		}
		w.Write([]byte(`{"status":"published"}`))
	})
	return httptest.NewServer(mux)
}

func newBackendAndOrchestrator(t *testing.T, createStatus, publishStatus int) (*menuBackend, *Orchestrator) {
	t.Helper()
	backend := &menuBackend{t: t, createStatus: createStatus, publishStatus: publishStatus}
	server := backend.server()
	t.Cleanup(server.Close)
	return backend, NewOrchestrator(server.URL, auth.StaticProvider{Value: "tok"}, logger.NewTestLogger(t))
}

func TestOrchestrator_Run_Published(t *testing.T) {
	backend, orch := newBackendAndOrchestrator(t, 0, 0)

	result := orch.Run(context.Background(), "addis-red-sea", publishableMenu())
	require.NoError(t, result.Err)
	assert.Equal(t, OutcomePublished, result.Outcome)
	require.NotNil(t, result.Menu)
	assert.Equal(t, "menu-7", result.Menu.ID)
	assert.Equal(t, int64(1), backend.createCalls.Load())
	assert.Equal(t, int64(1), backend.publishCalls.Load())

	// Numeric fields arrive as real numbers, coerced exactly once at this
	// boundary.
	require.Len(t, backend.lastCreateBody.Sections, 1)
	item := backend.lastCreateBody.Sections[0].Items[0]
	assert.Equal(t, []float64{250}, item.Prices)
	assert.Equal(t, wireNutrition{}, item.Nutrition)
	assert.Equal(t, float64(0), item.PrepMinutes)
	assert.Equal(t, []string{"chicken", "berbere"}, item.Ingredients)
}

func TestOrchestrator_EmptyDraftRejectedBeforeNetwork(t *testing.T) {
	backend, orch := newBackendAndOrchestrator(t, 0, 0)

	tests := []struct {
		name string
		menu *draft.Menu
	}{
		{"nil menu", nil},
		{"no sections", draft.NewMenu("Lunch", "en")},
		{
			"only unnamed items",
			func() *draft.Menu {
				m := draft.NewMenu("Lunch", "en")
				m.Sections = []draft.Section{{Name: "Imported", Items: []draft.Item{draft.NewItem()}}}
				return m
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := orch.Run(context.Background(), "addis-red-sea", tt.menu)
			assert.Equal(t, OutcomeFailed, result.Outcome)
			assert.True(t, errors.IsCode(result.Err, errors.ErrCodeEmptyDraft))
		})
	}
	assert.Equal(t, int64(0), backend.createCalls.Load(), "empty drafts must not reach the backend")
}

func TestOrchestrator_CoercionFailureRejectedBeforeNetwork(t *testing.T) {
	backend, orch := newBackendAndOrchestrator(t, 0, 0)

	menu := publishableMenu()
	menu.Sections[0].Items[0].Prices = []string{"abc"}

	result := orch.Run(context.Background(), "addis-red-sea", menu)
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.True(t, errors.IsCode(result.Err, errors.ErrCodeValidationFailed))
	assert.Contains(t, result.Err.Error(), "Doro Wat")
	assert.Equal(t, int64(0), backend.createCalls.Load())
}

func TestOrchestrator_CreateFailureYieldsFailed(t *testing.T) {
	backend, orch := newBackendAndOrchestrator(t, http.StatusInternalServerError, 0)

	result := orch.Run(context.Background(), "addis-red-sea", publishableMenu())
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Nil(t, result.Menu)
	require.Error(t, result.Err)
	assert.Equal(t, int64(0), backend.publishCalls.Load(), "publish must not run after a failed create")
}

func TestOrchestrator_PartialFailureRetainsCreatedMenu(t *testing.T) {
	backend, orch := newBackendAndOrchestrator(t, 0, http.StatusBadGateway)

	result := orch.Run(context.Background(), "addis-red-sea", publishableMenu())
	assert.Equal(t, OutcomeCreatedUnpublished, result.Outcome)
	require.NotNil(t, result.Menu)
	assert.Equal(t, "menu-7", result.Menu.ID)

	require.Error(t, result.Err)
	assert.True(t, errors.IsCode(result.Err, errors.ErrCodePublishPartialFailure))
	menuID, ok := errors.CreatedMenuID(result.Err)
	require.True(t, ok)
	assert.Equal(t, "menu-7", menuID)

	// The retained ID allows a publish-only retry without recreating.
	backend.publishStatus = 0
	require.NoError(t, orch.Publish(context.Background(), "addis-red-sea", result.Menu.ID))
	assert.Equal(t, int64(1), backend.createCalls.Load(), "retry must not recreate the menu")
	assert.Equal(t, int64(2), backend.publishCalls.Load())
}

func TestOrchestrator_CreateAuthRejection(t *testing.T) {
	_, orch := newBackendAndOrchestrator(t, http.StatusUnauthorized, 0)

	result := orch.Run(context.Background(), "addis-red-sea", publishableMenu())
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.True(t, errors.IsCode(result.Err, errors.ErrCodeAuth))
}

func TestBuildWireMenu_CoercesEveryNumericField(t *testing.T) {
	menu := publishableMenu()
	item := &menu.Sections[0].Items[0]
	item.Prices = []string{"250", "199.5"}
	item.Nutrition = draft.Nutrition{Calories: "420", Protein: "32", Carbs: "18", Fat: "25"}
	item.PrepMinutes = "45"

	wire, err := buildWireMenu(menu)
	require.NoError(t, err)

	got := wire.Sections[0].Items[0]
	assert.Equal(t, []float64{250, 199.5}, got.Prices)
	assert.Equal(t, wireNutrition{Calories: 420, Protein: 32, Carbs: 18, Fat: 25}, got.Nutrition)
	assert.Equal(t, float64(45), got.PrepMinutes)
}

func TestBuildWireMenu_NamesOffendingItem(t *testing.T) {
	menu := publishableMenu()
	menu.Sections[0].Items[0].Nutrition.Calories = "lots"

	_, err := buildWireMenu(menu)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidationFailed))
	assert.Contains(t, err.Error(), "Doro Wat")
}
