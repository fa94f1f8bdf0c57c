// internal/publish/orchestrator.go
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"menuscan/internal/common/auth"
	"menuscan/internal/common/errors"
	"menuscan/internal/common/httpclient"
	"menuscan/internal/common/logger"
	"menuscan/internal/common/metrics"
	"menuscan/internal/draft"
)

// PublishedMenu is the backend-owned record returned by the create step.
// The draft has no relation to it until creation succeeds.
type PublishedMenu struct {
	ID             string `json:"id"`
	Slug           string `json:"slug"`
	RestaurantSlug string `json:"restaurant_slug"`
}

type createResponse struct {
	Menu PublishedMenu `json:"menu"`
}

// Outcome is the terminal state of a create+publish run.
type Outcome string

const (
	OutcomePublished          Outcome = "published"
	OutcomeCreatedUnpublished Outcome = "createdUnpublished"
	OutcomeFailed             Outcome = "failed"
)

// Result pairs the outcome with the created record when one exists, so the
// caller can retry only the publish step after a partial failure.
type Result struct {
	Outcome Outcome
	Menu    *PublishedMenu
	Err     error
}

// Orchestrator validates and submits a finished draft. Create and publish
// are deliberately separate backend calls: a crash between them leaves a
// valid-but-unpublished menu, and that intermediate state is exposed to the
// caller instead of being folded into one atomic failure.
type Orchestrator struct {
	baseURL    string
	tokens     auth.TokenProvider
	httpClient *httpclient.Client
	logger     logger.Logger
}

func NewOrchestrator(baseURL string, tokens auth.TokenProvider, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		tokens:     tokens,
		httpClient: httpclient.NewClient(30 * time.Second),
		logger:     log.WithFields(map[string]interface{}{"component": "publish-orchestrator"}),
	}
}

// Create validates the draft and POSTs it to /menus/{restaurantSlug}. An
// empty draft or a coercion failure is rejected before any network call.
func (o *Orchestrator) Create(ctx context.Context, restaurantSlug string, menu *draft.Menu) (*PublishedMenu, error) {
	if menu == nil || menu.IsEmpty() {
		return nil, errors.NewEmptyDraftError()
	}

	wire, err := buildWireMenu(menu)
	if err != nil {
		return nil, err
	}

	token, err := o.tokens.Token(ctx)
	if err != nil {
		return nil, errors.NewAuthError(err.Error())
	}

	payload, err := json.Marshal(wire)
	if err != nil {
		return nil, errors.NewValidationError(fmt.Sprintf("failed to serialize draft: %v", err))
	}

	req, err := http.NewRequest(http.MethodPost,
		fmt.Sprintf("%s/menus/%s", o.baseURL, restaurantSlug), bytes.NewReader(payload))
	if err != nil {
		return nil, errors.NewExternalServiceError("menus", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := o.httpClient.DoWithContext(ctx, req)
	if err != nil {
		metrics.PublishAttempts.WithLabelValues("create_error").Inc()
		return nil, errors.NewExternalServiceError("menus", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		metrics.PublishAttempts.WithLabelValues("create_error").Inc()
		return nil, errors.NewAuthError(fmt.Sprintf("create rejected with status %d", resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.PublishAttempts.WithLabelValues("create_error").Inc()
		respBody, _ := io.ReadAll(resp.Body)
		return nil, errors.NewExternalServiceError("menus",
			fmt.Errorf("create failed with status %d: %s", resp.StatusCode, string(respBody)))
	}

	var decoded createResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, errors.NewExternalServiceError("menus",
			fmt.Errorf("failed to decode create response: %w", err))
	}
	if decoded.Menu.ID == "" {
		return nil, errors.NewExternalServiceError("menus",
			fmt.Errorf("create response carried no menu id"))
	}
	if decoded.Menu.RestaurantSlug == "" {
		decoded.Menu.RestaurantSlug = restaurantSlug
	}

	o.logger.Info("menu created", map[string]interface{}{
		"menuId":     decoded.Menu.ID,
		"menuSlug":   decoded.Menu.Slug,
		"restaurant": restaurantSlug,
	})

	return &decoded.Menu, nil
}

// Publish marks a created-but-unpublished menu as live via
// POST /menus/{restaurantSlug}/publish/{menuId}.
func (o *Orchestrator) Publish(ctx context.Context, restaurantSlug, menuID string) error {
	token, err := o.tokens.Token(ctx)
	if err != nil {
		return errors.NewAuthError(err.Error())
	}

	req, err := http.NewRequest(http.MethodPost,
		fmt.Sprintf("%s/menus/%s/publish/%s", o.baseURL, restaurantSlug, menuID), nil)
	if err != nil {
		return errors.NewExternalServiceError("menus", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := o.httpClient.DoWithContext(ctx, req)
	if err != nil {
		return errors.NewExternalServiceError("menus", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return errors.NewAuthError(fmt.Sprintf("publish rejected with status %d", resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return errors.NewExternalServiceError("menus",
			fmt.Errorf("publish failed with status %d: %s", resp.StatusCode, string(respBody)))
	}

	o.logger.Info("menu published", map[string]interface{}{
		"menuId":     menuID,
		"restaurant": restaurantSlug,
	})
	return nil
}

// Run performs create then publish. A publish failure after a successful
// create yields OutcomeCreatedUnpublished with the created record retained,
// and a PUBLISH_PARTIAL_FAILURE error carrying the menu ID for a retried
// Publish call.
func (o *Orchestrator) Run(ctx context.Context, restaurantSlug string, menu *draft.Menu) Result {
	created, err := o.Create(ctx, restaurantSlug, menu)
	if err != nil {
		metrics.PublishAttempts.WithLabelValues(string(OutcomeFailed)).Inc()
		return Result{Outcome: OutcomeFailed, Err: err}
	}

	if err := o.Publish(ctx, restaurantSlug, created.ID); err != nil {
		metrics.PublishAttempts.WithLabelValues(string(OutcomeCreatedUnpublished)).Inc()
		o.logger.Warn("menu created but publish failed", map[string]interface{}{
			"menuId": created.ID,
			"error":  err.Error(),
		})
		return Result{
			Outcome: OutcomeCreatedUnpublished,
			Menu:    created,
			Err:     errors.NewPublishPartialFailureError(created.ID, err),
		}
	}

	metrics.PublishAttempts.WithLabelValues(string(OutcomePublished)).Inc()
	return Result{Outcome: OutcomePublished, Menu: created}
}
