// internal/pipeline/session.go
package pipeline

import (
	"context"
	"time"

	"menuscan/internal/common/logger"
	"menuscan/internal/draft"
	"menuscan/internal/extraction"
	"menuscan/internal/images"
	"menuscan/internal/publish"

	"github.com/google/uuid"
)

// ProgressObserver receives the latest job snapshot on every poll tick.
type ProgressObserver func(job extraction.Job)

// ImageResultsObserver receives image candidates fetched after an item was
// renamed, addressed to the item whose name triggered the search.
type ImageResultsObserver func(sectionIdx, itemIdx int, results []images.Result)

// Dependencies wires the pipeline components into a session.
type Dependencies struct {
	Extraction   *extraction.Client
	Poller       *extraction.Poller
	Search       *images.SearchClient
	Uploader     *images.Uploader
	Orchestrator *publish.Orchestrator
	Store        *draft.Store // optional autosave
	SearchLimit  int
	Logger       logger.Logger
}

// Session owns one menu-digitization flow: submit a photo, poll the
// extraction job, reconcile results into the draft, host the editing
// session, and publish. The extraction result is handed to the draft
// explicitly rather than through shared ambient state, so nothing can read
// a cleared store between screens.
type Session struct {
	ID string

	deps   Dependencies
	editor *draft.Editor
	logger logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	onProgress     ProgressObserver
	onImageResults ImageResultsObserver
}

// NewSession starts a blank editing session. The menu name and language are
// editable afterwards like any other field.
func NewSession(deps Dependencies, menuName, language string) *Session {
	if deps.SearchLimit <= 0 {
		deps.SearchLimit = 6
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:     uuid.NewString(),
		deps:   deps,
		editor: draft.NewEditor(draft.NewMenu(menuName, language)),
		logger: log.WithFields(map[string]interface{}{"component": "session"}),
		ctx:    ctx,
		cancel: cancel,
	}
	s.logger = s.logger.WithFields(map[string]interface{}{"sessionId": s.ID})

	// Renaming an item kicks off a candidate search keyed by the new name.
	s.editor.SetNameChangeHook(func(sectionIdx, itemIdx int, name string) {
		s.searchForItem(sectionIdx, itemIdx, name)
	})

	return s
}

// SetProgressObserver registers the job progress callback. Must be set
// before Ingest.
func (s *Session) SetProgressObserver(fn ProgressObserver) {
	s.onProgress = fn
}

// SetImageResultsObserver registers the image candidates callback. Must be
// set before editing begins.
func (s *Session) SetImageResultsObserver(fn ImageResultsObserver) {
	s.onImageResults = fn
}

// Editor exposes the full edit surface for the live draft.
func (s *Session) Editor() *draft.Editor {
	return s.editor
}

// Draft returns a deep-copied snapshot of the current draft tree.
func (s *Session) Draft() *draft.Menu {
	return s.editor.Snapshot()
}

// Close cancels the session: the poll loop stops and any in-flight search or
// upload resolving afterwards becomes a no-op with respect to session state.
func (s *Session) Close() {
	s.cancel()
}

// Ingest submits the image, polls the extraction job to completion, and
// merges the reconciled items into the draft as a new section. The caller's
// ctx and the session lifetime both bound the poll loop; editing stays
// available throughout.
func (s *Session) Ingest(ctx context.Context, image extraction.Upload) error {
	handle, err := s.deps.Extraction.Submit(ctx, image)
	if err != nil {
		return err
	}

	pollCtx, cancel := mergeContexts(ctx, s.ctx)
	defer cancel()

	results, err := s.deps.Poller.Run(pollCtx, handle, func(job extraction.Job) {
		if s.onProgress != nil {
			s.onProgress(job)
		}
	})
	if err != nil {
		return err
	}

	section, err := draft.Reconcile(results)
	if err != nil {
		return err
	}
	s.editor.AppendSection(section)

	s.autosave()
	return nil
}

// UploadImage stores a local image and appends its URL to the item through
// the same toggle semantics as a search-result selection.
func (s *Session) UploadImage(ctx context.Context, sectionIdx, itemIdx int, file images.File) (string, error) {
	url, err := s.deps.Uploader.Upload(ctx, file)
	if err != nil {
		return "", err
	}
	if s.ctx.Err() != nil {
		// Session closed while the upload was in flight; drop the result.
		return url, nil
	}
	if err := s.editor.ToggleImage(sectionIdx, itemIdx, url); err != nil {
		return "", err
	}
	s.autosave()
	return url, nil
}

// SelectImage toggles a search-result URL on the item.
func (s *Session) SelectImage(sectionIdx, itemIdx int, url string) error {
	if err := s.editor.ToggleImage(sectionIdx, itemIdx, url); err != nil {
		return err
	}
	s.autosave()
	return nil
}

// Publish runs the two-step create+publish for the current draft. On full
// success the autosaved draft is discarded; a partial failure keeps it so
// the publish step alone can be retried.
func (s *Session) Publish(ctx context.Context, restaurantSlug string) publish.Result {
	result := s.deps.Orchestrator.Run(ctx, restaurantSlug, s.Draft())
	if result.Outcome == publish.OutcomePublished {
		s.discardAutosave()
	}
	return result
}

// RetryPublish retries only the publish step after a partial failure.
func (s *Session) RetryPublish(ctx context.Context, restaurantSlug, menuID string) error {
	if err := s.deps.Orchestrator.Publish(ctx, restaurantSlug, menuID); err != nil {
		return err
	}
	s.discardAutosave()
	return nil
}

// Restore loads a previously autosaved draft into the session, replacing the
// current one.
func (s *Session) Restore(ctx context.Context, sessionID string) error {
	if s.deps.Store == nil {
		return draft.ErrDraftNotFound
	}
	menu, err := s.deps.Store.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	s.ID = sessionID
	s.editor = draft.NewEditor(menu)
	s.editor.SetNameChangeHook(func(sectionIdx, itemIdx int, name string) {
		s.searchForItem(sectionIdx, itemIdx, name)
	})
	return nil
}

func (s *Session) searchForItem(sectionIdx, itemIdx int, name string) {
	if s.deps.Search == nil || s.ctx.Err() != nil {
		return
	}
	results, err := s.deps.Search.Search(s.ctx, name, s.deps.SearchLimit)
	if err != nil {
		s.logger.Warn("image search failed", map[string]interface{}{
			"item":  name,
			"error": err.Error(),
		})
		return
	}
	// The session may have been closed while the search was in flight.
	if s.ctx.Err() != nil {
		return
	}
	if s.onImageResults != nil {
		s.onImageResults(sectionIdx, itemIdx, results)
	}
}

func (s *Session) autosave() {
	if s.deps.Store == nil || s.ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	if err := s.deps.Store.Save(ctx, s.ID, s.Draft()); err != nil {
		s.logger.Warn("draft autosave failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (s *Session) discardAutosave() {
	if s.deps.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.deps.Store.Delete(ctx, s.ID); err != nil {
		s.logger.Warn("draft autosave cleanup failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// mergeContexts cancels the derived context when either parent is done.
func mergeContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
