package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietpages/quietpages-server/internal/logger"
	"github.com/quietpages/quietpages-server/internal/model"
)

// fakeAccess is a scriptable EntryAccess backed by function fields.
type fakeAccess struct {
	createFn func(ctx context.Context, params model.CreateEntryParams) (model.Entry, error)
	listFn   func(ctx context.Context, userID uuid.UUID, filter model.EntryFilter) ([]model.Entry, error)
	updateFn func(ctx context.Context, userID, entryID uuid.UUID, params model.UpdateEntryParams) (model.Entry, error)
	deleteFn func(ctx context.Context, userID, entryID uuid.UUID) error
	subFn    func(ctx context.Context, userID uuid.UUID) (<-chan model.EntryEvent, error)
}

func (f *fakeAccess) CreateEntry(ctx context.Context, params model.CreateEntryParams) (model.Entry, error) {
	return f.createFn(ctx, params)
}

func (f *fakeAccess) ListEntries(ctx context.Context, userID uuid.UUID, filter model.EntryFilter) ([]model.Entry, error) {
	return f.listFn(ctx, userID, filter)
}

func (f *fakeAccess) UpdateEntry(ctx context.Context, userID, entryID uuid.UUID, params model.UpdateEntryParams) (model.Entry, error) {
	return f.updateFn(ctx, userID, entryID, params)
}

func (f *fakeAccess) DeleteEntry(ctx context.Context, userID, entryID uuid.UUID) error {
	return f.deleteFn(ctx, userID, entryID)
}

func (f *fakeAccess) Subscribe(ctx context.Context, userID uuid.UUID) (<-chan model.EntryEvent, error) {
	return f.subFn(ctx, userID)
}

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (n *recordingNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, msg)
}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func newTestSession(access EntryAccess) (*Session, *recordingNotifier) {
	notifier := &recordingNotifier{}
	return NewSession(uuid.New(), access, notifier, logger.New(0)), notifier
}

func TestNewSession_NilNotifierFallsBackToLog(t *testing.T) {
	access := &fakeAccess{
		listFn: func(ctx context.Context, userID uuid.UUID, filter model.EntryFilter) ([]model.Entry, error) {
			return nil, errors.New("boom")
		},
		createFn: func(ctx context.Context, params model.CreateEntryParams) (model.Entry, error) {
			return model.Entry{}, errors.New("boom")
		},
	}

	session := NewSession(uuid.New(), access, nil, logger.New(0))

	// Both the absorbed fetch failure and the propagated mutation failure
	// notify; with no notifier given, that must land in the log, not panic.
	session.Fetch(context.Background())
	assert.Equal(t, ErrCodeUnknown, session.Snapshot().ErrCode)

	_, err := session.Create(context.Background(), "t", "c", nil)
	assert.Error(t, err)
}

func TestSession_Fetch(t *testing.T) {
	entries := []model.Entry{
		{ID: uuid.New(), Title: "newest"},
		{ID: uuid.New(), Title: "older"},
	}

	t.Run("replaces the list on success", func(t *testing.T) {
		access := &fakeAccess{
			listFn: func(ctx context.Context, userID uuid.UUID, filter model.EntryFilter) ([]model.Entry, error) {
				return entries, nil
			},
		}
		session, _ := newTestSession(access)

		session.Fetch(context.Background())

		snap := session.Snapshot()
		assert.False(t, snap.Loading)
		assert.Equal(t, ErrCodeNone, snap.ErrCode)
		assert.Len(t, snap.Entries, 2)
	})

	t.Run("passes the active filters to the backend", func(t *testing.T) {
		var got model.EntryFilter
		access := &fakeAccess{
			listFn: func(ctx context.Context, userID uuid.UUID, filter model.EntryFilter) ([]model.Entry, error) {
				got = filter
				return nil, nil
			},
		}
		session, _ := newTestSession(access)

		session.SetSearchTerm(context.Background(), "coffee")
		assert.Equal(t, "coffee", got.Search)

		session.SetSelectedTags(context.Background(), []string{"morning", "work"})
		assert.Equal(t, []string{"morning", "work"}, got.Tags)
		assert.Equal(t, "coffee", got.Search)
	})

	t.Run("missing schema becomes NOT_SETUP state, not a panic", func(t *testing.T) {
		access := &fakeAccess{
			listFn: func(ctx context.Context, userID uuid.UUID, filter model.EntryFilter) ([]model.Entry, error) {
				return nil, model.ErrNotProvisioned
			},
		}
		session, notifier := newTestSession(access)

		session.Fetch(context.Background())

		snap := session.Snapshot()
		assert.Equal(t, ErrCodeNotSetup, snap.ErrCode)
		assert.NotEmpty(t, snap.ErrMessage)
		assert.False(t, snap.Loading)
		assert.Len(t, notifier.errors, 1)
	})

	t.Run("permission failure becomes PERMISSION_DENIED state", func(t *testing.T) {
		access := &fakeAccess{
			listFn: func(ctx context.Context, userID uuid.UUID, filter model.EntryFilter) ([]model.Entry, error) {
				return nil, model.ErrPermissionDenied
			},
		}
		session, _ := newTestSession(access)

		session.Fetch(context.Background())
		assert.Equal(t, ErrCodePermissionDenied, session.Snapshot().ErrCode)
	})

	t.Run("unclassified failure becomes UNKNOWN state", func(t *testing.T) {
		access := &fakeAccess{
			listFn: func(ctx context.Context, userID uuid.UUID, filter model.EntryFilter) ([]model.Entry, error) {
				return nil, errors.New("socket closed")
			},
		}
		session, _ := newTestSession(access)

		session.Fetch(context.Background())

		snap := session.Snapshot()
		assert.Equal(t, ErrCodeUnknown, snap.ErrCode)
		assert.Equal(t, "socket closed", snap.ErrMessage)
	})

	t.Run("successful fetch clears a previous error", func(t *testing.T) {
		fail := true
		access := &fakeAccess{
			listFn: func(ctx context.Context, userID uuid.UUID, filter model.EntryFilter) ([]model.Entry, error) {
				if fail {
					return nil, model.ErrNotProvisioned
				}
				return entries, nil
			},
		}
		session, _ := newTestSession(access)

		session.Fetch(context.Background())
		require.Equal(t, ErrCodeNotSetup, session.Snapshot().ErrCode)

		fail = false
		session.Fetch(context.Background())
		assert.Equal(t, ErrCodeNone, session.Snapshot().ErrCode)
		assert.Empty(t, session.Snapshot().ErrMessage)
	})
}

func TestSession_Fetch_StaleResultDiscarded(t *testing.T) {
	stale := []model.Entry{{ID: uuid.New(), Title: "stale"}}
	fresh := []model.Entry{{ID: uuid.New(), Title: "fresh"}}

	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})

	calls := 0
	var mu sync.Mutex
	access := &fakeAccess{
		listFn: func(ctx context.Context, userID uuid.UUID, filter model.EntryFilter) ([]model.Entry, error) {
			mu.Lock()
			calls++
			first := calls == 1
			mu.Unlock()

			if first {
				close(firstStarted)
				<-releaseFirst
				return stale, nil
			}
			return fresh, nil
		},
	}
	session, _ := newTestSession(access)

	done := make(chan struct{})
	go func() {
		defer close(done)
		session.Fetch(context.Background())
	}()

	<-firstStarted
	// Second fetch starts and finishes while the first is still in flight.
	session.Fetch(context.Background())
	require.Equal(t, "fresh", session.Snapshot().Entries[0].Title)

	close(releaseFirst)
	<-done

	// The slow first fetch must not overwrite the newer result.
	snap := session.Snapshot()
	require.Len(t, snap.Entries, 1)
	assert.Equal(t, "fresh", snap.Entries[0].Title)
	assert.False(t, snap.Loading)
}

func TestSession_Create(t *testing.T) {
	existing := model.Entry{ID: uuid.New(), Title: "old"}
	created := model.Entry{ID: uuid.New(), Title: "new"}

	t.Run("prepends the new entry", func(t *testing.T) {
		access := &fakeAccess{
			listFn: func(ctx context.Context, userID uuid.UUID, filter model.EntryFilter) ([]model.Entry, error) {
				return []model.Entry{existing}, nil
			},
			createFn: func(ctx context.Context, params model.CreateEntryParams) (model.Entry, error) {
				return created, nil
			},
		}
		session, notifier := newTestSession(access)
		session.Fetch(context.Background())

		got, err := session.Create(context.Background(), "new", "content", nil)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)

		snap := session.Snapshot()
		require.Len(t, snap.Entries, 2)
		assert.Equal(t, created.ID, snap.Entries[0].ID)
		assert.Equal(t, existing.ID, snap.Entries[1].ID)
		assert.Len(t, notifier.successes, 1)
	})

	t.Run("failure notifies and returns the error", func(t *testing.T) {
		access := &fakeAccess{
			createFn: func(ctx context.Context, params model.CreateEntryParams) (model.Entry, error) {
				return model.Entry{}, model.ErrContentRequired
			},
		}
		session, notifier := newTestSession(access)

		_, err := session.Create(context.Background(), "t", "", nil)
		assert.ErrorIs(t, err, model.ErrContentRequired)
		assert.Len(t, notifier.errors, 1)
		assert.Empty(t, session.Snapshot().Entries)
	})
}

func TestSession_Update(t *testing.T) {
	first := model.Entry{ID: uuid.New(), Title: "first"}
	second := model.Entry{ID: uuid.New(), Title: "second"}

	access := &fakeAccess{
		listFn: func(ctx context.Context, userID uuid.UUID, filter model.EntryFilter) ([]model.Entry, error) {
			return []model.Entry{first, second}, nil
		},
		updateFn: func(ctx context.Context, userID, entryID uuid.UUID, params model.UpdateEntryParams) (model.Entry, error) {
			updated := second
			updated.Title = *params.Title
			return updated, nil
		},
	}
	session, _ := newTestSession(access)
	session.Fetch(context.Background())

	title := "second, revised"
	_, err := session.Update(context.Background(), second.ID, model.UpdateEntryParams{Title: &title})
	require.NoError(t, err)

	// Order preserved: updated entry stays at its position.
	snap := session.Snapshot()
	require.Len(t, snap.Entries, 2)
	assert.Equal(t, first.ID, snap.Entries[0].ID)
	assert.Equal(t, "second, revised", snap.Entries[1].Title)
}

func TestSession_Delete(t *testing.T) {
	first := model.Entry{ID: uuid.New(), Title: "first"}
	second := model.Entry{ID: uuid.New(), Title: "second"}

	t.Run("removes after backend confirms", func(t *testing.T) {
		access := &fakeAccess{
			listFn: func(ctx context.Context, userID uuid.UUID, filter model.EntryFilter) ([]model.Entry, error) {
				return []model.Entry{first, second}, nil
			},
			deleteFn: func(ctx context.Context, userID, entryID uuid.UUID) error {
				return nil
			},
		}
		session, _ := newTestSession(access)
		session.Fetch(context.Background())

		require.NoError(t, session.Delete(context.Background(), first.ID))

		snap := session.Snapshot()
		require.Len(t, snap.Entries, 1)
		assert.Equal(t, second.ID, snap.Entries[0].ID)
	})

	t.Run("failed delete leaves the list untouched", func(t *testing.T) {
		access := &fakeAccess{
			listFn: func(ctx context.Context, userID uuid.UUID, filter model.EntryFilter) ([]model.Entry, error) {
				return []model.Entry{first}, nil
			},
			deleteFn: func(ctx context.Context, userID, entryID uuid.UUID) error {
				return model.ErrNotFound
			},
		}
		session, notifier := newTestSession(access)
		session.Fetch(context.Background())

		err := session.Delete(context.Background(), first.ID)
		assert.ErrorIs(t, err, model.ErrNotFound)
		assert.Len(t, session.Snapshot().Entries, 1)
		assert.Len(t, notifier.errors, 1)
	})
}

func TestSession_Subscribe(t *testing.T) {
	t.Run("applies feed events to the list", func(t *testing.T) {
		events := make(chan model.EntryEvent)
		access := &fakeAccess{
			subFn: func(ctx context.Context, userID uuid.UUID) (<-chan model.EntryEvent, error) {
				go func() {
					<-ctx.Done()
					close(events)
				}()
				return events, nil
			},
		}
		session, _ := newTestSession(access)
		require.NoError(t, session.Subscribe(context.Background()))

		created := model.Entry{ID: uuid.New(), Title: "from feed"}
		events <- model.EntryEvent{Type: model.EntryCreated, Entry: created}

		require.Eventually(t, func() bool {
			return len(session.Snapshot().Entries) == 1
		}, time.Second, 5*time.Millisecond)

		updated := created
		updated.Title = "revised by another device"
		events <- model.EntryEvent{Type: model.EntryUpdated, Entry: updated}

		require.Eventually(t, func() bool {
			snap := session.Snapshot()
			return len(snap.Entries) == 1 && snap.Entries[0].Title == "revised by another device"
		}, time.Second, 5*time.Millisecond)

		events <- model.EntryEvent{Type: model.EntryDeleted, EntryID: created.ID}

		require.Eventually(t, func() bool {
			return len(session.Snapshot().Entries) == 0
		}, time.Second, 5*time.Millisecond)

		session.Unsubscribe()
	})

	t.Run("create echoed back by the feed is not duplicated", func(t *testing.T) {
		entry := model.Entry{ID: uuid.New(), Title: "once"}
		events := make(chan model.EntryEvent)
		access := &fakeAccess{
			createFn: func(ctx context.Context, params model.CreateEntryParams) (model.Entry, error) {
				return entry, nil
			},
			subFn: func(ctx context.Context, userID uuid.UUID) (<-chan model.EntryEvent, error) {
				go func() {
					<-ctx.Done()
					close(events)
				}()
				return events, nil
			},
		}
		session, _ := newTestSession(access)
		require.NoError(t, session.Subscribe(context.Background()))

		_, err := session.Create(context.Background(), "once", "body", nil)
		require.NoError(t, err)

		events <- model.EntryEvent{Type: model.EntryCreated, Entry: entry}

		assert.Never(t, func() bool {
			return len(session.Snapshot().Entries) != 1
		}, 100*time.Millisecond, 10*time.Millisecond)

		session.Unsubscribe()
	})

	t.Run("resubscribe tears down the previous feed", func(t *testing.T) {
		subs := 0
		var cancelled []context.Context
		access := &fakeAccess{
			subFn: func(ctx context.Context, userID uuid.UUID) (<-chan model.EntryEvent, error) {
				subs++
				cancelled = append(cancelled, ctx)
				events := make(chan model.EntryEvent)
				go func() {
					<-ctx.Done()
					close(events)
				}()
				return events, nil
			},
		}
		session, _ := newTestSession(access)

		require.NoError(t, session.Subscribe(context.Background()))
		require.NoError(t, session.Subscribe(context.Background()))
		assert.Equal(t, 2, subs)
		assert.Error(t, cancelled[0].Err())
		assert.NoError(t, cancelled[1].Err())

		session.Unsubscribe()
	})

	t.Run("unsubscribe is idempotent", func(t *testing.T) {
		access := &fakeAccess{
			subFn: func(ctx context.Context, userID uuid.UUID) (<-chan model.EntryEvent, error) {
				events := make(chan model.EntryEvent)
				go func() {
					<-ctx.Done()
					close(events)
				}()
				return events, nil
			},
		}
		session, _ := newTestSession(access)

		session.Unsubscribe() // no active feed

		require.NoError(t, session.Subscribe(context.Background()))
		session.Unsubscribe()
		session.Unsubscribe()
	})

	t.Run("subscribe failure surfaces", func(t *testing.T) {
		access := &fakeAccess{
			subFn: func(ctx context.Context, userID uuid.UUID) (<-chan model.EntryEvent, error) {
				return nil, errors.New("feed unavailable")
			},
		}
		session, _ := newTestSession(access)

		assert.Error(t, session.Subscribe(context.Background()))
	})
}

func TestSession_Close(t *testing.T) {
	access := &fakeAccess{
		listFn: func(ctx context.Context, userID uuid.UUID, filter model.EntryFilter) ([]model.Entry, error) {
			return []model.Entry{{ID: uuid.New()}}, nil
		},
		subFn: func(ctx context.Context, userID uuid.UUID) (<-chan model.EntryEvent, error) {
			events := make(chan model.EntryEvent)
			go func() {
				<-ctx.Done()
				close(events)
			}()
			return events, nil
		},
	}
	session, _ := newTestSession(access)

	session.SetSearchTerm(context.Background(), "coffee")
	session.SetSelectedTags(context.Background(), []string{"a"})
	require.NoError(t, session.Subscribe(context.Background()))

	session.Close()

	snap := session.Snapshot()
	assert.Empty(t, snap.Entries)
	assert.Empty(t, snap.SearchTerm)
	assert.Empty(t, snap.SelectedTags)
	assert.Equal(t, ErrCodeNone, snap.ErrCode)
}

func TestSession_SnapshotIsolation(t *testing.T) {
	entry := model.Entry{ID: uuid.New(), Title: "original", Tags: []string{"keep"}}
	access := &fakeAccess{
		listFn: func(ctx context.Context, userID uuid.UUID, filter model.EntryFilter) ([]model.Entry, error) {
			return []model.Entry{entry}, nil
		},
	}
	session, _ := newTestSession(access)
	session.Fetch(context.Background())

	snap := session.Snapshot()
	snap.Entries[0].Title = "mutated"

	assert.Equal(t, "original", session.Snapshot().Entries[0].Title)
}
