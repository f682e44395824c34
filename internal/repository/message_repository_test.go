package repository

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	"github.com/nimasrn/webhook-intake/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newTestMessage(id, from, to, ts string, text *string) *model.Message {
	return &model.Message{
		MessageID: id,
		From:      from,
		To:        to,
		TS:        ts,
		Text:      text,
	}
}

func TestMessageRepository_Insert(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db.DB)
	ctx := context.Background()

	t.Run("insert new message", func(t *testing.T) {
		msg := newTestMessage("m1", "+111", "+222", "2025-01-15T10:00:00Z", strPtr("Hello"))

		outcome, err := repo.Insert(ctx, msg)
		require.NoError(t, err)
		assert.Equal(t, model.OutcomeCreated, outcome)
		assert.Regexp(t, regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z$`), msg.CreatedAt)
	})

	t.Run("replay is a duplicate, not an error", func(t *testing.T) {
		replay := newTestMessage("m1", "+999", "+888", "2030-01-01T00:00:00Z", strPtr("other"))

		outcome, err := repo.Insert(ctx, replay)
		require.NoError(t, err)
		assert.Equal(t, model.OutcomeDuplicate, outcome)
	})

	t.Run("duplicate never mutates the stored row", func(t *testing.T) {
		items, total, err := repo.List(ctx, model.MessageFilter{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, items, 1)
		assert.Equal(t, "+111", items[0].From)
		assert.Equal(t, "2025-01-15T10:00:00Z", items[0].TS)
		require.NotNil(t, items[0].Text)
		assert.Equal(t, "Hello", *items[0].Text)
	})

	t.Run("nil text is persisted as NULL", func(t *testing.T) {
		msg := newTestMessage("m2", "+111", "+222", "2025-01-15T11:00:00Z", nil)
		outcome, err := repo.Insert(ctx, msg)
		require.NoError(t, err)
		assert.Equal(t, model.OutcomeCreated, outcome)

		items, _, err := repo.List(ctx, model.MessageFilter{From: strPtr("+111"), Limit: 10})
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Nil(t, items[1].Text)
	})

	t.Run("storage fault is not a duplicate", func(t *testing.T) {
		broken := setupTestDB(t)
		require.NoError(t, broken.rawDB.Migrator().DropTable(&MessageEntity{}))
		brokenRepo := NewMessageRepository(broken.DB)

		outcome, err := brokenRepo.Insert(ctx, newTestMessage("m3", "+1", "+2", "2025-01-15T10:00:00Z", nil))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrStorage)
		assert.Equal(t, model.OutcomeStorageError, outcome)
	})
}

func TestMessageRepository_List_Ordering(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db.DB)
	ctx := context.Background()

	// inserted out of order on purpose
	inserts := []*model.Message{
		newTestMessage("m1", "+111", "+222", "2025-01-15T12:00:00Z", nil),
		newTestMessage("m2", "+111", "+222", "2025-01-15T10:00:00Z", nil),
		newTestMessage("zz", "+111", "+222", "2025-01-15T11:00:00Z", nil),
		newTestMessage("aa", "+111", "+222", "2025-01-15T11:00:00Z", nil),
	}
	for _, m := range inserts {
		_, err := repo.Insert(ctx, m)
		require.NoError(t, err)
	}

	items, total, err := repo.List(ctx, model.MessageFilter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, items, 4)

	// ts ascending, message_id breaks the tie
	assert.Equal(t, "m2", items[0].MessageID)
	assert.Equal(t, "aa", items[1].MessageID)
	assert.Equal(t, "zz", items[2].MessageID)
	assert.Equal(t, "m1", items[3].MessageID)

	t.Run("stable across repeated calls", func(t *testing.T) {
		again, _, err := repo.List(ctx, model.MessageFilter{Limit: 10})
		require.NoError(t, err)
		for i := range items {
			assert.Equal(t, items[i].MessageID, again[i].MessageID)
		}
	})
}

func TestMessageRepository_List_Filters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db.DB)
	ctx := context.Background()

	seed := []*model.Message{
		newTestMessage("a1", "+111", "+900", "2025-01-15T09:00:00Z", strPtr("Hello World")),
		newTestMessage("a2", "+111", "+900", "2025-01-15T10:00:00Z", strPtr("goodbye")),
		newTestMessage("b1", "+222", "+900", "2025-01-15T11:00:00Z", strPtr("hello again")),
		newTestMessage("b2", "+222", "+900", "2025-01-15T12:00:00Z", nil),
	}
	for _, m := range seed {
		_, err := repo.Insert(ctx, m)
		require.NoError(t, err)
	}

	t.Run("from exact match", func(t *testing.T) {
		items, total, err := repo.List(ctx, model.MessageFilter{From: strPtr("+111"), Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, items, 2)
		for _, it := range items {
			assert.Equal(t, "+111", it.From)
		}
	})

	t.Run("from is exact, not prefix", func(t *testing.T) {
		_, total, err := repo.List(ctx, model.MessageFilter{From: strPtr("+11"), Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
	})

	t.Run("since keeps ts >= boundary", func(t *testing.T) {
		items, total, err := repo.List(ctx, model.MessageFilter{Since: strPtr("2025-01-15T10:00:00Z"), Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Equal(t, "a2", items[0].MessageID)
	})

	t.Run("text query is case-insensitive substring", func(t *testing.T) {
		items, total, err := repo.List(ctx, model.MessageFilter{Query: strPtr("HELLO"), Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, items, 2)
		assert.Equal(t, "a1", items[0].MessageID)
		assert.Equal(t, "b1", items[1].MessageID)
	})

	t.Run("absent text never matches a query", func(t *testing.T) {
		_, total, err := repo.List(ctx, model.MessageFilter{Query: strPtr(""), Limit: 10})
		require.NoError(t, err)
		// empty query is no filter at all
		assert.Equal(t, int64(4), total)

		_, total, err = repo.List(ctx, model.MessageFilter{Query: strPtr("anything"), Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
	})

	t.Run("filters combine as AND", func(t *testing.T) {
		items, total, err := repo.List(ctx, model.MessageFilter{
			From:  strPtr("+111"),
			Since: strPtr("2025-01-15T10:00:00Z"),
			Query: strPtr("bye"),
			Limit: 10,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, items, 1)
		assert.Equal(t, "a2", items[0].MessageID)
	})
}

func TestMessageRepository_List_Pagination(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db.DB)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		m := newTestMessage(
			fmt.Sprintf("m%d", i),
			"+111", "+222",
			fmt.Sprintf("2025-01-15T10:00:0%dZ", i),
			nil,
		)
		_, err := repo.Insert(ctx, m)
		require.NoError(t, err)
	}

	t.Run("limit caps the page", func(t *testing.T) {
		items, total, err := repo.List(ctx, model.MessageFilter{Limit: 3})
		require.NoError(t, err)
		assert.Equal(t, int64(7), total)
		assert.Len(t, items, 3)
	})

	t.Run("total is invariant under limit and offset", func(t *testing.T) {
		for _, f := range []model.MessageFilter{
			{Limit: 1},
			{Limit: 5, Offset: 2},
			{Limit: 100, Offset: 6},
		} {
			_, total, err := repo.List(ctx, f)
			require.NoError(t, err)
			assert.Equal(t, int64(7), total)
		}
	})

	t.Run("offset walks the ordered set", func(t *testing.T) {
		items, _, err := repo.List(ctx, model.MessageFilter{Limit: 2, Offset: 4})
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "m4", items[0].MessageID)
		assert.Equal(t, "m5", items[1].MessageID)
	})

	t.Run("offset beyond match count yields empty page, unchanged total", func(t *testing.T) {
		items, total, err := repo.List(ctx, model.MessageFilter{Limit: 5, Offset: 100})
		require.NoError(t, err)
		assert.Equal(t, int64(7), total)
		assert.Empty(t, items)
	})
}

func TestMessageRepository_Aggregate(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewMessageRepository(db.DB)

		stats, err := repo.Aggregate(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), stats.TotalMessages)
		assert.Equal(t, int64(0), stats.SendersCount)
		assert.Empty(t, stats.MessagesPerSender)
		assert.Nil(t, stats.FirstMessageTS)
		assert.Nil(t, stats.LastMessageTS)
	})

	t.Run("per-sender counts sorted by count desc", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewMessageRepository(db.DB)

		counts := map[string]int{"+111": 10, "+222": 7, "+333": 5}
		i := 0
		for sender, n := range counts {
			for j := 0; j < n; j++ {
				m := newTestMessage(
					fmt.Sprintf("%s-%d", sender, j),
					sender, "+900",
					fmt.Sprintf("2025-01-15T%02d:%02d:00Z", 10+i, j),
					nil,
				)
				_, err := repo.Insert(ctx, m)
				require.NoError(t, err)
			}
			i++
		}

		stats, err := repo.Aggregate(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(22), stats.TotalMessages)
		assert.Equal(t, int64(3), stats.SendersCount)
		require.Len(t, stats.MessagesPerSender, 3)
		assert.Equal(t, model.SenderCount{From: "+111", Count: 10}, stats.MessagesPerSender[0])
		assert.Equal(t, model.SenderCount{From: "+222", Count: 7}, stats.MessagesPerSender[1])
		assert.Equal(t, model.SenderCount{From: "+333", Count: 5}, stats.MessagesPerSender[2])
	})

	t.Run("top senders capped at 10 with deterministic tie-break", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewMessageRepository(db.DB)

		// 12 senders with one message each: ties broken by sender asc
		for i := 0; i < 12; i++ {
			m := newTestMessage(
				fmt.Sprintf("m%02d", i),
				fmt.Sprintf("+%02d", i), "+900",
				"2025-01-15T10:00:00Z",
				nil,
			)
			_, err := repo.Insert(ctx, m)
			require.NoError(t, err)
		}

		stats, err := repo.Aggregate(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(12), stats.SendersCount)
		require.Len(t, stats.MessagesPerSender, 10)
		assert.Equal(t, "+00", stats.MessagesPerSender[0].From)
		assert.Equal(t, "+09", stats.MessagesPerSender[9].From)
	})

	t.Run("first and last ts by string comparison", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewMessageRepository(db.DB)

		for i, ts := range []string{"2025-01-15T12:00:00Z", "2025-01-14T08:00:00Z", "2025-01-16T23:59:59Z"} {
			m := newTestMessage(fmt.Sprintf("m%d", i), "+111", "+222", ts, nil)
			_, err := repo.Insert(ctx, m)
			require.NoError(t, err)
		}

		stats, err := repo.Aggregate(ctx)
		require.NoError(t, err)
		require.NotNil(t, stats.FirstMessageTS)
		require.NotNil(t, stats.LastMessageTS)
		assert.Equal(t, "2025-01-14T08:00:00Z", *stats.FirstMessageTS)
		assert.Equal(t, "2025-01-16T23:59:59Z", *stats.LastMessageTS)
	})
}

func TestMessageRepository_Ready(t *testing.T) {
	ctx := context.Background()

	t.Run("schema applied", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewMessageRepository(db.DB)
		assert.NoError(t, repo.Ready(ctx))
	})

	t.Run("schema missing", func(t *testing.T) {
		db := setupTestDB(t)
		require.NoError(t, db.rawDB.Migrator().DropTable(&MessageEntity{}))
		repo := NewMessageRepository(db.DB)
		assert.Error(t, repo.Ready(ctx))
	})
}
