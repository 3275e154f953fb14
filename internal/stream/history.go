package stream

import (
	"context"
	"fmt"

	"github.com/foliotalk/foliotalk/internal/api"
	"github.com/foliotalk/foliotalk/internal/chat"
)

// historyLoader pages through a conversation's persisted messages. A page
// returning fewer than pageSize items means the history is exhausted and no
// further pages are requested.
type historyLoader struct {
	client   *api.Client
	sort     string
	order    string
	pageSize int
}

func newHistoryLoader(client *api.Client, sortField, order string, pageSize int) *historyLoader {
	if sortField == "" {
		sortField = "id"
	}
	if order == "" {
		order = "asc"
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	return &historyLoader{client: client, sort: sortField, order: order, pageSize: pageSize}
}

// loadPage fetches one page and reports whether more pages may follow
func (l *historyLoader) loadPage(ctx context.Context, conversationID string, page int) ([]chat.Message, bool, error) {
	infos, _, err := l.client.ListMessages(ctx, conversationID, api.MessageQuery{
		Sort:   l.sort,
		Order:  l.order,
		Page:   page,
		Paging: l.pageSize,
	})
	if err != nil {
		return nil, false, fmt.Errorf("history fetch failed: %w", err)
	}

	messages := make([]chat.Message, 0, len(infos))
	for _, info := range infos {
		messages = append(messages, chat.FromHistory(info))
	}

	hasMore := len(infos) == l.pageSize
	return messages, hasMore, nil
}
