// Package chat follows a conversation: it fetches messages on a push stream or on
// an interval, merges them by message id and appends sent messages optimistically.
package chat

import "github.com/cx-tal-miterani/trip-planner/shared/models"

// Merge folds a fetched message list into the held one. The server orders
// messages, so when fetched carries any id not already held it replaces held
// wholesale. Otherwise held is returned untouched and changed is false.
func Merge(held, fetched []models.Message) (merged []models.Message, changed bool) {
	seen := make(map[int64]struct{}, len(held))
	for _, m := range held {
		seen[m.MessageID] = struct{}{}
	}
	for _, m := range fetched {
		if _, ok := seen[m.MessageID]; !ok {
			return fetched, true
		}
	}
	return held, false
}

// appendNew appends msg unless a message with its id is already held.
func appendNew(held []models.Message, msg models.Message) ([]models.Message, bool) {
	for _, m := range held {
		if m.MessageID == msg.MessageID {
			return held, false
		}
	}
	return append(held, msg), true
}
