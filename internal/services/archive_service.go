package services

import (
	"context"
	"encoding/json"
	"time"

	"techlight-support/internal/domain"
	"techlight-support/internal/storage"
)

// ArchiveService writes closed-conversation transcripts to S3.
// Conversations are never hard-deleted, so the transcript plus the
// database row together form the audit record.
type ArchiveService struct {
	store *storage.Client
}

func NewArchiveService(store *storage.Client) *ArchiveService {
	return &ArchiveService{store: store}
}

type transcript struct {
	Conversation domain.Conversation `json:"conversation"`
	Messages     []domain.Message    `json:"messages"`
	ArchivedAt   time.Time           `json:"archived_at"`
}

func (a *ArchiveService) ArchiveTranscript(ctx context.Context, conv domain.Conversation, msgs []domain.Message) error {
	body, err := json.Marshal(transcript{
		Conversation: conv,
		Messages:     msgs,
		ArchivedAt:   time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	key := "transcripts/" + conv.ID.String() + ".json"
	return a.store.PutObject(ctx, key, "application/json", body)
}
