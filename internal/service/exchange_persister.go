package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/notebookrag/internal/access"
	"github.com/xxxsen/notebookrag/internal/model"
)

type MessageStore interface {
	AppendExchange(ctx context.Context, msgs []*model.Message) error
}

type AuditStore interface {
	Record(ctx context.Context, item *model.ChatAudit) error
}

// Exchange is one completed question and answer.
type Exchange struct {
	Scope    *access.Scope
	Question string
	Answer   string
	Sources  []model.RetrievedSource
	AskedAt  time.Time
}

type ExchangePersister struct {
	messages MessageStore
	audits   AuditStore
	now      func() time.Time
	wg       sync.WaitGroup
}

func NewExchangePersister(messages MessageStore, audits AuditStore) *ExchangePersister {
	return &ExchangePersister{messages: messages, audits: audits, now: time.Now}
}

// PersistAsync writes ex in the background. The write outlives the request
// context so a caller disconnecting after completion does not lose it.
func (p *ExchangePersister) PersistAsync(ctx context.Context, ex *Exchange) {
	bg := context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.Persist(bg, ex); err != nil {
			logutil.GetLogger(bg).Error("persist exchange failed",
				zap.String("collection_id", ex.Scope.CollectionID),
				zap.Error(err),
			)
		}
	}()
}

// Persist stores the user question and the assistant answer. Anonymous
// exchanges are authored by the collection owner and leave an audit row
// holding only the hashed client address.
func (p *ExchangePersister) Persist(ctx context.Context, ex *Exchange) error {
	scope := ex.Scope
	askedAt := ex.AskedAt.UnixMilli()
	answeredAt := p.now().UnixMilli()
	if answeredAt <= askedAt {
		answeredAt = askedAt + 1
	}
	var sources []model.RetrievedSource
	if len(ex.Sources) > 0 {
		sources = ex.Sources
	}
	msgs := []*model.Message{
		{
			ID:           newID(),
			CollectionID: scope.CollectionID,
			OwnerID:      scope.ActorID,
			Role:         model.RoleUser,
			Content:      ex.Question,
			Ctime:        askedAt,
		},
		{
			ID:           newID(),
			CollectionID: scope.CollectionID,
			OwnerID:      scope.ActorID,
			Role:         model.RoleAssistant,
			Content:      ex.Answer,
			Sources:      sources,
			Ctime:        answeredAt,
		},
	}
	if err := p.messages.AppendExchange(ctx, msgs); err != nil {
		return fmt.Errorf("append exchange: %w", err)
	}
	if !scope.Anonymous {
		return nil
	}
	logutil.GetLogger(ctx).Info("anonymous chat exchange",
		zap.String("share_id", scope.ShareID),
		zap.String("collection_id", scope.CollectionID),
		zap.String("client_hash", scope.ClientHash),
	)
	if p.audits == nil {
		return nil
	}
	if err := p.audits.Record(ctx, &model.ChatAudit{
		ID:           newID(),
		ShareID:      scope.ShareID,
		CollectionID: scope.CollectionID,
		ClientHash:   scope.ClientHash,
		Ctime:        answeredAt,
	}); err != nil {
		return fmt.Errorf("record chat audit: %w", err)
	}
	return nil
}

// Wait blocks until background writes finish.
func (p *ExchangePersister) Wait() {
	p.wg.Wait()
}
