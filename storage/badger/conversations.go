package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/logsage/core"
	"github.com/poiesic/logsage/storage"
)

// ConversationRepository implements storage.ConversationStore for BadgerDB.
type ConversationRepository struct {
	backend *Backend
	codec   *storage.Codec
}

var _ storage.ConversationStore = (*ConversationRepository)(nil)

// NewConversationRepository creates a new ConversationRepository.
func NewConversationRepository(backend *Backend) (*ConversationRepository, error) {
	codec, err := storage.NewCodec()
	if err != nil {
		return nil, err
	}
	return &ConversationRepository{
		backend: backend,
		codec:   codec,
	}, nil
}

// Close releases the codec. The backend stays open.
func (r *ConversationRepository) Close() error {
	r.codec.Close()
	return nil
}

// SaveConversation persists a snapshot of conv.
func (r *ConversationRepository) SaveConversation(ctx context.Context, conv *core.Conversation) error {
	value, err := r.codec.MarshalConversation(conv)
	if err != nil {
		return err
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeConversationKey(conv.ID), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LoadConversations returns every stored snapshot in key order.
func (r *ConversationRepository) LoadConversations(ctx context.Context) ([]*core.Conversation, error) {
	var convs []*core.Conversation
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(conversationPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := iter.Item().Value(func(val []byte) error {
				conv, err := r.codec.UnmarshalConversation(val)
				if err != nil {
					return err
				}
				convs = append(convs, conv)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	return convs, err
}

// DeleteConversation removes a snapshot.
func (r *ConversationRepository) DeleteConversation(ctx context.Context, id string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeConversationKey(id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
