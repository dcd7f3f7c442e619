package services

import (
	"context"

	"github.com/codyseavey/tcg-exchange/internal/apperrors"
)

const postLockStripes = 64

// PostLocks serializes trade transitions per trade post within this process.
// Posts whose ids share a stripe also wait on each other. Callers hold at
// most one stripe at a time and take it before opening a transaction.
type PostLocks struct {
	stripes [postLockStripes]chan struct{}
}

func NewPostLocks() *PostLocks {
	l := &PostLocks{}
	for i := range l.stripes {
		l.stripes[i] = make(chan struct{}, 1)
	}
	return l
}

// Lock waits for the stripe for postID and returns its unlock. It gives up
// when ctx is done.
func (l *PostLocks) Lock(ctx context.Context, postID uint) (func(), error) {
	stripe := l.stripes[postID%postLockStripes]
	select {
	case stripe <- struct{}{}:
		return func() { <-stripe }, nil
	case <-ctx.Done():
		return nil, apperrors.Internal(ctx.Err(), "wait for trade post %d", postID)
	}
}
