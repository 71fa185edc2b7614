package service

import (
	"context"
	"errors"
	"log"

	"github.com/noteduco342/moim-backend/internal/live"
	"github.com/noteduco342/moim-backend/internal/metrics"
	"github.com/noteduco342/moim-backend/internal/repository"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// CascadeResult describes a finished cascade delete.
type CascadeResult struct {
	PostID  string `json:"post_id"`
	Deleted int    `json:"deleted_comments"`
	Rounds  int    `json:"rounds"`
}

// SubtreeDeleter removes a post together with all of its comments. Comments
// go first in bounded batches, then the post. The cascade is not atomic: a
// failure part way leaves the post and the comments not yet reached, and
// repeating the delete finishes the job.
type SubtreeDeleter struct {
	posts     repository.PostRepositoryInterface
	comments  repository.CommentRepositoryInterface
	publisher *live.Publisher
	batchSize int

	flight singleflight.Group
}

func NewSubtreeDeleter(
	posts repository.PostRepositoryInterface,
	comments repository.CommentRepositoryInterface,
	publisher *live.Publisher,
	batchSize int,
) *SubtreeDeleter {
	if batchSize < 1 {
		batchSize = 300
	}
	return &SubtreeDeleter{
		posts:     posts,
		comments:  comments,
		publisher: publisher,
		batchSize: batchSize,
	}
}

// DeletePostCascade deletes the post and its comments. Concurrent calls for
// the same post share one run. Deleting a post that no longer exists
// succeeds.
func (d *SubtreeDeleter) DeletePostCascade(ctx context.Context, postID string) (CascadeResult, error) {
	v, err, _ := d.flight.Do(postID, func() (interface{}, error) {
		return d.cascade(ctx, postID)
	})
	result, _ := v.(CascadeResult)
	return result, err
}

func (d *SubtreeDeleter) cascade(ctx context.Context, postID string) (CascadeResult, error) {
	result := CascadeResult{PostID: postID}

	groupID := ""
	post, err := d.posts.FindByID(ctx, postID)
	switch {
	case err == nil:
		groupID = post.GroupID
	case errors.Is(err, gorm.ErrRecordNotFound):
		// Already gone; still sweep comments a concurrent writer may have left.
	default:
		return d.finish(result, classify(err))
	}

	for {
		ids, err := d.comments.FetchBatch(ctx, postID, d.batchSize)
		if err != nil {
			return d.finish(result, d.failure(result, err))
		}
		if len(ids) == 0 {
			break
		}
		if err := d.comments.BatchDelete(ctx, ids); err != nil {
			return d.finish(result, d.failure(result, err))
		}
		result.Deleted += len(ids)
		result.Rounds++
	}

	if err := d.posts.Delete(ctx, postID); err != nil {
		return d.finish(result, &PartialFailureError{PostID: postID, Deleted: result.Deleted, Err: err})
	}

	topics := []string{live.PostTopic(postID), live.PostCommentsTopic(postID)}
	if groupID != "" {
		topics = append(topics, live.GroupPostsTopic(groupID))
	}
	if err := d.publisher.Notify(ctx, topics...); err != nil {
		log.Printf("cascade notice failed post=%s err=%v", postID, err)
	}
	return d.finish(result, nil)
}

// failure classifies an error raised inside the batch loop. Nothing removed
// yet means the store is untouched and the caller may simply retry.
func (d *SubtreeDeleter) failure(result CascadeResult, err error) error {
	if result.Deleted == 0 {
		return classify(err)
	}
	return &PartialFailureError{PostID: result.PostID, Deleted: result.Deleted, Err: err}
}

func (d *SubtreeDeleter) finish(result CascadeResult, err error) (CascadeResult, error) {
	metrics.CascadeRounds.Observe(float64(result.Rounds))
	switch {
	case err == nil:
		metrics.CascadeResults.WithLabelValues("ok").Inc()
		log.Printf("cascade delete post=%s comments=%d rounds=%d", result.PostID, result.Deleted, result.Rounds)
	case errors.Is(err, ErrPartialFailure):
		metrics.CascadeResults.WithLabelValues("partial").Inc()
		log.Printf("cascade delete incomplete post=%s comments=%d err=%v", result.PostID, result.Deleted, err)
	default:
		metrics.CascadeResults.WithLabelValues("error").Inc()
		log.Printf("cascade delete failed post=%s err=%v", result.PostID, err)
	}
	return result, err
}
