package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/noteduco342/moim-backend/internal/live"
	"github.com/noteduco342/moim-backend/internal/models"
	"github.com/noteduco342/moim-backend/internal/repository"
	"github.com/noteduco342/moim-backend/internal/validation"
)

// Actor is the authenticated caller of a content operation.
type Actor struct {
	ID   string
	Name string
}

// ContentService manages posts and comments. Owners and members write;
// authors and the group owner edit and delete.
type ContentService struct {
	groupRepo   repository.GroupRepositoryInterface
	postRepo    repository.PostRepositoryInterface
	commentRepo repository.CommentRepositoryInterface
	deleter     *SubtreeDeleter
	publisher   *live.Publisher
}

func NewContentService(
	groupRepo repository.GroupRepositoryInterface,
	postRepo repository.PostRepositoryInterface,
	commentRepo repository.CommentRepositoryInterface,
	deleter *SubtreeDeleter,
	publisher *live.Publisher,
) *ContentService {
	return &ContentService{
		groupRepo:   groupRepo,
		postRepo:    postRepo,
		commentRepo: commentRepo,
		deleter:     deleter,
		publisher:   publisher,
	}
}

func (s *ContentService) CreatePost(ctx context.Context, actor Actor, groupID, title, body string) (*models.Post, error) {
	title, body, err := cleanPost(title, body)
	if err != nil {
		return nil, err
	}
	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return nil, classify(err)
	}
	if !group.CanPost(actor.ID) {
		return nil, ErrUnauthorized
	}

	post := &models.Post{
		ID:         models.NewID(),
		GroupID:    groupID,
		AuthorID:   actor.ID,
		AuthorName: models.DisplayName(actor.Name),
		Title:      title,
		Body:       body,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, classify(err)
	}

	s.notify(ctx, live.GroupPostsTopic(groupID))
	return post, nil
}

func (s *ContentService) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, classify(err)
	}
	return post, nil
}

func (s *ContentService) EditPost(ctx context.Context, actor Actor, postID, title, body string) (*models.Post, error) {
	title, body, err := cleanPost(title, body)
	if err != nil {
		return nil, err
	}
	post, group, err := s.postWithGroup(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !post.CanModify(actor.ID, group.OwnerID) {
		return nil, ErrUnauthorized
	}
	if err := s.postRepo.Update(ctx, postID, title, body); err != nil {
		return nil, classify(err)
	}

	s.notify(ctx, live.PostTopic(postID), live.GroupPostsTopic(post.GroupID))
	return s.GetPost(ctx, postID)
}

// DeletePost removes the post and all of its comments.
func (s *ContentService) DeletePost(ctx context.Context, actor Actor, postID string) (CascadeResult, error) {
	post, group, err := s.postWithGroup(ctx, postID)
	if err != nil {
		return CascadeResult{}, err
	}
	if !post.CanModify(actor.ID, group.OwnerID) {
		return CascadeResult{}, ErrUnauthorized
	}
	return s.deleter.DeletePostCascade(ctx, postID)
}

func (s *ContentService) CreateComment(ctx context.Context, actor Actor, postID, body string) (*models.Comment, error) {
	body, err := cleanBody(body)
	if err != nil {
		return nil, err
	}
	post, group, err := s.postWithGroup(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !group.CanPost(actor.ID) {
		return nil, ErrUnauthorized
	}

	comment := &models.Comment{
		ID:         models.NewID(),
		GroupID:    post.GroupID,
		PostID:     postID,
		AuthorID:   actor.ID,
		AuthorName: models.DisplayName(actor.Name),
		Body:       body,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, classify(err)
	}

	s.notify(ctx, live.PostCommentsTopic(postID))
	return comment, nil
}

// ListComments returns the whole thread of a post, oldest first.
func (s *ContentService) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	if _, err := s.postRepo.FindByID(ctx, postID); err != nil {
		return nil, classify(err)
	}
	comments, err := s.commentRepo.QueryOrdered(ctx, postID, models.OrderCreatedAsc, 0, nil)
	if err != nil {
		return nil, classify(err)
	}
	return comments, nil
}

func (s *ContentService) EditComment(ctx context.Context, actor Actor, commentID, body string) (*models.Comment, error) {
	body, err := cleanBody(body)
	if err != nil {
		return nil, err
	}
	comment, err := s.authorizeComment(ctx, actor, commentID)
	if err != nil {
		return nil, err
	}
	if err := s.commentRepo.Update(ctx, commentID, body); err != nil {
		return nil, classify(err)
	}

	s.notify(ctx, live.PostCommentsTopic(comment.PostID))
	updated, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		return nil, classify(err)
	}
	return updated, nil
}

func (s *ContentService) DeleteComment(ctx context.Context, actor Actor, commentID string) error {
	comment, err := s.authorizeComment(ctx, actor, commentID)
	if err != nil {
		return err
	}
	if err := s.commentRepo.Delete(ctx, commentID); err != nil {
		return classify(err)
	}
	s.notify(ctx, live.PostCommentsTopic(comment.PostID))
	return nil
}

func (s *ContentService) authorizeComment(ctx context.Context, actor Actor, commentID string) (*models.Comment, error) {
	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		return nil, classify(err)
	}
	group, err := s.groupRepo.FindByID(ctx, comment.GroupID)
	if err != nil {
		return nil, classify(err)
	}
	if !comment.CanModify(actor.ID, group.OwnerID) {
		return nil, ErrUnauthorized
	}
	return comment, nil
}

func (s *ContentService) postWithGroup(ctx context.Context, postID string) (*models.Post, *models.Group, error) {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, nil, classify(err)
	}
	group, err := s.groupRepo.FindByID(ctx, post.GroupID)
	if err != nil {
		return nil, nil, classify(err)
	}
	return post, group, nil
}

func (s *ContentService) notify(ctx context.Context, topics ...string) {
	if err := s.publisher.Notify(ctx, topics...); err != nil {
		log.Printf("content notice failed topics=%v err=%v", topics, err)
	}
}

func cleanPost(title, body string) (string, string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", "", fmt.Errorf("%w: title is required", ErrInvalidContent)
	}
	if limit := validation.MaxTitleLength(); !validation.WithinLimit(title, limit) {
		return "", "", fmt.Errorf("%w: title must be at most %d characters", ErrInvalidContent, limit)
	}
	body, err := cleanBody(body)
	if err != nil {
		return "", "", err
	}
	return title, body, nil
}

func cleanBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", fmt.Errorf("%w: body is required", ErrInvalidContent)
	}
	if limit := validation.MaxBodyLength(); !validation.WithinLimit(body, limit) {
		return "", fmt.Errorf("%w: body must be at most %d characters", ErrInvalidContent, limit)
	}
	return body, nil
}
