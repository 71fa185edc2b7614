package ws

import (
	"context"
	"errors"

	"github.com/noteduco342/moim-backend/internal/live"
	"github.com/noteduco342/moim-backend/internal/models"
	"github.com/noteduco342/moim-backend/internal/service"
)

// Topic kinds a client may subscribe to.
const (
	KindGroup        = "group"
	KindGroupPosts   = "group_posts"
	KindPost         = "post"
	KindPostComments = "post_comments"
	// KindGroupList is the first page of the group directory. It takes no id.
	KindGroupList = "group_list"
)

var ErrUnknownTopic = errors.New("unknown topic")

// Sources loads the snapshots pushed to subscribed clients.
type Sources struct {
	Broker     live.Broker
	Membership *service.MembershipService
	Feeds      *service.FeedService
	Content    *service.ContentService
	Directory  *service.GroupDirectory
}

// Target is a resolved subscription: the live topic and its snapshot loader.
type Target struct {
	Topic string
	Load  live.Loader[interface{}]
}

// Resolve maps a client kind and entity id to a live topic.
func (s *Sources) Resolve(kind, id string) (Target, error) {
	if kind == KindGroupList {
		return Target{
			Topic: live.GroupListTopic,
			Load: func(ctx context.Context) (interface{}, error) {
				return s.Directory.ListGroups(ctx, "")
			},
		}, nil
	}
	if id == "" {
		return Target{}, ErrUnknownTopic
	}
	switch kind {
	case KindGroup:
		return Target{
			Topic: live.GroupTopic(id),
			Load: func(ctx context.Context) (interface{}, error) {
				group, err := s.Membership.Load(ctx, id)
				if err != nil {
					return nil, err
				}
				return group.ToResponse(), nil
			},
		}, nil
	case KindGroupPosts:
		return Target{
			Topic: live.GroupPostsTopic(id),
			Load: func(ctx context.Context) (interface{}, error) {
				return s.Feeds.PageAfter(ctx, models.GroupParent(id), "")
			},
		}, nil
	case KindPost:
		return Target{
			Topic: live.PostTopic(id),
			Load: func(ctx context.Context) (interface{}, error) {
				return s.Content.GetPost(ctx, id)
			},
		}, nil
	case KindPostComments:
		return Target{
			Topic: live.PostCommentsTopic(id),
			Load: func(ctx context.Context) (interface{}, error) {
				return s.Content.ListComments(ctx, id)
			},
		}, nil
	default:
		return Target{}, ErrUnknownTopic
	}
}
