package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"imis/internal/microservices/http-api/models"
	"imis/internal/microservices/http-api/repository"
	"imis/internal/microservices/identity"
	"imis/internal/microservices/notify"
	"imis/internal/microservices/presence"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

func (r *Router) addComment(ctx context.Context, c *Client, data json.RawMessage) error {
	var req addCommentRequest
	if err := bind(data, &req); err != nil {
		return err
	}
	author := c.Profile()
	if err := r.requireMember(ctx, req.ProjectID, author.ID); err != nil {
		return err
	}

	task, err := r.taskInProject(ctx, req.Item.itemID(), req.ProjectID)
	if err != nil {
		return err
	}

	comment := &models.TaskComment{
		CommentID: uuid.NewString(),
		ProjectID: req.ProjectID,
		TaskID:    task.ID,
		Details:   req.Comment,
		CreatedBy: author.ID,
	}
	if err := r.Comments.Create(ctx, comment); err != nil {
		return fmt.Errorf("create comment: %w", err)
	}

	r.out.Publish(presence.PageScope(req.ProjectID), EventReceiveComment, receiveCommentPayload{
		TaskID:  task.ID,
		Comment: toCommentView(comment, author.Summary()),
	})

	// direct toast for watchers who are online right now
	watchers := lo.Without(task.Watchers, author.ID)
	online, offline := lo.FilterReject(watchers, func(id string, _ int) bool {
		return r.out.IsOnline(id)
	})
	toast := notify.PushPayload{
		RoomID:  req.ProjectID,
		Title:   fmt.Sprintf("New Comment on Task - %s", task.Title),
		Message: fmt.Sprintf("%s : %s", author.DisplayName, req.Comment),
	}
	for _, id := range online {
		r.out.SendTo(id, notify.EventTaskNotif, toast)
	}

	members, err := r.Projects.ListMemberIDs(ctx, req.ProjectID)
	if err != nil {
		return fmt.Errorf("list project members: %w", err)
	}
	r.Notifier.Notify(notify.Intent{
		Action: notify.Comment{
			ItemType: notify.ItemTask,
			Title:    task.Title,
			Author:   author.DisplayName,
			Body:     req.Comment,
		},
		Recipients: notify.IDs(lo.Without(lo.Union(members, offline), author.ID)...),
		Subject:    notify.Subject{ID: comment.CommentID, ProjectID: req.ProjectID, TaskID: task.ID},
		ActorID:    author.ID,
	})

	r.audit(ctx, author.ID, req.ProjectID,
		fmt.Sprintf("commented on Task - %s with comment - %s", task.Title, req.Comment))
	return nil
}

func (r *Router) likeComment(ctx context.Context, c *Client, data json.RawMessage) error {
	var req likeCommentRequest
	if err := bind(data, &req); err != nil {
		return err
	}
	actor := c.Profile()

	existing, err := r.Comments.GetByID(ctx, req.Comment.CommentID)
	if err != nil {
		return err
	}
	if err := r.requireMember(ctx, existing.ProjectID, actor.ID); err != nil {
		return err
	}

	comment, liked, err := r.Comments.ToggleLike(ctx, existing.CommentID, models.LikedBy{
		ID:          actor.ID,
		DisplayName: actor.DisplayName,
		Mail:        actor.Mail,
	})
	if err != nil {
		if errors.Is(err, repository.ErrLikeContention) {
			r.logger.Warn("like_contention", "comment_id", existing.CommentID, "principal_id", actor.ID)
		}
		return err
	}

	r.out.BroadcastAll(EventCommentLiked, commentLikedPayload{
		CommentID: comment.CommentID,
		LikedBy:   likedBySummaries(comment.LikedBy),
	})

	if liked && comment.CreatedBy != actor.ID {
		r.out.SendTo(comment.CreatedBy, EventCommentNotification, notify.PushPayload{
			RoomID:  comment.ProjectID,
			Title:   "Someone Just Liked Your Comment",
			Message: fmt.Sprintf("%s Liked Your Comment - %s", actor.DisplayName, comment.Details),
		})
	}
	return nil
}

func toCommentView(c *models.TaskComment, author identity.Summary) commentView {
	return commentView{
		CommentID: c.CommentID,
		ProjectID: c.ProjectID,
		TaskID:    c.TaskID,
		Details:   c.Details,
		CreatedBy: author,
		LikedBy:   likedBySummaries(c.LikedBy),
		CreatedAt: c.CreatedAt,
	}
}

func likedBySummaries(in []models.LikedBy) []likedBySummary {
	return lo.Map(in, func(l models.LikedBy, _ int) likedBySummary {
		return likedBySummary{ID: l.ID, DisplayName: l.DisplayName}
	})
}
