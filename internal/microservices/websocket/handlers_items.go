package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"imis/internal/microservices/http-api/repository"
	"imis/internal/microservices/notify"
)

func (r *Router) changeStatus(ctx context.Context, c *Client, data json.RawMessage) error {
	var req changeStatusRequest
	if err := bind(data, &req); err != nil {
		return err
	}
	if err := r.requireMember(ctx, req.ProjectRoom, c.PrincipalID()); err != nil {
		return err
	}

	itemType := notify.ItemType(req.Type)
	subject := notify.Subject{ProjectID: req.ProjectRoom}
	var title string

	switch itemType {
	case notify.ItemProject:
		project, err := r.Projects.GetByID(ctx, req.ProjectRoom)
		if err != nil {
			return err
		}
		if err := r.Projects.UpdateStatus(ctx, project.ID, req.Status); err != nil {
			return fmt.Errorf("update project status: %w", err)
		}
		subject.ID = project.ID
		title = project.Title
	default:
		task, err := r.taskInProject(ctx, req.Item.itemID(), req.ProjectRoom)
		if err != nil {
			return err
		}
		if err := r.Tasks.UpdateStatus(ctx, task.ID, req.Status); err != nil {
			return fmt.Errorf("update task status: %w", err)
		}
		subject.ID = task.ID
		subject.TaskID = task.ID
		title = task.Title
	}

	if err := r.notifyMembers(ctx, c, subject, notify.StatusChange{
		ItemType: itemType,
		Title:    title,
		Status:   req.Status,
	}); err != nil {
		return err
	}

	r.audit(ctx, c.PrincipalID(), req.ProjectRoom,
		fmt.Sprintf("marked %s - %s as %s", itemType.Label(), title, req.Status))
	return nil
}

func (r *Router) changePriority(ctx context.Context, c *Client, data json.RawMessage) error {
	var req changePriorityRequest
	if err := bind(data, &req); err != nil {
		return err
	}
	if err := r.requireMember(ctx, req.ProjectRoom, c.PrincipalID()); err != nil {
		return err
	}

	task, err := r.taskInProject(ctx, req.Item.itemID(), req.ProjectRoom)
	if err != nil {
		return err
	}
	if err := r.Tasks.UpdatePriority(ctx, task.ID, req.Priority); err != nil {
		return fmt.Errorf("update task priority: %w", err)
	}

	subject := notify.Subject{ID: task.ID, ProjectID: req.ProjectRoom, TaskID: task.ID}
	if err := r.notifyMembers(ctx, c, subject, notify.PriorityChange{
		ItemType: notify.ItemTask,
		Title:    task.Title,
		Priority: req.Priority,
	}); err != nil {
		return err
	}

	r.audit(ctx, c.PrincipalID(), req.ProjectRoom,
		fmt.Sprintf("marked Task - %s with priority %s", task.Title, req.Priority))
	return nil
}

// taskInProject loads a task and refuses ids that belong to another project
func (r *Router) taskInProject(ctx context.Context, taskID, projectID string) (*taskRef, error) {
	if taskID == "" {
		return nil, fmt.Errorf("%w: missing item id", ErrInvalidPayload)
	}
	task, err := r.Tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.ProjectID != projectID {
		return nil, repository.ErrNotFound
	}
	return &taskRef{ID: task.ID, Title: task.Title, Watchers: task.Watchers()}, nil
}

type taskRef struct {
	ID       string
	Title    string
	Watchers []string
}

// notifyMembers raises an intent for every member of the project
func (r *Router) notifyMembers(ctx context.Context, c *Client, subject notify.Subject, action notify.Action) error {
	members, err := r.Projects.ListMemberIDs(ctx, subject.ProjectID)
	if err != nil {
		return fmt.Errorf("list project members: %w", err)
	}
	r.Notifier.Notify(notify.Intent{
		Action:     action,
		Recipients: notify.IDs(members...),
		Subject:    subject,
		ActorID:    c.PrincipalID(),
	})
	return nil
}
