package notify

import (
	"fmt"
	"strings"
	"time"
)

type ActionKind string

const (
	KindGrant            ActionKind = "grant"
	KindRevoke           ActionKind = "revoke"
	KindChangeUserAccess ActionKind = "changeUserAccess"
	KindPriorityChange   ActionKind = "priorityChange"
	KindStatusChange     ActionKind = "statusChange"
	KindOwnershipChange  ActionKind = "ownershipChange"
	KindManagerChange    ActionKind = "managerChange"
	KindAssignTask       ActionKind = "assignTask"
	KindUnassignTask     ActionKind = "unassignTask"
	KindComment          ActionKind = "comment"
	KindNewMeeting       ActionKind = "newMeeting"
	KindRoleChange       ActionKind = "roleChange"
)

// Client-side channels a push is delivered on
const (
	EventAlertUser    = "Alert-User"
	EventTaskNotif    = "newTaskNotif"
	EventMsgNotif     = "newMsgNotif"
	EventNotification = "notification"
)

var eventNames = map[ActionKind]string{
	KindGrant:            EventAlertUser,
	KindRevoke:           EventAlertUser,
	KindOwnershipChange:  EventAlertUser,
	KindChangeUserAccess: EventAlertUser,
	KindManagerChange:    EventAlertUser,
	KindStatusChange:     EventTaskNotif,
	KindAssignTask:       EventTaskNotif,
	KindUnassignTask:     EventTaskNotif,
	KindPriorityChange:   EventTaskNotif,
	KindComment:          EventMsgNotif,
}

// EventName picks the push channel for an action kind
func EventName(kind ActionKind) string {
	if name, ok := eventNames[kind]; ok {
		return name
	}
	return EventNotification
}

// Message is the rendered title and details of a notification
type Message struct {
	Title   string
	Details string
}

// Action is the closed set of things that can be notified about.
// Each variant carries exactly the fields its message needs.
type Action interface {
	Kind() ActionKind
	Render() Message
	isAction()
}

type Grant struct{ Project string }

type Revoke struct{ Project string }

type ChangeUserAccess struct {
	Project    string
	Role       string
	Permission string
}

type PriorityChange struct {
	ItemType ItemType
	Title    string
	Priority string
}

type StatusChange struct {
	ItemType ItemType
	Title    string
	Status   string
}

type OwnershipChange struct{ Project string }

type ManagerChange struct{ Project string }

type AssignTask struct{ Task string }

type UnassignTask struct{ Task string }

type Comment struct {
	ItemType ItemType
	Title    string
	Author   string
	Body     string
}

type NewMeeting struct {
	Meeting   string
	Start     time.Time
	Organizer string
	Project   string
}

// RoleChange is also the fallback for action strings nobody recognises
type RoleChange struct{ Role string }

func (Grant) Kind() ActionKind            { return KindGrant }
func (Revoke) Kind() ActionKind           { return KindRevoke }
func (ChangeUserAccess) Kind() ActionKind { return KindChangeUserAccess }
func (PriorityChange) Kind() ActionKind   { return KindPriorityChange }
func (StatusChange) Kind() ActionKind     { return KindStatusChange }
func (OwnershipChange) Kind() ActionKind  { return KindOwnershipChange }
func (ManagerChange) Kind() ActionKind    { return KindManagerChange }
func (AssignTask) Kind() ActionKind       { return KindAssignTask }
func (UnassignTask) Kind() ActionKind     { return KindUnassignTask }
func (Comment) Kind() ActionKind          { return KindComment }
func (NewMeeting) Kind() ActionKind       { return KindNewMeeting }
func (RoleChange) Kind() ActionKind       { return KindRoleChange }

func (a Grant) Render() Message {
	return Message{"Membership Granted", fmt.Sprintf("You have been added to project - %s.", a.Project)}
}

func (a Revoke) Render() Message {
	return Message{"Membership Revoked", fmt.Sprintf("You have been removed from project - %s.", a.Project)}
}

func (a ChangeUserAccess) Render() Message {
	return Message{
		"Project Access Change",
		fmt.Sprintf("Your access in project - %s has been changed to %s - %s.", a.Project, a.Role, a.Permission),
	}
}

func (a PriorityChange) Render() Message {
	t := a.ItemType.Label()
	return Message{
		t + " Priority Update",
		fmt.Sprintf("The priority of %s - %s has been changed to %s.", t, a.Title, a.Priority),
	}
}

func (a StatusChange) Render() Message {
	t := a.ItemType.Label()
	return Message{
		t + " Status Update",
		fmt.Sprintf("The status of %s - %s has been changed to %s.", t, a.Title, a.Status),
	}
}

func (a OwnershipChange) Render() Message {
	return Message{"Ownership Change", fmt.Sprintf("You are now the owner of project - %s.", a.Project)}
}

func (a ManagerChange) Render() Message {
	return Message{"Management Change", fmt.Sprintf("You are now the manager of project - %s.", a.Project)}
}

func (a AssignTask) Render() Message {
	return Message{"Task Assignment", fmt.Sprintf("Task - %s has been assigned to you.", a.Task)}
}

func (a UnassignTask) Render() Message {
	return Message{"Task Unassignment", fmt.Sprintf("Task - %s is no longer assigned to you.", a.Task)}
}

func (a Comment) Render() Message {
	return Message{
		fmt.Sprintf("New Comment on %s - %s", a.ItemType.Label(), a.Title),
		fmt.Sprintf("%s : %s", a.Author, a.Body),
	}
}

func (a NewMeeting) Render() Message {
	return Message{
		"New Meeting Scheduled",
		fmt.Sprintf("%s on %s was scheduled by %s for project - %s.",
			a.Meeting, a.Start.Format("Jan 2, 2006 15:04 MST"), a.Organizer, a.Project),
	}
}

func (a RoleChange) Render() Message {
	return Message{"imis Role Change", fmt.Sprintf("Your role in imis has been changed to %s.", a.Role)}
}

func (Grant) isAction()            {}
func (Revoke) isAction()           {}
func (ChangeUserAccess) isAction() {}
func (PriorityChange) isAction()   {}
func (StatusChange) isAction()     {}
func (OwnershipChange) isAction()  {}
func (ManagerChange) isAction()    {}
func (AssignTask) isAction()       {}
func (UnassignTask) isAction()     {}
func (Comment) isAction()          {}
func (NewMeeting) isAction()       {}
func (RoleChange) isAction()       {}

// ItemType is the kind of work item an action refers to, as clients send it
type ItemType string

const (
	ItemProject ItemType = "projects"
	ItemTask    ItemType = "tasks"
)

// ParseItemType accepts either casing and either number, so "Task",
// "task" and "tasks" all name ItemTask. Empty stays empty.
func ParseItemType(s string) (ItemType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", true
	case "task", "tasks":
		return ItemTask, true
	case "project", "projects":
		return ItemProject, true
	default:
		return "", false
	}
}

// Label is the capitalised singular used in messages
func (t ItemType) Label() string {
	if t == ItemProject {
		return "Project"
	}
	return "Task"
}
