package repository

import (
	"todoList/internal/apperr"
	"todoList/models"
)

func errUnknownAssignee(op string, assignee *models.User) error {
	return apperr.New(apperr.KindAuthorization, op, "user (%s) doesn't exist", assigneeName(assignee))
}

func errTodoNotFound(op string, assignee *models.User, id int64) error {
	return apperr.NotFound(op, "todo with id %d doesn't exist or is not readable by user %s", id, assigneeName(assignee))
}

func errUserNotFound(op, name string) error {
	return apperr.NotFound(op, "user with name %s doesn't exist", name)
}

func errUserTaken(op, name string) error {
	return apperr.New(apperr.KindDuplicateUser, op, "username (%s) is already taken", name)
}

func assigneeName(u *models.User) string {
	if u == nil {
		return "<anonymous>"
	}
	return u.Name
}
