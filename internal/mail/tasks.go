// Package mail 邮件任务：API 端入队，worker 端渲染并投递
package mail

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	QueueMail    = "mail"
	QueueDefault = "default"

	TaskVerify    = "mail:verify"
	TaskReset     = "mail:reset"
	TaskReconcile = "account:reconcile"
)

// Payload 邮件任务载荷
type Payload struct {
	To   string `json:"to"`
	Link string `json:"link"`
}

func newTask(typ string, p Payload) (*asynq.Task, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typ, b), nil
}

func NewVerifyTask(to, link string) (*asynq.Task, error) {
	return newTask(TaskVerify, Payload{To: to, Link: link})
}

func NewResetTask(to, link string) (*asynq.Task, error) {
	return newTask(TaskReset, Payload{To: to, Link: link})
}

// NewReconcileTask 孤儿凭证扫描（无载荷）
func NewReconcileTask() *asynq.Task { return asynq.NewTask(TaskReconcile, nil) }
