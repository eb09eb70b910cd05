package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/studyhelper-bot/internal/study"
)

const (
	// TaskTypeScanReminders looks up tasks due soon and fans out one delivery per student.
	TaskTypeScanReminders = "reminders:scan"
	// TaskTypeSendReminder delivers one student's digest.
	TaskTypeSendReminder = "reminders:send"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// Queues maps queue names to their asynq priority.
var Queues = map[string]int{
	QueueCritical: 6,
	QueueDefault:  3,
	QueueLow:      1,
}

type ScanRemindersPayload struct {
	Horizon time.Duration `json:"horizon"`
}

type SendReminderPayload struct {
	StudentUserID int64                `json:"student_user_id"`
	Items         []study.ReminderItem `json:"items"`
}

func NewScanRemindersTask(horizon time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(ScanRemindersPayload{Horizon: horizon})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeScanReminders, payload, asynq.Queue(QueueLow), asynq.MaxRetry(1)), nil
}

func NewSendReminderTask(studentUserID int64, items []study.ReminderItem) (*asynq.Task, error) {
	payload, err := json.Marshal(SendReminderPayload{StudentUserID: studentUserID, Items: items})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeSendReminder, payload, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// ReminderTaskID makes a delivery unique per student and day, so a rerun scan does not notify twice.
func ReminderTaskID(studentUserID int64, day time.Time) string {
	return fmt.Sprintf("reminder:%d:%s", studentUserID, day.Format("2006-01-02"))
}
