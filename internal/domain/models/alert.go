package models

import "time"

// Alert is one anomaly notification as handed to delivery channels.
type Alert struct {
	ID        string    `json:"id"`
	Reason    string    `json:"reason"`
	Power     float64   `json:"power"`
	Contact   Contact   `json:"contact"`
	CreatedAt time.Time `json:"createdAt"`
}

// Demo alert sent by /trigger-alert.
const (
	DemoAlertReason = "Demo alert triggered manually"
	DemoAlertPower  = 999
)
