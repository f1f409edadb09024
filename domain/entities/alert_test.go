package entities

import (
	"testing"
	"time"
)

func TestAlertValidate(t *testing.T) {
	valid := func() *Alert {
		return &Alert{
			ID:            "alert-001",
			Type:          AlertTypeMedication,
			PetID:         "pet-001",
			Message:       "Time for Bella's heartworm pill",
			ScheduledTime: time.Now().Add(time.Hour),
			Priority:      AlertPriorityHigh,
		}
	}

	t.Run("ValidAlert", func(t *testing.T) {
		if err := valid().Validate(); err != nil {
			t.Errorf("Valid alert should pass validation: %v", err)
		}
	})

	t.Run("MissingID", func(t *testing.T) {
		alert := valid()
		alert.ID = ""
		if err := alert.Validate(); err == nil {
			t.Error("Alert with empty id should fail validation")
		}
	})

	t.Run("MissingMessage", func(t *testing.T) {
		alert := valid()
		alert.Message = ""
		if err := alert.Validate(); err == nil {
			t.Error("Alert with empty message should fail validation")
		}
	})

	t.Run("UnknownType", func(t *testing.T) {
		alert := valid()
		alert.Type = AlertType("party")
		if err := alert.Validate(); err == nil {
			t.Error("Alert with unknown type should fail validation")
		}
	})

	t.Run("UnknownPriority", func(t *testing.T) {
		alert := valid()
		alert.Priority = AlertPriority("urgent")
		if err := alert.Validate(); err == nil {
			t.Error("Alert with unknown priority should fail validation")
		}
	})

	t.Run("ZeroScheduledTime", func(t *testing.T) {
		alert := valid()
		alert.ScheduledTime = time.Time{}
		if err := alert.Validate(); err == nil {
			t.Error("Alert with zero scheduled time should fail validation")
		}
	})
}

func TestAlertPriorityRank(t *testing.T) {
	if AlertPriorityHigh.Rank() <= AlertPriorityNormal.Rank() {
		t.Error("Expected high priority to outrank normal")
	}
	if AlertPriorityNormal.Rank() <= AlertPriorityLow.Rank() {
		t.Error("Expected normal priority to outrank low")
	}
	if AlertPriority("bogus").Rank() >= AlertPriorityLow.Rank() {
		t.Error("Expected unknown priority to rank below low")
	}
}

func TestAlertDueAt(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	alert := &Alert{ScheduledTime: now}

	if !alert.DueAt(now) {
		t.Error("Alert scheduled exactly now should be due")
	}
	if !alert.DueAt(now.Add(time.Second)) {
		t.Error("Alert scheduled in the past should be due")
	}
	if alert.DueAt(now.Add(-time.Second)) {
		t.Error("Alert scheduled in the future should not be due")
	}
}
